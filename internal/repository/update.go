package repository

import (
	"strings"
)

// setClause collects "column = ?" assignments for partial updates
type setClause struct {
	columns []string
	args    []interface{}
}

func (s *setClause) add(column string, value interface{}) {
	s.columns = append(s.columns, column+" = ?")
	s.args = append(s.args, value)
}

func (s *setClause) empty() bool {
	return len(s.columns) == 0
}

// statement builds "UPDATE table SET ... WHERE id = ?" with id appended to the args
func (s *setClause) statement(table, id string) (string, []interface{}) {
	query := "UPDATE " + table + " SET " + strings.Join(s.columns, ", ") + " WHERE id = ?"
	return query, append(s.args, id)
}
