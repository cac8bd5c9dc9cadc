package repository

import (
	"fmt"

	"vocaflow/internal/database"
)

// StaleAssignment identifies an assignment eligible for hard deletion
type StaleAssignment struct {
	ID           string
	Title        string
	ClassroomID  string
	SessionCount int
	Reason       string
}

// AdminRepository runs maintenance operations that bypass soft deletion
type AdminRepository struct {
	db *database.DB
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(db *database.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// ListStaleAssignments returns assignments that are inactive, belong to an
// inactive classroom, or reference a classroom that no longer exists
func (r *AdminRepository) ListStaleAssignments() ([]StaleAssignment, error) {
	active := r.db.Dialect.BoolValue(true)
	query := `
		SELECT a.id, a.title, a.classroom_id,
			(SELECT COUNT(*) FROM assignment_sessions s WHERE s.assignment_id = a.id),
			CASE
				WHEN c.id IS NULL THEN 'orphaned'
				WHEN c.is_active <> ` + active + ` THEN 'inactive classroom'
				ELSE 'inactive'
			END
		FROM assignments a
		LEFT JOIN classrooms c ON c.id = a.classroom_id
		WHERE a.is_active <> ` + active + ` OR c.id IS NULL OR c.is_active <> ` + active + `
		ORDER BY a.created_at ASC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale assignments: %w", err)
	}
	defer rows.Close()

	var stale []StaleAssignment
	for rows.Next() {
		var a StaleAssignment
		if err := rows.Scan(&a.ID, &a.Title, &a.ClassroomID, &a.SessionCount, &a.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan stale assignment: %w", err)
		}
		stale = append(stale, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stale assignments: %w", err)
	}

	return stale, nil
}

// CleanupInactiveAssignments hard-deletes stale assignments together with
// their sessions and conversation logs. Returns what was removed.
func (r *AdminRepository) CleanupInactiveAssignments() ([]StaleAssignment, error) {
	stale, err := r.ListStaleAssignments()
	if err != nil {
		return nil, err
	}
	if len(stale) == 0 {
		return nil, nil
	}

	err = r.db.WithTx(func(tx *database.Tx) error {
		for _, a := range stale {
			if _, err := tx.Exec(`
				DELETE FROM conversation_logs
				WHERE session_id IN (SELECT id FROM assignment_sessions WHERE assignment_id = ?)
			`, a.ID); err != nil {
				return fmt.Errorf("failed to delete logs for assignment %s: %w", a.ID, err)
			}
			if _, err := tx.Exec("DELETE FROM assignment_sessions WHERE assignment_id = ?", a.ID); err != nil {
				return fmt.Errorf("failed to delete sessions for assignment %s: %w", a.ID, err)
			}
			if _, err := tx.Exec("DELETE FROM assignments WHERE id = ?", a.ID); err != nil {
				return fmt.Errorf("failed to delete assignment %s: %w", a.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stale, nil
}

// UserCounts reports how many accounts exist
type UserCounts struct {
	Teachers int
	Students int
}

// CountUsers counts teacher and student accounts
func (r *AdminRepository) CountUsers() (UserCounts, error) {
	var counts UserCounts
	if err := r.db.QueryRow("SELECT COUNT(*) FROM teachers").Scan(&counts.Teachers); err != nil {
		return counts, fmt.Errorf("failed to count teachers: %w", err)
	}
	if err := r.db.QueryRow("SELECT COUNT(*) FROM students").Scan(&counts.Students); err != nil {
		return counts, fmt.Errorf("failed to count students: %w", err)
	}
	return counts, nil
}

// ClearUsers deletes every teacher and student along with all rows that
// depend on them. The prohibited word list is kept.
func (r *AdminRepository) ClearUsers() (UserCounts, error) {
	counts, err := r.CountUsers()
	if err != nil {
		return counts, err
	}

	tables := []string{
		"conversation_logs",
		"assignment_sessions",
		"enrollments",
		"assignments",
		"classrooms",
		"students",
		"teachers",
	}
	err = r.db.WithTx(func(tx *database.Tx) error {
		for _, table := range tables {
			if _, err := tx.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		return UserCounts{}, err
	}

	return counts, nil
}
