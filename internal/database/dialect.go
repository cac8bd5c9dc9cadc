package database

import (
	"database/sql"
	"strconv"
	"strings"
)

// Dialect hides the differences between the SQLite, PostgreSQL and MySQL
// backends. Repositories write portable SQL with ? placeholders.
type Dialect interface {
	// DriverName returns the driver name for sql.Open
	DriverName() string

	// DSN builds the data source name, adding the settings the store
	// depends on (foreign keys, time parsing, UTC sessions)
	DSN(config DialectConfig) string

	// RewriteQuery converts ? placeholders to the driver's syntax
	RewriteQuery(query string) string

	// SupportsLastInsertId returns true if the driver supports LastInsertId()
	SupportsLastInsertId() bool

	// ConfigureConnection applies pool limits and per-database settings
	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir names the embedded migrations directory
	MigrationsSubdir() string

	// CreateMigrationsTableQuery returns the SQL to create the migrations tracking table
	CreateMigrationsTableQuery() string

	// BoolValue returns the SQL literal for b, for use in inline predicates
	BoolValue(b bool) string
}

// DialectConfig holds configuration for database connection
type DialectConfig struct {
	// For SQLite
	Path string

	// For PostgreSQL/MySQL
	URL string
}

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, ... A ?
// inside a single-quoted literal, a double-quoted identifier or a -- line
// comment is left alone.
func rewritePlaceholdersToNumbered(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	counter := 0
	var quote byte
	inComment := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case inComment:
			if c == '\n' {
				inComment = false
			}
		case quote != 0:
			// a doubled quote is an escaped quote and keeps the span open
			if c == quote {
				if i+1 < len(query) && query[i+1] == quote {
					b.WriteByte(c)
					i++
				} else {
					quote = 0
				}
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			inComment = true
		case c == '?':
			counter++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(counter))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
