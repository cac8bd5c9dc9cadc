package database

import (
	"testing"
)

func TestDialectSQLite(t *testing.T) {
	dialect := NewSQLiteDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "sqlite3"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for SQLite")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "sqlite"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectPostgreSQL(t *testing.T) {
	dialect := NewPostgresDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "postgres"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if result {
			t.Error("SupportsLastInsertId() should return false for PostgreSQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "postgres"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestDialectMySQL(t *testing.T) {
	dialect := NewMySQLDialect()

	t.Run("DriverName", func(t *testing.T) {
		result := dialect.DriverName()
		expected := "mysql"
		if result != expected {
			t.Errorf("DriverName() = %v, want %v", result, expected)
		}
	})

	t.Run("SupportsLastInsertId", func(t *testing.T) {
		result := dialect.SupportsLastInsertId()
		if !result {
			t.Error("SupportsLastInsertId() should return true for MySQL")
		}
	})

	t.Run("MigrationsSubdir", func(t *testing.T) {
		result := dialect.MigrationsSubdir()
		expected := "mysql"
		if result != expected {
			t.Errorf("MigrationsSubdir() = %v, want %v", result, expected)
		}
	})
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    string
		expected string
	}{
		{
			name:     "SQLite no change",
			dialect:  NewSQLiteDialect(),
			query:    "SELECT * FROM classrooms WHERE join_code = ?",
			expected: "SELECT * FROM classrooms WHERE join_code = ?",
		},
		{
			name:     "PostgreSQL single placeholder",
			dialect:  NewPostgresDialect(),
			query:    "SELECT * FROM classrooms WHERE join_code = ?",
			expected: "SELECT * FROM classrooms WHERE join_code = $1",
		},
		{
			name:     "PostgreSQL multiple placeholders",
			dialect:  NewPostgresDialect(),
			query:    "INSERT INTO conversation_logs (session_id, message_type, content) VALUES (?, ?, ?)",
			expected: "INSERT INTO conversation_logs (session_id, message_type, content) VALUES ($1, $2, $3)",
		},
		{
			name:     "PostgreSQL skips quoted question marks",
			dialect:  NewPostgresDialect(),
			query:    "SELECT id FROM assignments WHERE title = '¿Qué?' AND classroom_id = ? AND prompt <> 'it''s ?'",
			expected: "SELECT id FROM assignments WHERE title = '¿Qué?' AND classroom_id = $1 AND prompt <> 'it''s ?'",
		},
		{
			name:     "PostgreSQL skips quoted identifiers and comments",
			dialect:  NewPostgresDialect(),
			query:    "SELECT \"odd?\" FROM t -- why?\nWHERE a = ? AND b = ?",
			expected: "SELECT \"odd?\" FROM t -- why?\nWHERE a = $1 AND b = $2",
		},
		{
			name:     "MySQL no change",
			dialect:  NewMySQLDialect(),
			query:    "UPDATE assignment_sessions SET completed = ?, end_time = ? WHERE id = ?",
			expected: "UPDATE assignment_sessions SET completed = ?, end_time = ? WHERE id = ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.dialect.RewriteQuery(tt.query)
			if result != tt.expected {
				t.Errorf("RewriteQuery() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		config   DialectConfig
		expected string
	}{
		{
			name:     "SQLite adds pragmas",
			dialect:  NewSQLiteDialect(),
			config:   DialectConfig{Path: "./vocaflow.db"},
			expected: "./vocaflow.db?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000",
		},
		{
			name:     "SQLite keeps existing params",
			dialect:  NewSQLiteDialect(),
			config:   DialectConfig{Path: "file:test.db?cache=shared"},
			expected: "file:test.db?cache=shared&_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000",
		},
		{
			name:     "PostgreSQL URL gets UTC time zone",
			dialect:  NewPostgresDialect(),
			config:   DialectConfig{URL: "postgres://u:p@localhost/vocaflow?sslmode=disable"},
			expected: "postgres://u:p@localhost/vocaflow?sslmode=disable&timezone=UTC",
		},
		{
			name:     "PostgreSQL keeps explicit time zone",
			dialect:  NewPostgresDialect(),
			config:   DialectConfig{URL: "postgres://u:p@localhost/vocaflow?TimeZone=Europe/Madrid"},
			expected: "postgres://u:p@localhost/vocaflow?TimeZone=Europe/Madrid",
		},
		{
			name:     "PostgreSQL keyword form",
			dialect:  NewPostgresDialect(),
			config:   DialectConfig{URL: "host=localhost dbname=vocaflow sslmode=disable"},
			expected: "host=localhost dbname=vocaflow sslmode=disable timezone=UTC",
		},
		{
			name:     "MySQL adds parseTime and multiStatements",
			dialect:  NewMySQLDialect(),
			config:   DialectConfig{URL: "u:p@tcp(localhost:3306)/vocaflow"},
			expected: "u:p@tcp(localhost:3306)/vocaflow?parseTime=true&multiStatements=true",
		},
		{
			name:     "MySQL respects explicit parseTime",
			dialect:  NewMySQLDialect(),
			config:   DialectConfig{URL: "u:p@tcp(localhost:3306)/vocaflow?parseTime=false"},
			expected: "u:p@tcp(localhost:3306)/vocaflow?parseTime=false&multiStatements=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.DSN(tt.config); got != tt.expected {
				t.Errorf("DSN() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBoolValue(t *testing.T) {
	if got := NewSQLiteDialect().BoolValue(true); got != "1" {
		t.Errorf("SQLite BoolValue(true) = %v, want 1", got)
	}
	if got := NewPostgresDialect().BoolValue(false); got != "FALSE" {
		t.Errorf("PostgreSQL BoolValue(false) = %v, want FALSE", got)
	}
	if got := NewMySQLDialect().BoolValue(true); got != "TRUE" {
		t.Errorf("MySQL BoolValue(true) = %v, want TRUE", got)
	}
}
