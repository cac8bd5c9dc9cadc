package database

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"vocaflow/migrations"
)

func newMigratedDB(t *testing.T) *DB {
	t.Helper()

	db, err := Initialize(filepath.Join(t.TempDir(), "vocaflow_test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fsys, err := migrations.For(db.Dialect.MigrationsSubdir(), "")
	if err != nil {
		t.Fatalf("Failed to load migrations: %v", err)
	}
	if _, err := db.RunMigrations(fsys); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	db := newMigratedDB(t)

	tables := []string{"teachers", "classrooms", "students", "enrollments", "assignments",
		"assignment_sessions", "conversation_logs", "prohibited_words", "migrations"}

	for _, table := range tables {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db := newMigratedDB(t)

	fsys, err := migrations.For("sqlite", "")
	if err != nil {
		t.Fatalf("Failed to load migrations: %v", err)
	}
	applied, err := db.RunMigrations(fsys)
	if err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("Expected no migrations on second run, got %v", applied)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	db := newMigratedDB(t)

	insert := "INSERT INTO students (id, name, email, password_hash) VALUES (?, ?, ?, ?)"

	err := db.WithTx(func(tx *Tx) error {
		_, err := tx.Exec(insert, "s-1", "Ana", "ana@example.com", "hash")
		return err
	})
	if err != nil {
		t.Fatalf("Committed transaction failed: %v", err)
	}

	err = db.WithTx(func(tx *Tx) error {
		if _, err := tx.Exec(insert, "s-2", "Luis", "luis@example.com", "hash"); err != nil {
			return err
		}
		// Duplicate email forces a rollback of the whole transaction
		_, err := tx.Exec(insert, "s-3", "Otro", "ana@example.com", "hash")
		return err
	})
	if err == nil {
		t.Fatal("Expected unique constraint error")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		t.Fatalf("Failed to count students: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 student after rollback, got %d", count)
	}
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db := newMigratedDB(t)

	func() {
		defer func() {
			if r := recover(); r != "boom" {
				t.Errorf("Expected panic %q to propagate, got %v", "boom", r)
			}
		}()
		_ = db.WithTx(func(tx *Tx) error {
			if _, err := tx.Exec("INSERT INTO students (id, name, email, password_hash) VALUES (?, ?, ?, ?)",
				"s-1", "Ana", "ana@example.com", "hash"); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
			panic("boom")
		})
	}()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM students").Scan(&count); err != nil {
		t.Fatalf("Failed to count students after panic: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected panicking transaction to be rolled back, got %d students", count)
	}

	err := db.WithTx(func(tx *Tx) error {
		_, err := tx.Exec("INSERT INTO students (id, name, email, password_hash) VALUES (?, ?, ?, ?)",
			"s-2", "Luis", "luis@example.com", "hash")
		return err
	})
	if err != nil {
		t.Fatalf("Transaction after panic failed: %v", err)
	}
}

func TestExecReturningID(t *testing.T) {
	db := newMigratedDB(t)

	mustExec(t, db, "INSERT INTO teachers (id, name, email, password_hash) VALUES ('t-1', 'Profe', 'p@example.com', 'x')")
	mustExec(t, db, "INSERT INTO classrooms (id, teacher_id, name, join_code) VALUES ('c-1', 't-1', 'Clase', 'ABC123')")
	mustExec(t, db, "INSERT INTO students (id, name, email, password_hash) VALUES ('s-1', 'Ana', 'a@example.com', 'x')")
	mustExec(t, db, "INSERT INTO assignments (id, classroom_id, title) VALUES ('a-1', 'c-1', 'Tarea')")
	mustExec(t, db, "INSERT INTO assignment_sessions (id, assignment_id, student_id) VALUES ('ss-1', 'a-1', 's-1')")

	first, err := db.ExecReturningID("INSERT INTO conversation_logs (session_id, message_type, content) VALUES (?, ?, ?)", "ss-1", "user", "Hola")
	if err != nil {
		t.Fatalf("ExecReturningID failed: %v", err)
	}
	second, err := db.ExecReturningID("INSERT INTO conversation_logs (session_id, message_type, content) VALUES (?, ?, ?)", "ss-1", "bot", "¡Hola!")
	if err != nil {
		t.Fatalf("ExecReturningID failed: %v", err)
	}
	if second <= first {
		t.Errorf("Expected increasing ids, got %d then %d", first, second)
	}

	_, err = db.ExecReturningID("INSERT INTO conversation_logs (session_id, message_type, content) VALUES (?, ?, ?)", "ss-1", "narrator", "x")
	if err == nil {
		t.Error("Expected CHECK constraint to reject unknown message_type")
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db := newMigratedDB(t)

	_, err := db.Exec("INSERT INTO classrooms (id, teacher_id, name, join_code) VALUES ('c-1', 'missing', 'Clase', 'ZZZ999')")
	if err == nil || !strings.Contains(strings.ToLower(err.Error()), "foreign key") {
		t.Errorf("Expected foreign key error, got %v", err)
	}
}

func TestProhibitedWords(t *testing.T) {
	db := newMigratedDB(t)

	added, err := db.SeedProhibitedWords([]string{"Cerveza", " tequila ", "", "cerveza"})
	if err != nil {
		t.Fatalf("SeedProhibitedWords failed: %v", err)
	}
	if added != 2 {
		t.Errorf("Expected 2 words added, got %d", added)
	}

	again, err := db.SeedProhibitedWords([]string{"tequila"})
	if err != nil {
		t.Fatalf("Reseed failed: %v", err)
	}
	if again != 0 {
		t.Errorf("Expected reseed to add 0, got %d", again)
	}

	words, err := db.ProhibitedWords()
	if err != nil {
		t.Fatalf("ProhibitedWords failed: %v", err)
	}
	if len(words) != 2 || words[0] != "cerveza" || words[1] != "tequila" {
		t.Errorf("Unexpected words: %v", words)
	}

	found, err := db.ValidateWords([]string{"gato", "TEQUILA", "perro"})
	if err != nil {
		t.Fatalf("ValidateWords failed: %v", err)
	}
	if len(found) != 1 || found[0] != "TEQUILA" {
		t.Errorf("Expected [TEQUILA], got %v", found)
	}
}

func TestReadWordList(t *testing.T) {
	words, err := readWordList(strings.NewReader("Vodka\n\n  whisky \n"))
	if err != nil {
		t.Fatalf("readWordList failed: %v", err)
	}
	if len(words) != 2 || words[0] != "vodka" || words[1] != "whisky" {
		t.Errorf("Unexpected words: %v", words)
	}
}

// TestConcurrentAccess tests concurrent database access
func TestConcurrentAccess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := newMigratedDB(t)
	mustExec(t, db, "INSERT INTO students (id, name, email, password_hash) VALUES ('s-1', 'Ana', 'ana@example.com', 'x')")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var name string
			if err := db.QueryRow("SELECT name FROM students WHERE email = ?", "ana@example.com").Scan(&name); err != nil {
				t.Errorf("Concurrent read failed: %v", err)
				return
			}
			if name != "Ana" {
				t.Errorf("Expected name 'Ana', got '%s'", name)
			}
		}()
	}
	wg.Wait()
}

func mustExec(t *testing.T, db *DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}
