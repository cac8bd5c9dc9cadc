package service

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"vocaflow/internal/database"
	"vocaflow/internal/repository"
)

const backupVersion = "1.0"

// ErrDatabaseNotEmpty is returned when importing over existing accounts
// without force
var ErrDatabaseNotEmpty = errors.New("database already has accounts; use force to replace them")

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string             `json:"version"`
	ExportedAt   time.Time          `json:"exported_at"`
	DatabaseType string             `json:"database_type"`
	Teachers     []TeacherBackup    `json:"teachers"`
	Classrooms   []ClassroomBackup  `json:"classrooms"`
	Students     []StudentBackup    `json:"students"`
	Enrollments  []EnrollmentBackup `json:"enrollments"`
	Assignments  []AssignmentBackup `json:"assignments"`
	Sessions     []SessionBackup    `json:"sessions"`
	Logs         []LogBackup        `json:"logs"`
}

// TeacherBackup represents a teacher record for backup
type TeacherBackup struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	School       string    `json:"school"`
	Title        string    `json:"title"`
	Bio          string    `json:"bio"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClassroomBackup represents a classroom record for backup
type ClassroomBackup struct {
	ID           string    `json:"id"`
	TeacherID    string    `json:"teacher_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	GradeLevel   string    `json:"grade_level"`
	Subject      string    `json:"subject"`
	SpanishLevel string    `json:"spanish_level"`
	IsAdvanced   bool      `json:"is_advanced"`
	JoinCode     string    `json:"join_code"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// StudentBackup represents a student record for backup
type StudentBackup struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	GradeLevel   string    `json:"grade_level"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// EnrollmentBackup represents a classroom membership for backup
type EnrollmentBackup struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	ClassroomID string    `json:"classroom_id"`
	EnrolledAt  time.Time `json:"enrolled_at"`
	IsActive    bool      `json:"is_active"`
}

// AssignmentBackup represents an assignment for backup. Vocab keeps its
// stored JSON encoding.
type AssignmentBackup struct {
	ID                    string     `json:"id"`
	ClassroomID           string     `json:"classroom_id"`
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	Instructions          string     `json:"instructions"`
	Level                 string     `json:"level"`
	Duration              int        `json:"duration"`
	DueDate               *time.Time `json:"due_date"`
	Prompt                string     `json:"prompt"`
	Vocab                 string     `json:"vocab"`
	MinVocabWords         int        `json:"min_vocab_words"`
	AvatarRole            string     `json:"avatar_role"`
	AvatarCharacteristics string     `json:"avatar_characteristics"`
	VoiceSpeed            float64    `json:"voice_speed"`
	IsActive              bool       `json:"is_active"`
	CreatedAt             time.Time  `json:"created_at"`
}

// SessionBackup represents a conversation attempt for backup
type SessionBackup struct {
	ID                  string     `json:"id"`
	AssignmentID        string     `json:"assignment_id"`
	StudentID           string     `json:"student_id"`
	StartTime           time.Time  `json:"start_time"`
	EndTime             *time.Time `json:"end_time"`
	Completed           bool       `json:"completed"`
	MessageCount        int        `json:"message_count"`
	VoiceUsed           bool       `json:"voice_used"`
	TranscriptUsed      bool       `json:"transcript_used"`
	IsActive            bool       `json:"is_active"`
	SubmittedForGrading bool       `json:"submitted_for_grading"`
	AttemptNumber       int        `json:"attempt_number"`
	CreatedAt           time.Time  `json:"created_at"`
}

// LogBackup represents one conversation line. Ids are reassigned on import.
type LogBackup struct {
	SessionID   string    `json:"session_id"`
	MessageType string    `json:"message_type"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	CreatedAt   time.Time `json:"created_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db    *database.DB
	admin *repository.AdminRepository
	log   logrus.FieldLogger
	now   func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, log logrus.FieldLogger) *BackupService {
	return &BackupService{
		db:    db,
		admin: repository.NewAdminRepository(db),
		log:   log,
		now:   time.Now,
	}
}

// Snapshot reads every account and its classroom data
func (s *BackupService) Snapshot() (*BackupData, error) {
	backup := &BackupData{
		Version:      backupVersion,
		ExportedAt:   s.now().UTC(),
		DatabaseType: "universal",
	}

	steps := []struct {
		name string
		fn   func(*BackupData) error
	}{
		{"teachers", s.exportTeachers},
		{"classrooms", s.exportClassrooms},
		{"students", s.exportStudents},
		{"enrollments", s.exportEnrollments},
		{"assignments", s.exportAssignments},
		{"sessions", s.exportSessions},
		{"conversation logs", s.exportLogs},
	}
	for _, step := range steps {
		if err := step.fn(backup); err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", step.name, err)
		}
	}
	return backup, nil
}

// Export writes an indented JSON backup to w
func (s *BackupService) Export(w io.Writer) error {
	backup, err := s.Snapshot()
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"teachers":    len(backup.Teachers),
		"classrooms":  len(backup.Classrooms),
		"students":    len(backup.Students),
		"assignments": len(backup.Assignments),
		"sessions":    len(backup.Sessions),
		"logs":        len(backup.Logs),
	}).Info("Database exported")
	return nil
}

// ExportToFile creates a complete backup of the database in a file
func (s *BackupService) ExportToFile(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.Export(file); err != nil {
		return err
	}
	s.log.WithField("path", outputPath).Info("Backup written")
	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string, force bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	s.log.WithField("path", inputPath).Info("Starting database import")
	return s.ImportFromReader(file, force)
}

// ImportFromReader restores a database from a backup stream. Existing
// accounts block the import unless force is set, in which case they are
// cleared first.
func (s *BackupService) ImportFromReader(reader io.Reader, force bool) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != backupVersion {
		return fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	log := s.log.WithFields(logrus.Fields{"version": backup.Version, "exported_at": backup.ExportedAt})

	counts, err := s.admin.CountUsers()
	if err != nil {
		return err
	}
	if counts.Teachers+counts.Students > 0 {
		if !force {
			return ErrDatabaseNotEmpty
		}
		if _, err := s.admin.ClearUsers(); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"teachers": counts.Teachers, "students": counts.Students}).Warn("Cleared existing accounts before import")
	}

	err = s.db.WithTx(func(tx *database.Tx) error {
		steps := []struct {
			name string
			fn   func(*database.Tx, *BackupData) error
		}{
			{"teachers", importTeachers},
			{"classrooms", importClassrooms},
			{"students", importStudents},
			{"enrollments", importEnrollments},
			{"assignments", importAssignments},
			{"sessions", importSessions},
			{"conversation logs", importLogs},
		}
		for _, step := range steps {
			if err := step.fn(tx, &backup); err != nil {
				return fmt.Errorf("failed to import %s: %w", step.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"teachers":    len(backup.Teachers),
		"classrooms":  len(backup.Classrooms),
		"students":    len(backup.Students),
		"assignments": len(backup.Assignments),
		"sessions":    len(backup.Sessions),
		"logs":        len(backup.Logs),
	}).Info("Database import completed")
	return nil
}

func (s *BackupService) exportTeachers(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, name, email, password_hash, school, title, bio, created_at FROM teachers ORDER BY created_at, id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var t TeacherBackup
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.PasswordHash, &t.School, &t.Title, &t.Bio, &t.CreatedAt); err != nil {
			return err
		}
		backup.Teachers = append(backup.Teachers, t)
	}
	return rows.Err()
}

func (s *BackupService) exportClassrooms(backup *BackupData) error {
	rows, err := s.db.Query(`SELECT id, teacher_id, name, description, grade_level, subject, spanish_level,
		is_advanced, join_code, is_active, created_at FROM classrooms ORDER BY created_at, id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ClassroomBackup
		if err := rows.Scan(&c.ID, &c.TeacherID, &c.Name, &c.Description, &c.GradeLevel, &c.Subject,
			&c.SpanishLevel, &c.IsAdvanced, &c.JoinCode, &c.IsActive, &c.CreatedAt); err != nil {
			return err
		}
		backup.Classrooms = append(backup.Classrooms, c)
	}
	return rows.Err()
}

func (s *BackupService) exportStudents(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, name, email, password_hash, grade_level, is_active, created_at FROM students ORDER BY created_at, id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var st StudentBackup
		if err := rows.Scan(&st.ID, &st.Name, &st.Email, &st.PasswordHash, &st.GradeLevel, &st.IsActive, &st.CreatedAt); err != nil {
			return err
		}
		backup.Students = append(backup.Students, st)
	}
	return rows.Err()
}

func (s *BackupService) exportEnrollments(backup *BackupData) error {
	rows, err := s.db.Query("SELECT id, student_id, classroom_id, enrolled_at, is_active FROM enrollments ORDER BY enrolled_at, id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var e EnrollmentBackup
		if err := rows.Scan(&e.ID, &e.StudentID, &e.ClassroomID, &e.EnrolledAt, &e.IsActive); err != nil {
			return err
		}
		backup.Enrollments = append(backup.Enrollments, e)
	}
	return rows.Err()
}

func (s *BackupService) exportAssignments(backup *BackupData) error {
	rows, err := s.db.Query(`SELECT id, classroom_id, title, description, instructions, level, duration, due_date,
		prompt, vocab, min_vocab_words, avatar_role, avatar_characteristics, voice_speed, is_active, created_at
		FROM assignments ORDER BY created_at, id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a AssignmentBackup
		var dueDate sql.NullTime
		if err := rows.Scan(&a.ID, &a.ClassroomID, &a.Title, &a.Description, &a.Instructions, &a.Level, &a.Duration,
			&dueDate, &a.Prompt, &a.Vocab, &a.MinVocabWords, &a.AvatarRole, &a.AvatarCharacteristics,
			&a.VoiceSpeed, &a.IsActive, &a.CreatedAt); err != nil {
			return err
		}
		if dueDate.Valid {
			a.DueDate = &dueDate.Time
		}
		backup.Assignments = append(backup.Assignments, a)
	}
	return rows.Err()
}

func (s *BackupService) exportSessions(backup *BackupData) error {
	rows, err := s.db.Query(`SELECT id, assignment_id, student_id, start_time, end_time, completed, message_count,
		voice_used, transcript_used, is_active, submitted_for_grading, attempt_number, created_at
		FROM assignment_sessions ORDER BY created_at, id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var ss SessionBackup
		var endTime sql.NullTime
		if err := rows.Scan(&ss.ID, &ss.AssignmentID, &ss.StudentID, &ss.StartTime, &endTime, &ss.Completed,
			&ss.MessageCount, &ss.VoiceUsed, &ss.TranscriptUsed, &ss.IsActive, &ss.SubmittedForGrading,
			&ss.AttemptNumber, &ss.CreatedAt); err != nil {
			return err
		}
		if endTime.Valid {
			ss.EndTime = &endTime.Time
		}
		backup.Sessions = append(backup.Sessions, ss)
	}
	return rows.Err()
}

func (s *BackupService) exportLogs(backup *BackupData) error {
	rows, err := s.db.Query("SELECT session_id, message_type, content, timestamp, created_at FROM conversation_logs ORDER BY id")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l LogBackup
		if err := rows.Scan(&l.SessionID, &l.MessageType, &l.Content, &l.Timestamp, &l.CreatedAt); err != nil {
			return err
		}
		backup.Logs = append(backup.Logs, l)
	}
	return rows.Err()
}

func importTeachers(tx *database.Tx, backup *BackupData) error {
	for _, t := range backup.Teachers {
		_, err := tx.Exec("INSERT INTO teachers (id, name, email, password_hash, school, title, bio, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			t.ID, t.Name, t.Email, t.PasswordHash, t.School, t.Title, t.Bio, t.CreatedAt)
		if err != nil {
			return fmt.Errorf("teacher %s: %w", t.ID, err)
		}
	}
	return nil
}

func importClassrooms(tx *database.Tx, backup *BackupData) error {
	for _, c := range backup.Classrooms {
		_, err := tx.Exec(`INSERT INTO classrooms (id, teacher_id, name, description, grade_level, subject, spanish_level,
			is_advanced, join_code, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.TeacherID, c.Name, c.Description, c.GradeLevel, c.Subject, c.SpanishLevel,
			c.IsAdvanced, c.JoinCode, c.IsActive, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("classroom %s: %w", c.ID, err)
		}
	}
	return nil
}

func importStudents(tx *database.Tx, backup *BackupData) error {
	for _, st := range backup.Students {
		_, err := tx.Exec("INSERT INTO students (id, name, email, password_hash, grade_level, is_active, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			st.ID, st.Name, st.Email, st.PasswordHash, st.GradeLevel, st.IsActive, st.CreatedAt)
		if err != nil {
			return fmt.Errorf("student %s: %w", st.ID, err)
		}
	}
	return nil
}

func importEnrollments(tx *database.Tx, backup *BackupData) error {
	for _, e := range backup.Enrollments {
		_, err := tx.Exec("INSERT INTO enrollments (id, student_id, classroom_id, enrolled_at, is_active) VALUES (?, ?, ?, ?, ?)",
			e.ID, e.StudentID, e.ClassroomID, e.EnrolledAt, e.IsActive)
		if err != nil {
			return fmt.Errorf("enrollment %s: %w", e.ID, err)
		}
	}
	return nil
}

func importAssignments(tx *database.Tx, backup *BackupData) error {
	for _, a := range backup.Assignments {
		var dueDate interface{}
		if a.DueDate != nil {
			dueDate = *a.DueDate
		}
		vocab := a.Vocab
		if vocab == "" {
			vocab = "[]"
		}
		_, err := tx.Exec(`INSERT INTO assignments (id, classroom_id, title, description, instructions, level, duration,
			due_date, prompt, vocab, min_vocab_words, avatar_role, avatar_characteristics, voice_speed, is_active, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.ClassroomID, a.Title, a.Description, a.Instructions, a.Level, a.Duration,
			dueDate, a.Prompt, vocab, a.MinVocabWords, a.AvatarRole, a.AvatarCharacteristics,
			a.VoiceSpeed, a.IsActive, a.CreatedAt)
		if err != nil {
			return fmt.Errorf("assignment %s: %w", a.ID, err)
		}
	}
	return nil
}

func importSessions(tx *database.Tx, backup *BackupData) error {
	for _, ss := range backup.Sessions {
		var endTime interface{}
		if ss.EndTime != nil {
			endTime = *ss.EndTime
		}
		_, err := tx.Exec(`INSERT INTO assignment_sessions (id, assignment_id, student_id, start_time, end_time, completed,
			message_count, voice_used, transcript_used, is_active, submitted_for_grading, attempt_number, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ss.ID, ss.AssignmentID, ss.StudentID, ss.StartTime, endTime, ss.Completed,
			ss.MessageCount, ss.VoiceUsed, ss.TranscriptUsed, ss.IsActive, ss.SubmittedForGrading,
			ss.AttemptNumber, ss.CreatedAt)
		if err != nil {
			return fmt.Errorf("session %s: %w", ss.ID, err)
		}
	}
	return nil
}

func importLogs(tx *database.Tx, backup *BackupData) error {
	for i, l := range backup.Logs {
		_, err := tx.Exec("INSERT INTO conversation_logs (session_id, message_type, content, timestamp, created_at) VALUES (?, ?, ?, ?, ?)",
			l.SessionID, l.MessageType, l.Content, l.Timestamp, l.CreatedAt)
		if err != nil {
			return fmt.Errorf("log %d of session %s: %w", i, l.SessionID, err)
		}
	}
	return nil
}
