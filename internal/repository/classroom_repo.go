package repository

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"vocaflow/internal/credentials"
	"vocaflow/internal/database"
	"vocaflow/internal/models"
)

// maxJoinCodeAttempts bounds the search for an unused join code
const maxJoinCodeAttempts = 20

// ClassroomRepository handles database operations for classrooms
type ClassroomRepository struct {
	db *database.DB
}

// NewClassroomRepository creates a new classroom repository
func NewClassroomRepository(db *database.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// Create inserts a classroom with a freshly generated, unused join code
func (r *ClassroomRepository) Create(classroom *models.Classroom) error {
	code, err := r.uniqueJoinCode()
	if err != nil {
		return err
	}

	classroom.ID = uuid.New().String()
	classroom.JoinCode = code
	classroom.IsActive = true
	classroom.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO classrooms (id, teacher_id, name, description, grade_level, subject,
			spanish_level, is_advanced, join_code, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, classroom.ID, classroom.TeacherID, classroom.Name, classroom.Description,
		classroom.GradeLevel, classroom.Subject, classroom.SpanishLevel, classroom.IsAdvanced,
		classroom.JoinCode, classroom.IsActive, classroom.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create classroom: %w", err)
	}
	return nil
}

func (r *ClassroomRepository) uniqueJoinCode() (string, error) {
	for i := 0; i < maxJoinCodeAttempts; i++ {
		code, err := credentials.GenerateJoinCode()
		if err != nil {
			return "", fmt.Errorf("failed to generate join code: %w", err)
		}

		var count int
		if err := r.db.QueryRow("SELECT COUNT(*) FROM classrooms WHERE join_code = ?", code).Scan(&count); err != nil {
			return "", fmt.Errorf("failed to check join code: %w", err)
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to find an unused join code after %d attempts", maxJoinCodeAttempts)
}

// classroomSelect returns the shared classroom projection with teacher name and counts
func classroomSelect(dialect database.Dialect) string {
	active := dialect.BoolValue(true)
	return `
		SELECT c.id, c.teacher_id, c.name, c.description, c.grade_level, c.subject,
			c.spanish_level, c.is_advanced, c.join_code, c.is_active, c.created_at,
			t.name,
			(SELECT COUNT(*) FROM enrollments e WHERE e.classroom_id = c.id AND e.is_active = ` + active + `),
			(SELECT COUNT(*) FROM assignments a WHERE a.classroom_id = c.id AND a.is_active = ` + active + `)
		FROM classrooms c
		JOIN teachers t ON t.id = c.teacher_id
	`
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClassroom(row rowScanner) (*models.Classroom, error) {
	classroom := &models.Classroom{}
	err := row.Scan(
		&classroom.ID,
		&classroom.TeacherID,
		&classroom.Name,
		&classroom.Description,
		&classroom.GradeLevel,
		&classroom.Subject,
		&classroom.SpanishLevel,
		&classroom.IsAdvanced,
		&classroom.JoinCode,
		&classroom.IsActive,
		&classroom.CreatedAt,
		&classroom.TeacherName,
		&classroom.StudentCount,
		&classroom.AssignmentCount,
	)
	if err != nil {
		return nil, err
	}
	return classroom, nil
}

// GetByID retrieves a classroom by ID, active or not
func (r *ClassroomRepository) GetByID(id string) (*models.Classroom, error) {
	classroom, err := scanClassroom(r.db.QueryRow(classroomSelect(r.db.Dialect)+" WHERE c.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classroom: %w", err)
	}
	return classroom, nil
}

// GetByJoinCode retrieves an active classroom by its join code
func (r *ClassroomRepository) GetByJoinCode(code string) (*models.Classroom, error) {
	query := classroomSelect(r.db.Dialect) + " WHERE c.join_code = ? AND c.is_active = " + r.db.Dialect.BoolValue(true)
	classroom, err := scanClassroom(r.db.QueryRow(query, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classroom by join code: %w", err)
	}
	return classroom, nil
}

// ListByTeacher retrieves a teacher's active classrooms, newest first
func (r *ClassroomRepository) ListByTeacher(teacherID string) ([]models.Classroom, error) {
	query := classroomSelect(r.db.Dialect) + `
		WHERE c.teacher_id = ? AND c.is_active = ` + r.db.Dialect.BoolValue(true) + `
		ORDER BY c.created_at DESC
	`
	rows, err := r.db.Query(query, teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to query classrooms: %w", err)
	}
	defer rows.Close()

	classrooms := []models.Classroom{}
	for rows.Next() {
		classroom, err := scanClassroom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan classroom: %w", err)
		}
		classrooms = append(classrooms, *classroom)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate classrooms: %w", err)
	}

	return classrooms, nil
}

// Update applies the non-nil fields of update to the classroom
func (r *ClassroomRepository) Update(id string, update models.ClassroomUpdate) error {
	var set setClause
	if update.Name != nil {
		set.add("name", *update.Name)
	}
	if update.Description != nil {
		set.add("description", *update.Description)
	}
	if update.GradeLevel != nil {
		set.add("grade_level", *update.GradeLevel)
	}
	if update.Subject != nil {
		set.add("subject", *update.Subject)
	}
	if update.SpanishLevel != nil {
		set.add("spanish_level", *update.SpanishLevel)
	}
	if update.IsAdvanced != nil {
		set.add("is_advanced", *update.IsAdvanced)
	}
	if set.empty() {
		return nil
	}

	query, args := set.statement("classrooms", id)
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update classroom: %w", err)
	}
	return nil
}

// Delete soft-deletes a classroom together with its enrollments,
// assignments and the assignments' sessions
func (r *ClassroomRepository) Delete(id string) error {
	inactive := r.db.Dialect.BoolValue(false)

	return r.db.WithTx(func(tx *database.Tx) error {
		statements := []struct {
			what  string
			query string
		}{
			{"sessions", `UPDATE assignment_sessions SET is_active = ` + inactive + `
				WHERE assignment_id IN (SELECT id FROM assignments WHERE classroom_id = ?)`},
			{"assignments", "UPDATE assignments SET is_active = " + inactive + " WHERE classroom_id = ?"},
			{"enrollments", "UPDATE enrollments SET is_active = " + inactive + " WHERE classroom_id = ?"},
			{"classroom", "UPDATE classrooms SET is_active = " + inactive + " WHERE id = ?"},
		}
		for _, stmt := range statements {
			if _, err := tx.Exec(stmt.query, id); err != nil {
				return fmt.Errorf("failed to deactivate %s: %w", stmt.what, err)
			}
		}
		return nil
	})
}

// Analytics computes activity totals for a classroom. Only active rows count.
func (r *ClassroomRepository) Analytics(classroomID string) (*models.ClassroomAnalytics, error) {
	active := r.db.Dialect.BoolValue(true)
	analytics := &models.ClassroomAnalytics{ClassroomID: classroomID}

	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM enrollments WHERE classroom_id = ? AND is_active = "+active, classroomID,
	).Scan(&analytics.TotalStudents)
	if err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}

	err = r.db.QueryRow(
		"SELECT COUNT(*) FROM assignments WHERE classroom_id = ? AND is_active = "+active, classroomID,
	).Scan(&analytics.TotalAssignments)
	if err != nil {
		return nil, fmt.Errorf("failed to count assignments: %w", err)
	}

	query := `
		SELECT s.start_time, s.end_time, s.completed, s.voice_used
		FROM assignment_sessions s
		JOIN assignments a ON a.id = s.assignment_id
		WHERE a.classroom_id = ? AND a.is_active = ` + active + ` AND s.is_active = ` + active
	rows, err := r.db.Query(query, classroomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var voiceSessions, timedSessions int
	var totalMinutes float64
	for rows.Next() {
		var start time.Time
		var end sql.NullTime
		var completed, voiceUsed bool
		if err := rows.Scan(&start, &end, &completed, &voiceUsed); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		analytics.TotalSessions++
		if voiceUsed {
			voiceSessions++
		}
		if !completed {
			continue
		}
		analytics.CompletedSessions++
		if end.Valid && !end.Time.Before(start) {
			totalMinutes += end.Time.Sub(start).Minutes()
			timedSessions++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	if analytics.TotalSessions > 0 {
		analytics.CompletionRate = percent(analytics.CompletedSessions, analytics.TotalSessions)
		analytics.VoiceUsageRate = percent(voiceSessions, analytics.TotalSessions)
	}
	if timedSessions > 0 {
		analytics.AvgCompletionMinutes = round1(totalMinutes / float64(timedSessions))
	}

	return analytics, nil
}

func percent(part, total int) float64 {
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
