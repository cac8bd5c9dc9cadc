package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vocaflow/internal/database"
	"vocaflow/internal/models"
)

// SessionRepository handles database operations for assignment sessions
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create starts a new attempt. The attempt number is one more than the
// student's active sessions for the assignment.
func (r *SessionRepository) Create(assignmentID, studentID string) (*models.AssignmentSession, error) {
	now := time.Now().UTC()
	session := &models.AssignmentSession{
		ID:           uuid.New().String(),
		AssignmentID: assignmentID,
		StudentID:    studentID,
		StartTime:    now,
		IsActive:     true,
		CreatedAt:    now,
	}

	err := r.db.WithTx(func(tx *database.Tx) error {
		var prior int
		err := tx.QueryRow(
			"SELECT COUNT(*) FROM assignment_sessions WHERE assignment_id = ? AND student_id = ? AND is_active = "+tx.GetDialect().BoolValue(true),
			assignmentID, studentID,
		).Scan(&prior)
		if err != nil {
			return fmt.Errorf("failed to count prior sessions: %w", err)
		}
		session.AttemptNumber = prior + 1

		_, err = tx.Exec(`
			INSERT INTO assignment_sessions (id, assignment_id, student_id, start_time, completed,
				message_count, voice_used, transcript_used, is_active, submitted_for_grading,
				attempt_number, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, session.ID, assignmentID, studentID, session.StartTime, false, 0, false, false, true, false,
			session.AttemptNumber, session.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

const sessionSelect = `
	SELECT s.id, s.assignment_id, s.student_id, s.start_time, s.end_time, s.completed,
		s.message_count, s.voice_used, s.transcript_used, s.is_active, s.submitted_for_grading,
		s.attempt_number, s.created_at, a.title, a.classroom_id, st.name
	FROM assignment_sessions s
	JOIN assignments a ON a.id = s.assignment_id
	JOIN students st ON st.id = s.student_id
`

func scanSession(row rowScanner) (*models.AssignmentSession, error) {
	session := &models.AssignmentSession{}
	var endTime sql.NullTime
	err := row.Scan(
		&session.ID,
		&session.AssignmentID,
		&session.StudentID,
		&session.StartTime,
		&endTime,
		&session.Completed,
		&session.MessageCount,
		&session.VoiceUsed,
		&session.TranscriptUsed,
		&session.IsActive,
		&session.SubmittedForGrading,
		&session.AttemptNumber,
		&session.CreatedAt,
		&session.AssignmentTitle,
		&session.ClassroomID,
		&session.StudentName,
	)
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		end := endTime.Time
		session.EndTime = &end
	}
	return session, nil
}

func (r *SessionRepository) list(query string, args ...interface{}) ([]models.AssignmentSession, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.AssignmentSession{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

// GetByID retrieves a session by ID
func (r *SessionRepository) GetByID(id string) (*models.AssignmentSession, error) {
	session, err := scanSession(r.db.QueryRow(sessionSelect+" WHERE s.id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// Update applies the non-nil fields of update to the session
func (r *SessionRepository) Update(id string, update models.SessionUpdate) error {
	var set setClause
	if update.EndTime != nil {
		set.add("end_time", update.EndTime.UTC())
	}
	if update.Completed != nil {
		set.add("completed", *update.Completed)
	}
	if update.MessageCount != nil {
		set.add("message_count", *update.MessageCount)
	}
	if update.VoiceUsed != nil {
		set.add("voice_used", *update.VoiceUsed)
	}
	if update.TranscriptUsed != nil {
		set.add("transcript_used", *update.TranscriptUsed)
	}
	if set.empty() {
		return nil
	}

	query, args := set.statement("assignment_sessions", id)
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// ListForStudent retrieves a student's active sessions, optionally limited
// to one classroom. The submitted attempt sorts first, then newest.
func (r *SessionRepository) ListForStudent(studentID, classroomID string) ([]models.AssignmentSession, error) {
	query := sessionSelect + " WHERE s.student_id = ? AND s.is_active = " + r.db.Dialect.BoolValue(true)
	args := []interface{}{studentID}
	if classroomID != "" {
		query += " AND a.classroom_id = ?"
		args = append(args, classroomID)
	}
	query += " ORDER BY s.submitted_for_grading DESC, s.created_at DESC, s.attempt_number DESC"

	return r.list(query, args...)
}

// SubmitForGrading marks a session as the graded attempt for its
// (assignment, student) pair, clearing the flag on every other attempt.
// Returns nil when the session does not exist.
func (r *SessionRepository) SubmitForGrading(sessionID string) (*models.AssignmentSession, error) {
	var found bool

	err := r.db.WithTx(func(tx *database.Tx) error {
		var assignmentID, studentID string
		err := tx.QueryRow(
			"SELECT assignment_id, student_id FROM assignment_sessions WHERE id = ?", sessionID,
		).Scan(&assignmentID, &studentID)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up session: %w", err)
		}
		found = true

		_, err = tx.Exec(`
			UPDATE assignment_sessions SET submitted_for_grading = ?
			WHERE assignment_id = ? AND student_id = ? AND id <> ?
		`, false, assignmentID, studentID, sessionID)
		if err != nil {
			return fmt.Errorf("failed to clear previous submission: %w", err)
		}

		if _, err := tx.Exec("UPDATE assignment_sessions SET submitted_for_grading = ? WHERE id = ?", true, sessionID); err != nil {
			return fmt.Errorf("failed to submit session: %w", err)
		}
		return nil
	})
	if err != nil || !found {
		return nil, err
	}

	return r.GetByID(sessionID)
}

// GetSubmitted retrieves the attempt submitted for grading, if any
func (r *SessionRepository) GetSubmitted(assignmentID, studentID string) (*models.AssignmentSession, error) {
	query := sessionSelect + " WHERE s.assignment_id = ? AND s.student_id = ? AND s.submitted_for_grading = " +
		r.db.Dialect.BoolValue(true)
	session, err := scanSession(r.db.QueryRow(query, assignmentID, studentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submitted session: %w", err)
	}
	return session, nil
}

// ListSubmittedForAssignment retrieves every student's submitted attempt
// for an assignment
func (r *SessionRepository) ListSubmittedForAssignment(assignmentID string) ([]models.AssignmentSession, error) {
	query := sessionSelect + " WHERE s.assignment_id = ? AND s.submitted_for_grading = " +
		r.db.Dialect.BoolValue(true) + " ORDER BY st.name ASC"
	return r.list(query, assignmentID)
}
