package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vocaflow/internal/database"
	"vocaflow/internal/models"
)

// AssignmentRepository handles database operations for assignments
type AssignmentRepository struct {
	db *database.DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *database.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func encodeVocab(vocab []string) (string, error) {
	if vocab == nil {
		vocab = []string{}
	}
	data, err := json.Marshal(vocab)
	if err != nil {
		return "", fmt.Errorf("failed to encode vocabulary: %w", err)
	}
	return string(data), nil
}

func decodeVocab(raw string) ([]string, error) {
	vocab := []string{}
	if raw == "" {
		return vocab, nil
	}
	if err := json.Unmarshal([]byte(raw), &vocab); err != nil {
		return nil, fmt.Errorf("failed to decode vocabulary: %w", err)
	}
	return vocab, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Create inserts an assignment, assigning its ID and creation time
func (r *AssignmentRepository) Create(assignment *models.Assignment) error {
	vocab, err := encodeVocab(assignment.Vocab)
	if err != nil {
		return err
	}

	assignment.ID = uuid.New().String()
	assignment.IsActive = true
	assignment.CreatedAt = time.Now().UTC()
	if assignment.Vocab == nil {
		assignment.Vocab = []string{}
	}

	query := `
		INSERT INTO assignments (id, classroom_id, title, description, instructions, level, duration,
			due_date, prompt, vocab, min_vocab_words, avatar_role, avatar_characteristics,
			voice_speed, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, assignment.ID, assignment.ClassroomID, assignment.Title,
		assignment.Description, assignment.Instructions, assignment.Level, assignment.Duration,
		nullTime(assignment.DueDate), assignment.Prompt, vocab, assignment.MinVocabWords,
		assignment.AvatarRole, assignment.AvatarCharacteristics, assignment.VoiceSpeed,
		assignment.IsActive, assignment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	return nil
}

const assignmentColumns = `
	a.id, a.classroom_id, a.title, a.description, a.instructions, a.level, a.duration,
	a.due_date, a.prompt, a.vocab, a.min_vocab_words, a.avatar_role, a.avatar_characteristics,
	a.voice_speed, a.is_active, a.created_at, c.name, c.teacher_id`

// scanAssignment scans assignmentColumns followed by any extra destinations
func scanAssignment(row rowScanner, extra ...interface{}) (*models.Assignment, error) {
	assignment := &models.Assignment{}
	var dueDate sql.NullTime
	var vocab string

	dest := []interface{}{
		&assignment.ID,
		&assignment.ClassroomID,
		&assignment.Title,
		&assignment.Description,
		&assignment.Instructions,
		&assignment.Level,
		&assignment.Duration,
		&dueDate,
		&assignment.Prompt,
		&vocab,
		&assignment.MinVocabWords,
		&assignment.AvatarRole,
		&assignment.AvatarCharacteristics,
		&assignment.VoiceSpeed,
		&assignment.IsActive,
		&assignment.CreatedAt,
		&assignment.ClassroomName,
		&assignment.TeacherID,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	if dueDate.Valid {
		due := dueDate.Time
		assignment.DueDate = &due
	}
	words, err := decodeVocab(vocab)
	if err != nil {
		return nil, err
	}
	assignment.Vocab = words

	return assignment, nil
}

// GetByID retrieves an active assignment with its classroom name and teacher
func (r *AssignmentRepository) GetByID(id string) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM assignments a
		JOIN classrooms c ON c.id = a.classroom_id
		WHERE a.id = ? AND a.is_active = ` + r.db.Dialect.BoolValue(true)

	assignment, err := scanAssignment(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return assignment, nil
}

func (r *AssignmentRepository) listWithCounts(where string, args ...interface{}) ([]models.Assignment, error) {
	active := r.db.Dialect.BoolValue(true)
	query := `SELECT ` + assignmentColumns + `,
			(SELECT COUNT(*) FROM assignment_sessions s
				WHERE s.assignment_id = a.id AND s.is_active = ` + active + `),
			(SELECT COUNT(*) FROM assignment_sessions s
				WHERE s.assignment_id = a.id AND s.is_active = ` + active + ` AND s.completed = ` + active + `)
		FROM assignments a
		JOIN classrooms c ON c.id = a.classroom_id
		WHERE a.is_active = ` + active + ` AND ` + where + `
		ORDER BY a.created_at DESC
	`
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	assignments := []models.Assignment{}
	for rows.Next() {
		var sessionCount, completionCount int
		assignment, err := scanAssignment(rows, &sessionCount, &completionCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignment.SessionCount = sessionCount
		assignment.CompletionCount = completionCount
		assignments = append(assignments, *assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}

	return assignments, nil
}

// ListByClassroom retrieves a classroom's active assignments with session
// and completion counts
func (r *AssignmentRepository) ListByClassroom(classroomID string) ([]models.Assignment, error) {
	return r.listWithCounts("a.classroom_id = ?", classroomID)
}

// ListAll retrieves the active assignments across a teacher's active classrooms
func (r *AssignmentRepository) ListAll(teacherID string) ([]models.Assignment, error) {
	return r.listWithCounts("c.teacher_id = ? AND c.is_active = "+r.db.Dialect.BoolValue(true), teacherID)
}

// ListForStudent retrieves one row per active assignment in the student's
// active classrooms. Completed reflects the student's latest active attempt
// and is nil when there is none.
func (r *AssignmentRepository) ListForStudent(studentID string) ([]models.Assignment, error) {
	active := r.db.Dialect.BoolValue(true)
	query := `SELECT ` + assignmentColumns + `,
			(SELECT s.completed FROM assignment_sessions s
				WHERE s.assignment_id = a.id AND s.student_id = ? AND s.is_active = ` + active + `
				ORDER BY s.created_at DESC, s.attempt_number DESC
				LIMIT 1)
		FROM assignments a
		JOIN classrooms c ON c.id = a.classroom_id
		JOIN enrollments e ON e.classroom_id = c.id
		WHERE e.student_id = ? AND e.is_active = ` + active + `
			AND c.is_active = ` + active + ` AND a.is_active = ` + active + `
		ORDER BY a.due_date IS NULL, a.due_date ASC, a.created_at DESC
	`
	rows, err := r.db.Query(query, studentID, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query student assignments: %w", err)
	}
	defer rows.Close()

	assignments := []models.Assignment{}
	for rows.Next() {
		var completed sql.NullBool
		assignment, err := scanAssignment(rows, &completed)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if completed.Valid {
			done := completed.Bool
			assignment.Completed = &done
		}
		assignments = append(assignments, *assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}

	return assignments, nil
}

// Update applies the non-nil fields of update to the assignment
func (r *AssignmentRepository) Update(id string, update models.AssignmentUpdate) error {
	var set setClause
	if update.Title != nil {
		set.add("title", *update.Title)
	}
	if update.Description != nil {
		set.add("description", *update.Description)
	}
	if update.Instructions != nil {
		set.add("instructions", *update.Instructions)
	}
	if update.Level != nil {
		set.add("level", *update.Level)
	}
	if update.Duration != nil {
		set.add("duration", *update.Duration)
	}
	if update.DueDate != nil {
		set.add("due_date", nullTime(update.DueDate))
	}
	if update.Prompt != nil {
		set.add("prompt", *update.Prompt)
	}
	if update.Vocab != nil {
		vocab, err := encodeVocab(*update.Vocab)
		if err != nil {
			return err
		}
		set.add("vocab", vocab)
	}
	if update.MinVocabWords != nil {
		set.add("min_vocab_words", *update.MinVocabWords)
	}
	if update.AvatarRole != nil {
		set.add("avatar_role", *update.AvatarRole)
	}
	if update.AvatarCharacteristics != nil {
		set.add("avatar_characteristics", *update.AvatarCharacteristics)
	}
	if update.VoiceSpeed != nil {
		set.add("voice_speed", *update.VoiceSpeed)
	}
	if set.empty() {
		return nil
	}

	query, args := set.statement("assignments", id)
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update assignment: %w", err)
	}
	return nil
}

// Delete soft-deletes an assignment and its sessions
func (r *AssignmentRepository) Delete(id string) error {
	inactive := r.db.Dialect.BoolValue(false)

	return r.db.WithTx(func(tx *database.Tx) error {
		if _, err := tx.Exec("UPDATE assignment_sessions SET is_active = "+inactive+" WHERE assignment_id = ?", id); err != nil {
			return fmt.Errorf("failed to deactivate sessions: %w", err)
		}
		if _, err := tx.Exec("UPDATE assignments SET is_active = "+inactive+" WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to deactivate assignment: %w", err)
		}
		return nil
	})
}
