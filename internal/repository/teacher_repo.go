package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vocaflow/internal/database"
	"vocaflow/internal/models"
)

// TeacherRepository handles database operations for teachers
type TeacherRepository struct {
	db *database.DB
}

// NewTeacherRepository creates a new teacher repository
func NewTeacherRepository(db *database.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// Create inserts a teacher, assigning its ID and creation time
func (r *TeacherRepository) Create(teacher *models.Teacher) error {
	teacher.ID = uuid.New().String()
	teacher.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO teachers (id, name, email, password_hash, school, title, bio, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, teacher.ID, teacher.Name, teacher.Email, teacher.PasswordHash,
		teacher.School, teacher.Title, teacher.Bio, teacher.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create teacher: %w", err)
	}
	return nil
}

const teacherColumns = "id, name, email, password_hash, school, title, bio, created_at"

func scanTeacher(row *sql.Row) (*models.Teacher, error) {
	teacher := &models.Teacher{}
	err := row.Scan(
		&teacher.ID,
		&teacher.Name,
		&teacher.Email,
		&teacher.PasswordHash,
		&teacher.School,
		&teacher.Title,
		&teacher.Bio,
		&teacher.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	return teacher, nil
}

// GetByID retrieves a teacher by ID
func (r *TeacherRepository) GetByID(id string) (*models.Teacher, error) {
	return scanTeacher(r.db.QueryRow("SELECT "+teacherColumns+" FROM teachers WHERE id = ?", id))
}

// GetByEmail retrieves a teacher by email address
func (r *TeacherRepository) GetByEmail(email string) (*models.Teacher, error) {
	return scanTeacher(r.db.QueryRow("SELECT "+teacherColumns+" FROM teachers WHERE email = ?", email))
}

// Update applies the non-nil fields of update to the teacher's profile
func (r *TeacherRepository) Update(id string, update models.TeacherUpdate) error {
	var set setClause
	if update.Name != nil {
		set.add("name", *update.Name)
	}
	if update.School != nil {
		set.add("school", *update.School)
	}
	if update.Title != nil {
		set.add("title", *update.Title)
	}
	if update.Bio != nil {
		set.add("bio", *update.Bio)
	}
	if set.empty() {
		return nil
	}

	query, args := set.statement("teachers", id)
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update teacher: %w", err)
	}
	return nil
}
