package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vocaflow/internal/database"
	"vocaflow/internal/models"
)

// StudentRepository handles database operations for students and their
// classroom enrollments
type StudentRepository struct {
	db *database.DB
}

// NewStudentRepository creates a new student repository
func NewStudentRepository(db *database.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Create inserts a student, assigning its ID and creation time
func (r *StudentRepository) Create(student *models.Student) error {
	student.ID = uuid.New().String()
	student.IsActive = true
	student.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO students (id, name, email, password_hash, grade_level, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, student.ID, student.Name, student.Email, student.PasswordHash,
		student.GradeLevel, student.IsActive, student.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

const studentColumns = "id, name, email, password_hash, grade_level, is_active, created_at"

func scanStudent(row *sql.Row) (*models.Student, error) {
	student := &models.Student{}
	err := row.Scan(
		&student.ID,
		&student.Name,
		&student.Email,
		&student.PasswordHash,
		&student.GradeLevel,
		&student.IsActive,
		&student.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return student, nil
}

// GetByID retrieves a student by ID
func (r *StudentRepository) GetByID(id string) (*models.Student, error) {
	return scanStudent(r.db.QueryRow("SELECT "+studentColumns+" FROM students WHERE id = ?", id))
}

// GetByEmail retrieves a student by email address
func (r *StudentRepository) GetByEmail(email string) (*models.Student, error) {
	return scanStudent(r.db.QueryRow("SELECT "+studentColumns+" FROM students WHERE email = ?", email))
}

// Enroll adds a student to a classroom. Enrolling twice is a no-op and a
// previously removed enrollment is reactivated.
func (r *StudentRepository) Enroll(studentID, classroomID string) (*models.Enrollment, error) {
	enrollment := &models.Enrollment{}

	err := r.db.WithTx(func(tx *database.Tx) error {
		err := tx.QueryRow(`
			SELECT id, student_id, classroom_id, enrolled_at, is_active
			FROM enrollments
			WHERE student_id = ? AND classroom_id = ?
		`, studentID, classroomID).Scan(
			&enrollment.ID,
			&enrollment.StudentID,
			&enrollment.ClassroomID,
			&enrollment.EnrolledAt,
			&enrollment.IsActive,
		)

		if err == sql.ErrNoRows {
			enrollment.ID = uuid.New().String()
			enrollment.StudentID = studentID
			enrollment.ClassroomID = classroomID
			enrollment.EnrolledAt = time.Now().UTC()
			enrollment.IsActive = true
			_, err = tx.Exec(`
				INSERT INTO enrollments (id, student_id, classroom_id, enrolled_at, is_active)
				VALUES (?, ?, ?, ?, ?)
			`, enrollment.ID, studentID, classroomID, enrollment.EnrolledAt, true)
			if err != nil {
				return fmt.Errorf("failed to create enrollment: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up enrollment: %w", err)
		}

		if !enrollment.IsActive {
			if _, err := tx.Exec("UPDATE enrollments SET is_active = ? WHERE id = ?", true, enrollment.ID); err != nil {
				return fmt.Errorf("failed to reactivate enrollment: %w", err)
			}
			enrollment.IsActive = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return enrollment, nil
}

// IsEnrolled reports whether the student holds an active enrollment in the classroom
func (r *StudentRepository) IsEnrolled(studentID, classroomID string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM enrollments WHERE student_id = ? AND classroom_id = ? AND is_active = "+r.db.Dialect.BoolValue(true),
		studentID, classroomID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return count > 0, nil
}

// ListClassroomStudents retrieves the actively enrolled students of a classroom
func (r *StudentRepository) ListClassroomStudents(classroomID string) ([]models.Student, error) {
	active := r.db.Dialect.BoolValue(true)
	query := `
		SELECT s.id, s.name, s.email, s.password_hash, s.grade_level, s.is_active, s.created_at, e.enrolled_at
		FROM students s
		JOIN enrollments e ON e.student_id = s.id
		WHERE e.classroom_id = ? AND e.is_active = ` + active + `
		ORDER BY s.name ASC
	`
	rows, err := r.db.Query(query, classroomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query classroom students: %w", err)
	}
	defer rows.Close()

	students := []models.Student{}
	for rows.Next() {
		var student models.Student
		var enrolledAt time.Time
		if err := rows.Scan(
			&student.ID,
			&student.Name,
			&student.Email,
			&student.PasswordHash,
			&student.GradeLevel,
			&student.IsActive,
			&student.CreatedAt,
			&enrolledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		student.EnrolledAt = &enrolledAt
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate students: %w", err)
	}

	return students, nil
}

// ListStudentClassrooms retrieves the active classrooms a student is enrolled in
func (r *StudentRepository) ListStudentClassrooms(studentID string) ([]models.Classroom, error) {
	active := r.db.Dialect.BoolValue(true)
	query := classroomSelect(r.db.Dialect) + `
		JOIN enrollments en ON en.classroom_id = c.id
		WHERE en.student_id = ? AND en.is_active = ` + active + ` AND c.is_active = ` + active + `
		ORDER BY en.enrolled_at DESC
	`
	rows, err := r.db.Query(query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query student classrooms: %w", err)
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

// RemoveEnrollment soft-removes a student from a classroom
func (r *StudentRepository) RemoveEnrollment(studentID, classroomID string) error {
	_, err := r.db.Exec(
		"UPDATE enrollments SET is_active = ? WHERE student_id = ? AND classroom_id = ?",
		false, studentID, classroomID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove enrollment: %w", err)
	}
	return nil
}
