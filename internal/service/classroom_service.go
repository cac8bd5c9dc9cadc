package service

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"vocaflow/internal/credentials"
	"vocaflow/internal/models"
	"vocaflow/internal/prompt"
	"vocaflow/internal/repository"
	"vocaflow/internal/validation"
)

// ClassroomService handles classrooms, enrollment and analytics
type ClassroomService struct {
	classrooms *repository.ClassroomRepository
	students   *repository.StudentRepository
	log        logrus.FieldLogger
}

// NewClassroomService creates a new classroom service
func NewClassroomService(classrooms *repository.ClassroomRepository, students *repository.StudentRepository, log logrus.FieldLogger) *ClassroomService {
	return &ClassroomService{classrooms: classrooms, students: students, log: log}
}

// Create opens a classroom for the teacher with a fresh join code
func (s *ClassroomService) Create(teacherID string, classroom *models.Classroom) (*models.Classroom, error) {
	if err := validation.ValidateName(classroom.Name); err != nil {
		return nil, err
	}
	if err := validation.ValidateLevel(classroom.SpanishLevel); err != nil {
		return nil, err
	}

	classroom.TeacherID = teacherID
	classroom.Name = strings.TrimSpace(classroom.Name)
	classroom.SpanishLevel = prompt.Resolve(classroom.SpanishLevel).Key
	if classroom.Subject == "" {
		classroom.Subject = "Spanish"
	}
	classroom.IsAdvanced = classroom.IsAdvanced || prompt.IsAdvanced(classroom.SpanishLevel)

	if err := s.classrooms.Create(classroom); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"classroom_id": classroom.ID, "teacher_id": teacherID}).Info("Classroom created")
	return s.classrooms.GetByID(classroom.ID)
}

// ListForTeacher returns the teacher's active classrooms
func (s *ClassroomService) ListForTeacher(teacherID string) ([]models.Classroom, error) {
	return s.classrooms.ListByTeacher(teacherID)
}

// Owned returns an active classroom owned by the teacher
func (s *ClassroomService) Owned(teacherID, classroomID string) (*models.Classroom, error) {
	classroom, err := s.classrooms.GetByID(classroomID)
	if err != nil {
		return nil, err
	}
	if classroom == nil || !classroom.IsActive {
		return nil, ErrNotFound
	}
	if classroom.TeacherID != teacherID {
		return nil, ErrForbidden
	}
	return classroom, nil
}

// Update applies a partial update to an owned classroom
func (s *ClassroomService) Update(teacherID, classroomID string, update models.ClassroomUpdate) (*models.Classroom, error) {
	if _, err := s.Owned(teacherID, classroomID); err != nil {
		return nil, err
	}
	if update.Name != nil {
		if err := validation.ValidateName(*update.Name); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
	}
	if update.SpanishLevel != nil {
		if err := validation.ValidateLevel(*update.SpanishLevel); err != nil {
			return nil, err
		}
		key := prompt.Resolve(*update.SpanishLevel).Key
		update.SpanishLevel = &key
	}

	if err := s.classrooms.Update(classroomID, update); err != nil {
		return nil, err
	}
	return s.classrooms.GetByID(classroomID)
}

// Delete soft-deletes an owned classroom and everything under it
func (s *ClassroomService) Delete(teacherID, classroomID string) error {
	if _, err := s.Owned(teacherID, classroomID); err != nil {
		return err
	}
	if err := s.classrooms.Delete(classroomID); err != nil {
		return err
	}
	s.log.WithField("classroom_id", classroomID).Info("Classroom deleted")
	return nil
}

// Students lists the active members of an owned classroom
func (s *ClassroomService) Students(teacherID, classroomID string) ([]models.Student, error) {
	if _, err := s.Owned(teacherID, classroomID); err != nil {
		return nil, err
	}
	return s.students.ListClassroomStudents(classroomID)
}

// RemoveStudent ends a student's enrollment in an owned classroom
func (s *ClassroomService) RemoveStudent(teacherID, classroomID, studentID string) error {
	if _, err := s.Owned(teacherID, classroomID); err != nil {
		return err
	}
	enrolled, err := s.students.IsEnrolled(studentID, classroomID)
	if err != nil {
		return err
	}
	if !enrolled {
		return ErrNotFound
	}
	return s.students.RemoveEnrollment(studentID, classroomID)
}

// Analytics aggregates activity in an owned classroom
func (s *ClassroomService) Analytics(teacherID, classroomID string) (*models.ClassroomAnalytics, error) {
	if _, err := s.Owned(teacherID, classroomID); err != nil {
		return nil, err
	}
	return s.classrooms.Analytics(classroomID)
}

// Join enrolls a student using a classroom join code. Joining twice is a
// no-op.
func (s *ClassroomService) Join(studentID, joinCode string) (*models.Classroom, error) {
	code := credentials.NormalizeJoinCode(joinCode)
	if !credentials.IsValidJoinCode(code) {
		return nil, ErrInvalidJoinCode
	}

	classroom, err := s.classrooms.GetByJoinCode(code)
	if err != nil {
		return nil, err
	}
	if classroom == nil {
		return nil, ErrInvalidJoinCode
	}

	if _, err := s.students.Enroll(studentID, classroom.ID); err != nil {
		return nil, fmt.Errorf("failed to join classroom: %w", err)
	}
	s.log.WithFields(logrus.Fields{"classroom_id": classroom.ID, "student_id": studentID}).Info("Student joined classroom")
	return classroom, nil
}

// StudentClassrooms lists the classrooms a student belongs to
func (s *ClassroomService) StudentClassrooms(studentID string) ([]models.Classroom, error) {
	return s.students.ListStudentClassrooms(studentID)
}
