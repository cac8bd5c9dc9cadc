package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"vocaflow/internal/models"
	"vocaflow/internal/prompt"
	"vocaflow/internal/repository"
	"vocaflow/internal/security"
	"vocaflow/internal/validation"
)

const defaultVoiceSpeed = 1.0

// WordValidator reports which words are prohibited
type WordValidator interface {
	ValidateWords(words []string) ([]string, error)
}

// AssignmentService handles conversation assignments
type AssignmentService struct {
	assignments *repository.AssignmentRepository
	sessions    *repository.SessionRepository
	students    *repository.StudentRepository
	classrooms  *ClassroomService
	words       WordValidator
	log         logrus.FieldLogger
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(assignments *repository.AssignmentRepository, sessions *repository.SessionRepository,
	students *repository.StudentRepository, classrooms *ClassroomService, words WordValidator, log logrus.FieldLogger) *AssignmentService {
	return &AssignmentService{
		assignments: assignments,
		sessions:    sessions,
		students:    students,
		classrooms:  classrooms,
		words:       words,
		log:         log,
	}
}

// Create adds an assignment to an owned classroom. An empty level takes the
// classroom's level.
func (s *AssignmentService) Create(teacherID, classroomID string, assignment *models.Assignment) (*models.Assignment, error) {
	classroom, err := s.classrooms.Owned(teacherID, classroomID)
	if err != nil {
		return nil, err
	}

	if assignment.Level == "" {
		assignment.Level = classroom.SpanishLevel
	}
	if assignment.VoiceSpeed == 0 {
		assignment.VoiceSpeed = defaultVoiceSpeed
	}
	if err := validation.ValidateRequired("title", assignment.Title); err != nil {
		return nil, err
	}
	if err := s.validateFields(assignment.Level, assignment.VoiceSpeed, assignment.Duration, assignment.MinVocabWords); err != nil {
		return nil, err
	}

	assignment.Title = strings.TrimSpace(assignment.Title)
	assignment.Level = prompt.Resolve(assignment.Level).Key
	assignment.Vocab = cleanVocab(assignment.Vocab)
	if err := s.checkVocab(assignment.Vocab); err != nil {
		return nil, err
	}

	assignment.ClassroomID = classroomID
	if err := s.assignments.Create(assignment); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"assignment_id": assignment.ID, "classroom_id": classroomID}).Info("Assignment created")
	return s.assignments.GetByID(assignment.ID)
}

func (s *AssignmentService) validateFields(level string, speed float64, duration, minVocab int) error {
	if err := validation.ValidateLevel(level); err != nil {
		return err
	}
	if err := validation.ValidateVoiceSpeed(speed); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("duration", duration); err != nil {
		return err
	}
	return validation.ValidateNonNegative("min_vocab_words", minVocab)
}

func (s *AssignmentService) checkVocab(vocab []string) error {
	if s.words == nil || len(vocab) == 0 {
		return nil
	}
	bad, err := s.words.ValidateWords(vocab)
	if err != nil {
		return err
	}
	if len(bad) > 0 {
		return &ProhibitedWordsError{Words: bad}
	}
	return nil
}

// cleanVocab trims entries and drops blanks
func cleanVocab(vocab []string) []string {
	out := make([]string, 0, len(vocab))
	for _, word := range vocab {
		if word = strings.TrimSpace(word); word != "" {
			out = append(out, word)
		}
	}
	return out
}

// Get returns an assignment visible to the actor: the owning teacher or a
// student enrolled in its classroom
func (s *AssignmentService) Get(actor Actor, assignmentID string) (*models.Assignment, error) {
	assignment, err := s.assignments.GetByID(assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, ErrNotFound
	}

	switch actor.Role {
	case security.RoleTeacher:
		if assignment.TeacherID == actor.ID {
			return assignment, nil
		}
	case security.RoleStudent:
		enrolled, err := s.students.IsEnrolled(actor.ID, assignment.ClassroomID)
		if err != nil {
			return nil, err
		}
		if enrolled {
			return assignment, nil
		}
	}
	return nil, ErrForbidden
}

func (s *AssignmentService) owned(teacherID, assignmentID string) (*models.Assignment, error) {
	return s.Get(Actor{ID: teacherID, Role: security.RoleTeacher}, assignmentID)
}

// ListForClassroom lists the active assignments of an owned classroom with
// session counts
func (s *AssignmentService) ListForClassroom(teacherID, classroomID string) ([]models.Assignment, error) {
	if _, err := s.classrooms.Owned(teacherID, classroomID); err != nil {
		return nil, err
	}
	return s.assignments.ListByClassroom(classroomID)
}

// ListAll lists the teacher's active assignments across classrooms
func (s *AssignmentService) ListAll(teacherID string) ([]models.Assignment, error) {
	return s.assignments.ListAll(teacherID)
}

// ListForStudent lists assignments across the student's classrooms with the
// completion state of the latest attempt
func (s *AssignmentService) ListForStudent(studentID string) ([]models.Assignment, error) {
	return s.assignments.ListForStudent(studentID)
}

// Update applies a partial update to an owned assignment
func (s *AssignmentService) Update(teacherID, assignmentID string, update models.AssignmentUpdate) (*models.Assignment, error) {
	current, err := s.owned(teacherID, assignmentID)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		if err := validation.ValidateRequired("title", *update.Title); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(*update.Title)
		update.Title = &trimmed
	}

	level, speed := current.Level, current.VoiceSpeed
	duration, minVocab := current.Duration, current.MinVocabWords
	if update.Level != nil {
		level = *update.Level
	}
	if update.VoiceSpeed != nil {
		speed = *update.VoiceSpeed
	}
	if update.Duration != nil {
		duration = *update.Duration
	}
	if update.MinVocabWords != nil {
		minVocab = *update.MinVocabWords
	}
	if err := s.validateFields(level, speed, duration, minVocab); err != nil {
		return nil, err
	}
	if update.Level != nil {
		key := prompt.Resolve(*update.Level).Key
		update.Level = &key
	}

	if update.Vocab != nil {
		vocab := cleanVocab(*update.Vocab)
		if err := s.checkVocab(vocab); err != nil {
			return nil, err
		}
		update.Vocab = &vocab
	}

	if err := s.assignments.Update(assignmentID, update); err != nil {
		return nil, err
	}
	return s.assignments.GetByID(assignmentID)
}

// Delete soft-deletes an owned assignment and its sessions
func (s *AssignmentService) Delete(teacherID, assignmentID string) error {
	if _, err := s.owned(teacherID, assignmentID); err != nil {
		return err
	}
	if err := s.assignments.Delete(assignmentID); err != nil {
		return err
	}
	s.log.WithField("assignment_id", assignmentID).Info("Assignment deleted")
	return nil
}

// Submissions lists the sessions students submitted for an owned assignment
func (s *AssignmentService) Submissions(teacherID, assignmentID string) ([]models.AssignmentSession, error) {
	if _, err := s.owned(teacherID, assignmentID); err != nil {
		return nil, err
	}
	return s.sessions.ListSubmittedForAssignment(assignmentID)
}
