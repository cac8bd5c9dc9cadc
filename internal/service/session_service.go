package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"vocaflow/internal/models"
	"vocaflow/internal/repository"
	"vocaflow/internal/security"
	"vocaflow/internal/validation"
)

// TranscriptMessage is one line of a finished conversation as posted by
// the client
type TranscriptMessage struct {
	Sender    string     `json:"sender"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp"`
}

// Transcript is the record of a finished conversation
type Transcript struct {
	Messages       []TranscriptMessage `json:"messages"`
	VoiceUsed      bool                `json:"voice_used"`
	TranscriptUsed bool                `json:"transcript_used"`
	Completed      *bool               `json:"completed"`
	EndTime        *time.Time          `json:"end_time"`
}

// SessionService handles conversation attempts and their transcripts
type SessionService struct {
	sessions    *repository.SessionRepository
	logs        *repository.ConversationLogRepository
	teachers    *repository.TeacherRepository
	assignments *AssignmentService
	classrooms  *ClassroomService
	email       *EmailService
	log         logrus.FieldLogger
	now         func() time.Time
}

// NewSessionService creates a new session service. email may be nil.
func NewSessionService(sessions *repository.SessionRepository, logs *repository.ConversationLogRepository,
	teachers *repository.TeacherRepository, assignments *AssignmentService, classrooms *ClassroomService,
	email *EmailService, log logrus.FieldLogger) *SessionService {
	return &SessionService{
		sessions:    sessions,
		logs:        logs,
		teachers:    teachers,
		assignments: assignments,
		classrooms:  classrooms,
		email:       email,
		log:         log,
		now:         time.Now,
	}
}

// Start opens a new attempt at an assignment for an enrolled student
func (s *SessionService) Start(studentID, assignmentID string) (*models.AssignmentSession, error) {
	if _, err := s.assignments.Get(Actor{ID: studentID, Role: security.RoleStudent}, assignmentID); err != nil {
		return nil, err
	}

	session, err := s.sessions.Create(assignmentID, studentID)
	if err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"session_id":    session.ID,
		"assignment_id": assignmentID,
		"attempt":       session.AttemptNumber,
	}).Info("Session started")
	return s.sessions.GetByID(session.ID)
}

// Get returns a session visible to the actor: the student who owns it or
// the teacher of its classroom
func (s *SessionService) Get(actor Actor, sessionID string) (*models.AssignmentSession, error) {
	session, err := s.sessions.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.IsActive {
		return nil, ErrNotFound
	}

	switch actor.Role {
	case security.RoleStudent:
		if session.StudentID == actor.ID {
			return session, nil
		}
	case security.RoleTeacher:
		if _, err := s.classrooms.Owned(actor.ID, session.ClassroomID); err != nil {
			return nil, err
		}
		return session, nil
	}
	return nil, ErrForbidden
}

func (s *SessionService) ownedByStudent(studentID, sessionID string) (*models.AssignmentSession, error) {
	return s.Get(Actor{ID: studentID, Role: security.RoleStudent}, sessionID)
}

// Update applies a partial update to the student's session
func (s *SessionService) Update(studentID, sessionID string, update models.SessionUpdate) (*models.AssignmentSession, error) {
	if _, err := s.ownedByStudent(studentID, sessionID); err != nil {
		return nil, err
	}
	if update.MessageCount != nil {
		if err := validation.ValidateNonNegative("message_count", *update.MessageCount); err != nil {
			return nil, err
		}
	}
	if err := s.sessions.Update(sessionID, update); err != nil {
		return nil, err
	}
	return s.sessions.GetByID(sessionID)
}

// SaveTranscript appends a finished conversation to the session log and
// closes the session. Completed defaults to true and the end time to now.
func (s *SessionService) SaveTranscript(studentID, sessionID string, transcript Transcript) (*models.AssignmentSession, error) {
	session, err := s.ownedByStudent(studentID, sessionID)
	if err != nil {
		return nil, err
	}

	entries := make([]models.ConversationLog, 0, len(transcript.Messages))
	for _, msg := range transcript.Messages {
		sender := strings.ToLower(strings.TrimSpace(msg.Sender))
		if sender != models.SenderUser && sender != models.SenderBot {
			return nil, validation.ValidationError{Field: "sender", Message: "sender must be user or bot"}
		}
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		entry := models.ConversationLog{MessageType: sender, Content: msg.Content}
		if msg.Timestamp != nil {
			entry.Timestamp = *msg.Timestamp
		}
		entries = append(entries, entry)
	}

	if _, err := s.logs.AppendAll(sessionID, entries); err != nil {
		return nil, err
	}

	all, err := s.logs.ListBySession(sessionID)
	if err != nil {
		return nil, err
	}

	end := s.now().UTC()
	if transcript.EndTime != nil {
		end = transcript.EndTime.UTC()
	}
	completed := true
	if transcript.Completed != nil {
		completed = *transcript.Completed
	}
	count := len(all)
	voiceUsed := session.VoiceUsed || transcript.VoiceUsed
	transcriptUsed := session.TranscriptUsed || transcript.TranscriptUsed

	update := models.SessionUpdate{
		EndTime:        &end,
		Completed:      &completed,
		MessageCount:   &count,
		VoiceUsed:      &voiceUsed,
		TranscriptUsed: &transcriptUsed,
	}
	if err := s.sessions.Update(sessionID, update); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"session_id": sessionID,
		"messages":   len(entries),
		"completed":  completed,
	}).Info("Transcript saved")
	return s.sessions.GetByID(sessionID)
}

// Logs returns a session's conversation in order
func (s *SessionService) Logs(actor Actor, sessionID string) ([]models.ConversationLog, error) {
	if _, err := s.Get(actor, sessionID); err != nil {
		return nil, err
	}
	return s.logs.ListBySession(sessionID)
}

// ListForStudent lists a student's attempts, optionally in one classroom
func (s *SessionService) ListForStudent(studentID, classroomID string) ([]models.AssignmentSession, error) {
	return s.sessions.ListForStudent(studentID, classroomID)
}

// Submit marks the student's session as the attempt to grade and notifies
// the classroom teacher
func (s *SessionService) Submit(ctx context.Context, studentID, sessionID string) (*models.AssignmentSession, error) {
	if _, err := s.ownedByStudent(studentID, sessionID); err != nil {
		return nil, err
	}

	session, err := s.sessions.SubmitForGrading(sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotFound
	}

	s.log.WithFields(logrus.Fields{
		"session_id":    session.ID,
		"assignment_id": session.AssignmentID,
	}).Info("Session submitted for grading")
	s.notifyTeacher(ctx, session)
	return session, nil
}

// notifyTeacher emails the classroom teacher. Failure is logged only.
func (s *SessionService) notifyTeacher(ctx context.Context, session *models.AssignmentSession) {
	if !s.email.IsEnabled() {
		return
	}

	log := s.log.WithField("session_id", session.ID)
	classroom, err := s.classrooms.classrooms.GetByID(session.ClassroomID)
	if err != nil || classroom == nil {
		log.WithError(err).Warn("Failed to look up classroom for submission email")
		return
	}
	teacher, err := s.teachers.GetByID(classroom.TeacherID)
	if err != nil || teacher == nil {
		log.WithError(err).Warn("Failed to look up teacher for submission email")
		return
	}

	if err := s.email.SendSubmissionNotification(ctx, teacher.Email, teacher.Name,
		session.StudentName, session.AssignmentTitle, session.ID); err != nil {
		log.WithError(err).Warn("Failed to send submission email")
	}
}
