package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/require"

	"vocaflow/internal/database"
	"vocaflow/internal/logger"
	"vocaflow/internal/models"
	"vocaflow/internal/repository"
	"vocaflow/internal/security"
	"vocaflow/migrations"
)

type fakeSES struct {
	mu   sync.Mutex
	sent []*sesv2.SendEmailInput
	err  error
}

func (f *fakeSES) SendEmail(_ context.Context, params *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func (f *fakeSES) messages() []*sesv2.SendEmailInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*sesv2.SendEmailInput(nil), f.sent...)
}

type fixture struct {
	db          *database.DB
	ses         *fakeSES
	auth        *AuthService
	classrooms  *ClassroomService
	assignments *AssignmentService
	sessions    *SessionService
	backup      *BackupService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "service_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	fsys, err := migrations.For(db.Dialect.MigrationsSubdir(), "")
	require.NoError(t, err)
	_, err = db.RunMigrations(fsys)
	require.NoError(t, err)
	_, err = db.SeedProhibitedWords([]string{"cerveza", "tequila"})
	require.NoError(t, err)

	log := logger.Discard()
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	logRepo := repository.NewConversationLogRepository(db)

	ses := &fakeSES{}
	email := newEmailService(ses, "noreply@vocaflow.test", "VocaFlow", "https://vocaflow.test", log)
	tokens := security.NewTokenIssuer("test-secret", time.Hour)

	classrooms := NewClassroomService(classroomRepo, studentRepo, log)
	assignments := NewAssignmentService(assignmentRepo, sessionRepo, studentRepo, classrooms, db, log)

	return &fixture{
		db:          db,
		ses:         ses,
		auth:        NewAuthService(teacherRepo, studentRepo, tokens, email, log),
		classrooms:  classrooms,
		assignments: assignments,
		sessions:    NewSessionService(sessionRepo, logRepo, teacherRepo, assignments, classrooms, email, log),
		backup:      NewBackupService(db, log),
	}
}

func (f *fixture) teacher(t *testing.T, email string) *models.Teacher {
	t.Helper()
	result, err := f.auth.RegisterTeacher(context.Background(), email, "contraseña1", "Profesora Ruiz", "Lincoln High")
	require.NoError(t, err)
	return result.Teacher
}

func (f *fixture) student(t *testing.T, email string) *models.Student {
	t.Helper()
	result, err := f.auth.RegisterStudent(email, "contraseña1", "Ana López", "10")
	require.NoError(t, err)
	return result.Student
}

func (f *fixture) classroom(t *testing.T, teacherID string) *models.Classroom {
	t.Helper()
	classroom, err := f.classrooms.Create(teacherID, &models.Classroom{Name: "Español 2", SpanishLevel: "novice_high"})
	require.NoError(t, err)
	return classroom
}

func (f *fixture) assignment(t *testing.T, teacherID, classroomID string) *models.Assignment {
	t.Helper()
	assignment, err := f.assignments.Create(teacherID, classroomID, &models.Assignment{
		Title: "En el mercado",
		Vocab: []string{"manzana", "precio"},
	})
	require.NoError(t, err)
	return assignment
}

// enrolled builds a teacher with one classroom and assignment and a student
// enrolled in it
func (f *fixture) enrolled(t *testing.T) (*models.Teacher, *models.Classroom, *models.Assignment, *models.Student) {
	t.Helper()
	teacher := f.teacher(t, "maestra@example.com")
	classroom := f.classroom(t, teacher.ID)
	assignment := f.assignment(t, teacher.ID, classroom.ID)
	student := f.student(t, "ana@example.com")
	_, err := f.classrooms.Join(student.ID, classroom.JoinCode)
	require.NoError(t, err)
	return teacher, classroom, assignment, student
}

func teacherActor(id string) Actor { return Actor{ID: id, Role: security.RoleTeacher} }
func studentActor(id string) Actor { return Actor{ID: id, Role: security.RoleStudent} }
