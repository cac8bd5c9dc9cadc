package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"vocaflow/internal/models"
	"vocaflow/internal/repository"
	"vocaflow/internal/security"
	"vocaflow/internal/validation"
)

// AuthResult is returned by every sign-in path
type AuthResult struct {
	Token   string          `json:"token"`
	Role    string          `json:"role"`
	Teacher *models.Teacher `json:"teacher,omitempty"`
	Student *models.Student `json:"student,omitempty"`
}

// AuthService handles authentication business logic
type AuthService struct {
	teachers *repository.TeacherRepository
	students *repository.StudentRepository
	tokens   *security.TokenIssuer
	email    *EmailService
	log      logrus.FieldLogger
}

// NewAuthService creates a new auth service. email may be nil.
func NewAuthService(teachers *repository.TeacherRepository, students *repository.StudentRepository,
	tokens *security.TokenIssuer, email *EmailService, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		teachers: teachers,
		students: students,
		tokens:   tokens,
		email:    email,
		log:      log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateSignup(email, password, name string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return err
	}
	return validation.ValidateName(name)
}

// RegisterTeacher creates a teacher account and signs it in
func (s *AuthService) RegisterTeacher(ctx context.Context, email, password, name, school string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if err := validateSignup(email, password, name); err != nil {
		return nil, err
	}

	existing, err := s.teachers.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing teacher: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	teacher := &models.Teacher{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: passwordHash,
		School:       strings.TrimSpace(school),
	}
	if err := s.teachers.Create(teacher); err != nil {
		return nil, fmt.Errorf("failed to create teacher: %w", err)
	}

	s.sendWelcome(ctx, teacher)
	return s.teacherResult(teacher)
}

// LoginTeacher authenticates a teacher by email and password
func (s *AuthService) LoginTeacher(email, password string) (*AuthResult, error) {
	teacher, err := s.teachers.GetByEmail(normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	if teacher == nil || !security.CheckPassword(teacher.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.teacherResult(teacher)
}

// OAuthTeacherLogin signs in the teacher owning a verified provider email,
// creating the account on first use
func (s *AuthService) OAuthTeacherLogin(ctx context.Context, email, name string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}

	teacher, err := s.teachers.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup oauth teacher: %w", err)
	}
	if teacher != nil {
		return s.teacherResult(teacher)
	}

	if strings.TrimSpace(name) == "" {
		name = strings.Split(email, "@")[0]
	}
	randomPassword, err := generateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate oauth password: %w", err)
	}
	passwordHash, err := security.HashPassword(randomPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to generate oauth password hash: %w", err)
	}

	teacher = &models.Teacher{Name: strings.TrimSpace(name), Email: email, PasswordHash: passwordHash}
	if err := s.teachers.Create(teacher); err != nil {
		return nil, fmt.Errorf("failed to create oauth teacher: %w", err)
	}
	s.log.WithField("teacher_id", teacher.ID).Info("Created teacher from Google sign-in")

	s.sendWelcome(ctx, teacher)
	return s.teacherResult(teacher)
}

// RegisterStudent creates a student account and signs it in
func (s *AuthService) RegisterStudent(email, password, name, gradeLevel string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if err := validateSignup(email, password, name); err != nil {
		return nil, err
	}

	existing, err := s.students.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing student: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	student := &models.Student{
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: passwordHash,
		GradeLevel:   strings.TrimSpace(gradeLevel),
	}
	if err := s.students.Create(student); err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}
	return s.studentResult(student)
}

// LoginStudent authenticates an active student by email and password
func (s *AuthService) LoginStudent(email, password string) (*AuthResult, error) {
	student, err := s.students.GetByEmail(normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student == nil || !student.IsActive || !security.CheckPassword(student.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.studentResult(student)
}

// Authenticate validates a bearer token and returns the caller
func (s *AuthService) Authenticate(token string) (*Actor, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	return &Actor{ID: claims.Subject, Role: claims.Role}, nil
}

// Teacher returns a teacher profile
func (s *AuthService) Teacher(id string) (*models.Teacher, error) {
	teacher, err := s.teachers.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	if teacher == nil {
		return nil, ErrNotFound
	}
	return teacher, nil
}

// UpdateTeacher applies a partial profile update
func (s *AuthService) UpdateTeacher(id string, update models.TeacherUpdate) (*models.Teacher, error) {
	if update.Name != nil {
		if err := validation.ValidateName(*update.Name); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
	}
	if err := s.teachers.Update(id, update); err != nil {
		return nil, err
	}
	return s.Teacher(id)
}

// Student returns a student profile
func (s *AuthService) Student(id string) (*models.Student, error) {
	student, err := s.students.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if student == nil {
		return nil, ErrNotFound
	}
	return student, nil
}

func (s *AuthService) teacherResult(teacher *models.Teacher) (*AuthResult, error) {
	token, err := s.tokens.Issue(teacher.ID, security.RoleTeacher)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{Token: token, Role: security.RoleTeacher, Teacher: teacher}, nil
}

func (s *AuthService) studentResult(student *models.Student) (*AuthResult, error) {
	token, err := s.tokens.Issue(student.ID, security.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResult{Token: token, Role: security.RoleStudent, Student: student}, nil
}

// sendWelcome mails a new teacher. Failure does not fail registration.
func (s *AuthService) sendWelcome(ctx context.Context, teacher *models.Teacher) {
	if s.email == nil || !s.email.IsEnabled() {
		return
	}
	if err := s.email.SendWelcomeEmail(ctx, teacher.Email, teacher.Name); err != nil {
		s.log.WithError(err).WithField("teacher_id", teacher.ID).Warn("Failed to send welcome email")
	}
}

// IsAuthError reports whether err should be answered with 401
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, security.ErrInvalidToken)
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
