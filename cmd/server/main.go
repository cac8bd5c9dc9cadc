package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"vocaflow/internal/config"
	"vocaflow/internal/conversation"
	"vocaflow/internal/database"
	"vocaflow/internal/gateway"
	"vocaflow/internal/handlers"
	"vocaflow/internal/logger"
	"vocaflow/internal/repository"
	"vocaflow/internal/security"
	"vocaflow/internal/service"
	"vocaflow/migrations"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startup := handlers.NewStartupStatus(
		handlers.StepDatabase,
		handlers.StepMigrations,
		handlers.StepWords,
		handlers.StepProviders,
		handlers.StepServices,
	)

	// Initialize database with config (supports sqlite, postgres, mysql)
	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()
	log.WithField("type", cfg.DatabaseType).Info("Database connection established")
	startup.CompleteStep(handlers.StepDatabase)

	// Run migrations
	startup.SetCurrentStep(handlers.StepMigrations)
	fsys, err := migrations.For(db.Dialect.MigrationsSubdir(), cfg.MigrationsPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to locate migrations")
	}
	applied, err := db.RunMigrations(fsys)
	if err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}
	log.WithField("applied", applied).Info("Migrations completed successfully")
	startup.CompleteStep(handlers.StepMigrations)

	// Seed the prohibited word list
	startup.SetCurrentStep(handlers.StepWords)
	seedProhibitedWords(ctx, db, cfg, log)
	startup.CompleteStep(handlers.StepWords)

	// Chat, speech and transcription providers
	startup.SetCurrentStep(handlers.StepProviders)
	gw, err := gateway.FromConfig(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize providers")
	}
	if err := gw.Ready(); err != nil {
		log.WithError(err).Warn("Conversations will be refused until provider keys are configured")
	}
	startup.CompleteStep(handlers.StepProviders)

	startup.SetCurrentStep(handlers.StepServices)
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret = randomSecret()
		log.Warn("JWT_SECRET not set; tokens will not survive a restart")
	}

	// Initialize repositories
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	logRepo := repository.NewConversationLogRepository(db)

	// Initialize services
	emailService, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, cfg.EmailDebug, log)
	if err != nil {
		log.WithError(err).Warn("Email disabled")
		emailService = nil
	}
	tokens := security.NewTokenIssuer(jwtSecret, cfg.TokenTTL)
	authService := service.NewAuthService(teacherRepo, studentRepo, tokens, emailService, log)
	classroomService := service.NewClassroomService(classroomRepo, studentRepo, log)
	assignmentService := service.NewAssignmentService(assignmentRepo, sessionRepo, studentRepo, classroomService, db, log)
	sessionService := service.NewSessionService(sessionRepo, logRepo, teacherRepo, assignmentService, classroomService, emailService, log)

	controller := conversation.NewController(gw, conversation.LoadFilter(db, log), conversation.Options{
		SetupWait:      cfg.SetupWait,
		DefaultLevel:   cfg.DefaultLevel,
		MaxMessageSize: cfg.MaxMessageSize,
	}, log)

	limiter := security.NewRateLimiter(10, time.Minute)
	defer limiter.Stop()
	proxies, err := security.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.WithError(err).Fatal("Invalid TRUSTED_PROXIES")
	}

	google := handlers.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.AppBaseURL, security.NewStateSigner(jwtSecret))
	if google != nil {
		log.Info("Google sign-in enabled for teachers")
	}

	// Initialize handlers
	router := &handlers.Router{
		Middleware:    handlers.NewMiddleware(authService, limiter, proxies, log),
		Auth:          handlers.NewAuthHandler(authService, google, cfg.AppBaseURL, log),
		Classrooms:    handlers.NewClassroomHandler(classroomService, assignmentService, log),
		Assignments:   handlers.NewAssignmentHandler(assignmentService, sessionService, log),
		Sessions:      handlers.NewSessionHandler(sessionService, log),
		Conversations: handlers.NewConversationHandler(controller, log),
		Startup:       startup,
	}
	startup.CompleteStep(handlers.StepServices)

	// Start server. No write timeout: conversation sockets are long lived.
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:              addr,
		Handler:           router.Handler(log),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.WithField("addr", addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()
	startup.MarkReady()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}

// seedProhibitedWords loads the configured word list, falling back to the
// built-in one. Failures leave the existing table in place.
func seedProhibitedWords(ctx context.Context, db *database.DB, cfg *config.Config, log logrus.FieldLogger) {
	if cfg.ProhibitedWordsURL != "" {
		added, err := db.SeedProhibitedWordsFromURL(ctx, cfg.ProhibitedWordsURL)
		if err == nil {
			log.WithField("added", added).Info("Seeded prohibited words from URL")
			return
		}
		log.WithError(err).Warn("Failed to seed prohibited words from URL, using built-in list")
	}

	added, err := db.SeedProhibitedWords(conversation.DefaultProhibitedWords)
	if err != nil {
		log.WithError(err).Warn("Failed to seed prohibited words")
		return
	}
	log.WithField("added", added).Debug("Seeded built-in prohibited words")
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
