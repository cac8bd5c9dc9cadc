package handlers

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"vocaflow/internal/security"
	"vocaflow/internal/service"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const ActorContextKey ContextKey = "actor"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	authService *service.AuthService
	limiter     *security.RateLimiter
	proxies     security.TrustedProxies
	log         logrus.FieldLogger
}

// NewMiddleware creates a new middleware instance. limiter may be nil;
// proxies decides which forwarding headers identify the client.
func NewMiddleware(authService *service.AuthService, limiter *security.RateLimiter, proxies security.TrustedProxies, log logrus.FieldLogger) *Middleware {
	return &Middleware{
		authService: authService,
		limiter:     limiter,
		proxies:     proxies,
		log:         log,
	}
}

// RequireAuth accepts any valid bearer token
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return m.require("", next)
}

// RequireTeacher accepts only teacher tokens
func (m *Middleware) RequireTeacher(next http.HandlerFunc) http.HandlerFunc {
	return m.require(security.RoleTeacher, next)
}

// RequireStudent accepts only student tokens
func (m *Middleware) RequireStudent(next http.HandlerFunc) http.HandlerFunc {
	return m.require(security.RoleStudent, next)
}

func (m *Middleware) require(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondJSON(w, http.StatusUnauthorized, errorBody{Error: ErrUnauthorized})
			return
		}

		actor, err := m.authService.Authenticate(token)
		if err != nil {
			respondJSON(w, http.StatusUnauthorized, errorBody{Error: ErrUnauthorized})
			return
		}
		if role != "" && actor.Role != role {
			respondJSON(w, http.StatusForbidden, errorBody{Error: ErrForbiddenMsg})
			return
		}

		ctx := context.WithValue(r.Context(), ActorContextKey, actor)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit applies the per-client limiter to sign-in endpoints
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter == nil {
			next(w, r)
			return
		}
		ip := m.proxies.ClientIP(r)
		if !m.limiter.Allow(ip) {
			m.log.WithFields(logrus.Fields{
				"ip":   ip,
				"path": r.URL.Path,
			}).Warn("Rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			respondJSON(w, http.StatusTooManyRequests, errorBody{Error: ErrTooManyRequests})
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the logging middleware
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Logging middleware logs HTTP requests
func Logging(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Info("Request handled")
	})
}

// GetActor retrieves the authenticated caller from the request context
func GetActor(ctx context.Context) *service.Actor {
	actor, ok := ctx.Value(ActorContextKey).(*service.Actor)
	if !ok {
		return nil
	}
	return actor
}

// actorOf returns the caller of a handler behind Require*
func actorOf(r *http.Request) service.Actor {
	if actor := GetActor(r.Context()); actor != nil {
		return *actor
	}
	return service.Actor{}
}
