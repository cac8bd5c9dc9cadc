package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocaflow/internal/conversation"
	"vocaflow/internal/database"
	"vocaflow/internal/gateway"
	"vocaflow/internal/llm"
	"vocaflow/internal/logger"
	"vocaflow/internal/models"
	"vocaflow/internal/repository"
	"vocaflow/internal/security"
	"vocaflow/internal/service"
	"vocaflow/migrations"
)

type testAPI struct {
	srv     *httptest.Server
	startup *StartupStatus
	chat    *llm.MockProvider
}

type apiOptions struct {
	limiter *security.RateLimiter
	proxies security.TrustedProxies
	google  *GoogleOAuth
}

func newTestAPI(t *testing.T, opts apiOptions) *testAPI {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "api_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	fsys, err := migrations.For(db.Dialect.MigrationsSubdir(), "")
	require.NoError(t, err)
	_, err = db.RunMigrations(fsys)
	require.NoError(t, err)
	_, err = db.SeedProhibitedWords([]string{"cerveza"})
	require.NoError(t, err)

	log := logger.Discard()
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	authService := service.NewAuthService(teacherRepo, studentRepo, security.NewTokenIssuer("api-secret", time.Hour), nil, log)
	classroomService := service.NewClassroomService(repository.NewClassroomRepository(db), studentRepo, log)
	assignmentService := service.NewAssignmentService(repository.NewAssignmentRepository(db), sessionRepo, studentRepo, classroomService, db, log)
	sessionService := service.NewSessionService(sessionRepo, repository.NewConversationLogRepository(db), teacherRepo,
		assignmentService, classroomService, nil, log)

	chat := llm.NewMockProvider()
	gw := gateway.New(gateway.Providers{General: chat}, time.Second, log)
	controller := conversation.NewController(gw, conversation.NewFilter(nil), conversation.Options{
		SetupWait:    20 * time.Millisecond,
		DefaultLevel: "intermediate_mid",
	}, log)

	startup := NewStartupStatus(StepDatabase, StepServices)
	router := &Router{
		Middleware:    NewMiddleware(authService, opts.limiter, opts.proxies, log),
		Auth:          NewAuthHandler(authService, opts.google, "https://app.vocaflow.test", log),
		Classrooms:    NewClassroomHandler(classroomService, assignmentService, log),
		Assignments:   NewAssignmentHandler(assignmentService, sessionService, log),
		Sessions:      NewSessionHandler(sessionService, log),
		Conversations: NewConversationHandler(controller, log),
		Startup:       startup,
	}

	srv := httptest.NewServer(router.Handler(log))
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, startup: startup, chat: chat}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (a *testAPI) decode(t *testing.T, method, path, token string, body interface{}, wantStatus int, dst interface{}) {
	t.Helper()
	status, data := a.do(t, method, path, token, body)
	require.Equal(t, wantStatus, status, "%s %s: %s", method, path, data)
	if dst != nil {
		require.NoError(t, json.Unmarshal(data, dst))
	}
}

func TestClassroomWorkflow(t *testing.T) {
	api := newTestAPI(t, apiOptions{})

	var teacher service.AuthResult
	api.decode(t, "POST", "/api/teachers/register", "", map[string]string{
		"email": "maestra@example.com", "password": "contraseña1", "name": "Profesora Ruiz",
	}, http.StatusCreated, &teacher)
	require.NotEmpty(t, teacher.Token)

	var classroom models.Classroom
	api.decode(t, "POST", "/api/classrooms", teacher.Token, map[string]string{
		"name": "Español 2", "spanish_level": "novice_high",
	}, http.StatusCreated, &classroom)

	status, body := api.do(t, "POST", fmt.Sprintf("/api/classrooms/%s/assignments", classroom.ID), teacher.Token, map[string]interface{}{
		"title": "La fiesta", "vocab": []string{"pastel", "cerveza"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "cerveza")

	var assignment models.Assignment
	api.decode(t, "POST", fmt.Sprintf("/api/classrooms/%s/assignments", classroom.ID), teacher.Token, map[string]interface{}{
		"title": "En el mercado", "vocab": []string{"manzana"}, "avatar_role": "vendedor",
	}, http.StatusCreated, &assignment)
	assert.Equal(t, "novice_high", assignment.Level)

	var student service.AuthResult
	api.decode(t, "POST", "/api/students/register", "", map[string]string{
		"email": "ana@example.com", "password": "contraseña1", "name": "Ana López",
	}, http.StatusCreated, &student)

	status, _ = api.do(t, "GET", "/api/assignments/"+assignment.ID, student.Token, nil)
	assert.Equal(t, http.StatusForbidden, status, "not enrolled yet")

	api.decode(t, "POST", "/api/classrooms/join", student.Token, map[string]string{"join_code": classroom.JoinCode}, http.StatusOK, nil)

	var mine []models.Assignment
	api.decode(t, "GET", "/api/students/me/assignments", student.Token, nil, http.StatusOK, &mine)
	require.Len(t, mine, 1)

	var session models.AssignmentSession
	api.decode(t, "POST", "/api/assignments/"+assignment.ID+"/sessions", student.Token, nil, http.StatusCreated, &session)

	api.decode(t, "POST", "/api/sessions/"+session.ID+"/transcript", student.Token, map[string]interface{}{
		"messages": []map[string]string{
			{"sender": "bot", "content": "¡Hola! ¿Qué quieres comprar?"},
			{"sender": "user", "content": "Quiero una manzana."},
		},
		"voice_used": true,
	}, http.StatusOK, &session)
	assert.True(t, session.Completed)
	assert.Equal(t, 2, session.MessageCount)

	api.decode(t, "POST", "/api/sessions/"+session.ID+"/submit", student.Token, nil, http.StatusOK, nil)

	var submissions []models.AssignmentSession
	api.decode(t, "GET", "/api/assignments/"+assignment.ID+"/submissions", teacher.Token, nil, http.StatusOK, &submissions)
	require.Len(t, submissions, 1)
	assert.Equal(t, session.ID, submissions[0].ID)

	var logs []models.ConversationLog
	api.decode(t, "GET", "/api/sessions/"+session.ID+"/logs", teacher.Token, nil, http.StatusOK, &logs)
	require.Len(t, logs, 2)
	assert.Equal(t, "Quiero una manzana.", logs[1].Content)

	var analytics models.ClassroomAnalytics
	api.decode(t, "GET", "/api/classrooms/"+classroom.ID+"/analytics", teacher.Token, nil, http.StatusOK, &analytics)
	assert.Equal(t, 1, analytics.TotalStudents)
	assert.Equal(t, 1, analytics.CompletedSessions)
}

func TestAuthorization(t *testing.T) {
	api := newTestAPI(t, apiOptions{})

	var student service.AuthResult
	api.decode(t, "POST", "/api/students/register", "", map[string]string{
		"email": "ana@example.com", "password": "contraseña1", "name": "Ana",
	}, http.StatusCreated, &student)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{name: "no token", method: "GET", path: "/api/classrooms", status: http.StatusUnauthorized},
		{name: "garbage token", method: "GET", path: "/api/classrooms", token: "nope", status: http.StatusUnauthorized},
		{name: "student on teacher route", method: "GET", path: "/api/classrooms", token: student.Token, status: http.StatusForbidden},
		{name: "missing session", method: "GET", path: "/api/sessions/missing", token: student.Token, status: http.StatusNotFound},
		{name: "empty list is not null", method: "GET", path: "/api/students/me/classrooms", token: student.Token, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := api.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, status, string(body))
			if status == http.StatusOK {
				assert.Equal(t, "[]", strings.TrimSpace(string(body)))
			}
		})
	}

	status, _ := api.do(t, "POST", "/api/students/login", "", map[string]string{"email": "ana@example.com", "password": "incorrecta"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = api.do(t, "POST", "/api/students/register", "", map[string]string{
		"email": "ana@example.com", "password": "contraseña1", "name": "Ana",
	})
	assert.Equal(t, http.StatusConflict, status)
}

func TestSignInRateLimit(t *testing.T) {
	limiter := security.NewRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)
	api := newTestAPI(t, apiOptions{limiter: limiter})

	creds := map[string]string{"email": "nadie@example.com", "password": "contraseña1"}
	for i := 0; i < 2; i++ {
		status, _ := api.do(t, "POST", "/api/teachers/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, status)
	}
	status, _ := api.do(t, "POST", "/api/teachers/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestSignInRateLimitIgnoresForwardedHeaders(t *testing.T) {
	limiter := security.NewRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)
	api := newTestAPI(t, apiOptions{limiter: limiter})

	login := func(forwardedFor string) int {
		body := strings.NewReader(`{"email":"nadie@example.com","password":"contraseña1"}`)
		req, err := http.NewRequest("POST", api.srv.URL+"/api/teachers/login", body)
		require.NoError(t, err)
		req.Header.Set("X-Forwarded-For", forwardedFor)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, login("1.1.1.1"))
	assert.Equal(t, http.StatusUnauthorized, login("2.2.2.2"))
	assert.Equal(t, http.StatusTooManyRequests, login("3.3.3.3"))
}

func TestHealthzAndLevels(t *testing.T) {
	api := newTestAPI(t, apiOptions{})

	status, body := api.do(t, "GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, string(body), `"ready":false`)

	api.startup.CompleteStep(StepDatabase)
	api.startup.MarkReady()
	status, _ = api.do(t, "GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)

	var levels struct {
		Default string `json:"default"`
		Levels  []struct {
			Key string `json:"key"`
		} `json:"levels"`
	}
	api.decode(t, "GET", "/api/levels", "", nil, http.StatusOK, &levels)
	assert.Equal(t, "intermediate_mid", levels.Default)
	assert.Len(t, levels.Levels, 9)
}

func TestConversationSocketThroughRouter(t *testing.T) {
	api := newTestAPI(t, apiOptions{})
	api.chat.AddResponse(llm.MockResponse{Text: "¡Qué bien!"})

	wsURL := "ws" + strings.TrimPrefix(api.srv.URL, "http") + "/ws/novice_mid"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, opening, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(opening), conversation.BotPrefix))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"text","content":"Me gusta el fútbol"}`)))
	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "bot:¡Qué bien!", string(reply))
}

func TestGoogleSignIn(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		api := newTestAPI(t, apiOptions{})
		status, _ := api.do(t, "GET", "/api/auth/google/start", "", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("start sets signed state", func(t *testing.T) {
		signer := security.NewStateSigner("state-secret")
		google := NewGoogleOAuth("client-id", "client-secret", "https://app.vocaflow.test", signer)
		api := newTestAPI(t, apiOptions{google: google})

		client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
		resp, err := client.Get(api.srv.URL + "/api/auth/google/start")
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusFound, resp.StatusCode)

		location, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		state := location.Query().Get("state")
		assert.True(t, signer.Verify(state))
		assert.Equal(t, "https://app.vocaflow.test/api/auth/google/callback", location.Query().Get("redirect_uri"))

		var cookie *http.Cookie
		for _, c := range resp.Cookies() {
			if c.Name == security.OAuthStateCookie {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.Equal(t, state, cookie.Value)
	})

	t.Run("callback rejects forged state", func(t *testing.T) {
		google := NewGoogleOAuth("client-id", "client-secret", "https://app.vocaflow.test", security.NewStateSigner("state-secret"))
		api := newTestAPI(t, apiOptions{google: google})

		req, err := http.NewRequest("GET", api.srv.URL+"/api/auth/google/callback?code=abc&state=forged.sig", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: security.OAuthStateCookie, Value: "forged.sig"})
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
