package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-task-manager/config"
	"github.com/oksasatya/go-task-manager/internal/container"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-task-manager/pkg/validation"
)

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   map[string]any  `json:"error"`
}

type client struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestServer(t *testing.T, debug bool) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	container.Reset()
	t.Cleanup(container.Reset)
	container.SetConfig(&config.Config{
		JWTSecret:           "router-test-secret",
		TokenTTL:            time.Hour,
		MinPasswordLen:      6,
		ESTasksIndex:        "tasks",
		DebugMetricsEnabled: debug,
	})
	container.SetLogger(logger)
	container.UseMemoryStore()

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware(), middleware.RealIP())
	reg := NewRegistry(engine)
	InitModules(reg)
	reg.RegisterAll()
	return &client{t: t, engine: engine}
}

func (c *client) do(method, path, token string, body any) (int, envelope) {
	c.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(c.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (c *client) signup(name, email string) string {
	c.t.Helper()
	code, _ := c.do(http.MethodPost, "/api/auth/register", "", gin.H{"name": name, "email": email, "password": "secret1"})
	require.Equal(c.t, http.StatusCreated, code)
	code, env := c.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": "secret1"})
	require.Equal(c.t, http.StatusOK, code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(c.t, login.Token)
	return login.Token
}

type taskJSON struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	OwnerID     string `json:"owner_id"`
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestTaskLifecycle(t *testing.T) {
	c := newTestServer(t, false)
	ann := c.signup("Ann", "ann@x.com")

	code, env := c.do(http.MethodPost, "/api/tasks", ann, gin.H{"title": "Pay bills", "due_date": "2025-01-10"})
	require.Equal(t, http.StatusCreated, code)
	task := decode[taskJSON](t, env.Data)
	assert.Equal(t, "Pay bills", task.Title)
	assert.Equal(t, "2025-01-10", task.DueDate)
	assert.Equal(t, "medium", task.Priority)
	assert.Equal(t, "pending", task.Status)
	assert.Empty(t, task.OwnerID)

	code, env = c.do(http.MethodPatch, "/api/tasks/"+task.ID+"/status", ann, gin.H{"status": "completed"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", decode[taskJSON](t, env.Data).Status)

	code, env = c.do(http.MethodPut, "/api/tasks/"+task.ID, ann, gin.H{"priority": "high"})
	require.Equal(t, http.StatusOK, code)
	updated := decode[taskJSON](t, env.Data)
	assert.Equal(t, "high", updated.Priority)
	assert.Equal(t, "completed", updated.Status)
	assert.Equal(t, "Pay bills", updated.Title)

	code, env = c.do(http.MethodGet, "/api/tasks?status=completed", ann, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]taskJSON](t, env.Data), 1)

	code, env = c.do(http.MethodGet, "/api/tasks?status=pending", ann, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]taskJSON](t, env.Data))

	code, env = c.do(http.MethodGet, "/api/tasks/search?q=BILLS", ann, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]taskJSON](t, env.Data), 1)

	code, _ = c.do(http.MethodDelete, "/api/tasks/"+task.ID, ann, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodGet, "/api/tasks/"+task.ID, ann, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTasksAreInvisibleToOtherUsers(t *testing.T) {
	c := newTestServer(t, false)
	ann := c.signup("Ann", "ann@x.com")
	bob := c.signup("Bob", "bob@x.com")

	_, env := c.do(http.MethodPost, "/api/tasks", ann, gin.H{"title": "Pay bills", "due_date": "2025-01-10"})
	task := decode[taskJSON](t, env.Data)

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/tasks/" + task.ID, nil},
		{http.MethodPut, "/api/tasks/" + task.ID, gin.H{"title": "mine now"}},
		{http.MethodPatch, "/api/tasks/" + task.ID + "/status", gin.H{"status": "completed"}},
		{http.MethodDelete, "/api/tasks/" + task.ID, nil},
	} {
		code, _ := c.do(tc.method, tc.path, bob, tc.body)
		assert.Equal(t, http.StatusNotFound, code, tc.method)
	}

	_, env = c.do(http.MethodGet, "/api/tasks", bob, nil)
	assert.Empty(t, decode[[]taskJSON](t, env.Data))

	_, env = c.do(http.MethodGet, "/api/tasks/"+task.ID, ann, nil)
	got := decode[taskJSON](t, env.Data)
	assert.Equal(t, "Pay bills", got.Title)
	assert.Equal(t, "pending", got.Status)
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	c := newTestServer(t, false)

	code, _ := c.do(http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = c.do(http.MethodPost, "/api/tasks", "garbage", gin.H{"title": "x", "due_date": "2025-01-10"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = c.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestErrorStatusMapping(t *testing.T) {
	c := newTestServer(t, false)
	ann := c.signup("Ann", "ann@x.com")

	code, env := c.do(http.MethodPost, "/api/auth/register", "", gin.H{"name": "Ann", "email": "ANN@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, code)
	assert.False(t, env.Success)

	code, _ = c.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ann@x.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = c.do(http.MethodPost, "/api/tasks", ann, gin.H{"title": "x", "due_date": "2025-02-30"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "due_date")

	code, env = c.do(http.MethodPost, "/api/tasks", ann, gin.H{"title": "x", "due_date": "2025-01-10", "priority": "urgent"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "must be one of: low, medium, high", env.Error["priority"])

	code, env = c.do(http.MethodPatch, "/api/tasks/whatever/status", ann, gin.H{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "status")

	code, _ = c.do(http.MethodGet, "/api/tasks?status=done", ann, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodGet, "/api/tasks/search", ann, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodGet, "/api/tasks/not-a-uuid", ann, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMe(t *testing.T) {
	c := newTestServer(t, false)
	ann := c.signup("Ann", "Ann@X.com")

	code, env := c.do(http.MethodGet, "/api/auth/me", ann, nil)
	require.Equal(t, http.StatusOK, code)
	me := decode[map[string]any](t, env.Data)
	assert.Equal(t, "ann@x.com", me["email"])
	assert.NotContains(t, me, "password_hash")
}

func TestDebugVarsOnlyWhenEnabled(t *testing.T) {
	c := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil)
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c = newTestServer(t, true)
	w = httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"tasks"`)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	c := newTestServer(t, false)

	code, env := c.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, env = c.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
}

func (c *client) rawGet(path, token string) (int, string) {
	c.t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	c.engine.ServeHTTP(w, req)
	return w.Code, w.Body.String()
}

func TestEmptyListsSerializeAsArrays(t *testing.T) {
	c := newTestServer(t, false)
	ann := c.signup("Ann", "ann@x.com")

	for _, path := range []string{"/api/tasks", "/api/tasks?status=completed", "/api/tasks/search?q=nothing"} {
		code, body := c.rawGet(path, ann)
		assert.Equal(t, http.StatusOK, code, path)
		assert.Contains(t, body, `"data":[]`, path)
	}

	code, env := c.do(http.MethodPost, "/api/tasks", ann, gin.H{"title": "Pay bills", "due_date": "2025-01-10"})
	require.Equal(t, http.StatusCreated, code)
	require.NotNil(t, env.Data)

	code, body := c.rawGet("/api/tasks?status=completed", ann)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"data":[]`)
}
