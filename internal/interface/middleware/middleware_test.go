package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-task-manager/internal/application"
)

type stubValidator struct {
	valid map[string]string
	calls int
}

func (s *stubValidator) ValidateToken(token string) (application.Identity, error) {
	s.calls++
	if uid, ok := s.valid[token]; ok {
		return application.Identity{UserID: uid}, nil
	}
	return application.Identity{}, application.ErrUnauthenticated
}

func newEngine(v TokenValidator, reached *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware(), RealIP())
	r.GET("/protected", Auth(v), func(c *gin.Context) {
		*reached = true
		id, ok := IdentityFrom(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, id.UserID)
	})
	r.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, ClientIP(c)) })
	return r
}

func TestAuth_RejectsBeforeHandler(t *testing.T) {
	v := &stubValidator{valid: map[string]string{"good": "u1"}}

	cases := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic good",
		"no token":     "Bearer ",
		"bad token":    "Bearer nope",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			reached := false
			r := newEngine(v, &reached)
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, reached)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["request_id"])
		})
	}
}

func TestAuth_SetsIdentity(t *testing.T) {
	v := &stubValidator{valid: map[string]string{"good": "u1"}}
	reached := false
	r := newEngine(v, &reached)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, reached)
	assert.Equal(t, "u1", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRealIP_PrefersForwardedHeaders(t *testing.T) {
	reached := false
	r := newEngine(&stubValidator{}, &reached)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "203.0.113.7", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("CF-Connecting-IP", "198.51.100.2")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "198.51.100.2", w.Body.String())
}
