package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/pkg/response"
)

// CtxIdentityKey is the gin context key holding the authenticated Identity.
const CtxIdentityKey = "identity"

// TokenValidator is satisfied by *application.AuthService.
type TokenValidator interface {
	ValidateToken(token string) (application.Identity, error)
}

// Auth reads the bearer token, validates it and stores the caller's Identity
// in the Gin context. Requests without a valid token never reach the next
// handler.
func Auth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "missing bearer token", nil)
			return
		}
		id, err := v.ValidateToken(token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		}
		c.Set(CtxIdentityKey, id)
		c.Next()
	}
}

// IdentityFrom returns the Identity stored by Auth.
func IdentityFrom(c *gin.Context) (application.Identity, bool) {
	v, ok := c.Get(CtxIdentityKey)
	if !ok {
		return application.Identity{}, false
	}
	id, ok := v.(application.Identity)
	return id, ok && id.UserID != ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
