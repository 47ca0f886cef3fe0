package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/pkg/response"
	"github.com/oksasatya/go-task-manager/pkg/validation"
)

// writeError maps a service error onto the response envelope. Anything that
// is not one of the known kinds is reported as a generic server error.
func writeError(c *gin.Context, err error) {
	var ve *application.ValidationError
	switch {
	case errors.As(err, &ve):
		response.Error[any](c, http.StatusBadRequest, "validation failed", map[string]string{ve.Field: ve.Message})
	case errors.Is(err, application.ErrValidation):
		response.Error[any](c, http.StatusBadRequest, "validation failed", nil)
	case errors.Is(err, application.ErrConflict):
		response.Error[any](c, http.StatusConflict, "email already registered", nil)
	case errors.Is(err, application.ErrUnauthenticated):
		response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
	case errors.Is(err, application.ErrNotFound):
		response.Error[any](c, http.StatusNotFound, "not found", nil)
	default:
		response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
	}
}

func writeBindError(c *gin.Context, err error) {
	response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
}
