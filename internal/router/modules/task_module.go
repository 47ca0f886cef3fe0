package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-task-manager/internal/interface/http"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
)

// TaskModule registers /api/tasks. Every route requires a bearer token.
type TaskModule struct {
	Handler *handlers.TaskHandler
	Tokens  middleware.TokenValidator
}

func NewTaskModule(h *handlers.TaskHandler, tokens middleware.TokenValidator) *TaskModule {
	return &TaskModule{Handler: h, Tokens: tokens}
}

func (m *TaskModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/tasks")
	g.Use(middleware.Auth(m.Tokens))
	{
		g.POST("", m.Handler.Create)
		g.GET("", m.Handler.List)
		g.GET("/search", m.Handler.Search)
		g.GET("/:id", m.Handler.Get)
		g.PUT("/:id", m.Handler.Update)
		g.PATCH("/:id/status", m.Handler.UpdateStatus)
		g.DELETE("/:id", m.Handler.Delete)
	}
}
