package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/application"
	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/interface/middleware"
	"github.com/oksasatya/go-task-manager/pkg/response"
)

type TaskHandler struct {
	Svc    *application.TaskService
	Logger *logrus.Logger
}

func NewTaskHandler(svc *application.TaskService, logger *logrus.Logger) *TaskHandler {
	return &TaskHandler{Svc: svc, Logger: logger}
}

// taskRequest is shared by create and update. Pointer fields let update tell
// "absent" from "empty".
type taskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	Priority    *string `json:"priority" binding:"omitempty,taskpriority"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required,taskstatus"`
}

type listQuery struct {
	Status string `form:"status"`
}

type searchQuery struct {
	Q      string `form:"q"`
	Status string `form:"status"`
	Limit  int    `form:"limit"`
}

type taskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     string    `json:"due_date"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTaskResponse(t *entity.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate.Format(entity.DateLayout),
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toTaskList(tasks []*entity.Task) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// identity is set by middleware.Auth on every task route.
func identity(c *gin.Context) (application.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
	}
	return id, ok
}

// Create POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	t, err := h.Svc.CreateTask(c.Request.Context(), id, application.CreateTaskInput{
		Title:       deref(req.Title),
		Description: deref(req.Description),
		DueDate:     deref(req.DueDate),
		Priority:    req.Priority,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, toTaskResponse(t), "task created", nil)
}

// List GET /api/tasks?status=
func (h *TaskHandler) List(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}
	tasks, err := h.Svc.ListTasks(c.Request.Context(), id, q.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toTaskList(tasks), "ok", gin.H{"count": len(tasks)})
}

// Search GET /api/tasks/search?q=&status=&limit=
func (h *TaskHandler) Search(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}
	tasks, err := h.Svc.SearchTasks(c.Request.Context(), id, q.Q, q.Status, q.Limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toTaskList(tasks), "ok", gin.H{"count": len(tasks)})
}

// Get GET /api/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	t, err := h.Svc.GetTask(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toTaskResponse(t), "ok", nil)
}

// Update PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	t, err := h.Svc.UpdateTask(c.Request.Context(), id, c.Param("id"), application.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    req.Priority,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toTaskResponse(t), "task updated", nil)
}

// UpdateStatus PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	t, err := h.Svc.UpdateStatus(c.Request.Context(), id, c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, toTaskResponse(t), "task status updated", nil)
}

// Delete DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	taskID := c.Param("id")
	if err := h.Svc.DeleteTask(c.Request.Context(), id, taskID); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": taskID, "deleted": true}, "task deleted", nil)
}
