package application

import (
	"context"
	"time"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
)

// TaskListCache stores ListTasks results per owner. Implementations must
// treat every failure as a miss.
//
// Get also returns the owner's generation, which Invalidate advances. Set
// must drop the write when the generation is no longer gen, so a list read
// before a mutation is never cached after it.
type TaskListCache interface {
	Get(ctx context.Context, ownerID, filter string) (tasks []*entity.Task, gen int64, ok bool)
	Set(ctx context.Context, ownerID, filter string, gen int64, tasks []*entity.Task)
	Invalidate(ctx context.Context, ownerID string)
}

// Task event types.
const (
	EventTaskCreated       = "task.created"
	EventTaskUpdated       = "task.updated"
	EventTaskStatusChanged = "task.status_changed"
	EventTaskDeleted       = "task.deleted"
)

// TaskEvent describes a committed task mutation. Task is nil for deletions.
type TaskEvent struct {
	Type       string       `json:"type"`
	TaskID     string       `json:"task_id"`
	OwnerID    string       `json:"owner_id"`
	Task       *TaskPayload `json:"task,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// TaskPayload is the wire snapshot of a task carried by events.
type TaskPayload struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     string    `json:"due_date"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewTaskPayload(t *entity.Task) *TaskPayload {
	return &TaskPayload{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate.Format(entity.DateLayout),
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// TaskEventPublisher ships events to other processes.
type TaskEventPublisher interface {
	Publish(ctx context.Context, ev TaskEvent) error
}

// TaskSearcher runs full-text queries scoped to one owner and returns
// matching task ids, best match first.
type TaskSearcher interface {
	Search(ctx context.Context, ownerID, query string, status *entity.Status, limit int) ([]string, error)
}
