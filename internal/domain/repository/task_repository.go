package repository

import (
	"context"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
)

// TaskRepository persists tasks. Mutating calls are scoped by owner so a
// write can never land on another user's row.
type TaskRepository interface {
	// Create assigns ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, t *entity.Task) error
	GetByID(ctx context.Context, id string) (*entity.Task, error)
	// ListByOwner returns the owner's tasks, optionally restricted to a status.
	ListByOwner(ctx context.Context, ownerID string, status *entity.Status) ([]*entity.Task, error)
	// Update writes only the fields set in p and returns the stored task.
	// Status is never touched.
	Update(ctx context.Context, ownerID, id string, p entity.TaskPatch) (*entity.Task, error)
	UpdateStatus(ctx context.Context, ownerID, id string, status entity.Status) (*entity.Task, error)
	Delete(ctx context.Context, ownerID, id string) error
}
