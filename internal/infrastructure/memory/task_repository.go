package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
)

type TaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*entity.Task
	now   func() time.Time
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{
		tasks: make(map[string]*entity.Task),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *TaskRepository) Create(_ context.Context, t *entity.Task) error {
	now := r.now()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now

	r.mu.Lock()
	r.tasks[t.ID] = t.Clone()
	r.mu.Unlock()
	return nil
}

func (r *TaskRepository) GetByID(_ context.Context, id string) (*entity.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t.Clone(), nil
}

func (r *TaskRepository) ListByOwner(_ context.Context, ownerID string, status *entity.Status) ([]*entity.Task, error) {
	r.mu.RLock()
	out := make([]*entity.Task, 0)
	for _, t := range r.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, t.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (r *TaskRepository) Update(_ context.Context, ownerID, id string, p entity.TaskPatch) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tasks[id]
	if !ok || cur.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	p.Apply(cur)
	cur.UpdatedAt = r.now()
	return cur.Clone(), nil
}

func (r *TaskRepository) UpdateStatus(_ context.Context, ownerID, id string, status entity.Status) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tasks[id]
	if !ok || cur.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	cur.Status = status
	cur.UpdatedAt = r.now()
	return cur.Clone(), nil
}

func (r *TaskRepository) Delete(_ context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.tasks[id]
	if !ok || cur.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
