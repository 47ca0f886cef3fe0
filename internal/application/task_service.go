package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	repo "github.com/oksasatya/go-task-manager/internal/domain/repository"
	"github.com/oksasatya/go-task-manager/pkg/helpers"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
	filterAll          = "all"
)

// TaskService enforces per-owner CRUD over tasks. Every operation takes the
// caller's Identity; a task that exists but belongs to someone else is
// reported exactly like a missing one.
//
// Cache, Events and Search are optional.
type TaskService struct {
	Tasks  repo.TaskRepository
	Cache  TaskListCache
	Events TaskEventPublisher
	Search TaskSearcher
	Logger *logrus.Logger
}

func NewTaskService(tasks repo.TaskRepository, cache TaskListCache, events TaskEventPublisher, search TaskSearcher, logger *logrus.Logger) *TaskService {
	return &TaskService{Tasks: tasks, Cache: cache, Events: events, Search: search, Logger: logger}
}

type CreateTaskInput struct {
	Title       string
	Description string
	DueDate     string
	Priority    *string
}

// UpdateTaskInput carries only the fields to overwrite; nil means unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	DueDate     *string
	Priority    *string
}

func (s *TaskService) CreateTask(ctx context.Context, id Identity, in CreateTaskInput) (*entity.Task, error) {
	title, err := validTitle(in.Title)
	if err != nil {
		return nil, err
	}
	due, err := validDueDate(in.DueDate)
	if err != nil {
		return nil, err
	}
	priority := entity.PriorityMedium
	if in.Priority != nil {
		if priority, err = validPriority(*in.Priority); err != nil {
			return nil, err
		}
	}

	t := &entity.Task{
		OwnerID:     id.UserID,
		Title:       title,
		Description: in.Description,
		DueDate:     due,
		Priority:    priority,
		Status:      entity.StatusPending,
	}
	if err := s.Tasks.Create(ctx, t); err != nil {
		return nil, s.serverError(ctx, "create_task", id, "", err)
	}
	s.afterWrite(ctx, EventTaskCreated, t.OwnerID, t.ID, t)
	taskMetrics.Add("created", 1)
	return t, nil
}

// ListTasks returns the caller's tasks. statusFilter is "" (no filter),
// "pending" or "completed".
func (s *TaskService) ListTasks(ctx context.Context, id Identity, statusFilter string) ([]*entity.Task, error) {
	status, err := parseFilter(statusFilter)
	if err != nil {
		return nil, err
	}
	key := filterAll
	if status != nil {
		key = string(*status)
	}
	var gen int64
	if s.Cache != nil {
		tasks, g, ok := s.Cache.Get(ctx, id.UserID, key)
		if ok {
			return tasks, nil
		}
		gen = g
	}

	tasks, err := s.Tasks.ListByOwner(ctx, id.UserID, status)
	if err != nil {
		return nil, s.serverError(ctx, "list_tasks", id, "", err)
	}
	// The store already filters by owner; this guards against a
	// misbehaving backend leaking rows.
	out := tasks[:0]
	for _, t := range tasks {
		if t.OwnerID == id.UserID {
			out = append(out, t)
		}
	}
	if s.Cache != nil {
		s.Cache.Set(ctx, id.UserID, key, gen, out)
	}
	return out, nil
}

func (s *TaskService) GetTask(ctx context.Context, id Identity, taskID string) (*entity.Task, error) {
	return s.owned(ctx, "get_task", id, taskID)
}

func (s *TaskService) UpdateTask(ctx context.Context, id Identity, taskID string, in UpdateTaskInput) (*entity.Task, error) {
	var p entity.TaskPatch
	if in.Title != nil {
		title, err := validTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		p.Title = &title
	}
	if in.DueDate != nil {
		due, err := validDueDate(*in.DueDate)
		if err != nil {
			return nil, err
		}
		p.DueDate = &due
	}
	if in.Priority != nil {
		priority, err := validPriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		p.Priority = &priority
	}
	p.Description = in.Description

	t, err := s.owned(ctx, "update_task", id, taskID)
	if err != nil {
		return nil, err
	}
	if p.Empty() {
		return t, nil
	}

	t, err = s.Tasks.Update(ctx, id.UserID, taskID, p)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.serverError(ctx, "update_task", id, taskID, err)
	}
	s.afterWrite(ctx, EventTaskUpdated, t.OwnerID, t.ID, t)
	taskMetrics.Add("updated", 1)
	return t, nil
}

// UpdateStatus sets the status to exactly "pending" or "completed". Both
// directions are allowed.
func (s *TaskService) UpdateStatus(ctx context.Context, id Identity, taskID, status string) (*entity.Task, error) {
	st, ok := entity.ParseStatus(status)
	if !ok {
		return nil, invalid("status", "must be one of: pending, completed")
	}
	if _, err := s.owned(ctx, "update_status", id, taskID); err != nil {
		return nil, err
	}

	t, err := s.Tasks.UpdateStatus(ctx, id.UserID, taskID, st)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.serverError(ctx, "update_status", id, taskID, err)
	}
	s.afterWrite(ctx, EventTaskStatusChanged, t.OwnerID, t.ID, t)
	taskMetrics.Add("status_changed", 1)
	return t, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, id Identity, taskID string) error {
	if _, err := s.owned(ctx, "delete_task", id, taskID); err != nil {
		return err
	}
	if err := s.Tasks.Delete(ctx, id.UserID, taskID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound
		}
		return s.serverError(ctx, "delete_task", id, taskID, err)
	}
	s.afterWrite(ctx, EventTaskDeleted, id.UserID, taskID, nil)
	taskMetrics.Add("deleted", 1)
	return nil
}

// SearchTasks matches query against the caller's task titles and
// descriptions. Hits from the search index are re-read from the store and
// re-checked for ownership; without an index, or when it fails, the caller's
// list is scanned instead.
func (s *TaskService) SearchTasks(ctx context.Context, id Identity, query, statusFilter string, limit int) ([]*entity.Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("q", "is required")
	}
	status, err := parseFilter(statusFilter)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = defaultSearchLimit
	}

	if s.Search != nil {
		ids, err := s.Search.Search(ctx, id.UserID, query, status, limit)
		if err == nil {
			return s.loadHits(ctx, id, ids, status)
		}
		if s.Logger != nil {
			s.Logger.WithFields(helpers.RequestFields(ctx)).WithError(err).
				WithField("user_id", id.UserID).Warn("task search failed, scanning list")
		}
	}

	tasks, err := s.ListTasks(ctx, id, statusFilter)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	out := make([]*entity.Task, 0)
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), needle) || strings.Contains(strings.ToLower(t.Description), needle) {
			out = append(out, t)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *TaskService) loadHits(ctx context.Context, id Identity, ids []string, status *entity.Status) ([]*entity.Task, error) {
	out := make([]*entity.Task, 0, len(ids))
	for _, taskID := range ids {
		t, err := s.owned(ctx, "search_tasks", id, taskID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if status != nil && t.Status != *status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// owned loads a task and applies the ownership check.
func (s *TaskService) owned(ctx context.Context, op string, id Identity, taskID string) (*entity.Task, error) {
	if taskID == "" {
		return nil, ErrNotFound
	}
	t, err := s.Tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.serverError(ctx, op, id, taskID, err)
	}
	if t.OwnerID != id.UserID {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *TaskService) afterWrite(ctx context.Context, eventType, ownerID, taskID string, t *entity.Task) {
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, ownerID)
	}
	if s.Events == nil {
		return
	}
	ev := TaskEvent{Type: eventType, TaskID: taskID, OwnerID: ownerID, OccurredAt: time.Now().UTC()}
	if t != nil {
		ev.Task = NewTaskPayload(t)
	}
	if err := s.Events.Publish(ctx, ev); err != nil && s.Logger != nil {
		s.Logger.WithFields(helpers.RequestFields(ctx)).WithError(err).
			WithFields(logrus.Fields{"event": eventType, "task_id": taskID}).Warn("publish task event failed")
	}
}

func (s *TaskService) serverError(ctx context.Context, op string, id Identity, taskID string, err error) error {
	fields := helpers.RequestFields(ctx)
	fields["operation"] = op
	fields["user_id"] = id.UserID
	if taskID != "" {
		fields["task_id"] = taskID
	}
	helpers.LogError(s.Logger, "task operation failed", err, fields)
	return ErrServer
}

func validTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", invalid("title", "is required")
	}
	return title, nil
}

func validDueDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, invalid("due_date", "is required")
	}
	d, err := entity.ParseDueDate(raw)
	if err != nil {
		return time.Time{}, invalid("due_date", "must be a date in YYYY-MM-DD format")
	}
	return d, nil
}

func validPriority(raw string) (entity.Priority, error) {
	p, ok := entity.ParsePriority(raw)
	if !ok {
		return "", invalid("priority", "must be one of: low, medium, high")
	}
	return p, nil
}

func parseFilter(raw string) (*entity.Status, error) {
	if raw == "" || raw == filterAll {
		return nil, nil
	}
	st, ok := entity.ParseStatus(raw)
	if !ok {
		return nil, invalid("status", "must be one of: pending, completed")
	}
	return &st, nil
}
