package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
)

const taskColumns = `id, owner_id, title, description, due_date, priority, status, created_at, updated_at`

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) Create(ctx context.Context, t *entity.Task) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (owner_id, title, description, due_date, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, t.OwnerID, t.Title, t.Description, t.DueDate, string(t.Priority), string(t.Status))

	return row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*entity.Task, error) {
	// Malformed ids cannot exist; answering NotFound keeps Postgres from
	// raising an invalid_text_representation error.
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string, status *entity.Status) ([]*entity.Task, error) {
	if !validID(ownerID) {
		return []*entity.Task{}, nil
	}
	var (
		rows pgx.Rows
		err  error
	)
	if status != nil {
		rows, err = r.pool.Query(ctx, `
			SELECT `+taskColumns+` FROM tasks
			WHERE owner_id = $1 AND status = $2
			ORDER BY due_date, created_at, id
		`, ownerID, string(*status))
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+taskColumns+` FROM tasks
			WHERE owner_id = $1
			ORDER BY due_date, created_at, id
		`, ownerID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*entity.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update leaves NULL parameters as the current column value, so concurrent
// patches of different fields both survive.
func (r *TaskRepository) Update(ctx context.Context, ownerID, id string, p entity.TaskPatch) (*entity.Task, error) {
	if !validID(id) || !validID(ownerID) {
		return nil, repository.ErrNotFound
	}
	var priority *string
	if p.Priority != nil {
		s := string(*p.Priority)
		priority = &s
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = COALESCE($1::text, title),
		    description = COALESCE($2::text, description),
		    due_date = COALESCE($3::date, due_date),
		    priority = COALESCE($4::text, priority),
		    updated_at = now()
		WHERE id = $5 AND owner_id = $6
		RETURNING `+taskColumns, p.Title, p.Description, p.DueDate, priority, id, ownerID)
	return scanTask(row)
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, ownerID, id string, status entity.Status) (*entity.Task, error) {
	if !validID(id) || !validID(ownerID) {
		return nil, repository.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET status = $1, updated_at = now()
		WHERE id = $2 AND owner_id = $3
		RETURNING `+taskColumns, string(status), id, ownerID)
	return scanTask(row)
}

func (r *TaskRepository) Delete(ctx context.Context, ownerID, id string) error {
	if !validID(id) || !validID(ownerID) {
		return repository.ErrNotFound
	}
	res, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*entity.Task, error) {
	t := &entity.Task{}
	var priority, status string
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.DueDate,
		&priority, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	t.Priority = entity.Priority(priority)
	t.Status = entity.Status(status)
	t.DueDate = entity.DateOf(t.DueDate)
	return t, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

var _ repository.TaskRepository = (*TaskRepository)(nil)
