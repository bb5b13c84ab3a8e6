package tasks

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vaidhya/pos-api/pkg/database"
	"github.com/vaidhya/pos-api/pkg/types"
)

const table = "tasks"

const taskColumns = `id, COALESCE(title, ''), COALESCE(assigned_to, ''), COALESCE(status, ''),
	COALESCE(message, ''), date_assigned`

// Repository handles task persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new task repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*types.Task, error) {
	var t types.Task
	if err := row.Scan(&t.ID, &t.Title, &t.AssignedTo, &t.Status, &t.Message, &t.DateAssigned); err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a task assigned now
func (r *Repository) Create(ctx context.Context, input *types.TaskInput) (*types.Task, error) {
	query := `
		INSERT INTO tasks (title, assigned_to, status, message, date_assigned)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING ` + taskColumns

	var task *types.Task
	err := r.db.Track(ctx, "insert", table, func() (int64, error) {
		var err error
		task, err = scanTask(r.db.QueryRowContext(ctx, query, input.Title, input.AssignedTo, input.Status, input.Message))
		return 1, err
	})
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to create task", err)
	}
	return task, nil
}

// List returns every task
func (r *Repository) List(ctx context.Context) ([]*types.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
}

// ListByAssignee returns the tasks assigned to one staff member
func (r *Repository) ListByAssignee(ctx context.Context, assignee string) ([]*types.Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE assigned_to = $1 ORDER BY date_assigned DESC, id`, assignee)
}

// UpdateStatus sets the status of a task. Any string is accepted.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status string) (*types.Task, error) {
	query := `UPDATE tasks SET status = $1 WHERE id = $2 RETURNING ` + taskColumns
	return r.one(ctx, "update", query, status, id)
}

// Delete removes a task and returns the deleted row
func (r *Repository) Delete(ctx context.Context, id int64) (*types.Task, error) {
	query := `DELETE FROM tasks WHERE id = $1 RETURNING ` + taskColumns
	return r.one(ctx, "delete", query, id)
}

func (r *Repository) one(ctx context.Context, operation, query string, args ...interface{}) (*types.Task, error) {
	var task *types.Task
	err := r.db.Track(ctx, operation, table, func() (int64, error) {
		var err error
		task, err = scanTask(r.db.QueryRowContext(ctx, query, args...))
		return 1, err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NewNotFoundError(types.ErrCodeTaskNotFound, "Task not found")
		}
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to "+operation+" task", err)
	}
	return task, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...interface{}) ([]*types.Task, error) {
	tasks := []*types.Task{}
	err := r.db.Track(ctx, "select", table, func() (int64, error) {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return 0, err
			}
			tasks = append(tasks, t)
		}
		return int64(len(tasks)), rows.Err()
	})
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to list tasks", err)
	}
	return tasks, nil
}
