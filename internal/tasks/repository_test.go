package tasks

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidhya/pos-api/pkg/database"
	"github.com/vaidhya/pos-api/pkg/logger"
	"github.com/vaidhya/pos-api/pkg/types"
)

var taskRowColumns = []string{"id", "title", "assigned_to", "status", "message", "date_assigned"}

var assignedAt = time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)

func setupTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewRepository(database.Wrap(sqlDB, logger.NewNop())), mock
}

func TestRepository_Create(t *testing.T) {
	repo, mock := setupTestRepository(t)

	mock.ExpectQuery(`INSERT INTO tasks .* VALUES \(\$1, \$2, \$3, \$4, NOW\(\)\)`).
		WithArgs("Restock insulin", "nurse-3", "pending", "fridge 2").
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow(int64(1), "Restock insulin", "nurse-3", "pending", "fridge 2", assignedAt))

	task, err := repo.Create(context.Background(), &types.TaskInput{
		Title:      "Restock insulin",
		AssignedTo: "nurse-3",
		Status:     "pending",
		Message:    "fridge 2",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), task.ID)
	assert.Equal(t, assignedAt, task.DateAssigned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByAssignee(t *testing.T) {
	repo, mock := setupTestRepository(t)

	mock.ExpectQuery("WHERE assigned_to = \\$1").
		WithArgs("nurse-3").
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow(int64(2), "Check BP", "nurse-3", "in_progress", "", assignedAt).
			AddRow(int64(1), "Restock", "nurse-3", "pending", "", assignedAt))

	tasks, err := repo.ListByAssignee(context.Background(), "nurse-3")
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestRepository_List_Error(t *testing.T) {
	repo, mock := setupTestRepository(t)

	mock.ExpectQuery("FROM tasks ORDER BY id").WillReturnError(errors.New("timeout"))

	_, err := repo.List(context.Background())
	assert.True(t, types.IsType(err, types.ErrorTypeInternal))
}

func TestRepository_UpdateStatus_AnyValue(t *testing.T) {
	repo, mock := setupTestRepository(t)

	mock.ExpectQuery("UPDATE tasks SET status = \\$1 WHERE id = \\$2").
		WithArgs("waiting-on-pharmacy", int64(1)).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow(int64(1), "Restock", "nurse-3", "waiting-on-pharmacy", "", assignedAt))
	mock.ExpectQuery("UPDATE tasks SET status").
		WithArgs("completed", int64(2)).
		WillReturnError(sql.ErrNoRows)

	task, err := repo.UpdateStatus(context.Background(), 1, "waiting-on-pharmacy")
	require.NoError(t, err)
	assert.Equal(t, "waiting-on-pharmacy", task.Status)

	_, err = repo.UpdateStatus(context.Background(), 2, "completed")
	posErr, ok := types.AsPosError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeTaskNotFound, posErr.Code)
}

func TestRepository_Delete(t *testing.T) {
	repo, mock := setupTestRepository(t)

	mock.ExpectQuery("DELETE FROM tasks WHERE id = \\$1 RETURNING").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(taskRowColumns).
			AddRow(int64(1), "Restock", "nurse-3", "completed", "", assignedAt))
	mock.ExpectQuery("DELETE FROM tasks").
		WithArgs(int64(2)).
		WillReturnError(sql.ErrNoRows)

	task, err := repo.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Restock", task.Title)

	_, err = repo.Delete(context.Background(), 2)
	assert.True(t, types.IsType(err, types.ErrorTypeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
