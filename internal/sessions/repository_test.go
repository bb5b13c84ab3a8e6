package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidhya/pos-api/pkg/database"
	"github.com/vaidhya/pos-api/pkg/logger"
	"github.com/vaidhya/pos-api/pkg/types"
)

func setupTestRepository(t *testing.T, maxAge time.Duration) (*Repository, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewRepository(database.Wrap(sqlDB, logger.NewNop()), maxAge), mock
}

func TestRepository_IsValid(t *testing.T) {
	repo, mock := setupTestRepository(t, 15*time.Minute)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("tok-1", 900).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("tok-2", 900).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	valid, err := repo.IsValid(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.True(t, valid)

	valid, err = repo.IsValid(context.Background(), "tok-2")
	require.NoError(t, err)
	assert.False(t, valid)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_IsValid_DatabaseError(t *testing.T) {
	repo, mock := setupTestRepository(t, 0)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("tok", 0).
		WillReturnError(errors.New("connection refused"))

	_, err := repo.IsValid(context.Background(), "tok")
	assert.True(t, types.IsType(err, types.ErrorTypeInternal))
}

func TestRepository_Create(t *testing.T) {
	repo, mock := setupTestRepository(t, 0)
	createdAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO sessions").
		WithArgs("tok", "7", "asha", createdAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &types.Session{
		Token:     "tok",
		UserID:    "7",
		Username:  "asha",
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create_Duplicate(t *testing.T) {
	repo, mock := setupTestRepository(t, 0)

	mock.ExpectExec("INSERT INTO sessions").
		WillReturnError(&pq.Error{Code: database.UniqueViolation, Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &types.Session{Token: "tok", CreatedAt: time.Now()})
	posErr, ok := types.AsPosError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrorTypeConflict, posErr.Type)
	assert.Equal(t, types.ErrCodeSessionExists, posErr.Code)
}

func TestRepository_Logout(t *testing.T) {
	repo, mock := setupTestRepository(t, 0)

	mock.ExpectQuery("UPDATE sessions SET drop_time = NOW\\(\\) WHERE session_token = \\$1 RETURNING user_id").
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("7"))
	mock.ExpectQuery("UPDATE sessions SET drop_time = NOW\\(\\)").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	userID, err := repo.Logout(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "7", userID)

	_, err = repo.Logout(context.Background(), "missing")
	assert.True(t, types.IsType(err, types.ErrorTypeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Update(t *testing.T) {
	repo, mock := setupTestRepository(t, 0)
	dropTime := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE sessions").
		WithArgs("tok-2", "7", "asha", nil, &dropTime, "tok-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "tok-1", &types.SessionInput{
		SessionID: " tok-2 ",
		UserID:    "7",
		Username:  "asha",
		DropTime:  &dropTime,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Delete(t *testing.T) {
	repo, mock := setupTestRepository(t, 0)

	mock.ExpectExec("DELETE FROM sessions").
		WithArgs("gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "gone")
	posErr, ok := types.AsPosError(err)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeSessionNotFound, posErr.Code)
}
