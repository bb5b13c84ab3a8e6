package database

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidhya/pos-api/pkg/config"
	"github.com/vaidhya/pos-api/pkg/logger"
)

type recordingObserver struct {
	calls []string
	errs  []error
}

func (o *recordingObserver) RecordDBQuery(operation, table string, _ time.Duration, err error) {
	o.calls = append(o.calls, operation+":"+table)
	o.errs = append(o.errs, err)
}

func TestBuildConnectionString(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:           "localhost",
		Port:           5432,
		User:           "pos",
		Password:       "pw",
		Name:           "vaidhya",
		SSLMode:        "disable",
		ConnectTimeout: 3,
	}

	assert.Equal(t,
		"host=localhost port=5432 user=pos password=pw dbname=vaidhya sslmode=disable connect_timeout=3",
		buildConnectionString(cfg))
}

func TestTrack(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := Wrap(sqlDB, logger.NewNop())
	obs := &recordingObserver{}
	db.SetObserver(obs)

	err = db.Track(context.Background(), "insert", "tasks", func() (int64, error) { return 1, nil })
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.Track(context.Background(), "select", "tasks", func() (int64, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)

	err = db.Track(context.Background(), "select", "patients", func() (int64, error) { return 0, sql.ErrNoRows })
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.Equal(t, []string{"insert:tasks", "select:tasks", "select:patients"}, obs.calls)
	assert.Nil(t, obs.errs[0])
	assert.Equal(t, boom, obs.errs[1])
	assert.Nil(t, obs.errs[2], "missing rows are not reported as failures")
}

func TestTrack_UniqueViolationLogsWarning(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	log := logger.New("debug")
	var buf bytes.Buffer
	log.SetOutput(&buf)
	db := Wrap(sqlDB, log)

	dup := &pq.Error{Code: UniqueViolation, Message: "duplicate key value"}
	err = db.Track(context.Background(), "insert", "sessions", func() (int64, error) { return 0, dup })
	assert.ErrorIs(t, err, dup)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "sessions", entry["table"])
}

type recordingTracer struct {
	started []string
	ended   []error
}

func (r *recordingTracer) StartQuery(_ context.Context, operation, table string) func(error) {
	r.started = append(r.started, operation+":"+table)
	return func(err error) { r.ended = append(r.ended, err) }
}

func TestTrack_Tracer(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := Wrap(sqlDB, logger.NewNop())
	tr := &recordingTracer{}
	db.SetTracer(tr)

	boom := errors.New("boom")
	_ = db.Track(context.Background(), "update", "tasks", func() (int64, error) { return 0, boom })
	_ = db.Track(context.Background(), "select", "tasks", func() (int64, error) { return 0, sql.ErrNoRows })

	assert.Equal(t, []string{"update:tasks", "select:tasks"}, tr.started)
	assert.Equal(t, []error{boom, nil}, tr.ended)
}

func TestPQCode(t *testing.T) {
	err := fmt.Errorf("insert user: %w", &pq.Error{Code: UniqueViolation})
	assert.Equal(t, UniqueViolation, PQCode(err))
	assert.Empty(t, PQCode(errors.New("plain")))

	assert.True(t, IsInvalidInput(&pq.Error{Code: InvalidDatetime}))
	assert.False(t, IsInvalidInput(&pq.Error{Code: UniqueViolation}))
}

func TestCreateSchema(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	for _, table := range []string{"sessions", `"Ph_pat_dtls"`, "appointments", "tasks", "users"} {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + regexp.QuoteMeta(table)).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}
	for i := 0; i < 3; i++ {
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	db := Wrap(sqlDB, logger.NewNop())
	require.NoError(t, db.CreateSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSchema_Failure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sessions").WillReturnError(errors.New("permission denied"))

	db := Wrap(sqlDB, logger.NewNop())
	err = db.CreateSchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create table")
}

func TestHealth(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectPing()

	db := Wrap(sqlDB, logger.NewNop())
	assert.NoError(t, db.Health(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
