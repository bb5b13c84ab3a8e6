package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vaidhya/pos-api/pkg/config"
	"github.com/vaidhya/pos-api/pkg/logger"
)

// Postgres error codes the repositories branch on
const (
	UniqueViolation    = "23505"
	InvalidDatetime    = "22007"
	DatetimeOutOfRange = "22008"
	InvalidTextRepr    = "22P02"
)

// QueryObserver receives the outcome of every tracked statement
type QueryObserver interface {
	RecordDBQuery(operation, table string, duration time.Duration, err error)
}

// QueryTracer opens a span around a tracked statement. The returned func
// ends it with the statement's error.
type QueryTracer interface {
	StartQuery(ctx context.Context, operation, table string) func(err error)
}

// DB is the process-wide connection pool
type DB struct {
	*sql.DB
	config   *config.DatabaseConfig
	logger   *logger.Logger
	observer QueryObserver
	tracer   QueryTracer
}

// NewConnection opens the pool and verifies it with a ping
func NewConnection(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	sqlDB, err := sql.Open("postgres", buildConnectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout(cfg))
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithComponent("database").WithFields(map[string]interface{}{
		"host":           cfg.Host,
		"database":       cfg.Name,
		"max_open_conns": cfg.MaxOpenConns,
	}).Info("Database connection established")

	return &DB{DB: sqlDB, config: cfg, logger: log}, nil
}

// Wrap builds a DB around an already opened *sql.DB, e.g. a sqlmock handle
func Wrap(sqlDB *sql.DB, log *logger.Logger) *DB {
	return &DB{DB: sqlDB, config: &config.DatabaseConfig{}, logger: log}
}

func buildConnectionString(cfg *config.DatabaseConfig) string {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
	if cfg.ConnectTimeout > 0 {
		connStr += fmt.Sprintf(" connect_timeout=%d", cfg.ConnectTimeout)
	}
	return connStr
}

func pingTimeout(cfg *config.DatabaseConfig) time.Duration {
	if cfg.ConnectTimeout > 0 {
		return time.Duration(cfg.ConnectTimeout) * time.Second
	}
	return 5 * time.Second
}

// SetObserver installs the metrics sink for Track
func (db *DB) SetObserver(o QueryObserver) {
	db.observer = o
}

// SetTracer installs the span source for Track
func (db *DB) SetTracer(t QueryTracer) {
	db.tracer = t
}

// Track runs fn, logging and observing its duration and outcome.
// fn returns the number of rows it touched.
func (db *DB) Track(ctx context.Context, operation, table string, fn func() (int64, error)) error {
	var end func(error)
	if db.tracer != nil {
		end = db.tracer.StartQuery(ctx, operation, table)
	}

	start := time.Now()
	rows, err := fn()
	duration := time.Since(start)

	// Absence of a row is a normal outcome for lookups
	logged := err
	if errors.Is(err, sql.ErrNoRows) {
		logged = nil
	}
	if PQCode(err) == UniqueViolation {
		db.logger.DatabaseConflict(ctx, operation, table, duration, err)
	} else {
		db.logger.DatabaseOperation(ctx, operation, table, duration, rows, logged)
	}
	if db.observer != nil {
		db.observer.RecordDBQuery(operation, table, duration, logged)
	}
	if end != nil {
		end(logged)
	}
	return err
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}

// Health checks the database connection health
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.PingContext(ctx)
}

// IsInvalidInput reports whether Postgres rejected a value as malformed
func IsInvalidInput(err error) bool {
	switch PQCode(err) {
	case InvalidDatetime, DatetimeOutOfRange, InvalidTextRepr:
		return true
	}
	return false
}

// PQCode returns the SQLSTATE of a Postgres error, or "" for anything else
func PQCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
