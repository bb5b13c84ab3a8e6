package sessions

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/vaidhya/pos-api/pkg/database"
	"github.com/vaidhya/pos-api/pkg/types"
)

const table = "sessions"

// Repository handles session persistence
type Repository struct {
	db     *database.DB
	maxAge time.Duration
}

// NewRepository creates a session repository. A zero maxAge disables
// time-based expiry.
func NewRepository(db *database.DB, maxAge time.Duration) *Repository {
	return &Repository{db: db, maxAge: maxAge}
}

// IsValid reports whether token names a session that has not been dropped or expired
func (r *Repository) IsValid(ctx context.Context, token string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM sessions
			WHERE session_token = $1
			  AND drop_time IS NULL
			  AND ($2::int = 0 OR created_at > NOW() - $2::int * INTERVAL '1 second')
		)`

	var valid bool
	err := r.db.Track(ctx, "select", table, func() (int64, error) {
		return 1, r.db.QueryRowContext(ctx, query, token, int(r.maxAge.Seconds())).Scan(&valid)
	})
	if err != nil {
		return false, types.NewInternalError(types.ErrCodeInternalError, "failed to check session", err)
	}
	return valid, nil
}

// Create inserts a new session row
func (r *Repository) Create(ctx context.Context, session *types.Session) error {
	query := `
		INSERT INTO sessions (session_token, user_id, username, created_at)
		VALUES ($1, $2, $3, $4)`

	err := r.db.Track(ctx, "insert", table, func() (int64, error) {
		res, err := r.db.ExecContext(ctx, query, session.Token, session.UserID, session.Username, session.CreatedAt)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
	if err != nil {
		if database.PQCode(err) == database.UniqueViolation {
			return types.NewConflictError(types.ErrCodeSessionExists, "Session already exists", err)
		}
		return types.NewInternalError(types.ErrCodeInternalError, "failed to create session", err)
	}
	return nil
}

// Update overwrites a session. Blank identity fields keep their current value;
// drop_time is always replaced so a dropped session can be reopened.
func (r *Repository) Update(ctx context.Context, token string, input *types.SessionInput) error {
	query := `
		UPDATE sessions
		SET session_token = COALESCE(NULLIF($1, ''), session_token),
		    user_id = COALESCE(NULLIF($2, ''), user_id),
		    username = COALESCE(NULLIF($3, ''), username),
		    created_at = COALESCE($4, created_at),
		    drop_time = $5
		WHERE session_token = $6`

	return r.execOne(ctx, "update", query,
		strings.TrimSpace(input.SessionID), input.UserID, input.Username, input.CreatedAt, input.DropTime, token)
}

// Logout marks the session as dropped now and returns the session's user id
func (r *Repository) Logout(ctx context.Context, token string) (string, error) {
	query := `UPDATE sessions SET drop_time = NOW() WHERE session_token = $1 RETURNING user_id`

	var userID sql.NullString
	err := r.db.Track(ctx, "update", table, func() (int64, error) {
		return 1, r.db.QueryRowContext(ctx, query, token).Scan(&userID)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", types.NewNotFoundError(types.ErrCodeSessionNotFound, "Session not found")
		}
		return "", types.NewInternalError(types.ErrCodeInternalError, "failed to update session", err)
	}
	return userID.String, nil
}

// Delete removes the session row
func (r *Repository) Delete(ctx context.Context, token string) error {
	return r.execOne(ctx, "delete", `DELETE FROM sessions WHERE session_token = $1`, token)
}

func (r *Repository) execOne(ctx context.Context, operation, query string, args ...interface{}) error {
	var affected int64
	err := r.db.Track(ctx, operation, table, func() (int64, error) {
		res, err := r.db.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		affected, err = res.RowsAffected()
		return affected, err
	})
	if err != nil {
		if database.PQCode(err) == database.UniqueViolation {
			return types.NewConflictError(types.ErrCodeSessionExists, "Session already exists", err)
		}
		return types.NewInternalError(types.ErrCodeInternalError, "failed to "+operation+" session", err)
	}
	if affected == 0 {
		return types.NewNotFoundError(types.ErrCodeSessionNotFound, "Session not found")
	}
	return nil
}
