package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vaidhya/pos-api/pkg/database"
	"github.com/vaidhya/pos-api/pkg/types"
)

const table = "users"

// Repository handles user persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new user repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Exists reports whether a user with this username is registered
func (r *Repository) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.Track(ctx, "select", table, func() (int64, error) {
		return 1, r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE usrnme = $1)`, username).Scan(&exists)
	})
	if err != nil {
		return false, types.NewInternalError(types.ErrCodeInternalError, "failed to look up user", err)
	}
	return exists, nil
}

// Create inserts a user. user.PasswordHash must already be hashed.
func (r *Repository) Create(ctx context.Context, user *types.User) (*types.User, error) {
	query := `
		INSERT INTO users (usrnme, pswd, typ)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	created := *user
	err := r.db.Track(ctx, "insert", table, func() (int64, error) {
		return 1, r.db.QueryRowContext(ctx, query, user.Username, user.PasswordHash, user.UserType).
			Scan(&created.ID, &created.CreatedAt)
	})
	if err != nil {
		if database.PQCode(err) == database.UniqueViolation {
			return nil, userExists()
		}
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to create user", err)
	}
	return &created, nil
}

// GetByUsername retrieves a user with its password hash
func (r *Repository) GetByUsername(ctx context.Context, username string) (*types.User, error) {
	query := `
		SELECT id, usrnme, pswd, COALESCE(typ, ''), COALESCE(created_at, NOW())
		FROM users
		WHERE usrnme = $1`

	var user types.User
	err := r.db.Track(ctx, "select", table, func() (int64, error) {
		return 1, r.db.QueryRowContext(ctx, query, username).
			Scan(&user.ID, &user.Username, &user.PasswordHash, &user.UserType, &user.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.NewNotFoundError(types.ErrCodeInvalidCredentials, "User not found")
		}
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to get user", err)
	}
	return &user, nil
}

func userExists() error {
	return types.NewValidationError(types.ErrCodeUserExists, "User already exists", nil)
}
