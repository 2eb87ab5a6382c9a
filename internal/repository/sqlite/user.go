package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
)

// CreateUser inserts a user row.
//
// The UNIQUE constraint on email is what makes first-contact safe under
// concurrency: when two requests race to create the same email, exactly one
// INSERT wins and the other gets apperror.ErrConflict, which the identity
// resolver treats as "someone else just created it, re-fetch".
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)`,
		user.ID,
		user.Email,
		user.CreatedAt,
	)
	if err != nil {
		if constraintCode(err) != 0 {
			return apperror.Conflict("user", user.Email)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, apperror.Unavailable("database", err))
	}

	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `SELECT id, email, created_at FROM users WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by their (normalized) email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, `SELECT id, email, created_at FROM users WHERE email = ?`, email)
}

func (db *DB) getUser(ctx context.Context, query, key string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx, query, key).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", key, apperror.Unavailable("database", err))
	}

	return &u, nil
}
