package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
	"github.com/prateek1361/kaviosApp-backend/internal/repository"
)

var _ repository.UserRepository = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// CreateUser inserts a user. A duplicate email is apperror.ErrConflict.
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, email, created_at) VALUES ($1, $2, $3)`

	if _, err := r.db.Exec(ctx, query, user.ID, user.Email, user.CreatedAt); err != nil {
		if sqlState(err) == codeUniqueViolation {
			return apperror.Conflict("user", user.Email)
		}
		return unavailable("creating user", err)
	}
	return nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return r.getUser(ctx, `SELECT id, email, created_at FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, `SELECT id, email, created_at FROM users WHERE email = $1`, email)
}

func (r *UserRepository) getUser(ctx context.Context, query, key string) (*model.User, error) {
	var user model.User
	err := r.db.QueryRow(ctx, query, key).Scan(&user.ID, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, unavailable("getting user", err)
	}
	return &user, nil
}
