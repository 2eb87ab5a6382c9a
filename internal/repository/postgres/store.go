package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// PostgreSQL SQLSTATE codes the repositories translate.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store bundles the three repositories over one Connection.
type Store struct {
	*Connection
	*UserRepository
	*AlbumRepository
	*ImageRepository
}

func NewStore(conn *Connection) *Store {
	return &Store{
		Connection:      conn,
		UserRepository:  NewUserRepository(conn),
		AlbumRepository: NewAlbumRepository(conn),
		ImageRepository: NewImageRepository(conn),
	}
}

// sqlState returns the SQLSTATE of a server-side error, or "".
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// unavailable wraps a driver error for op as apperror.ErrUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("postgres: %s: %w", op, apperror.Unavailable("database", err))
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
