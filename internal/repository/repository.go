// Package repository declares the persistence contracts the service layer
// depends on. Concrete stores live in the sqlite and postgres subpackages.
//
// Every implementation translates "no such row" into apperror.ErrNotFound,
// a unique-constraint violation into apperror.ErrConflict, and any other
// driver failure into apperror.ErrUnavailable.
package repository

import (
	"context"

	"github.com/prateek1361/kaviosApp-backend/internal/model"
)

type UserRepository interface {
	// CreateUser inserts a new user. It returns apperror.ErrConflict when a
	// user with the same email already exists.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type AlbumRepository interface {
	CreateAlbum(ctx context.Context, album *model.Album) error
	GetAlbum(ctx context.Context, id string) (*model.Album, error)
	// ListAlbumsFor returns albums owned by userID or shared with email.
	ListAlbumsFor(ctx context.Context, userID, email string) ([]model.Album, error)
	// UpdateAlbum writes name, description and updated_at.
	UpdateAlbum(ctx context.Context, album *model.Album) error
	// AddAlbumShares unions emails into the album's share list. Emails that
	// are already present are ignored.
	AddAlbumShares(ctx context.Context, albumID string, emails []string) error
	DeleteAlbum(ctx context.Context, id string) error
}

type ImageRepository interface {
	CreateImage(ctx context.Context, image *model.Image) error
	GetImage(ctx context.Context, id string) (*model.Image, error)
	ListImagesByAlbum(ctx context.Context, albumID string) ([]model.Image, error)
	SetFavorite(ctx context.Context, id string, favorite bool) error
	SetTags(ctx context.Context, id string, tags []string) error
	SetPerson(ctx context.Context, id string, person string) error
	// AppendComment appends to the comment log in a single statement so
	// concurrent comments are never lost.
	AppendComment(ctx context.Context, id string, comment string) error
	DeleteImage(ctx context.Context, id string) error
	// DeleteImagesByAlbum removes every image of an album and reports how
	// many rows went away.
	DeleteImagesByAlbum(ctx context.Context, albumID string) (int64, error)
}

// Store is a full persistence backend. Implementations own their connection
// lifecycle; callers only see a ready handle.
type Store interface {
	UserRepository
	AlbumRepository
	ImageRepository
	Ping(ctx context.Context) error
	Close() error
}
