package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
	"github.com/prateek1361/kaviosApp-backend/internal/repository"
)

// Validation limits for album metadata.
const (
	MaxAlbumNameLength        = 100
	MaxAlbumDescriptionLength = 1000
	MaxShareBatch             = 50
)

// AlbumService handles album lifecycle and sharing.
//
// It needs the image repository too: deleting an album deletes its images
// first.
type AlbumService struct {
	albums repository.AlbumRepository
	images repository.ImageRepository
	logger *slog.Logger
}

func NewAlbumService(albums repository.AlbumRepository, images repository.ImageRepository, logger *slog.Logger) *AlbumService {
	return &AlbumService{
		albums: albums,
		images: images,
		logger: logger,
	}
}

// Create makes caller the owner of a new, unshared album.
func (s *AlbumService) Create(ctx context.Context, caller model.Identity, name, description string) (*model.Album, error) {
	name, description, err := validateAlbumFields(name, description)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	album := &model.Album{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		OwnerID:     caller.UserID,
		SharedWith:  []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.albums.CreateAlbum(ctx, album); err != nil {
		s.logger.Error("failed to create album",
			slog.String("ownerId", caller.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating album: %w", err)
	}

	s.logger.Info("album created",
		slog.String("albumId", album.ID),
		slog.String("ownerId", album.OwnerID),
	)
	return album, nil
}

// List returns every album caller can view.
//
// The store query already filters on owner-or-shared; CanView is applied
// again so the policy lives in one place regardless of backend.
func (s *AlbumService) List(ctx context.Context, caller model.Identity) ([]model.Album, error) {
	albums, err := s.albums.ListAlbumsFor(ctx, caller.UserID, caller.Email)
	if err != nil {
		return nil, fmt.Errorf("listing albums: %w", err)
	}

	visible := albums[:0]
	for i := range albums {
		if CanView(caller, &albums[i]) {
			visible = append(visible, albums[i])
		}
	}
	return visible, nil
}

// Get returns one album the caller can view.
func (s *AlbumService) Get(ctx context.Context, caller model.Identity, albumID string) (*model.Album, error) {
	return s.viewable(ctx, caller, albumID)
}

// Edit applies a partial metadata update. Owner only.
func (s *AlbumService) Edit(ctx context.Context, caller model.Identity, albumID string, patch model.AlbumPatch) (*model.Album, error) {
	album, err := s.manageable(ctx, caller, albumID)
	if err != nil {
		return nil, err
	}

	name, description := album.Name, album.Description
	if patch.Name != nil {
		name = *patch.Name
	}
	if patch.Description != nil {
		description = *patch.Description
	}
	if album.Name, album.Description, err = validateAlbumFields(name, description); err != nil {
		return nil, err
	}

	if err := s.albums.UpdateAlbum(ctx, album); err != nil {
		return nil, fmt.Errorf("updating album %s: %w", albumID, err)
	}

	s.logger.Info("album updated", slog.String("albumId", albumID))
	return album, nil
}

// Share adds emails to the album's share list. Owner only, and ownership is
// checked before the list is looked at.
//
// Addresses are normalized and de-duplicated here; the store adds them with
// set semantics, so sharing with someone twice is a no-op.
func (s *AlbumService) Share(ctx context.Context, caller model.Identity, albumID string, emails []string) (*model.Album, error) {
	if _, err := s.manageable(ctx, caller, albumID); err != nil {
		return nil, err
	}

	if len(emails) == 0 {
		return nil, apperror.ValidationFailed("emails", "at least one email is required")
	}
	if len(emails) > MaxShareBatch {
		return nil, apperror.ValidationFailed("emails",
			fmt.Sprintf("at most %d emails can be shared at once", MaxShareBatch))
	}

	normalized := make([]string, 0, len(emails))
	seen := make(map[string]bool, len(emails))
	for _, raw := range emails {
		email, err := NormalizeEmail(raw)
		if err != nil {
			return nil, err
		}
		if !seen[email] {
			seen[email] = true
			normalized = append(normalized, email)
		}
	}

	if err := s.albums.AddAlbumShares(ctx, albumID, normalized); err != nil {
		return nil, fmt.Errorf("sharing album %s: %w", albumID, err)
	}

	s.logger.Info("album shared",
		slog.String("albumId", albumID),
		slog.Int("emails", len(normalized)),
	)
	return s.albums.GetAlbum(ctx, albumID)
}

// Delete removes an album and all of its images. Owner only.
//
// Images go first. If that step fails the album row is left in place and a
// retryable error is returned: some images may already be gone, but none is
// ever left pointing at a missing album.
func (s *AlbumService) Delete(ctx context.Context, caller model.Identity, albumID string) error {
	if _, err := s.manageable(ctx, caller, albumID); err != nil {
		return err
	}

	removed, err := s.images.DeleteImagesByAlbum(ctx, albumID)
	if err != nil {
		s.logger.Error("album delete aborted: image cascade failed",
			slog.String("albumId", albumID),
			slog.String("error", err.Error()),
		)
		if !errors.Is(err, apperror.ErrUnavailable) {
			err = apperror.Unavailable("database", err)
		}
		return fmt.Errorf("deleting images of album %s: %w", albumID, err)
	}

	if err := s.albums.DeleteAlbum(ctx, albumID); err != nil {
		// ErrConflict here means an upload landed between the cascade and
		// the album delete; the caller can retry.
		s.logger.Error("failed to delete album",
			slog.String("albumId", albumID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting album %s: %w", albumID, err)
	}

	s.logger.Info("album deleted",
		slog.String("albumId", albumID),
		slog.Int64("images", removed),
	)
	return nil
}

// viewable loads albumID and checks CanView.
//
// An id that does not resolve is NotFound. An album that exists but is not
// visible to caller is AccessDenied with a message that says nothing about it.
func (s *AlbumService) viewable(ctx context.Context, caller model.Identity, albumID string) (*model.Album, error) {
	return loadAlbum(ctx, s.albums, caller, albumID, CanView)
}

func (s *AlbumService) manageable(ctx context.Context, caller model.Identity, albumID string) (*model.Album, error) {
	return loadAlbum(ctx, s.albums, caller, albumID, CanManage)
}

func loadAlbum(
	ctx context.Context,
	albums repository.AlbumRepository,
	caller model.Identity,
	albumID string,
	allowed func(model.Identity, *model.Album) bool,
) (*model.Album, error) {
	if strings.TrimSpace(albumID) == "" {
		return nil, apperror.ValidationFailed("albumId", "album ID is required")
	}

	album, err := albums.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}

	if !allowed(caller, album) {
		return nil, errAccessDenied()
	}
	return album, nil
}

func errAccessDenied() *apperror.AppError {
	return apperror.Forbidden("you do not have access to this album")
}

func validateAlbumFields(name, description string) (string, string, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)

	if name == "" {
		return "", "", apperror.ValidationFailed("name", "album name is required")
	}
	if len(name) > MaxAlbumNameLength {
		return "", "", apperror.ValidationFailed("name",
			fmt.Sprintf("album name must be %d characters or less", MaxAlbumNameLength))
	}
	if len(description) > MaxAlbumDescriptionLength {
		return "", "", apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxAlbumDescriptionLength))
	}
	return name, description, nil
}
