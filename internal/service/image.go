package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
	"github.com/prateek1361/kaviosApp-backend/internal/repository"
)

const (
	MaxTags          = 30
	MaxTagLength     = 50
	MaxPersonLength  = 100
	MaxCommentLength = 1000
)

// ImageService handles listing and metadata edits of images.
//
// Images have no ACL of their own. Every operation authorizes through the
// parent album with CanView, so any viewer may edit, not just the owner.
type ImageService struct {
	albums repository.AlbumRepository
	images repository.ImageRepository
	logger *slog.Logger
}

func NewImageService(albums repository.AlbumRepository, images repository.ImageRepository, logger *slog.Logger) *ImageService {
	return &ImageService{
		albums: albums,
		images: images,
		logger: logger,
	}
}

// List returns the images of an album the caller can view.
// A deleted (or never existing) album is NotFound.
func (s *ImageService) List(ctx context.Context, caller model.Identity, albumID string) ([]model.Image, error) {
	if _, err := loadAlbum(ctx, s.albums, caller, albumID, CanView); err != nil {
		return nil, err
	}

	images, err := s.images.ListImagesByAlbum(ctx, albumID)
	if err != nil {
		return nil, fmt.Errorf("listing images of album %s: %w", albumID, err)
	}
	return images, nil
}

// SetFavorite overwrites the favorite flag.
func (s *ImageService) SetFavorite(ctx context.Context, caller model.Identity, albumID, imageID string, favorite bool) (*model.Image, error) {
	return s.mutate(ctx, caller, albumID, imageID, "favorite", func() error {
		return s.images.SetFavorite(ctx, imageID, favorite)
	})
}

// SetTags replaces the whole tag list. Blank tags are dropped.
func (s *ImageService) SetTags(ctx context.Context, caller model.Identity, albumID, imageID string, tags []string) (*model.Image, error) {
	cleaned, err := NormalizeTags(tags)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, caller, albumID, imageID, "tags", func() error {
		return s.images.SetTags(ctx, imageID, cleaned)
	})
}

// SetPerson replaces the person name. An empty name clears it.
func (s *ImageService) SetPerson(ctx context.Context, caller model.Identity, albumID, imageID, person string) (*model.Image, error) {
	person, err := normalizePerson(person)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, caller, albumID, imageID, "person", func() error {
		return s.images.SetPerson(ctx, imageID, person)
	})
}

// AddComment appends text to the image's comment log. Identical comments
// are kept; there is no edit or delete.
func (s *ImageService) AddComment(ctx context.Context, caller model.Identity, albumID, imageID, text string) (*model.Image, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("comment", "comment text is required")
	}
	if len(text) > MaxCommentLength {
		return nil, apperror.ValidationFailed("comment",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}
	return s.mutate(ctx, caller, albumID, imageID, "comment", func() error {
		return s.images.AppendComment(ctx, imageID, text)
	})
}

// Delete removes the image record. The blob stays in storage.
func (s *ImageService) Delete(ctx context.Context, caller model.Identity, albumID, imageID string) error {
	if _, err := s.authorize(ctx, caller, albumID, imageID); err != nil {
		return err
	}

	if err := s.images.DeleteImage(ctx, imageID); err != nil {
		return fmt.Errorf("deleting image %s: %w", imageID, err)
	}

	s.logger.Info("image deleted",
		slog.String("imageId", imageID),
		slog.String("albumId", albumID),
	)
	return nil
}

// mutate authorizes, applies one field update and returns the fresh record.
func (s *ImageService) mutate(ctx context.Context, caller model.Identity, albumID, imageID, field string, apply func() error) (*model.Image, error) {
	if _, err := s.authorize(ctx, caller, albumID, imageID); err != nil {
		return nil, err
	}

	if err := apply(); err != nil {
		return nil, fmt.Errorf("updating %s of image %s: %w", field, imageID, err)
	}

	s.logger.Debug("image updated",
		slog.String("imageId", imageID),
		slog.String("field", field),
	)
	return s.images.GetImage(ctx, imageID)
}

// authorize resolves imageID and checks CanView on its album.
//
// albumID is the album named by the caller's route. An image that lives in a
// different album is reported as NotFound.
func (s *ImageService) authorize(ctx context.Context, caller model.Identity, albumID, imageID string) (*model.Image, error) {
	if strings.TrimSpace(imageID) == "" {
		return nil, apperror.ValidationFailed("imageId", "image ID is required")
	}

	img, err := s.images.GetImage(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if albumID != "" && img.AlbumID != albumID {
		return nil, apperror.NotFound("image", imageID)
	}

	if _, err := loadAlbum(ctx, s.albums, caller, img.AlbumID, CanView); err != nil {
		return nil, err
	}
	return img, nil
}

// NormalizeTags trims every tag and drops blanks, keeping order.
func NormalizeTags(tags []string) ([]string, error) {
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if len(tag) > MaxTagLength {
			return nil, apperror.ValidationFailed("tags",
				fmt.Sprintf("tags must be %d characters or less", MaxTagLength))
		}
		cleaned = append(cleaned, tag)
	}
	if len(cleaned) > MaxTags {
		return nil, apperror.ValidationFailed("tags", fmt.Sprintf("at most %d tags are allowed", MaxTags))
	}
	return cleaned, nil
}

func normalizePerson(person string) (string, error) {
	person = strings.TrimSpace(person)
	if len(person) > MaxPersonLength {
		return "", apperror.ValidationFailed("person",
			fmt.Sprintf("person must be %d characters or less", MaxPersonLength))
	}
	return person, nil
}
