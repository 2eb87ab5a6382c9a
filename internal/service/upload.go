package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
	"github.com/prateek1361/kaviosApp-backend/internal/repository"
	"github.com/prateek1361/kaviosApp-backend/internal/storage"
)

// DefaultMaxUploadBytes is the upload ceiling when none is configured.
const DefaultMaxUploadBytes int64 = 5 << 20

// Stage names one step of an upload attempt. They appear in logs.
type Stage string

const (
	StageReceived  Stage = "received"
	StageValidated Stage = "validated"
	StageStored    Stage = "stored"
	StageRecorded  Stage = "recorded"
)

// Ingestor turns an uploaded file into an image record.
//
// PIPELINE:
//
//	Received → Validated → Stored → Recorded
//	    ↘ Rejected   ↘ store failed   ↘ record failed (Inconsistent)
//
// The metadata record is written only after the blob store has returned a
// URL, so no record ever points at missing media. A failure after the store
// leaves an unreferenced blob; that is logged with its URL and reported as
// apperror.ErrInconsistent. There is no cleanup.
//
// The request body is streamed straight to the blob store. Nothing touches
// local disk.
type Ingestor struct {
	albums   repository.AlbumRepository
	images   repository.ImageRepository
	blobs    storage.BlobStore
	logger   *slog.Logger
	maxBytes int64
	folder   string
}

func NewIngestor(
	albums repository.AlbumRepository,
	images repository.ImageRepository,
	blobs storage.BlobStore,
	maxBytes int64,
	folder string,
	logger *slog.Logger,
) *Ingestor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Ingestor{
		albums:   albums,
		images:   images,
		blobs:    blobs,
		logger:   logger,
		maxBytes: maxBytes,
		folder:   folder,
	}
}

// MaxBytes returns the size ceiling in bytes.
func (in *Ingestor) MaxBytes() int64 { return in.maxBytes }

// Upload runs one upload attempt for caller.
//
// Any viewer of the album may upload. up.Size is the declared length, or -1
// if unknown; either way no more than MaxBytes are ever read from up.Body.
func (in *Ingestor) Upload(ctx context.Context, caller model.Identity, up model.Upload) (*model.Image, error) {
	log := in.logger.With(
		slog.String("albumId", up.AlbumID),
		slog.String("userId", caller.UserID),
	)
	log.Debug("upload stage", slog.String("stage", string(StageReceived)))

	// === VALIDATED ===
	up, err := in.validate(ctx, caller, up)
	if err != nil {
		log.Info("upload rejected",
			slog.String("reason", apperror.ReasonOf(err)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	log.Debug("upload stage", slog.String("stage", string(StageValidated)))

	// Last point at which a caller that went away can still abort cleanly.
	if err := ctx.Err(); err != nil {
		log.Info("upload cancelled before store", slog.String("error", err.Error()))
		return nil, fmt.Errorf("upload cancelled: %w", err)
	}

	// Once bytes are handed to the blob store the attempt runs to the end,
	// so a stored blob always gets its chance to be recorded.
	ctx = context.WithoutCancel(ctx)

	// === STORED ===
	body := &limitedReader{r: up.Body, remaining: in.maxBytes}
	url, err := in.blobs.Put(ctx, storage.Object{
		Folder:      in.folder,
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Size:        up.Size,
		Body:        body,
	})
	if err != nil {
		// Blob clients do not all wrap reader errors, so ask the reader.
		if body.exceeded() {
			log.Info("upload rejected", slog.String("reason", apperror.ReasonTooLarge))
			return nil, tooLarge(in.maxBytes)
		}
		// The body itself failed (e.g. the transport's size cap); that is a
		// rejection of the upload, not a blob store outage.
		if apperror.KindOf(body.srcErr) != nil {
			log.Info("upload rejected",
				slog.String("reason", apperror.ReasonOf(body.srcErr)),
				slog.String("error", body.srcErr.Error()),
			)
			return nil, body.srcErr
		}
		log.Error("blob store failed", slog.String("error", err.Error()))
		if !errors.Is(err, apperror.ErrUnavailable) {
			err = apperror.Unavailable("blob store", err)
		}
		return nil, fmt.Errorf("storing image: %w", err)
	}
	log.Debug("upload stage", slog.String("stage", string(StageStored)), slog.String("url", url))

	// === RECORDED ===
	img := &model.Image{
		ID:         uuid.NewString(),
		AlbumID:    up.AlbumID,
		Name:       displayName(up.Filename),
		ImageURL:   url,
		Tags:       up.Tags,
		Person:     up.Person,
		IsFavorite: false,
		Comments:   []string{},
		Size:       body.read,
		UploadedAt: time.Now().UTC(),
	}

	if err := in.images.CreateImage(ctx, img); err != nil {
		log.Error("image stored but not recorded",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Inconsistent(
			fmt.Sprintf("image stored at %s but its record could not be created", url), err)
	}

	log.Info("image uploaded",
		slog.String("stage", string(StageRecorded)),
		slog.String("imageId", img.ID),
		slog.Int64("size", img.Size),
	)
	return img, nil
}

// validate checks type, size and metadata, then the target album and the
// caller's rights, and returns up with tags and person cleaned. The cheap
// checks come first so a bad upload never costs a query.
func (in *Ingestor) validate(ctx context.Context, caller model.Identity, up model.Upload) (model.Upload, error) {
	if up.Body == nil {
		return up, apperror.Rejected(apperror.ReasonMissingFile, "no image file provided")
	}
	if !IsImageType(up.ContentType) {
		return up, apperror.Rejected(apperror.ReasonWrongType, "only image files are allowed")
	}
	if up.Size > in.maxBytes {
		return up, tooLarge(in.maxBytes)
	}

	var err error
	if up.Tags, err = NormalizeTags(up.Tags); err != nil {
		return up, err
	}
	if up.Person, err = normalizePerson(up.Person); err != nil {
		return up, err
	}

	album, err := in.albums.GetAlbum(ctx, up.AlbumID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return up, apperror.NotFound("album", up.AlbumID).WithReason(apperror.ReasonAlbumNotFound)
		}
		return up, fmt.Errorf("loading album %s: %w", up.AlbumID, err)
	}
	if !CanView(caller, album) {
		return up, errAccessDenied().WithReason(apperror.ReasonAccessDenied)
	}

	return up, nil
}

// IsImageType reports whether a declared Content-Type is in the image family.
// Only the declaration is checked; bytes are not sniffed.
func IsImageType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}

func tooLarge(limit int64) error {
	return apperror.Rejected(apperror.ReasonTooLarge,
		fmt.Sprintf("image must be %d bytes or less", limit))
}

// displayName strips any client-supplied directory from a filename.
func displayName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	return name
}

var errBodyTooLarge = errors.New("upload body exceeds size limit")

// limitedReader counts bytes and fails once more than remaining are read.
// Unlike io.LimitReader it reports the overflow instead of a silent EOF.
// srcErr keeps the first non-EOF error from the underlying reader.
type limitedReader struct {
	r         io.Reader
	remaining int64
	read      int64
	srcErr    error
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, errBodyTooLarge
	}
	// Ask for one byte past the limit so an overflow is seen.
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && l.srcErr == nil {
		l.srcErr = err
	}
	l.read += int64(n)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, errBodyTooLarge
	}
	return n, err
}

func (l *limitedReader) exceeded() bool { return l.remaining < 0 }
