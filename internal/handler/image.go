package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
	"github.com/prateek1361/kaviosApp-backend/internal/service"
)

const (
	// uploadField is the multipart field carrying the file.
	uploadField = "image"
	// maxFormFieldBytes caps all text fields of one upload together.
	maxFormFieldBytes = 32 << 10
	// multipartOverhead leaves room for part headers and boundaries on top
	// of the file and its text fields.
	multipartOverhead = maxFormFieldBytes + 32<<10
)

// ImageHandler exposes upload and per-image metadata operations.
// Every route sits behind auth.RequireAuth.
type ImageHandler struct {
	images   *service.ImageService
	ingestor *service.Ingestor
	logger   *slog.Logger
}

func NewImageHandler(images *service.ImageService, ingestor *service.Ingestor, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{images: images, ingestor: ingestor, logger: logger}
}

type favoriteRequest struct {
	IsFavorite *bool `json:"isFavorite"`
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

type personRequest struct {
	Person string `json:"person"`
}

type commentRequest struct {
	Comment string `json:"comment"`
}

// HandleUpload streams one image into the album.
//
// HTTP: POST /albums/{albumId}/images
// BODY: multipart/form-data with an "image" file part and optional "tags"
// (repeated or comma-separated) and "person" fields.
//
// STREAMING:
// The body is read with r.MultipartReader, not r.ParseMultipartForm, so the
// file is never spooled to a temp file or held in memory; the part reader is
// handed straight to the ingestor. The catch is ordering: text fields must
// come before the file part. Anything after it is not read.
func (h *ImageHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.ingestor.MaxBytes()+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, apperror.ValidationFailed("body", "expected a multipart/form-data body"))
		return
	}

	up := model.Upload{AlbumID: chi.URLParam(r, "albumId"), Size: -1}
	fieldBudget := int64(maxFormFieldBytes)

	for up.Body == nil {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writeError(w, h.multipartError(err))
			return
		}

		switch part.FormName() {
		case uploadField:
			up.Filename = part.FileName()
			up.ContentType = part.Header.Get("Content-Type")
			up.Body = &partReader{part: part, h: h}
		case "tags", "tags[]":
			value, err := h.readField(part, &fieldBudget)
			if err != nil {
				writeError(w, err)
				return
			}
			up.Tags = append(up.Tags, strings.Split(value, ",")...)
		case "person":
			value, err := h.readField(part, &fieldBudget)
			if err != nil {
				writeError(w, err)
				return
			}
			up.Person = value
		default:
			// Unknown parts are ignored but still count against the
			// field budget.
			if _, err := h.readField(part, &fieldBudget); err != nil {
				writeError(w, err)
				return
			}
		}
	}

	// A nil Body is rejected by the ingestor as missing_file.
	img, err := h.ingestor.Upload(r.Context(), caller, up)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, img)
}

// HandleList returns every image in the album.
//
// HTTP: GET /albums/{albumId}/images
func (h *ImageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}

	images, err := h.images.List(r.Context(), caller, chi.URLParam(r, "albumId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, images)
}

// HandleSetFavorite overwrites the favorite flag.
//
// HTTP: PUT /albums/{albumId}/images/{imageId}/favorite
// REQUEST BODY: {"isFavorite": true}
func (h *ImageHandler) HandleSetFavorite(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	h.mutate(w, r, &req, func(caller model.Identity, albumID, imageID string) (*model.Image, error) {
		if req.IsFavorite == nil {
			return nil, apperror.ValidationFailed("isFavorite", "isFavorite is required")
		}
		return h.images.SetFavorite(r.Context(), caller, albumID, imageID, *req.IsFavorite)
	})
}

// HandleSetTags replaces the tag list.
//
// HTTP: PUT /albums/{albumId}/images/{imageId}/tags
// REQUEST BODY: {"tags": ["beach", "sunset"]}
func (h *ImageHandler) HandleSetTags(w http.ResponseWriter, r *http.Request) {
	var req tagsRequest
	h.mutate(w, r, &req, func(caller model.Identity, albumID, imageID string) (*model.Image, error) {
		return h.images.SetTags(r.Context(), caller, albumID, imageID, req.Tags)
	})
}

// HandleSetPerson replaces the person name.
//
// HTTP: PUT /albums/{albumId}/images/{imageId}/person
// REQUEST BODY: {"person": "Ann"}
func (h *ImageHandler) HandleSetPerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	h.mutate(w, r, &req, func(caller model.Identity, albumID, imageID string) (*model.Image, error) {
		return h.images.SetPerson(r.Context(), caller, albumID, imageID, req.Person)
	})
}

// HandleAddComment appends one comment.
//
// HTTP: POST /albums/{albumId}/images/{imageId}/comments
// REQUEST BODY: {"comment": "nice shot"}
func (h *ImageHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	h.mutate(w, r, &req, func(caller model.Identity, albumID, imageID string) (*model.Image, error) {
		return h.images.AddComment(r.Context(), caller, albumID, imageID, req.Comment)
	})
}

// HandleDelete removes the image record.
//
// HTTP: DELETE /albums/{albumId}/images/{imageId}
func (h *ImageHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}

	err := h.images.Delete(r.Context(), caller, chi.URLParam(r, "albumId"), chi.URLParam(r, "imageId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Image deleted"})
}

// mutate decodes req, runs apply with the route's ids and writes the
// updated image.
func (h *ImageHandler) mutate(
	w http.ResponseWriter,
	r *http.Request,
	req interface{},
	apply func(caller model.Identity, albumID, imageID string) (*model.Image, error),
) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}

	if err := decodeJSON(w, r, req); err != nil {
		writeError(w, err)
		return
	}

	img, err := apply(caller, chi.URLParam(r, "albumId"), chi.URLParam(r, "imageId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, img)
}

func (h *ImageHandler) multipartError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperror.Rejected(apperror.ReasonTooLarge,
			fmt.Sprintf("image must be %d bytes or less", h.ingestor.MaxBytes()))
	}
	return apperror.ValidationFailed("body", "malformed multipart body")
}

// readField reads one text part, charging its length against budget.
// Overrunning the budget makes the whole body too large.
func (h *ImageHandler) readField(part *multipart.Part, budget *int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, *budget+1))
	if err != nil {
		return "", h.multipartError(err)
	}
	if int64(len(data)) > *budget {
		e := apperror.Rejected(apperror.ReasonTooLarge,
			fmt.Sprintf("form fields must be %d bytes or less", maxFormFieldBytes))
		e.Field = part.FormName()
		return "", e
	}
	*budget -= int64(len(data))
	return string(data), nil
}

// partReader is the file part handed to the ingestor. Read failures of the
// request body are the client's, so they surface as rejections rather than
// as a failure of whatever is consuming the stream.
type partReader struct {
	part *multipart.Part
	h    *ImageHandler
}

func (p *partReader) Read(b []byte) (int, error) {
	n, err := p.part.Read(b)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, p.h.multipartError(err)
	}
	return n, err
}
