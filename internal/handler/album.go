package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prateek1361/kaviosApp-backend/internal/model"
	"github.com/prateek1361/kaviosApp-backend/internal/service"
)

// AlbumHandler exposes album CRUD and sharing.
// Every route sits behind auth.RequireAuth.
type AlbumHandler struct {
	albums *service.AlbumService
	logger *slog.Logger
}

func NewAlbumHandler(albums *service.AlbumService, logger *slog.Logger) *AlbumHandler {
	return &AlbumHandler{albums: albums, logger: logger}
}

type createAlbumRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type shareAlbumRequest struct {
	Emails []string `json:"emails"`
}

// HandleCreate creates an album owned by the caller.
//
// HTTP: POST /albums
// REQUEST BODY: {"name": "Trip", "description": "Summer 2024"}
func (h *AlbumHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}

	var req createAlbumRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	album, err := h.albums.Create(r.Context(), caller, req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, album)
}

// HandleList returns every album the caller owns or has been shared.
//
// HTTP: GET /albums
func (h *AlbumHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}

	albums, err := h.albums.List(r.Context(), caller)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, albums)
}

// HandleGet returns one album.
//
// HTTP: GET /albums/{albumId}
func (h *AlbumHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}

	album, err := h.albums.Get(r.Context(), caller, chi.URLParam(r, "albumId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, album)
}

// HandleEdit updates name and/or description. Owner only.
//
// HTTP: PATCH /albums/{albumId}
// REQUEST BODY: {"name": "New name"} or {"description": "..."} or both
func (h *AlbumHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}

	var patch model.AlbumPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	album, err := h.albums.Edit(r.Context(), caller, chi.URLParam(r, "albumId"), patch)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, album)
}

// HandleShare adds emails to the album's share list. Owner only.
//
// HTTP: POST /albums/{albumId}/share
// REQUEST BODY: {"emails": ["b@example.com"]}
func (h *AlbumHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}

	var req shareAlbumRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	album, err := h.albums.Share(r.Context(), caller, chi.URLParam(r, "albumId"), req.Emails)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, album)
}

// HandleDelete removes the album and all of its images. Owner only.
//
// HTTP: DELETE /albums/{albumId}
func (h *AlbumHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrReject(w, r)
	if !ok {
		return
	}

	if err := h.albums.Delete(r.Context(), caller, chi.URLParam(r, "albumId")); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Album deleted"})
}
