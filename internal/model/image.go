package model

import (
	"io"
	"time"
)

// Image is the metadata record of one uploaded picture.
//
// It is only ever created after the blob store confirmed the upload and
// returned ImageURL. AlbumID references an album that existed at creation.
type Image struct {
	ID         string    `json:"imageId"`
	AlbumID    string    `json:"albumId"`
	Name       string    `json:"name"`
	ImageURL   string    `json:"imageUrl"`
	Tags       []string  `json:"tags"`
	Person     string    `json:"person"`
	IsFavorite bool      `json:"isFavorite"`
	Comments   []string  `json:"comments"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// Upload is one upload attempt as received from the caller, before validation.
//
// Body is read exactly once and streamed to the blob store; nothing is
// buffered to local disk.
type Upload struct {
	AlbumID     string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	Tags        []string
	Person      string
}
