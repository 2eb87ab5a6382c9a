package model

import "time"

// Album is a named collection of images owned by one user and optionally
// shared with others by email.
//
// OwnerID never changes after creation. SharedWith holds normalized
// (lower-case) emails and never contains duplicates.
type Album struct {
	ID          string    `json:"albumId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"ownerId"`
	SharedWith  []string  `json:"sharedWith"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// AlbumPatch is a partial update of album metadata. Nil fields are left as is.
type AlbumPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}
