// Package model defines the data structures used throughout the application.
//
// User, Album and Image are independent aggregates. Albums and images are
// linked by AlbumID equality, never by embedding one inside the other, because
// images are queried by album far more often than albums are loaded whole.
package model

import "time"

// User is the stable identity behind an email address.
//
// A User is created the first time an email authenticates and is never
// mutated afterwards. The UNIQUE constraint on email in the store guarantees
// one email maps to exactly one UserID.
type User struct {
	ID        string    `json:"userId"    db:"id"`
	Email     string    `json:"email"     db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Identity is a verified (userId, email) pair as carried by a session token.
// Everything past the auth middleware works with an Identity, not a token.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Identity returns the verified identity for u.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Email: u.Email}
}
