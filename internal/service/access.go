package service

import (
	"slices"

	"github.com/prateek1361/kaviosApp-backend/internal/model"
)

// CanView reports whether caller may read an album and contribute to it
// (upload, tag, favorite, comment, delete images): the caller owns it or
// their email is on its share list.
func CanView(caller model.Identity, album *model.Album) bool {
	if album == nil || caller.UserID == "" {
		return false
	}
	if caller.UserID == album.OwnerID {
		return true
	}
	return caller.Email != "" && slices.Contains(album.SharedWith, caller.Email)
}

// CanManage reports whether caller may rename, describe, share or delete an
// album. Only the owner can; being shared with grants nothing here.
func CanManage(caller model.Identity, album *model.Album) bool {
	return album != nil && caller.UserID != "" && caller.UserID == album.OwnerID
}
