package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
)

func strPtr(s string) *string { return &s }

// =========================================================================
// CREATE / LIST / GET
// =========================================================================

func TestAlbumCreate(t *testing.T) {
	fx := newFixture(t)
	ann := fx.user(t, "ann@example.com")

	album, err := fx.albums.Create(context.Background(), ann, "  Trip  ", " summer ")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if album.Name != "Trip" || album.Description != "summer" {
		t.Errorf("Create() = %q/%q, want trimmed Trip/summer", album.Name, album.Description)
	}
	if album.OwnerID != ann.UserID {
		t.Errorf("OwnerID = %q, want %q", album.OwnerID, ann.UserID)
	}
	if album.SharedWith == nil || len(album.SharedWith) != 0 {
		t.Errorf("SharedWith = %#v, want empty", album.SharedWith)
	}
}

func TestAlbumCreate_Validation(t *testing.T) {
	fx := newFixture(t)
	ann := fx.user(t, "ann@example.com")

	tests := []struct {
		name, albumName, description, wantField string
	}{
		{"empty name", "", "", "name"},
		{"blank name", "   ", "", "name"},
		{"long name", strings.Repeat("x", MaxAlbumNameLength+1), "", "name"},
		{"long description", "ok", strings.Repeat("x", MaxAlbumDescriptionLength+1), "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.albums.Create(context.Background(), ann, tt.albumName, tt.description)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Create() error = %v, want ErrValidation", err)
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}

func TestAlbumList_FiltersThroughCanView(t *testing.T) {
	fx := newFixture(t)
	ann := fx.user(t, "ann@example.com")
	bob := fx.user(t, "bob@example.com")

	fx.album(t, ann, "Ann's")
	bobs := fx.album(t, bob, "Bob's")

	// A backend bug returning someone else's album must not leak it.
	fx.store.listAlbumsOverlay = []model.Album{{ID: "foreign", OwnerID: "someone", Name: "Leaked"}}

	albums, err := fx.albums.List(context.Background(), bob)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(albums) != 1 || albums[0].ID != bobs.ID {
		t.Errorf("List(bob) = %+v, want only %s", albums, bobs.ID)
	}
}

func TestAlbumGet(t *testing.T) {
	fx := newFixture(t)
	ann := fx.user(t, "ann@example.com")
	bob := fx.user(t, "bob@example.com")
	album := fx.album(t, ann, "Trip")

	if _, err := fx.albums.Get(context.Background(), ann, album.ID); err != nil {
		t.Errorf("Get(owner) error = %v", err)
	}
	if _, err := fx.albums.Get(context.Background(), bob, album.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Get(stranger) error = %v, want ErrForbidden", err)
	}
	if _, err := fx.albums.Get(context.Background(), ann, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

// TestAlbumGet_DeniedMessageIsGeneric checks that a denial says nothing
// about the album it refused.
func TestAlbumGet_DeniedMessageIsGeneric(t *testing.T) {
	fx := newFixture(t)
	ann := fx.user(t, "ann@example.com")
	bob := fx.user(t, "bob@example.com")
	album := fx.album(t, ann, "Secret Trip")

	_, err := fx.albums.Get(context.Background(), bob, album.ID)
	if err == nil {
		t.Fatal("Get() should fail")
	}
	if strings.Contains(err.Error(), "Secret Trip") || strings.Contains(err.Error(), ann.UserID) {
		t.Errorf("denial leaks album data: %v", err)
	}
}

// =========================================================================
// EDIT
// =========================================================================

func TestAlbumEdit_Partial(t *testing.T) {
	fx := newFixture(t)
	ann := fx.user(t, "ann@example.com")
	album, _ := fx.albums.Create(context.Background(), ann, "Trip", "old")

	updated, err := fx.albums.Edit(context.Background(), ann, album.ID, model.AlbumPatch{Description: strPtr("new")})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if updated.Name != "Trip" || updated.Description != "new" {
		t.Errorf("Edit() = %q/%q, want Trip/new", updated.Name, updated.Description)
	}

	stored, _ := fx.store.GetAlbum(context.Background(), album.ID)
	if stored.Description != "new" {
		t.Errorf("stored description = %q, want new", stored.Description)
	}
}

func TestAlbumEdit_Denied(t *testing.T) {
	fx := newFixture(t)
	ann := fx.user(t, "ann@example.com")
	bob := fx.user(t, "bob@example.com")
	album := fx.album(t, ann, "Trip")

	if _, err := fx.albums.Share(context.Background(), ann, album.ID, []string{bob.Email}); err != nil {
		t.Fatalf("Share() error = %v", err)
	}

	// A shared recipient can view but not manage.
	_, err := fx.albums.Edit(context.Background(), bob, album.ID, model.AlbumPatch{Name: strPtr("Mine now")})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Edit(shared) error = %v, want ErrForbidden", err)
	}

	stored, _ := fx.store.GetAlbum(context.Background(), album.ID)
	if stored.Name != "Trip" {
		t.Errorf("denied edit mutated name to %q", stored.Name)
	}

	_, err = fx.albums.Edit(context.Background(), ann, "missing", model.AlbumPatch{Name: strPtr("x")})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Edit(missing) error = %v, want ErrNotFound", err)
	}

	_, err = fx.albums.Edit(context.Background(), ann, album.ID, model.AlbumPatch{Name: strPtr("  ")})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Edit(blank name) error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// SHARE
// =========================================================================

func TestAlbumShare_NormalizesAndDeduplicates(t *testing.T) {
	fx := newFixture(t)
	ann := fx.user(t, "ann@example.com")
	album := fx.album(t, ann, "Trip")

	_, err := fx.albums.Share(context.Background(), ann, album.ID, []string{"B@Example.com", "b@example.com ", "c@example.com"})
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	updated, err := fx.albums.Share(context.Background(), ann, album.ID, []string{"c@example.com", "d@example.com"})
	if err != nil {
		t.Fatalf("Share() second error = %v", err)
	}

	got := slices.Clone(updated.SharedWith)
	slices.Sort(got)
	want := []string{"b@example.com", "c@example.com", "d@example.com"}
	if !slices.Equal(got, want) {
		t.Errorf("SharedWith = %v, want %v", got, want)
	}
}

func TestAlbumShare_Validation(t *testing.T) {
	fx := newFixture(t)
	ann := fx.user(t, "ann@example.com")
	album := fx.album(t, ann, "Trip")

	for _, emails := range [][]string{nil, {}, {"not-an-email"}, {"ok@example.com", ""}} {
		_, err := fx.albums.Share(context.Background(), ann, album.ID, emails)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Share(%q) error = %v, want ErrValidation", emails, err)
		}
	}

	stored, _ := fx.store.GetAlbum(context.Background(), album.ID)
	if len(stored.SharedWith) != 0 {
		t.Errorf("rejected shares were applied: %v", stored.SharedWith)
	}
}

func TestAlbumShare_OnlyOwner(t *testing.T) {
	fx := newFixture(t)
	ann := fx.user(t, "ann@example.com")
	bob := fx.user(t, "bob@example.com")
	album := fx.album(t, ann, "Trip")
	fx.albums.Share(context.Background(), ann, album.ID, []string{bob.Email})

	_, err := fx.albums.Share(context.Background(), bob, album.ID, []string{"eve@example.com"})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Share(recipient) error = %v, want ErrForbidden", err)
	}
}

// A caller who cannot manage the album learns nothing from the payload:
// every list gets the same AccessDenied.
func TestAlbumShare_AccessCheckedBeforePayload(t *testing.T) {
	fx := newFixture(t)
	ann := fx.user(t, "ann@example.com")
	eve := fx.user(t, "eve@example.com")
	album := fx.album(t, ann, "Trip")

	tests := []struct {
		name   string
		emails []string
	}{
		{"valid", []string{"bob@example.com"}},
		{"empty", nil},
		{"malformed", []string{"not-an-email"}},
		{"too many", make([]string, MaxShareBatch+1)},
	}

	var first string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.albums.Share(context.Background(), eve, album.ID, tt.emails)
			if !errors.Is(err, apperror.ErrForbidden) {
				t.Fatalf("Share() error = %v, want ErrForbidden", err)
			}
			if errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Share() error = %v also matches ErrValidation", err)
			}
			if first == "" {
				first = err.Error()
			} else if err.Error() != first {
				t.Errorf("Share() error = %q, want %q", err.Error(), first)
			}
		})
	}
}

// =========================================================================
// DELETE
// =========================================================================

func TestAlbumDelete_CascadesImages(t *testing.T) {
	fx := newFixture(t)
	ann := fx.user(t, "ann@example.com")
	album := fx.album(t, ann, "Trip")
	other := fx.album(t, ann, "Other")

	uploadPNG(t, fx, ann, album.ID)
	uploadPNG(t, fx, ann, album.ID)
	kept := uploadPNG(t, fx, ann, other.ID)

	if err := fx.albums.Delete(context.Background(), ann, album.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	for _, img := range fx.store.images {
		if img.AlbumID == album.ID {
			t.Errorf("image %s survived its album", img.ID)
		}
	}
	if _, err := fx.store.GetImage(context.Background(), kept.ID); err != nil {
		t.Errorf("image of another album was removed: %v", err)
	}
	if _, err := fx.store.GetAlbum(context.Background(), album.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("album still present after Delete(): %v", err)
	}
}

func TestAlbumDelete_CascadeFailureKeepsAlbum(t *testing.T) {
	fx := newFixture(t)
	ann := fx.user(t, "ann@example.com")
	album := fx.album(t, ann, "Trip")
	uploadPNG(t, fx, ann, album.ID)

	fx.store.deleteByAlbumErr = errors.New("disk I/O error")

	err := fx.albums.Delete(context.Background(), ann, album.ID)
	if !errors.Is(err, apperror.ErrUnavailable) {
		t.Fatalf("Delete() error = %v, want retryable ErrUnavailable", err)
	}
	if _, err := fx.store.GetAlbum(context.Background(), album.ID); err != nil {
		t.Errorf("album was deleted despite failed cascade: %v", err)
	}
}

func TestAlbumDelete_Denied(t *testing.T) {
	fx := newFixture(t)
	ann := fx.user(t, "ann@example.com")
	bob := fx.user(t, "bob@example.com")
	album := fx.album(t, ann, "Trip")
	img := uploadPNG(t, fx, ann, album.ID)

	if err := fx.albums.Delete(context.Background(), bob, album.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Delete(stranger) error = %v, want ErrForbidden", err)
	}
	if _, err := fx.store.GetImage(context.Background(), img.ID); err != nil {
		t.Errorf("denied delete removed an image: %v", err)
	}
	if err := fx.albums.Delete(context.Background(), ann, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
}

// TestTripScenario follows an album from creation through sharing to
// deletion by its owner.
func TestTripScenario(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	userA := fx.user(t, "a@example.com")
	trip := fx.album(t, userA, "Trip")
	uploadPNG(t, fx, userA, trip.ID)

	if _, err := fx.albums.Share(ctx, userA, trip.ID, []string{"b@example.com"}); err != nil {
		t.Fatalf("Share() error = %v", err)
	}

	userB := fx.user(t, "b@example.com")
	listed, err := fx.albums.List(ctx, userB)
	if err != nil {
		t.Fatalf("List(B) error = %v", err)
	}
	if len(listed) != 1 || listed[0].Name != "Trip" {
		t.Fatalf("List(B) = %+v, want [Trip]", listed)
	}

	if err := fx.albums.Delete(ctx, userB, trip.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Delete(B) error = %v, want ErrForbidden", err)
	}

	if err := fx.albums.Delete(ctx, userA, trip.ID); err != nil {
		t.Fatalf("Delete(A) error = %v", err)
	}

	if _, err := fx.images.List(ctx, userA, trip.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("List images after delete error = %v, want ErrNotFound", err)
	}
	if fx.store.imageCount() != 0 {
		t.Errorf("%d images remain after album delete", fx.store.imageCount())
	}
}
