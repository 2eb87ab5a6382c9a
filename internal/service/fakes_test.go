package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/auth"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
	"github.com/prateek1361/kaviosApp-backend/internal/storage"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeStore is an in-memory implementation of every repository interface.
// It enforces the same rules as the SQL stores: unique emails, no image
// without its album, no album delete while images remain.
type fakeStore struct {
	mu     sync.Mutex
	users  map[string]*model.User
	albums map[string]*model.Album
	images map[string]*model.Image

	// set to a non-nil error to simulate a database failure
	getAlbumErr       error
	createImageErr    error
	deleteByAlbumErr  error
	createUserCalls   atomic.Int32
	getByEmailDelay   time.Duration
	listAlbumsOverlay []model.Album
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[string]*model.User),
		albums: make(map[string]*model.Album),
		images: make(map[string]*model.Image),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.createUserCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	copied := *user
	f.users[user.ID] = &copied
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if f.getByEmailDelay > 0 {
		time.Sleep(f.getByEmailDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeStore) CreateAlbum(_ context.Context, album *model.Album) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *album
	copied.SharedWith = slices.Clone(album.SharedWith)
	f.albums[album.ID] = &copied
	return nil
}

func (f *fakeStore) GetAlbum(_ context.Context, id string) (*model.Album, error) {
	if f.getAlbumErr != nil {
		return nil, f.getAlbumErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.albums[id]
	if !ok {
		return nil, apperror.NotFound("album", id)
	}
	copied := *a
	copied.SharedWith = slices.Clone(a.SharedWith)
	return &copied, nil
}

func (f *fakeStore) ListAlbumsFor(_ context.Context, userID, email string) ([]model.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Album{}
	for _, a := range f.albums {
		if a.OwnerID == userID || slices.Contains(a.SharedWith, email) {
			copied := *a
			copied.SharedWith = slices.Clone(a.SharedWith)
			out = append(out, copied)
		}
	}
	// Simulates a backend whose query returns more than it should.
	return append(out, f.listAlbumsOverlay...), nil
}

func (f *fakeStore) UpdateAlbum(_ context.Context, album *model.Album) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.albums[album.ID]
	if !ok {
		return apperror.NotFound("album", album.ID)
	}
	a.Name, a.Description = album.Name, album.Description
	return nil
}

func (f *fakeStore) AddAlbumShares(_ context.Context, albumID string, emails []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.albums[albumID]
	if !ok {
		return apperror.NotFound("album", albumID)
	}
	for _, e := range emails {
		if !slices.Contains(a.SharedWith, e) {
			a.SharedWith = append(a.SharedWith, e)
		}
	}
	return nil
}

func (f *fakeStore) DeleteAlbum(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.albums[id]; !ok {
		return apperror.NotFound("album", id)
	}
	for _, img := range f.images {
		if img.AlbumID == id {
			return apperror.Conflict("album", id)
		}
	}
	delete(f.albums, id)
	return nil
}

func (f *fakeStore) CreateImage(_ context.Context, image *model.Image) error {
	if f.createImageErr != nil {
		return f.createImageErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.albums[image.AlbumID]; !ok {
		return apperror.NotFound("album", image.AlbumID)
	}
	copied := *image
	f.images[image.ID] = &copied
	return nil
}

func (f *fakeStore) GetImage(_ context.Context, id string) (*model.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[id]
	if !ok {
		return nil, apperror.NotFound("image", id)
	}
	copied := *img
	copied.Tags = slices.Clone(img.Tags)
	copied.Comments = slices.Clone(img.Comments)
	return &copied, nil
}

func (f *fakeStore) ListImagesByAlbum(_ context.Context, albumID string) ([]model.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Image{}
	for _, img := range f.images {
		if img.AlbumID == albumID {
			out = append(out, *img)
		}
	}
	return out, nil
}

func (f *fakeStore) updateImage(id string, apply func(*model.Image)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, ok := f.images[id]
	if !ok {
		return apperror.NotFound("image", id)
	}
	apply(img)
	return nil
}

func (f *fakeStore) SetFavorite(_ context.Context, id string, favorite bool) error {
	return f.updateImage(id, func(img *model.Image) { img.IsFavorite = favorite })
}

func (f *fakeStore) SetTags(_ context.Context, id string, tags []string) error {
	return f.updateImage(id, func(img *model.Image) { img.Tags = slices.Clone(tags) })
}

func (f *fakeStore) SetPerson(_ context.Context, id string, person string) error {
	return f.updateImage(id, func(img *model.Image) { img.Person = person })
}

func (f *fakeStore) AppendComment(_ context.Context, id string, comment string) error {
	return f.updateImage(id, func(img *model.Image) { img.Comments = append(img.Comments, comment) })
}

func (f *fakeStore) DeleteImage(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.images[id]; !ok {
		return apperror.NotFound("image", id)
	}
	delete(f.images, id)
	return nil
}

func (f *fakeStore) DeleteImagesByAlbum(_ context.Context, albumID string) (int64, error) {
	if f.deleteByAlbumErr != nil {
		return 0, f.deleteByAlbumErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, img := range f.images {
		if img.AlbumID == albumID {
			delete(f.images, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) imageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.images)
}

// fakeBlobStore records Put calls and returns a URL derived from the call
// count.
type fakeBlobStore struct {
	calls   int
	lastObj storage.Object
	body    []byte
	err     error
}

func (b *fakeBlobStore) Put(_ context.Context, obj storage.Object) (string, error) {
	b.calls++
	b.lastObj = obj
	if b.err != nil {
		return "", b.err
	}
	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return "", err
	}
	b.body = data
	return fmt.Sprintf("https://cdn.example.com/kaviospix/blob-%d.png", b.calls), nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// fixture wires every service against one fakeStore.
type fixture struct {
	store    *fakeStore
	blobs    *fakeBlobStore
	identity *IdentityService
	albums   *AlbumService
	images   *ImageService
	ingestor *Ingestor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newFakeStore()
	blobs := &fakeBlobStore{}
	logger := newTestLogger()
	return &fixture{
		store:    store,
		blobs:    blobs,
		identity: NewIdentityService(store, newTestTokens(t), logger),
		albums:   NewAlbumService(store, store, logger),
		images:   NewImageService(store, store, logger),
		ingestor: NewIngestor(store, store, blobs, DefaultMaxUploadBytes, "kaviospix", logger),
	}
}

// user resolves email and returns its identity, failing the test on error.
func (fx *fixture) user(t *testing.T, email string) model.Identity {
	t.Helper()
	u, err := fx.identity.Resolve(context.Background(), email)
	if err != nil {
		t.Fatalf("Resolve(%q) error = %v", email, err)
	}
	return u.Identity()
}

func (fx *fixture) album(t *testing.T, owner model.Identity, name string) *model.Album {
	t.Helper()
	a, err := fx.albums.Create(context.Background(), owner, name, "")
	if err != nil {
		t.Fatalf("Create(%q) error = %v", name, err)
	}
	return a
}
