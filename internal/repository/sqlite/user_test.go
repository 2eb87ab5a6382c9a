package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" creates a fresh database that exists only for the test. New()
// pins the pool to a single connection for it, so every query in the test
// sees the same database.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestUser is a test helper that creates a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)

	user := createTestUser(t, db, "ann@example.com")

	found, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if found.Email != "ann@example.com" {
		t.Errorf("Email = %q, want %q", found.Email, "ann@example.com")
	}
	if found.CreatedAt.IsZero() {
		t.Error("CreatedAt was not persisted")
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)

	createTestUser(t, db, "dup@example.com")

	duplicate := &model.User{
		ID:        uuid.NewString(), // different id, same email
		Email:     "dup@example.com",
		CreatedAt: time.Now().UTC(),
	}
	err := db.CreateUser(context.Background(), duplicate)
	if err == nil {
		t.Fatal("CreateUser() should have returned an error for duplicate email")
	}
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateUser() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestUserGetByEmail(t *testing.T) {
	db := newTestDB(t)
	created := createTestUser(t, db, "lookup@example.com")

	found, err := db.GetUserByEmail(context.Background(), "lookup@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}
