package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/prateek1361/kaviosApp-backend/internal/apperror"
	"github.com/prateek1361/kaviosApp-backend/internal/auth"
	"github.com/prateek1361/kaviosApp-backend/internal/model"
	"github.com/prateek1361/kaviosApp-backend/internal/repository"
)

// IdentityService maps emails to users and issues session tokens.
//
// CONCURRENT FIRST CONTACT:
// Two requests for a never-seen email may race to create its user. Two
// mechanisms keep that to one record:
//   - in-process, singleflight collapses concurrent Resolve calls for the
//     same email into a single lookup-or-create
//   - across processes, the store's UNIQUE(email) makes the losing INSERT
//     fail with ErrConflict, and the loser re-reads the winner's row
type IdentityService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
	group  singleflight.Group
}

func NewIdentityService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *IdentityService {
	return &IdentityService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// respond in one step.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Resolve returns the user for email, creating it on first sight.
func (s *IdentityService) Resolve(ctx context.Context, email string) (*model.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	// The shared call serves every waiter, so one caller going away must
	// not fail the others.
	v, err, _ := s.group.Do(email, func() (any, error) {
		return s.lookupOrCreate(context.WithoutCancel(ctx), email)
	})
	if err != nil {
		return nil, err
	}

	// Waiters share the pointer; hand each its own copy.
	u := *v.(*model.User)
	return &u, nil
}

func (s *IdentityService) lookupOrCreate(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("resolving %s: %w", email, err)
	}

	user = &model.User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			s.logger.Error("failed to create user",
				slog.String("email", email),
				slog.String("error", err.Error()),
			)
			return nil, fmt.Errorf("creating user %s: %w", email, err)
		}

		// Someone else created it between our read and our insert.
		existing, err := s.users.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("re-reading user %s: %w", email, err)
		}
		return existing, nil
	}

	s.logger.Info("user created",
		slog.String("userId", user.ID),
		slog.String("email", user.Email),
	)
	return user, nil
}

// Login resolves email and issues a session token for it.
func (s *IdentityService) Login(ctx context.Context, email string) (*AuthResult, error) {
	user, err := s.Resolve(ctx, email)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Generate(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// LoginGoogle logs in the verified email of a Google profile.
func (s *IdentityService) LoginGoogle(ctx context.Context, gu *auth.GoogleUser) (*AuthResult, error) {
	if gu == nil {
		return nil, errors.New("service: Google user must not be nil")
	}

	result, err := s.Login(ctx, gu.Email)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated via Google",
		slog.String("userId", result.User.ID),
	)
	return result, nil
}

// Me returns the caller's user record.
func (s *IdentityService) Me(ctx context.Context, caller model.Identity) (*model.User, error) {
	return s.users.GetUserByID(ctx, caller.UserID)
}
