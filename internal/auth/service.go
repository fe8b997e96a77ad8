package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vovakirdan/wirechat-live/internal/store"
)

var (
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrWrongCredentials is returned when username or password don't match.
	ErrWrongCredentials = errors.New("wrong username or password")
)

// Service bundles token verification with the account helpers used by the CLI.
type Service struct {
	store    store.UserStore
	cfg      *JWTConfig
	verifier *Verifier
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, cfg *JWTConfig) (*Service, error) {
	verifier, err := NewVerifier(cfg)
	if err != nil {
		return nil, err
	}
	return &Service{
		store:    userStore,
		cfg:      cfg,
		verifier: verifier,
	}, nil
}

// Register creates a new user with hashed password.
func (s *Service) Register(ctx context.Context, username, password string) (*store.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return nil, ErrInvalidUsername
	}
	if len(password) < 6 {
		return nil, ErrInvalidPassword
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, username, hashedPassword)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// IssueToken signs a token for an existing user.
func (s *Service) IssueToken(ctx context.Context, userID int64) (string, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}

	token, err := GenerateToken(s.cfg, user.ID, user.Username)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// Authenticate checks a username and password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrWrongCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := ComparePassword(user.PasswordHash, password); err != nil {
		return nil, ErrWrongCredentials
	}
	return user, nil
}

// Lookup finds a user by numeric id or, failing that, by username.
func (s *Service) Lookup(ctx context.Context, ref string) (*store.User, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.store.GetUserByID(ctx, id)
	}
	return s.store.GetUserByUsername(ctx, ref)
}

// Verify validates a token and returns the identity it carries.
func (s *Service) Verify(tokenString string) (Identity, error) {
	return s.verifier.Verify(tokenString)
}
