package security

import (
	"context"
	"errors"
	"fmt"

	"finmail/internal/db"
	"finmail/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("authentication required")
)

// UserStore is the part of the storage layer the Authenticator needs.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type Authenticator struct {
	users UserStore
	creds CredentialVerifier

	// dummyHash is compared against when the username is unknown so both
	// failure paths cost one hash check.
	dummyHash string
}

func NewAuthenticator(users UserStore, creds CredentialVerifier) (*Authenticator, error) {
	dummy, err := creds.Hash("finmail-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("prepare authenticator: %w", err)
	}
	return &Authenticator{users: users, creds: creds, dummyHash: dummy}, nil
}

// Register creates a user with a hashed password.
func (a *Authenticator) Register(ctx context.Context, in models.RegisterInput) (*models.User, error) {
	hash, err := a.creds.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return a.users.CreateUser(ctx, in.Username, in.Email, hash)
}

// Login checks the credentials and returns the session to establish.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*models.Session, error) {
	user, err := a.users.GetUserByUsername(ctx, username)
	if errors.Is(err, db.ErrNotFound) {
		_ = a.creds.Verify(a.dummyHash, password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := a.creds.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}
	return models.NewSession(user), nil
}

// CurrentUser reloads the user behind s, so renames show up and removed
// users lose access without waiting for the cookie to expire.
func (a *Authenticator) CurrentUser(ctx context.Context, s *models.Session) (*models.Session, error) {
	user, err := a.users.GetUserByID(ctx, s.ID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return models.NewSession(user), nil
}
