package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coregx/relica"
	"github.com/google/uuid"

	"finmail/internal/models"
)

type userRow struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    timestamp `db:"created_at"`
}

func (r userRow) toModel() *models.User {
	return &models.User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.Time,
	}
}

var userColumns = []string{"id", "username", "email", "password_hash", "created_at"}

// CreateUser stores a new user. A taken username or email is reported as a
// *ValidationError.
func (db *DB) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    db.now().UTC(),
	}

	_, err := db.builder(ctx).Insert("users", map[string]interface{}{
		"id":            u.ID,
		"username":      u.Username,
		"email":         u.Email,
		"password_hash": u.PasswordHash,
		"created_at":    formatTime(u.CreatedAt),
	}).Execute()
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fieldError("username", "username or email already registered")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return db.getUser(ctx, "username = ?", username)
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return db.getUser(ctx, "id = ?", id)
}

func (db *DB) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var row userRow
	err := db.builder(ctx).Select(userColumns...).From("users").Where(where, arg).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.toModel(), nil
}

// CountUsers returns the number of registered users.
func (db *DB) CountUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, "users", "")
}

type sessionRow struct {
	Data      string    `db:"data"`
	ExpiresAt timestamp `db:"expires_at"`
}

// SaveSession upserts the encoded session data under id.
func (db *DB) SaveSession(ctx context.Context, id, data string, expiresAt time.Time) error {
	return db.withTx(ctx, func(qb *relica.QueryBuilder) error {
		if _, err := qb.Delete("sessions").Where("id = ?", id).Execute(); err != nil {
			return fmt.Errorf("replace session: %w", err)
		}
		_, err := qb.Insert("sessions", map[string]interface{}{
			"id":         id,
			"data":       data,
			"expires_at": formatTime(expiresAt),
		}).Execute()
		if err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return nil
	})
}

// LoadSession returns the encoded data for id. Missing and expired sessions
// both yield ErrNotFound.
func (db *DB) LoadSession(ctx context.Context, id string) (string, error) {
	var row sessionRow
	err := db.builder(ctx).Select("data", "expires_at").From("sessions").Where("id = ?", id).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if !row.ExpiresAt.After(db.now()) {
		return "", ErrNotFound
	}
	return row.Data, nil
}

func (db *DB) DeleteSession(ctx context.Context, id string) error {
	if _, err := db.builder(ctx).Delete("sessions").Where("id = ?", id).Execute(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions whose expiry is before now.
func (db *DB) DeleteExpiredSessions(ctx context.Context) error {
	_, err := db.builder(ctx).Delete("sessions").Where("expires_at < ?", formatTime(db.now())).Execute()
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}
	return nil
}
