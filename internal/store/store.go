// Package store holds the durable user store and its backends.
//
// Every backend keeps the same contract: at most one record per email, and
// Add fails with ErrDuplicateIdentity instead of overwriting. I/O failures
// are wrapped so callers can match ErrStore.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/models"
	"github.com/google/uuid"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateIdentity = errors.New("email already exists")
	ErrStore             = errors.New("user store failure")
)

// UserStore persists user records keyed by email.
type UserStore interface {
	Find(ctx context.Context, email string) (*models.User, error)
	Add(ctx context.Context, email string) (*models.User, error)
	// List returns every record in no particular order. Diagnostics only.
	List(ctx context.Context) ([]models.User, error)
	Remove(ctx context.Context, email string) (bool, error)
	// Ping reports whether the backend can currently be read.
	Ping(ctx context.Context) error
	Close() error
}

func newUser(email string) (*models.User, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, wrap("generate user id", err)
	}
	return &models.User{
		ID:        id.String(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

func indexOf(users []models.User, email string) int {
	for i := range users {
		if users[i].Email == email {
			return i
		}
	}
	return -1
}
