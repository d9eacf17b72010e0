package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/models"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/session"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/store"
)

var ErrEmailRequired = errors.New("email is required")

type UserService struct {
	resolver *session.Resolver
	store    store.UserStore
}

func NewUserService(resolver *session.Resolver, s store.UserStore) *UserService {
	return &UserService{resolver: resolver, store: s}
}

// CreateOrLogin returns the record for email, creating it if needed.
// created is true only for the call that added the record.
func (s *UserService) CreateOrLogin(ctx context.Context, email string) (*models.User, bool, error) {
	if email == "" {
		return nil, false, ErrEmailRequired
	}
	return s.resolver.Login(ctx, email)
}

// Current resolves the identity claim without creating anything.
func (s *UserService) Current(ctx context.Context, claim string) (*models.User, error) {
	return s.resolver.Lookup(ctx, claim)
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	return s.store.List(ctx)
}

// Remove deletes the record and evicts it from the warm cache.
func (s *UserService) Remove(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, ErrEmailRequired
	}
	removed, err := s.store.Remove(ctx, email)
	if err != nil {
		return false, err
	}
	s.resolver.Forget(email)
	if removed {
		slog.Info("user removed", "email", email)
	}
	return removed, nil
}
