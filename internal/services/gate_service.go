package services

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// GateCookieValue marks a browser that has passed the shared password.
const (
	GateCookieName  = "webappAuth"
	GateCookieValue = "authenticated"
)

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

var (
	ErrPasswordRequired  = errors.New("password is required")
	ErrGateNotConfigured = errors.New("webapp password is not configured")
	ErrInvalidPassword   = errors.New("invalid password")
)

// GateService guards the UI behind one shared password. The plaintext is
// hashed once at startup and never kept.
type GateService struct {
	hash []byte
}

func NewGateService(password string) (*GateService, error) {
	if password == "" {
		return &GateService{}, nil
	}
	if len(password) > maxPasswordBytes {
		return nil, fmt.Errorf("webapp password longer than %d bytes", maxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash webapp password: %w", err)
	}
	return &GateService{hash: hash}, nil
}

func (s *GateService) Required() bool {
	return len(s.hash) > 0
}

func (s *GateService) Verify(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if !s.Required() {
		return ErrGateNotConfigured
	}
	if len(password) > maxPasswordBytes {
		return ErrInvalidPassword
	}
	if err := bcrypt.CompareHashAndPassword(s.hash, []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

// Check reports whether the gate cookie value passes, and whether the gate
// is on at all. With no password configured every caller is authenticated.
func (s *GateService) Check(cookieValue string) (authenticated, required bool) {
	if !s.Required() {
		return true, false
	}
	return cookieValue == GateCookieValue, true
}
