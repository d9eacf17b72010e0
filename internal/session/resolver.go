// Package session turns the identity claim carried in the userEmail cookie
// into a user record: warm cache first, then the durable store, creating the
// record on first sight where the caller allows it.
//
// The claim is not a credential. Anyone able to set a cookie for the origin
// can claim any email.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/models"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/store"
)

// CookieName carries the URL-escaped email claim.
const CookieName = "userEmail"

// MaxEmailLength bounds a claim the same way account creation bounds the
// submitted email. Longer claims are treated as no identity at all.
const MaxEmailLength = 320

var (
	ErrNoIdentity       = errors.New("no identity claim")
	ErrUnknownIdentity  = errors.New("no user for identity claim")
	ErrIdentityConflict = errors.New("user record vanished after duplicate create")
)

type Cache interface {
	Get(email string) (*models.User, bool)
	Put(email string, user *models.User)
	Remove(email string)
	Clear()
}

type Resolver struct {
	store store.UserStore
	cache Cache
	// creating serialises the miss path per email so one email never races
	// itself into two Add calls from this process.
	creating keyedMutex
}

func NewResolver(s store.UserStore, c Cache) *Resolver {
	return &Resolver{store: s, cache: c}
}

func usable(email string) bool {
	return email != "" && len(email) <= MaxEmailLength
}

// Claim decodes a raw cookie value. Values that are not valid escapes are
// used as-is. A literal '+' stays a '+'.
func Claim(raw string) string {
	if raw == "" {
		return ""
	}
	email, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return email
}

// EscapeClaim encodes email for the cookie value. Spaces become %20 so
// Claim reverses it exactly.
func EscapeClaim(email string) string {
	return strings.ReplaceAll(url.QueryEscape(email), "+", "%20")
}

// Resolve returns the user for email, creating it when the store has none.
// An empty or overlong email yields ErrNoIdentity.
func (r *Resolver) Resolve(ctx context.Context, email string) (*models.User, error) {
	if !usable(email) {
		return nil, ErrNoIdentity
	}
	user, _, err := r.findOrCreate(ctx, email)
	return user, err
}

// Lookup is Resolve without the create step.
func (r *Resolver) Lookup(ctx context.Context, email string) (*models.User, error) {
	if !usable(email) {
		return nil, ErrNoIdentity
	}
	if user, ok := r.cache.Get(email); ok {
		return user, nil
	}

	user, err := r.store.Find(ctx, email)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, ErrUnknownIdentity
	}
	if err != nil {
		return nil, err
	}
	r.cache.Put(email, user)
	return user, nil
}

// Login is the explicit create-or-login: created reports whether this call
// added the record.
func (r *Resolver) Login(ctx context.Context, email string) (*models.User, bool, error) {
	if !usable(email) {
		return nil, false, ErrNoIdentity
	}
	return r.findOrCreate(ctx, email)
}

// Forget drops email from the warm cache, or everything when email is empty.
func (r *Resolver) Forget(email string) {
	if email == "" {
		r.cache.Clear()
		return
	}
	r.cache.Remove(email)
}

func (r *Resolver) findOrCreate(ctx context.Context, email string) (*models.User, bool, error) {
	if user, ok := r.cache.Get(email); ok {
		return user, false, nil
	}

	unlock := r.creating.lock(email)
	defer unlock()

	user, err := r.store.Find(ctx, email)
	if err == nil {
		r.cache.Put(email, user)
		return user, false, nil
	}
	if !errors.Is(err, store.ErrUserNotFound) {
		return nil, false, err
	}

	user, err = r.store.Add(ctx, email)
	switch {
	case err == nil:
		metrics.UsersCreated.Inc()
		slog.Info("user created", "email", email, "user_id", user.ID)
		r.cache.Put(email, user)
		return user, true, nil

	case errors.Is(err, store.ErrDuplicateIdentity):
		// another process created it between our Find and Add
		user, err = r.store.Find(ctx, email)
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, false, ErrIdentityConflict
		}
		if err != nil {
			return nil, false, err
		}
		r.cache.Put(email, user)
		return user, false, nil
	}
	return nil, false, err
}
