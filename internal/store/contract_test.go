package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testContract runs the behaviour every backend must share.
func testContract(t *testing.T, open func(t *testing.T) UserStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		s := open(t)
		assert.NoError(t, s.Ping(ctx))
	})

	t.Run("find missing", func(t *testing.T) {
		s := open(t)
		_, err := s.Find(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("add then find", func(t *testing.T) {
		s := open(t)
		created, err := s.Add(ctx, "a@x.com")
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "a@x.com", created.Email)
		assert.False(t, created.CreatedAt.IsZero())

		found, err := s.Find(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, created.Email, found.Email)
	})

	t.Run("duplicate add is rejected", func(t *testing.T) {
		s := open(t)
		first, err := s.Add(ctx, "dup@x.com")
		require.NoError(t, err)

		_, err = s.Add(ctx, "dup@x.com")
		assert.ErrorIs(t, err, ErrDuplicateIdentity)

		found, err := s.Find(ctx, "dup@x.com")
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)
	})

	t.Run("emails are case sensitive", func(t *testing.T) {
		s := open(t)
		_, err := s.Add(ctx, "Case@x.com")
		require.NoError(t, err)
		_, err = s.Find(ctx, "case@x.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("list and remove", func(t *testing.T) {
		s := open(t)
		users, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, users)

		for _, email := range []string{"b@x.com", "a@x.com", "c@x.com"} {
			_, err := s.Add(ctx, email)
			require.NoError(t, err)
		}

		users, err = s.List(ctx)
		require.NoError(t, err)
		emails := make([]string, 0, len(users))
		for _, u := range users {
			emails = append(emails, u.Email)
		}
		sort.Strings(emails)
		assert.Equal(t, []string{"a@x.com", "b@x.com", "c@x.com"}, emails)

		removed, err := s.Remove(ctx, "b@x.com")
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = s.Remove(ctx, "b@x.com")
		require.NoError(t, err)
		assert.False(t, removed)

		_, err = s.Find(ctx, "b@x.com")
		assert.ErrorIs(t, err, ErrUserNotFound)

		users, err = s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("concurrent adds create one record", func(t *testing.T) {
		s := open(t)
		const workers = 8

		var wg sync.WaitGroup
		var mu sync.Mutex
		succeeded := 0
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Add(ctx, "race@x.com")
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
					return
				}
				if !errors.Is(err, ErrDuplicateIdentity) {
					t.Errorf("unexpected add error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, succeeded)
		users, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 1)
	})
}
