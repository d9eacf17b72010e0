package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/cache"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/models"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileResolver(t *testing.T) (*Resolver, *store.FileStore, *cache.IdentityCache) {
	t.Helper()
	s, err := store.NewFileStore(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	c := cache.NewIdentityCache(100, time.Minute)
	return NewResolver(s, c), s, c
}

func TestResolve_EmptyClaim(t *testing.T) {
	r, _, _ := newFileResolver(t)

	_, err := r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoIdentity)
	_, err = r.Lookup(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoIdentity)
	_, _, err = r.Login(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestResolve_OverlongClaim(t *testing.T) {
	ctx := context.Background()
	r, s, _ := newFileResolver(t)
	long := strings.Repeat("a", MaxEmailLength-len("@x.com")+1) + "@x.com"

	_, err := r.Resolve(ctx, long)
	assert.ErrorIs(t, err, ErrNoIdentity)
	_, err = r.Lookup(ctx, long)
	assert.ErrorIs(t, err, ErrNoIdentity)
	_, _, err = r.Login(ctx, long)
	assert.ErrorIs(t, err, ErrNoIdentity)

	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	atLimit := long[1:]
	require.Len(t, atLimit, MaxEmailLength)
	_, err = r.Resolve(ctx, atLimit)
	assert.NoError(t, err)
}

func TestResolve_CreatesOnFirstSight(t *testing.T) {
	ctx := context.Background()
	r, s, c := newFileResolver(t)

	_, err := s.Add(ctx, "other@x.com")
	require.NoError(t, err)

	user, err := r.Resolve(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.True(t, c.Has("a@x.com"))

	again, err := r.Resolve(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestResolve_StoreHitPopulatesCache(t *testing.T) {
	ctx := context.Background()
	r, s, c := newFileResolver(t)

	existing, err := s.Add(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, c.Has("a@x.com"))

	user, err := r.Resolve(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.True(t, c.Has("a@x.com"))
}

func TestResolve_ConcurrentCreatesOneRecord(t *testing.T) {
	ctx := context.Background()
	r, s, _ := newFileResolver(t)

	const workers = 16
	ids := make([]string, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, err := r.Resolve(ctx, "race@x.com")
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			ids[i] = user.ID
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestLogin_ReportsCreated(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newFileResolver(t)

	first, created, err := r.Login(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := r.Login(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestLogin_ConcurrentOnlyOneCreated(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newFileResolver(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, c, err := r.Login(ctx, "a@x.com")
			if err != nil {
				t.Errorf("login: %v", err)
				return
			}
			if c {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
}

func TestResolve_SlowCreateDoesNotBlockOtherEmails(t *testing.T) {
	ctx := context.Background()
	st := &blockingStore{
		slow:    "slow@x.com",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := NewResolver(st, cache.NewIdentityCache(10, time.Minute))

	slowDone := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, "slow@x.com")
		slowDone <- err
	}()
	<-st.entered

	fastDone := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, "fast@x.com")
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("resolve for another email waited on the slow create")
	}

	close(st.release)
	require.NoError(t, <-slowDone)
	assert.Zero(t, r.creating.size())
}

func TestKeyedMutex_SameKeyExcludes(t *testing.T) {
	var k keyedMutex
	unlock := k.lock("a")

	acquired := make(chan struct{})
	go func() {
		release := k.lock("a")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(50 * time.Millisecond):
	}

	other := k.lock("b")
	other()

	unlock()
	<-acquired
	assert.Eventually(t, func() bool { return k.size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestLookup_DoesNotCreate(t *testing.T) {
	ctx := context.Background()
	r, s, _ := newFileResolver(t)

	_, err := r.Lookup(ctx, "a@x.com")
	assert.ErrorIs(t, err, ErrUnknownIdentity)

	users, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestLookup_CacheServesWithoutStore(t *testing.T) {
	st := &stubStore{findErr: errors.New("store down")}
	c := cache.NewIdentityCache(10, time.Minute)
	c.Put("a@x.com", &models.User{ID: "1", Email: "a@x.com"})
	r := NewResolver(st, c)

	user, err := r.Lookup(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "1", user.ID)
	assert.Zero(t, st.finds)
}

func TestResolve_StoreFailure(t *testing.T) {
	st := &stubStore{findErr: store.ErrStore}
	r := NewResolver(st, cache.NewIdentityCache(10, time.Minute))

	_, err := r.Resolve(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, store.ErrStore)
}

func TestResolve_DuplicateCollapsesIntoReread(t *testing.T) {
	existing := &models.User{ID: "winner", Email: "a@x.com"}
	st := &stubStore{
		findSeq: []findResult{{err: store.ErrUserNotFound}, {user: existing}},
		addErr:  store.ErrDuplicateIdentity,
	}
	r := NewResolver(st, cache.NewIdentityCache(10, time.Minute))

	user, created, err := r.Login(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "winner", user.ID)
}

func TestResolve_DuplicateThenMissingIsConflict(t *testing.T) {
	st := &stubStore{
		findSeq: []findResult{{err: store.ErrUserNotFound}, {err: store.ErrUserNotFound}},
		addErr:  store.ErrDuplicateIdentity,
	}
	r := NewResolver(st, cache.NewIdentityCache(10, time.Minute))

	_, err := r.Resolve(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, ErrIdentityConflict)
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	r, _, c := newFileResolver(t)

	_, err := r.Resolve(ctx, "a@x.com")
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "b@x.com")
	require.NoError(t, err)

	r.Forget("a@x.com")
	assert.False(t, c.Has("a@x.com"))
	assert.True(t, c.Has("b@x.com"))

	r.Forget("")
	assert.Zero(t, c.Len())
}

func TestClaim(t *testing.T) {
	assert.Equal(t, "", Claim(""))
	assert.Equal(t, "a+b@x.com", Claim("a%2Bb%40x.com"))
	assert.Equal(t, "a@x.com", Claim("a@x.com"))
	assert.Equal(t, "a+b@x.com", Claim("a+b@x.com"))
	assert.Equal(t, "bad%zz", Claim("bad%zz"))
}

func TestEscapeClaim_RoundTrip(t *testing.T) {
	for _, email := range []string{"a@x.com", "a+tag@x.com", "odd name@x.com", "semi;colon@x.com"} {
		escaped := EscapeClaim(email)
		assert.NotContains(t, escaped, ";")
		assert.NotContains(t, escaped, " ")
		assert.Equal(t, email, Claim(escaped))
	}
	assert.Equal(t, "a%2Bb%40x.com", EscapeClaim("a+b@x.com"))
}

type findResult struct {
	user *models.User
	err  error
}

type stubStore struct {
	mu      sync.Mutex
	findSeq []findResult
	findErr error
	addErr  error
	finds   int
}

func (s *stubStore) Find(context.Context, string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if s.findErr != nil {
		return nil, s.findErr
	}
	next := s.findSeq[0]
	s.findSeq = s.findSeq[1:]
	return next.user, next.err
}

func (s *stubStore) Add(_ context.Context, email string) (*models.User, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}
	return &models.User{ID: "new", Email: email}, nil
}

func (s *stubStore) List(context.Context) ([]models.User, error)  { return nil, nil }
func (s *stubStore) Remove(context.Context, string) (bool, error) { return false, nil }
func (s *stubStore) Ping(context.Context) error                   { return nil }
func (s *stubStore) Close() error                                 { return nil }

// blockingStore never finds anyone and holds Add for the slow email until
// release is closed.
type blockingStore struct {
	stubStore
	slow    string
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStore) Find(context.Context, string) (*models.User, error) {
	return nil, store.ErrUserNotFound
}

func (s *blockingStore) Add(_ context.Context, email string) (*models.User, error) {
	if email == s.slow {
		close(s.entered)
		<-s.release
	}
	return &models.User{ID: email, Email: email}, nil
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
