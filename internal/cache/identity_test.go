package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityCache_GetPut(t *testing.T) {
	c := NewIdentityCache(10, time.Minute)

	_, ok := c.Get("a@x.com")
	assert.False(t, ok)

	c.Put("a@x.com", &models.User{ID: "1", Email: "a@x.com"})
	user, ok := c.Get("a@x.com")
	require.True(t, ok)
	assert.Equal(t, "1", user.ID)

	assert.Equal(t, Stats{Size: 1, Hits: 1, Misses: 1}, c.Stats())
}

func TestIdentityCache_PutCopies(t *testing.T) {
	c := NewIdentityCache(10, time.Minute)
	user := &models.User{ID: "1", Email: "a@x.com"}
	c.Put("a@x.com", user)
	user.ID = "changed"

	got, ok := c.Get("a@x.com")
	require.True(t, ok)
	assert.Equal(t, "1", got.ID)
}

func TestIdentityCache_PutNilIsIgnored(t *testing.T) {
	c := NewIdentityCache(10, time.Minute)
	c.Put("a@x.com", nil)
	assert.False(t, c.Has("a@x.com"))
}

func TestIdentityCache_HasDoesNotCount(t *testing.T) {
	c := NewIdentityCache(10, time.Minute)
	c.Put("a@x.com", &models.User{ID: "1"})

	assert.True(t, c.Has("a@x.com"))
	assert.False(t, c.Has("b@x.com"))
	assert.Equal(t, uint64(0), c.Stats().Hits)
	assert.Equal(t, uint64(0), c.Stats().Misses)
}

func TestIdentityCache_ClearAndRemove(t *testing.T) {
	c := NewIdentityCache(10, time.Minute)
	c.Put("a@x.com", &models.User{ID: "1"})
	c.Put("b@x.com", &models.User{ID: "2"})

	c.Remove("a@x.com")
	assert.False(t, c.Has("a@x.com"))
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestIdentityCache_EvictsOldest(t *testing.T) {
	c := NewIdentityCache(2, time.Minute)
	for i := range 3 {
		c.Put(fmt.Sprintf("u%d@x.com", i), &models.User{ID: fmt.Sprint(i)})
	}

	assert.Equal(t, 2, c.Len())
	assert.False(t, c.Has("u0@x.com"))
	assert.True(t, c.Has("u2@x.com"))
}

func TestIdentityCache_Expires(t *testing.T) {
	c := NewIdentityCache(10, 20*time.Millisecond)
	c.Put("a@x.com", &models.User{ID: "1"})

	assert.Eventually(t, func() bool {
		_, ok := c.Get("a@x.com")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestNewIdentityCache_Defaults(t *testing.T) {
	c := NewIdentityCache(0, 0)
	for i := range DefaultSize + 5 {
		c.Put(fmt.Sprintf("u%d", i), &models.User{})
	}
	assert.Equal(t, DefaultSize, c.Len())
}
