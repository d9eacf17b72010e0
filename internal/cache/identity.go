// Package cache holds the in-process warm identity cache that sits in front
// of the durable user store. It is never authoritative: a miss always falls
// through to the store, and a restart simply starts cold.
package cache

import (
	"sync/atomic"
	"time"

	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/sonar-webapp/internal/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultSize = 1000
	DefaultTTL  = 30 * time.Minute
)

type Stats struct {
	Size   int    `json:"size"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// IdentityCache maps email to user record with bounded size and expiry.
type IdentityCache struct {
	lru    *expirable.LRU[string, models.User]
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewIdentityCache(size int, ttl time.Duration) *IdentityCache {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &IdentityCache{
		lru: expirable.NewLRU[string, models.User](size, nil, ttl),
	}
}

func (c *IdentityCache) Get(email string) (*models.User, bool) {
	user, ok := c.lru.Get(email)
	metrics.RecordCacheLookup(ok)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &user, true
}

// Put stores a copy so later changes to user do not leak into the cache.
func (c *IdentityCache) Put(email string, user *models.User) {
	if user == nil {
		return
	}
	c.lru.Add(email, *user)
}

// Has reports presence without touching recency or the hit counters.
func (c *IdentityCache) Has(email string) bool {
	_, ok := c.lru.Peek(email)
	return ok
}

func (c *IdentityCache) Remove(email string) {
	c.lru.Remove(email)
}

func (c *IdentityCache) Clear() {
	c.lru.Purge()
}

func (c *IdentityCache) Len() int {
	return c.lru.Len()
}

func (c *IdentityCache) Stats() Stats {
	return Stats{
		Size:   c.lru.Len(),
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}
