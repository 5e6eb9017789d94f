package billing

import (
	"context"
	"sync"
	"time"
)

// Default profile cache settings.
const (
	DefaultCacheSize = 1000
	DefaultCacheTTL  = 5 * time.Minute
)

// CacheStats holds cache performance statistics
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
}

// cacheEntry wraps a cached profile with expiration time and access time for LRU
type cacheEntry struct {
	profile    CustomerProfile
	expiration time.Time
	accessTime time.Time
	sequence   int64 // tiebreaker when access times are equal
}

// CachedCustomerLookup is a CustomerLookup that keeps recently fetched
// profiles in an LRU cache with TTL. Errors are never cached.
type CachedCustomerLookup struct {
	next    CustomerLookup
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	mu        sync.Mutex
	entries   map[string]*cacheEntry
	hits      int64
	misses    int64
	evictions int64
	sequence  int64
}

// NewCachedCustomerLookup wraps next with a profile cache.
// Non-positive maxSize or ttl fall back to the defaults.
func NewCachedCustomerLookup(next CustomerLookup, maxSize int, ttl time.Duration) *CachedCustomerLookup {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedCustomerLookup{
		next:    next,
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		entries: make(map[string]*cacheEntry, maxSize),
	}
}

// GetCustomer implements CustomerLookup
func (c *CachedCustomerLookup) GetCustomer(ctx context.Context, customerID string) (*CustomerProfile, error) {
	if profile, ok := c.get(customerID); ok {
		return profile, nil
	}

	profile, err := c.next.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if profile != nil {
		c.set(customerID, profile)
	}
	return profile, nil
}

// Invalidate drops a cached profile.
func (c *CachedCustomerLookup) Invalidate(customerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, customerID)
}

// Stats returns cache statistics
func (c *CachedCustomerLookup) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
	}
}

func (c *CachedCustomerLookup) get(customerID string) (*CustomerProfile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry, exists := c.entries[customerID]
	if !exists || now.After(entry.expiration) {
		c.misses++
		return nil, false
	}

	c.sequence++
	entry.accessTime = now
	entry.sequence = c.sequence
	c.hits++
	return copyProfile(&entry.profile), true
}

func (c *CachedCustomerLookup) set(customerID string, profile *CustomerProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[customerID]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	now := c.now()
	c.sequence++
	c.entries[customerID] = &cacheEntry{
		profile:    *copyProfile(profile),
		expiration: now.Add(c.ttl),
		accessTime: now,
		sequence:   c.sequence,
	}
}

// evictOldest removes expired entries first, then the least recently used one.
// Caller must hold mu.
func (c *CachedCustomerLookup) evictOldest() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiration) {
			delete(c.entries, key)
			c.evictions++
		}
	}
	if len(c.entries) < c.maxSize {
		return
	}

	var oldestKey string
	var oldest *cacheEntry
	for key, entry := range c.entries {
		if oldest == nil || entry.accessTime.Before(oldest.accessTime) ||
			(entry.accessTime.Equal(oldest.accessTime) && entry.sequence < oldest.sequence) {
			oldestKey = key
			oldest = entry
		}
	}
	if oldest != nil {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}

func copyProfile(p *CustomerProfile) *CustomerProfile {
	out := &CustomerProfile{Email: p.Email}
	if p.Metadata != nil {
		out.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
