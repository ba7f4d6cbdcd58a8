package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// CachedResponse represents a cached API response
type CachedResponse struct {
	Response  []byte
	Timestamp time.Time
}

// Store is a TTL cache of raw responses. A zero TTL disables it.
type Store struct {
	ttl     time.Duration
	entries sync.Map
	now     func() time.Time
}

// New creates a store whose entries expire after ttl
func New(ttl time.Duration) *Store {
	return &Store{ttl: ttl, now: time.Now}
}

// GenerateCacheKey generates a cache key from request parts
func GenerateCacheKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Get returns a copy of the cached response if present and fresh
func (s *Store) Get(key string) ([]byte, bool) {
	if s == nil || s.ttl <= 0 {
		return nil, false
	}
	val, ok := s.entries.Load(key)
	if !ok {
		return nil, false
	}
	cached := val.(CachedResponse)
	if s.now().Sub(cached.Timestamp) > s.ttl {
		s.entries.Delete(key)
		return nil, false
	}
	return append([]byte(nil), cached.Response...), true
}

// Put stores a copy of response under key
func (s *Store) Put(key string, response []byte) {
	if s == nil || s.ttl <= 0 {
		return
	}
	s.entries.Store(key, CachedResponse{
		Response:  append([]byte(nil), response...),
		Timestamp: s.now(),
	})
}
