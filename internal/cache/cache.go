// Package cache provides the time-boxed result cache fronting repeated
// analytics queries.
package cache

import (
	"fmt"
	"strings"
	"time"
)

// Service is a generic TTL cache over opaque payloads. Implementations
// must be safe for concurrent use.
type Service interface {
	// Get retrieves a live value; a read past its TTL behaves as a miss.
	Get(key string) ([]byte, bool)
	// Set stores a value, overwriting any existing entry for the key with a
	// fresh expiry of now + ttl.
	Set(key string, value []byte, ttl time.Duration)
	// Delete removes a single entry.
	Delete(key string)
	// Clear removes every entry.
	Clear()
	// Status summarizes the live entries.
	Status() Status
}

// Status describes the cache contents for the system endpoint.
type Status struct {
	Enabled bool   `json:"cache_enabled"`
	Backend string `json:"backend"`
	Items   []Item `json:"items"`
}

// Item is one live entry's metadata.
type Item struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Key derives a deterministic cache key from an analytics kind and its
// effective parameters, so distinct parameterizations never collide.
func Key(kind string, params ...any) string {
	if len(params) == 0 {
		return kind
	}
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, kind)
	for _, p := range params {
		parts = append(parts, fmt.Sprintf("%v", p))
	}
	return strings.Join(parts, ":")
}
