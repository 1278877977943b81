package cache

import (
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"go.uber.org/zap"
)

// Memcached backs the result cache with an external memcached deployment.
// Expiry is enforced server-side; Status cannot enumerate keys (memcached
// offers no key listing) and reports reachability only.
type Memcached struct {
	client *memcache.Client
	logger *zap.Logger
}

// NewMemcached connects to the given server address.
func NewMemcached(addr string, logger *zap.Logger) *Memcached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memcached{
		client: memcache.New(addr),
		logger: logger,
	}
}

// Get retrieves a value; any client error is treated as a miss.
func (m *Memcached) Get(key string) ([]byte, bool) {
	item, err := m.client.Get(key)
	if err != nil {
		return nil, false
	}
	return item.Value, true
}

// Set stores a value with a server-side TTL.
func (m *Memcached) Set(key string, value []byte, ttl time.Duration) {
	err := m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(ttl.Seconds()),
	})
	if err != nil {
		m.logger.Warn("memcached set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes one entry.
func (m *Memcached) Delete(key string) {
	if err := m.client.Delete(key); err != nil && err != memcache.ErrCacheMiss {
		m.logger.Warn("memcached delete failed", zap.String("key", key), zap.Error(err))
	}
}

// Clear flushes the whole server.
func (m *Memcached) Clear() {
	if err := m.client.FlushAll(); err != nil {
		m.logger.Warn("memcached flush failed", zap.Error(err))
	}
}

// Status reports backend reachability; per-key detail is unavailable.
func (m *Memcached) Status() Status {
	return Status{
		Enabled: m.client.Ping() == nil,
		Backend: "memcached",
		Items:   []Item{},
	}
}
