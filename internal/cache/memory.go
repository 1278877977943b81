package cache

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qnalytics/qna-crawler/internal/crawler"
)

type entry struct {
	value     []byte
	createdAt time.Time
	expiresAt time.Time
}

// Memory is the default in-process cache. Expiry is lazy: a Get (or Status)
// touching a stale entry evicts it; there is no background sweep and no
// size bound.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	clock   crawler.Clock
	logger  *zap.Logger
}

// NewMemory constructs a Memory cache.
func NewMemory(clock crawler.Clock, logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		entries: make(map[string]entry),
		clock:   clock,
		logger:  logger,
	}
}

// Get returns the value for key, evicting and missing if it has expired.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.clock.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set overwrites the entry for key with expiry now + ttl.
func (m *Memory) Set(key string, value []byte, ttl time.Duration) {
	now := m.clock.Now()
	m.mu.Lock()
	m.entries[key] = entry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	m.mu.Unlock()
	m.logger.Debug("cache set", zap.String("key", key), zap.Duration("ttl", ttl))
}

// Delete removes one entry.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	m.logger.Debug("cache entry cleared", zap.String("key", key))
}

// Clear removes everything.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
	m.logger.Info("cache cleared")
}

// Status lists the live entries, evicting any that expired in place.
func (m *Memory) Status() Status {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]Item, 0, len(m.entries))
	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
			continue
		}
		items = append(items, Item{
			Key:       key,
			CreatedAt: e.createdAt,
			ExpiresAt: e.expiresAt,
		})
	}
	return Status{Enabled: true, Backend: "memory", Items: items}
}
