package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryAdapter keeps idempotency keys in process memory. It is used when no
// Redis address is configured.
type MemoryAdapter struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	keys map[string]time.Time
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		ttl:  idempotencyKeyTTL,
		now:  time.Now,
		keys: make(map[string]time.Time),
	}
}

func (m *MemoryAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expiry, ok := m.keys[key]; ok && now.Before(expiry) {
		return false, nil
	}
	m.keys[key] = now.Add(m.ttl)
	return true, nil
}

func (m *MemoryAdapter) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.keys, key)
	return nil
}
