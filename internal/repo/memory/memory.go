package memory

import (
	"context"
	"sync"

	"github.com/hamed0406/siteupbot/internal/domain"
)

type Store struct {
	mu     sync.RWMutex
	latest *domain.Snapshot
}

func New() *Store {
	return &Store{}
}

func (m *Store) Save(ctx context.Context, s domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := s
	if s.LastNotifiedAt != nil {
		t := *s.LastNotifiedAt
		cp.LastNotifiedAt = &t
	}
	m.latest = &cp
	return nil
}

// Latest returns a copy so callers cannot reach into the store.
func (m *Store) Latest(ctx context.Context) (*domain.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.latest == nil {
		return nil, nil
	}
	cp := *m.latest
	if m.latest.LastNotifiedAt != nil {
		t := *m.latest.LastNotifiedAt
		cp.LastNotifiedAt = &t
	}
	return &cp, nil
}
