package session

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process. The HTTP server uses it when no
// redis URL is configured.
type MemoryStore struct {
	sessions sync.Map
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	cp := *s
	m.sessions.Store(s.Token, &cp)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, token string) (*Session, error) {
	v, ok := m.sessions.Load(token)
	if !ok {
		return nil, ErrNotFound
	}
	cp := *v.(*Session)
	return &cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.sessions.Delete(token)
	return nil
}
