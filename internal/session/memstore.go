package session

import (
	"context"
	"strings"
	"sync"
)

// memstore is an in-process Store used by the CLI and tests.
type memstore struct {
	mu       sync.Mutex
	sessions map[string]*Payload
}

func NewMemoryStore() Store {
	return &memstore{
		sessions: make(map[string]*Payload),
	}
}

func (m *memstore) Create(ctx context.Context, p *Payload) error {
	if p == nil {
		return nil
	}
	key := strings.TrimSpace(p.SessionUUID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[key]; exists {
		return ErrSessionExists
	}
	m.sessions[key] = p.clone()
	return nil
}

func (m *memstore) Load(ctx context.Context, id string) (*Payload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.sessions[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return p.clone(), nil
}

func (m *memstore) Update(ctx context.Context, id string, fn func(p *Payload) error) (*Payload, error) {
	key := strings.TrimSpace(id)
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[key]
	if !ok {
		return nil, ErrSessionNotFound
	}
	work := cur.clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	m.sessions[key] = work.clone()
	return work, nil
}

func (m *memstore) Close() error { return nil }
