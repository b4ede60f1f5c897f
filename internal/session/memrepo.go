package session

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/park285/boardwatch/internal/domain"
)

// memrepo keeps move records in memory when no database is configured.
type memrepo struct {
	mu        sync.RWMutex
	nextID    int64
	bySession map[string][]*domain.MoveRecord
}

func NewMemoryRepository() Repository {
	return &memrepo{bySession: make(map[string][]*domain.MoveRecord)}
}

func (m *memrepo) InsertMove(ctx context.Context, rec *domain.MoveRecord) (int64, error) {
	if rec == nil {
		return 0, ErrDuplicateRecord
	}
	key := strings.TrimSpace(rec.SessionUUID)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.bySession[key] {
		if existing.Seq == rec.Seq {
			return 0, ErrDuplicateRecord
		}
	}
	m.nextID++
	rc := *rec
	rc.ID = m.nextID
	rc.Changes = append([]string(nil), rec.Changes...)
	m.bySession[key] = append(m.bySession[key], &rc)
	return rc.ID, nil
}

func (m *memrepo) RecentMoves(ctx context.Context, sessionUUID string, limit int) ([]*domain.MoveRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.bySession[strings.TrimSpace(sessionUUID)]
	items := make([]*domain.MoveRecord, 0, len(list))
	for _, rec := range list {
		rc := *rec
		rc.Changes = append([]string(nil), rec.Changes...)
		items = append(items, &rc)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Seq > items[j].Seq })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) Close() error { return nil }
