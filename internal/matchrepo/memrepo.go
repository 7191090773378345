package matchrepo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/park285/gungi-arena/internal/domain"
)

// memrepo keeps records in process. Used when DATABASE_URL is unset.
type memrepo struct {
	mu      sync.RWMutex
	nextID  int64
	byMatch map[string]*domain.MatchRecord
}

func NewMemoryRepository() Repository {
	return &memrepo{byMatch: make(map[string]*domain.MatchRecord)}
}

func (m *memrepo) RecordMatch(_ context.Context, rec *domain.MatchRecord) error {
	if rec == nil {
		return fmt.Errorf("nil match record")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	cp.Document = append([]byte(nil), rec.Document...)
	if existing, ok := m.byMatch[rec.MatchID]; ok {
		cp.ID = existing.ID
	} else {
		m.nextID++
		cp.ID = m.nextID
	}
	m.byMatch[rec.MatchID] = &cp
	rec.ID = cp.ID
	return nil
}

func (m *memrepo) GetMatch(_ context.Context, matchID string) (*domain.MatchRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byMatch[matchID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memrepo) RecentMatches(_ context.Context, limit int) ([]*domain.MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	items := make([]*domain.MatchRecord, 0, len(m.byMatch))
	for _, rec := range m.byMatch {
		cp := *rec
		items = append(items, &cp)
	}
	m.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return items[i].ID > items[j].ID
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
