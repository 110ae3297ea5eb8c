package pvpchess

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is a process-local Store used when no Redis is configured.
// A single mutex serializes all writers.
type MemoryStore struct {
	mu    sync.RWMutex
	games map[string]*Game
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{games: make(map[string]*Game)}
}

func (m *MemoryStore) Insert(_ context.Context, g *Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.games[g.ID]; exists {
		return ErrDuplicateGame
	}
	m.games[g.ID] = g.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.games[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrGameNotFound
	}
	return g.Clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fn func(g *Game) error) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id = strings.TrimSpace(id)
	cur, ok := m.games[id]
	if !ok {
		return nil, ErrGameNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	m.games[id] = next
	return next.Clone(), nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.games, strings.TrimSpace(id))
	return nil
}

func (m *MemoryStore) ListWaiting(_ context.Context, limit int) ([]*Game, error) {
	return m.list(limit, func(g *Game) bool { return g.Status == StatusWaiting }), nil
}

func (m *MemoryStore) ListByPlayer(_ context.Context, playerID string, limit int) ([]*Game, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, nil
	}
	return m.list(limit, func(g *Game) bool { return g.IsParticipant(playerID) }), nil
}

func (m *MemoryStore) list(limit int, keep func(*Game) bool) []*Game {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Game
	for _, g := range m.games {
		if keep(g) {
			out = append(out, g.Clone())
		}
	}
	return sortRecent(out, limit)
}
