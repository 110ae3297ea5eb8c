package pvpchess

import (
	"context"
	"sort"
)

// Store persists Game records keyed by id. Update must serialize writers per
// id: fn runs against the current record and its result is written only if no
// other writer committed in between. When fn returns an error nothing is
// written and that error is returned unchanged.
type Store interface {
	Insert(ctx context.Context, g *Game) error
	Get(ctx context.Context, id string) (*Game, error)
	Update(ctx context.Context, id string, fn func(g *Game) error) (*Game, error)
	Delete(ctx context.Context, id string) error
	ListWaiting(ctx context.Context, limit int) ([]*Game, error)
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]*Game, error)
}

// sortRecent orders games most recently updated first and trims to limit
// (limit <= 0 means unbounded).
func sortRecent(games []*Game, limit int) []*Game {
	sort.Slice(games, func(i, j int) bool {
		if !games[i].UpdatedAt.Equal(games[j].UpdatedAt) {
			return games[i].UpdatedAt.After(games[j].UpdatedAt)
		}
		return games[i].ID < games[j].ID
	})
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return games
}
