package pvpchess

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultGameTTL bounds how long an untouched game lives in Redis.
	DefaultGameTTL = 24 * time.Hour

	maxTxRetries = 3
)

// OpenRedis connects to redisURL (redis:// or rediss://) and pings it.
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for redis store")
	}
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// RedisStore keeps each game as JSON under pvp:game:<id>, with a set of game
// ids per participant and a lobby set of waiting games. Writes use
// WATCH/MULTI on the game key.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultGameTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func gameKey(id string) string        { return "pvp:game:" + strings.TrimSpace(id) }
func idxUserKey(userID string) string { return "pvp:index:user:" + strings.TrimSpace(userID) }

const lobbyKey = "pvp:lobby"

// Insert writes the record and its index entries in one MULTI, so a failed
// create leaves nothing behind.
func (s *RedisStore) Insert(ctx context.Context, g *Game) error {
	key := gameKey(g.ID)
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game %s: %w", g.ID, err)
	}
	return s.watch(ctx, key, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrDuplicateGame
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			s.index(ctx, pipe, g)
			return nil
		})
		return err
	})
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Game, error) {
	raw, err := s.rdb.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeGame(id, raw)
}

func (s *RedisStore) Update(ctx context.Context, id string, fn func(g *Game) error) (*Game, error) {
	key := gameKey(id)
	var out *Game
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrGameNotFound
		}
		if err != nil {
			return err
		}
		cur, err := decodeGame(id, raw)
		if err != nil {
			return err
		}
		if err := fn(cur); err != nil {
			return err
		}
		next, err := json.Marshal(cur)
		if err != nil {
			return fmt.Errorf("encode game %s: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, s.ttl)
			s.index(ctx, pipe, cur)
			return nil
		})
		if err != nil {
			return err
		}
		out = cur
		return nil
	}

	if err := s.watch(ctx, key, txf); err != nil {
		return nil, err
	}
	return out, nil
}

// watch runs txf under WATCH key, retrying lost races up to maxTxRetries.
func (s *RedisStore) watch(ctx context.Context, key string, txf func(tx *redis.Tx) error) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConcurrentUpdate
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	key := gameKey(id)
	return s.watch(ctx, key, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		g, err := decodeGame(id, raw)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, lobbyKey, id)
			for _, p := range []string{g.Player1, g.Player2} {
				if p != "" {
					pipe.SRem(ctx, idxUserKey(p), id)
				}
			}
			return nil
		})
		return err
	})
}

func (s *RedisStore) ListWaiting(ctx context.Context, limit int) ([]*Game, error) {
	ids, err := s.rdb.SMembers(ctx, lobbyKey).Result()
	if err != nil {
		return nil, err
	}
	games, stale, err := s.loadMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := games[:0]
	for _, g := range games {
		if g.Status == StatusWaiting {
			out = append(out, g)
		} else {
			stale = append(stale, g.ID)
		}
	}
	if len(stale) > 0 {
		_ = s.rdb.SRem(ctx, lobbyKey, toAny(stale)...).Err()
	}
	return sortRecent(out, limit), nil
}

func (s *RedisStore) ListByPlayer(ctx context.Context, playerID string, limit int) ([]*Game, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return nil, nil
	}
	key := idxUserKey(playerID)
	ids, err := s.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	games, stale, err := s.loadMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := games[:0]
	for _, g := range games {
		if g.IsParticipant(playerID) {
			out = append(out, g)
		}
	}
	if len(stale) > 0 {
		_ = s.rdb.SRem(ctx, key, toAny(stale)...).Err()
	}
	return sortRecent(out, limit), nil
}

// loadMany fetches games by id; ids whose record has expired are returned as stale.
func (s *RedisStore) loadMany(ctx context.Context, ids []string) ([]*Game, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(id)
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, nil, err
	}
	var games []*Game
	var stale []string
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		g, err := decodeGame(ids[i], []byte(raw))
		if err != nil {
			return nil, nil, err
		}
		games = append(games, g)
	}
	return games, stale, nil
}

// index refreshes participant and lobby membership for g inside pipe.
func (s *RedisStore) index(ctx context.Context, pipe redis.Pipeliner, g *Game) {
	for _, p := range []string{g.Player1, g.Player2} {
		if strings.TrimSpace(p) == "" {
			continue
		}
		pipe.SAdd(ctx, idxUserKey(p), g.ID)
		pipe.Expire(ctx, idxUserKey(p), s.ttl)
	}
	if g.Status == StatusWaiting {
		pipe.SAdd(ctx, lobbyKey, g.ID)
	} else {
		pipe.SRem(ctx, lobbyKey, g.ID)
	}
}

func decodeGame(id string, raw []byte) (*Game, error) {
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode game %s: %w", id, err)
	}
	return &g, nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
