package pvpchess

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository archives finished games into Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

const schema = `CREATE TABLE IF NOT EXISTS pvp_games (
	game_id       TEXT PRIMARY KEY,
	player1_id    TEXT NOT NULL,
	player1_name  TEXT NOT NULL DEFAULT '',
	player2_id    TEXT NOT NULL DEFAULT '',
	player2_name  TEXT NOT NULL DEFAULT '',
	invited_id    TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	result        TEXT NOT NULL,
	result_method TEXT NOT NULL,
	winner_id     TEXT NOT NULL DEFAULT '',
	moves         JSONB NOT NULL,
	movetext      TEXT NOT NULL,
	started_at    TIMESTAMPTZ NOT NULL,
	ended_at      TIMESTAMPTZ NOT NULL,
	duration_ms   BIGINT NOT NULL
)`

// Migrate creates the archive table if it does not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create pvp_games: %w", err)
	}
	return nil
}

// SaveResult upserts the summary of a terminal game.
func (r *Repository) SaveResult(ctx context.Context, g *Game, method string) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	result := resultToken(g)
	notations := make([]string, len(g.MoveHistory))
	for i, mv := range g.MoveHistory {
		notations[i] = mv.Notation()
	}
	movesRaw, err := json.Marshal(notations)
	if err != nil {
		return err
	}
	ended := g.UpdatedAt
	if g.CompletedAt != nil {
		ended = *g.CompletedAt
	}
	duration := ended.Sub(g.StartedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO pvp_games (
        game_id, player1_id, player1_name, player2_id, player2_name, invited_id,
        status, result, result_method, winner_id, moves, movetext,
        started_at, ended_at, duration_ms
      ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15
      ) ON CONFLICT (game_id) DO UPDATE SET
        player2_id=EXCLUDED.player2_id,
        player2_name=EXCLUDED.player2_name,
        status=EXCLUDED.status,
        result=EXCLUDED.result,
        result_method=EXCLUDED.result_method,
        winner_id=EXCLUDED.winner_id,
        moves=EXCLUDED.moves,
        movetext=EXCLUDED.movetext,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		g.ID,
		g.Player1, g.Player1Name,
		g.Player2, g.Player2Name,
		g.InvitedPlayer,
		string(g.Status), result, strings.TrimSpace(method), g.Winner,
		string(movesRaw), buildMovetext(g, result, method),
		g.StartedAt, ended, duration,
	)
	return err
}

// resultToken maps the game outcome onto the PGN result field.
func resultToken(g *Game) string {
	if g.Status != StatusCompleted || g.Winner == "" {
		return "*"
	}
	if g.Winner == g.Player1 {
		return "1-0"
	}
	return "0-1"
}

// buildMovetext renders PGN-style tag pairs and numbered long-algebraic moves.
func buildMovetext(g *Game, result, method string) string {
	var b strings.Builder
	date := g.StartedAt
	if date.IsZero() {
		date = time.Now()
	}
	fmt.Fprintf(&b, "[Event \"PvP\"]\n")
	fmt.Fprintf(&b, "[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day())
	fmt.Fprintf(&b, "[White \"%s\"]\n", sanitizePGN(displayName(g.Player1Name, g.Player1)))
	fmt.Fprintf(&b, "[Black \"%s\"]\n", sanitizePGN(displayName(g.Player2Name, g.Player2)))
	if m := strings.TrimSpace(method); m != "" {
		fmt.Fprintf(&b, "[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(m)))
	}
	fmt.Fprintf(&b, "[Result \"%s\"]\n\n", result)

	for i := 0; i < len(g.MoveHistory); i += 2 {
		fmt.Fprintf(&b, "%d. %s ", i/2+1, g.MoveHistory[i].Notation())
		if i+1 < len(g.MoveHistory) {
			b.WriteString(g.MoveHistory[i+1].Notation())
			b.WriteByte(' ')
		}
	}
	b.WriteString(result)
	return b.String()
}

func displayName(name, id string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	if id == "" {
		return "?"
	}
	return id
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
