package pvpchess

import (
	"strings"
	"time"

	"github.com/park285/cheese-chess/internal/rules"
)

// Status represents a PvP game lifecycle state.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further mutation is accepted in this state.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

// Player is an already-resolved acting identity.
type Player struct {
	ID   string
	Name string
}

// Game is the persisted state of a PvP match. Player1 always plays white.
type Game struct {
	ID            string      `json:"id"`
	Player1       string      `json:"player1"`
	Player1Name   string      `json:"player1_name,omitempty"`
	Player2       string      `json:"player2,omitempty"`
	Player2Name   string      `json:"player2_name,omitempty"`
	InvitedPlayer string      `json:"invited_player,omitempty"`
	Board         rules.Board `json:"board"`
	CurrentTurn   rules.Color `json:"current_turn"`
	MoveHistory   []Move      `json:"move_history"`
	IsCheck       bool        `json:"is_check"`
	IsCheckmate   bool        `json:"is_checkmate"`
	Status        Status      `json:"status"`
	Winner        string      `json:"winner,omitempty"`
	StartedAt     time.Time   `json:"started_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ColorOf returns the side playerID plays in g.
func (g *Game) ColorOf(playerID string) (rules.Color, bool) {
	switch {
	case playerID == "":
		return rules.White, false
	case playerID == g.Player1:
		return rules.White, true
	case playerID == g.Player2:
		return rules.Black, true
	default:
		return rules.White, false
	}
}

// IsParticipant reports whether playerID is player1 or player2.
func (g *Game) IsParticipant(playerID string) bool {
	_, ok := g.ColorOf(playerID)
	return ok
}

// PlayerFor returns the id of the player on side c (empty if unassigned).
func (g *Game) PlayerFor(c rules.Color) string {
	if c == rules.White {
		return g.Player1
	}
	return g.Player2
}

// Clone returns a deep copy of g.
func (g *Game) Clone() *Game {
	c := *g
	c.MoveHistory = append([]Move(nil), g.MoveHistory...)
	if g.CompletedAt != nil {
		t := *g.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Move is an append-only history record.
type Move struct {
	From               rules.Square `json:"from"`
	To                 rules.Square `json:"to"`
	PieceKind          rules.Kind   `json:"piece_kind"`
	CapturedKind       rules.Kind   `json:"captured_kind,omitempty"`
	ResultingCheck     bool         `json:"resulting_check"`
	ResultingCheckmate bool         `json:"resulting_checkmate"`
}

// Notation renders the move in long algebraic form, e.g. "e2-e4" or "Qd8xh4#".
func (mv Move) Notation() string {
	var b strings.Builder
	if mv.PieceKind != rules.Pawn {
		if l := mv.PieceKind.Letter(); l != 0 {
			b.WriteByte(l)
		}
	}
	b.WriteString(mv.From.String())
	if mv.CapturedKind != rules.NoKind {
		b.WriteByte('x')
	} else {
		b.WriteByte('-')
	}
	b.WriteString(mv.To.String())
	switch {
	case mv.ResultingCheckmate:
		b.WriteByte('#')
	case mv.ResultingCheck:
		b.WriteByte('+')
	}
	return b.String()
}

// MoveOutcome is the effect of an accepted move visible to the mover.
type MoveOutcome struct {
	IsCheck     bool `json:"isCheck"`
	IsCheckmate bool `json:"isCheckmate"`
}
