package pvpchess

import (
	"github.com/park285/cheese-chess/internal/rules"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

// ToDTO converts a game into its wire read model.
func ToDTO(g *Game) *chessdto.Game {
	if g == nil {
		return nil
	}
	out := &chessdto.Game{
		ID:            g.ID,
		Player1:       chessdto.Player{ID: g.Player1, Name: g.Player1Name},
		InvitedPlayer: g.InvitedPlayer,
		Placement:     g.Board.Placement(),
		CurrentTurn:   g.CurrentTurn.String(),
		MoveHistory:   make([]chessdto.Move, len(g.MoveHistory)),
		IsCheck:       g.IsCheck,
		IsCheckmate:   g.IsCheckmate,
		Status:        string(g.Status),
		Winner:        g.Winner,
		StartedAt:     g.StartedAt,
		CompletedAt:   g.CompletedAt,
	}
	if g.Player2 != "" {
		out.Player2 = &chessdto.Player{ID: g.Player2, Name: g.Player2Name}
	}
	for row := 0; row < rules.Size; row++ {
		for col := 0; col < rules.Size; col++ {
			if p, ok := g.Board.Get(row, col); ok {
				out.Board[row][col] = &chessdto.Piece{Kind: p.Kind.String(), Color: p.Color.String(), HasMoved: p.HasMoved}
			}
		}
	}
	for i, mv := range g.MoveHistory {
		out.MoveHistory[i] = chessdto.Move{
			From:      SquareDTO(mv.From),
			To:        SquareDTO(mv.To),
			Piece:     mv.PieceKind.String(),
			Captured:  mv.CapturedKind.String(),
			Check:     mv.ResultingCheck,
			Checkmate: mv.ResultingCheckmate,
			Notation:  mv.Notation(),
		}
	}
	return out
}

// ToDTOs converts a list of games, preserving order.
func ToDTOs(games []*Game) []*chessdto.Game {
	out := make([]*chessdto.Game, 0, len(games))
	for _, g := range games {
		out = append(out, ToDTO(g))
	}
	return out
}

func SquareDTO(sq rules.Square) chessdto.Square {
	return chessdto.Square{Row: sq.Row, Col: sq.Col, Name: sq.String()}
}
