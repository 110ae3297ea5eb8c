package chessdto

import "time"

// Piece occupies a board cell; an empty cell is encoded as null.
type Piece struct {
	Kind     string `json:"kind"`
	Color    string `json:"color"`
	HasMoved bool   `json:"hasMoved"`
}

// Game is the read model returned by getGame and the list endpoints.
type Game struct {
	ID            string       `json:"id"`
	Player1       Player       `json:"player1"`
	Player2       *Player      `json:"player2"`
	InvitedPlayer string       `json:"invitedPlayer,omitempty"`
	Board         [8][8]*Piece `json:"board"`
	Placement     string       `json:"placement"`
	CurrentTurn   string       `json:"currentTurn"`
	MoveHistory   []Move       `json:"moveHistory"`
	IsCheck       bool         `json:"isCheck"`
	IsCheckmate   bool         `json:"isCheckmate"`
	Status        string       `json:"status"`
	Winner        string       `json:"winner,omitempty"`
	StartedAt     time.Time    `json:"startedAt"`
	CompletedAt   *time.Time   `json:"completedAt,omitempty"`
}
