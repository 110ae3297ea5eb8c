package chessdto

type Square struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Name string `json:"name,omitempty"`
}

// Move is one history entry of a game.
type Move struct {
	From      Square `json:"from"`
	To        Square `json:"to"`
	Piece     string `json:"piece"`
	Captured  string `json:"captured,omitempty"`
	Check     bool   `json:"check"`
	Checkmate bool   `json:"checkmate"`
	Notation  string `json:"notation"`
}

type MoveResponse struct {
	IsCheck     bool `json:"isCheck"`
	IsCheckmate bool `json:"isCheckmate"`
}

type LegalMovesResponse struct {
	From         Square   `json:"from"`
	Destinations []Square `json:"destinations"`
}
