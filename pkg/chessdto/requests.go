package chessdto

type CreateGameRequest struct {
	InvitedPlayerID string `json:"invitedPlayerId,omitempty"`
}

type CreateGameResponse struct {
	GameID string `json:"gameId"`
}

type JoinGameResponse struct {
	GameID string `json:"gameId"`
}

// MoveRequest addresses squares by row (0 = black's back rank) and column (0 = file a).
type MoveRequest struct {
	FromRow int `json:"fromRow"`
	FromCol int `json:"fromCol"`
	ToRow   int `json:"toRow"`
	ToCol   int `json:"toCol"`
}
