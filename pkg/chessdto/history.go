package chessdto

// GameList is returned by the active and my-games listings.
type GameList struct {
	Games []*Game `json:"games"`
}
