package chessdto

// Player is a participant with its display identity.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}
