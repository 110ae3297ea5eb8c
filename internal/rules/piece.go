// Package rules implements the chess rules used by PvP games: the board model,
// geometric move legality, attack and check detection, and checkmate search.
//
// The rule set is deliberately reduced: there is no castling, en passant,
// promotion, or draw detection. Checkmate is the only rules outcome.
package rules

import "fmt"

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// MarshalText encodes the color as "white" or "black".
func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(text []byte) error {
	v, ok := ParseColor(string(text))
	if !ok {
		return fmt.Errorf("invalid color %q", text)
	}
	*c = v
	return nil
}

// ParseColor accepts "white"/"w" and "black"/"b".
func ParseColor(s string) (Color, bool) {
	switch s {
	case "white", "w":
		return White, true
	case "black", "b":
		return Black, true
	default:
		return White, false
	}
}

// Kind is a piece type. NoKind marks an empty cell.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Rook
	Knight
	Bishop
	Queen
	King
)

var kindNames = [...]string{
	NoKind: "",
	Pawn:   "pawn",
	Rook:   "rook",
	Knight: "knight",
	Bishop: "bishop",
	Queen:  "queen",
	King:   "king",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return ""
}

// Letter returns the upper-case FEN letter of the kind, or 0 for NoKind.
func (k Kind) Letter() byte {
	switch k {
	case Pawn:
		return 'P'
	case Rook:
		return 'R'
	case Knight:
		return 'N'
	case Bishop:
		return 'B'
	case Queen:
		return 'Q'
	case King:
		return 'K'
	default:
		return 0
	}
}

// ParseKind maps a kind name back to its value.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name != "" && name == s {
			return Kind(k), true
		}
	}
	return NoKind, false
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText accepts a kind name; empty text decodes to NoKind.
func (k *Kind) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = NoKind
		return nil
	}
	v, ok := ParseKind(string(text))
	if !ok {
		return fmt.Errorf("invalid piece kind %q", text)
	}
	*k = v
	return nil
}

func kindFromLetter(c byte) Kind {
	switch c {
	case 'P', 'p':
		return Pawn
	case 'R', 'r':
		return Rook
	case 'N', 'n':
		return Knight
	case 'B', 'b':
		return Bishop
	case 'Q', 'q':
		return Queen
	case 'K', 'k':
		return King
	default:
		return NoKind
	}
}

// Piece occupies a board cell. The zero value is an empty cell.
// HasMoved flips once, the first time the piece is relocated.
type Piece struct {
	Kind     Kind
	Color    Color
	HasMoved bool
}

// IsZero reports whether p represents an empty cell.
func (p Piece) IsZero() bool { return p.Kind == NoKind }

func (p Piece) fenLetter() byte {
	l := p.Kind.Letter()
	if p.Color == Black && l != 0 {
		l += 'a' - 'A'
	}
	return l
}
