package rules

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Size is the number of rows and columns on the board.
const Size = 8

// Square addresses a cell. Row 0 is black's back rank, row 7 is white's;
// Col 0..7 are files a..h.
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// InBounds reports whether s lies on the 8x8 board.
func (s Square) InBounds() bool {
	return s.Row >= 0 && s.Row < Size && s.Col >= 0 && s.Col < Size
}

// String renders the algebraic name of the square (e.g. "e2").
func (s Square) String() string {
	if !s.InBounds() {
		return fmt.Sprintf("(%d,%d)", s.Row, s.Col)
	}
	return string([]byte{byte('a' + s.Col), byte('8' - s.Row)})
}

// ParseSquare parses an algebraic square name such as "e2".
func ParseSquare(name string) (Square, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) != 2 || name[0] < 'a' || name[0] > 'h' || name[1] < '1' || name[1] > '8' {
		return Square{}, fmt.Errorf("invalid square %q", name)
	}
	return Square{Row: int('8' - name[1]), Col: int(name[0] - 'a')}, nil
}

// Board is a fixed 64-cell grid indexed by row*8+col.
// All access outside this file goes through Get and Set.
type Board struct {
	cells [Size * Size]Piece
}

var backRank = [Size]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// InitialBoard returns the standard starting arrangement.
func InitialBoard() Board {
	var b Board
	for col := 0; col < Size; col++ {
		b.Set(0, col, Piece{Kind: backRank[col], Color: Black})
		b.Set(1, col, Piece{Kind: Pawn, Color: Black})
		b.Set(6, col, Piece{Kind: Pawn, Color: White})
		b.Set(7, col, Piece{Kind: backRank[col], Color: White})
	}
	return b
}

// Get returns the piece at (row, col) and whether the cell is occupied.
// Out-of-range coordinates read as empty.
func (b *Board) Get(row, col int) (Piece, bool) {
	if !(Square{Row: row, Col: col}).InBounds() {
		return Piece{}, false
	}
	p := b.cells[row*Size+col]
	return p, !p.IsZero()
}

// Set stores p at (row, col). A zero Piece clears the cell.
// Out-of-range coordinates are ignored.
func (b *Board) Set(row, col int, p Piece) {
	if !(Square{Row: row, Col: col}).InBounds() {
		return
	}
	b.cells[row*Size+col] = p
}

// At is Get addressed by Square.
func (b *Board) At(sq Square) (Piece, bool) { return b.Get(sq.Row, sq.Col) }

// Equal reports whether both boards hold the same pieces, moved flags included.
func (b Board) Equal(o Board) bool { return b.cells == o.cells }

// Clone returns an independent copy of the board.
func (b *Board) Clone() *Board {
	c := *b
	return &c
}

// Apply relocates the piece on from to to, capturing any occupant of to, and
// marks the moved piece as having moved. It returns the captured piece (zero
// if the destination was empty). Apply does not check legality.
func (b *Board) Apply(from, to Square) Piece {
	p, ok := b.At(from)
	if !ok {
		return Piece{}
	}
	captured, _ := b.At(to)
	p.HasMoved = true
	b.Set(to.Row, to.Col, p)
	b.Set(from.Row, from.Col, Piece{})
	return captured
}

// Squares returns every occupied square holding a piece of color c,
// in row-major order.
func (b *Board) Squares(c Color) []Square {
	var out []Square
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if p, ok := b.Get(row, col); ok && p.Color == c {
				out = append(out, Square{Row: row, Col: col})
			}
		}
	}
	return out
}

// Placement renders the FEN piece-placement field, row 0 first.
func (b *Board) Placement() string {
	var sb strings.Builder
	for row := 0; row < Size; row++ {
		empty := 0
		for col := 0; col < Size; col++ {
			p, ok := b.Get(row, col)
			if !ok {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(p.fenLetter())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if row < Size-1 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// ParsePlacement builds a board from a FEN piece-placement field. Any trailing
// FEN fields after a space are ignored. Parsed pieces have HasMoved unset.
func ParsePlacement(fen string) (*Board, error) {
	if i := strings.IndexByte(fen, ' '); i >= 0 {
		fen = fen[:i]
	}
	ranks := strings.Split(strings.TrimSpace(fen), "/")
	if len(ranks) != Size {
		return nil, fmt.Errorf("placement %q: want %d ranks, got %d", fen, Size, len(ranks))
	}
	var b Board
	for row, rank := range ranks {
		col := 0
		for i := 0; i < len(rank); i++ {
			c := rank[i]
			if c >= '1' && c <= '8' {
				col += int(c - '0')
				continue
			}
			kind := kindFromLetter(c)
			if kind == NoKind {
				return nil, fmt.Errorf("placement %q: invalid piece %q", fen, c)
			}
			if col >= Size {
				return nil, fmt.Errorf("placement %q: rank %d overflows", fen, row)
			}
			color := White
			if c >= 'a' && c <= 'z' {
				color = Black
			}
			b.Set(row, col, Piece{Kind: kind, Color: color})
			col++
		}
		if col != Size {
			return nil, fmt.Errorf("placement %q: rank %d has %d files", fen, row, col)
		}
	}
	return &b, nil
}

type boardJSON struct {
	Placement string   `json:"placement"`
	Moved     []string `json:"moved,omitempty"`
}

// MarshalJSON encodes the board as its placement plus the squares whose
// piece has already moved.
func (b Board) MarshalJSON() ([]byte, error) {
	out := boardJSON{Placement: b.Placement()}
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if p, ok := b.Get(row, col); ok && p.HasMoved {
				out.Moved = append(out.Moved, Square{Row: row, Col: col}.String())
			}
		}
	}
	sort.Strings(out.Moved)
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (b *Board) UnmarshalJSON(data []byte) error {
	var in boardJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	parsed, err := ParsePlacement(in.Placement)
	if err != nil {
		return err
	}
	for _, name := range in.Moved {
		sq, err := ParseSquare(name)
		if err != nil {
			return err
		}
		p, ok := parsed.At(sq)
		if !ok {
			return fmt.Errorf("moved flag on empty square %s", name)
		}
		p.HasMoved = true
		parsed.Set(sq.Row, sq.Col, p)
	}
	*b = *parsed
	return nil
}
