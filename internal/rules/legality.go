package rules

// IsLegalMove reports whether the piece on from may move to to according to
// its movement geometry, path clearance and capture rules. It does not
// consider whether the move leaves the mover's own king in check.
//
// from must hold a piece and to must be on the board; otherwise the move is
// reported illegal.
func IsLegalMove(b *Board, from, to Square) bool {
	p, ok := b.At(from)
	if !ok || !to.InBounds() || from == to {
		return false
	}
	if target, occupied := b.At(to); occupied && target.Color == p.Color {
		return false
	}

	dr, dc := to.Row-from.Row, to.Col-from.Col
	switch p.Kind {
	case Pawn:
		return isPawnMove(b, p, from, to, dr, dc)
	case Rook:
		return (dr == 0 || dc == 0) && isPathClear(b, from, to)
	case Knight:
		adr, adc := abs(dr), abs(dc)
		return (adr == 1 && adc == 2) || (adr == 2 && adc == 1)
	case Bishop:
		return abs(dr) == abs(dc) && isPathClear(b, from, to)
	case Queen:
		return (dr == 0 || dc == 0 || abs(dr) == abs(dc)) && isPathClear(b, from, to)
	case King:
		return abs(dr) <= 1 && abs(dc) <= 1
	}
	return false
}

// forward is the row delta of a single pawn step for color c.
func forward(c Color) int {
	if c == White {
		return -1
	}
	return 1
}

func pawnStartRow(c Color) int {
	if c == White {
		return 6
	}
	return 1
}

func isPawnMove(b *Board, p Piece, from, to Square, dr, dc int) bool {
	dir := forward(p.Color)
	_, occupied := b.At(to)
	switch {
	case dc == 0 && dr == dir:
		return !occupied
	case dc == 0 && dr == 2*dir:
		if p.HasMoved || from.Row != pawnStartRow(p.Color) || occupied {
			return false
		}
		_, blocked := b.Get(from.Row+dir, from.Col)
		return !blocked
	case abs(dc) == 1 && dr == dir:
		// Diagonal steps are capture-only; same-color targets were rejected above.
		return occupied
	}
	return false
}

// isPathClear walks from toward to along the unit direction and reports
// whether every square strictly between them is empty. Callers guarantee the
// two squares share a rank, file or diagonal.
func isPathClear(b *Board, from, to Square) bool {
	dr, dc := sign(to.Row-from.Row), sign(to.Col-from.Col)
	row, col := from.Row+dr, from.Col+dc
	for row != to.Row || col != to.Col {
		if _, ok := b.Get(row, col); ok {
			return false
		}
		row += dr
		col += dc
	}
	return true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
