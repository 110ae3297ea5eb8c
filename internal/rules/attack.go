package rules

// IsSquareAttacked reports whether any piece of color by has a geometrically
// legal move onto sq. Pawn forward steps count too, since IsLegalMove already
// restricts diagonal steps to captures.
func IsSquareAttacked(b *Board, sq Square, by Color) bool {
	for _, from := range b.Squares(by) {
		if IsLegalMove(b, from, sq) {
			return true
		}
	}
	return false
}

// FindKing locates the king of color c.
func FindKing(b *Board, c Color) (Square, bool) {
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			if p, ok := b.Get(row, col); ok && p.Kind == King && p.Color == c {
				return Square{Row: row, Col: col}, true
			}
		}
	}
	return Square{}, false
}

// IsInCheck reports whether the king of color c is attacked by the opponent.
// A board without such a king is never in check.
func IsInCheck(b *Board, c Color) bool {
	king, ok := FindKing(b, c)
	if !ok {
		return false
	}
	return IsSquareAttacked(b, king, c.Opponent())
}
