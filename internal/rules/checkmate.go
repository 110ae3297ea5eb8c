package rules

// LeavesKingInCheck plays from->to on a scratch copy of b and reports whether
// the mover's king is in check afterwards. b is never modified.
func LeavesKingInCheck(b *Board, from, to Square) bool {
	p, ok := b.At(from)
	if !ok {
		return false
	}
	scratch := *b
	scratch.Apply(from, to)
	return IsInCheck(&scratch, p.Color)
}

// IsCheckmate reports whether color c is in check and no legal move of any of
// its pieces escapes the check. Stalemate is not detected.
func IsCheckmate(b *Board, c Color) bool {
	if !IsInCheck(b, c) {
		return false
	}
	for _, from := range b.Squares(c) {
		for row := 0; row < Size; row++ {
			for col := 0; col < Size; col++ {
				to := Square{Row: row, Col: col}
				if !IsLegalMove(b, from, to) {
					continue
				}
				if !LeavesKingInCheck(b, from, to) {
					return false
				}
			}
		}
	}
	return true
}

// LegalDestinations lists the squares the piece on from can move to without
// leaving its own king in check, in row-major order.
func LegalDestinations(b *Board, from Square) []Square {
	if _, ok := b.At(from); !ok {
		return nil
	}
	var out []Square
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			to := Square{Row: row, Col: col}
			if IsLegalMove(b, from, to) && !LeavesKingInCheck(b, from, to) {
				out = append(out, to)
			}
		}
	}
	return out
}
