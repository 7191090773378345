package gungi

// Validate decides whether piece may move from → to on b. It never mutates b.
//
// The universal checks run first: both cells must be on the board and the
// destination must not hold a piece of the mover's own side. A same-column
// stack onto a free tier passes regardless of what sits underneath. The
// piece-specific rule runs last.
func Validate(b *Board, piece Piece, from, to Position) error {
	if !from.InBounds() || !to.InBounds() {
		return ErrOutOfBounds
	}
	if occ, ok := b.At(to); ok && occ.Owner == piece.Owner {
		return ErrCannotCaptureOwnPiece
	}
	rule, ok := movementRules[piece.Type]
	if !ok {
		return illegal(piece.Type, "unknown piece type")
	}
	return rule(b, piece.Owner, from, to)
}

// Legal is Validate collapsed to a bool.
func Legal(b *Board, piece Piece, from, to Position) bool {
	return Validate(b, piece, from, to) == nil
}

// IsCapture reports whether an opposing piece stands on to.
func IsCapture(b *Board, mover Player, to Position) bool {
	occ, ok := b.At(to)
	return ok && occ.Owner != mover
}

// pathBlocked walks the straight or diagonal line from → to at the origin tier
// and reports whether any intermediate cell is occupied. Endpoints are not
// inspected.
func pathBlocked(b *Board, from, to Position) bool {
	d := deltaOf(from, to)
	steps := abs(d.dr)
	if abs(d.dc) > steps {
		steps = abs(d.dc)
	}
	sr, sc := sign(d.dr), sign(d.dc)
	for i := 1; i < steps; i++ {
		if b.Occupied(Position{Row: from.Row + i*sr, Col: from.Col + i*sc, Tier: from.Tier}) {
			return true
		}
	}
	return false
}

func onLine(d delta) bool {
	return d.dr == 0 || d.dc == 0 || abs(d.dr) == abs(d.dc)
}
