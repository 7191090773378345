package gungi

var (
	backRank   = [BoardSize]PieceType{Lance, Bow, Fort, General, Marshal, General, Fort, Bow, Lance}
	middleRank = [BoardSize]PieceType{Shinobi, Cannon, Major, Lieutenant, "", Lieutenant, Major, Cannon, Shinobi}
)

// StandardBoard returns the opening formation. Player1 occupies rows 6..8 with
// its Marshal on (8,4,0); Player2 mirrors it on rows 0..2. Player2's pieces
// take the lower ids.
func StandardBoard() *Board {
	b := NewBoard()
	place(b, Player2, 0, 1, 2)
	place(b, Player1, 8, 7, 6)
	return b
}

func place(b *Board, owner Player, back, middle, front int) {
	for col := 0; col < BoardSize; col++ {
		mustAdd(b, backRank[col], owner, Position{Row: back, Col: col})
		if t := middleRank[col]; t != "" {
			mustAdd(b, t, owner, Position{Row: middle, Col: col})
		}
		mustAdd(b, Pawn, owner, Position{Row: front, Col: col})
	}
}

func mustAdd(b *Board, t PieceType, owner Player, at Position) {
	if _, err := b.Add(t, owner, at); err != nil {
		panic("gungi: formation: " + err.Error())
	}
}
