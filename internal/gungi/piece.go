package gungi

import "strings"

// Player identifies a side.
type Player string

const (
	Player1 Player = "player1"
	Player2 Player = "player2"
)

// Valid reports whether p is one of the two sides.
func (p Player) Valid() bool { return p == Player1 || p == Player2 }

// Opponent returns the other side.
func (p Player) Opponent() Player {
	if p == Player1 {
		return Player2
	}
	return Player1
}

// Forward is the row delta of a forward step: Player1 advances toward row 0.
func (p Player) Forward() int {
	if p == Player1 {
		return -1
	}
	return 1
}

// ParsePlayer accepts "player1"/"p1"/"1" style input.
func ParsePlayer(s string) (Player, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "player1", "p1", "1":
		return Player1, true
	case "player2", "p2", "2":
		return Player2, true
	default:
		return "", false
	}
}

// PieceType is one of the thirteen piece kinds.
type PieceType string

const (
	Marshal    PieceType = "marshal"
	General    PieceType = "general"
	Lieutenant PieceType = "lieutenant"
	Major      PieceType = "major"
	Minor      PieceType = "minor"
	Shinobi    PieceType = "shinobi"
	Bow        PieceType = "bow"
	Cannon     PieceType = "cannon"
	Fort       PieceType = "fort"
	Pawn       PieceType = "pawn"
	Fortress   PieceType = "fortress"
	Lance      PieceType = "lance"
	Spy        PieceType = "spy"
)

// PieceTypes lists every piece kind in declaration order.
var PieceTypes = []PieceType{
	Marshal, General, Lieutenant, Major, Minor, Shinobi, Bow,
	Cannon, Fort, Pawn, Fortress, Lance, Spy,
}

// Valid reports whether t is a known piece kind.
func (t PieceType) Valid() bool {
	for _, known := range PieceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// pieceValues is a rough material scale used to rank captures.
var pieceValues = map[PieceType]int{
	Marshal:    1000,
	General:    9,
	Cannon:     7,
	Bow:        6,
	Lieutenant: 5,
	Major:      5,
	Shinobi:    4,
	Lance:      4,
	Spy:        3,
	Fortress:   3,
	Fort:       2,
	Minor:      2,
	Pawn:       1,
}

// Value returns the material value of t.
func (t PieceType) Value() int { return pieceValues[t] }

// PieceID is the stable index of a piece in its board's arena.
type PieceID int

// Piece is a value snapshot; the board owns the authoritative copy.
type Piece struct {
	ID        PieceID   `json:"id"`
	Type      PieceType `json:"type"`
	Owner     Player    `json:"owner"`
	Position  Position  `json:"position"`
	Active    bool      `json:"isActive"`
	MoveCount int       `json:"moveCount"`
}
