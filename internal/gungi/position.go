package gungi

import "fmt"

const (
	// BoardSize is the number of rows and columns.
	BoardSize = 9
	// TierCount is the number of stacking levels per cell.
	TierCount = 3
	// CellCount is the size of the addressable space (9×9×3).
	CellCount = BoardSize * BoardSize * TierCount
)

// Position addresses one cell of the board.
type Position struct {
	Row  int `json:"row"`
	Col  int `json:"col"`
	Tier int `json:"tier"`
}

// Pos is shorthand for Position{Row: row, Col: col, Tier: tier}.
func Pos(row, col, tier int) Position {
	return Position{Row: row, Col: col, Tier: tier}
}

// InBounds reports whether p lies inside [0,8]×[0,8]×[0,2].
func (p Position) InBounds() bool {
	return p.Row >= 0 && p.Row < BoardSize &&
		p.Col >= 0 && p.Col < BoardSize &&
		p.Tier >= 0 && p.Tier < TierCount
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.Row, p.Col, p.Tier)
}

// AllPositions enumerates every cell in row, col, tier order.
func AllPositions() []Position {
	out := make([]Position, 0, CellCount)
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			for t := 0; t < TierCount; t++ {
				out = append(out, Position{Row: r, Col: c, Tier: t})
			}
		}
	}
	return out
}

// IsStack reports whether moving from → to keeps the cell and climbs a tier.
func IsStack(from, to Position) bool {
	return from.Row == to.Row && from.Col == to.Col && to.Tier > from.Tier
}

func isSingleStack(from, to Position) bool {
	return from.Row == to.Row && from.Col == to.Col && to.Tier == from.Tier+1
}

type delta struct {
	dr, dc, dt int // signed
}

func deltaOf(from, to Position) delta {
	return delta{dr: to.Row - from.Row, dc: to.Col - from.Col, dt: to.Tier - from.Tier}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
