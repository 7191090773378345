package gungi

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Board is an arena of pieces plus a cell lookup table.
//
// cells holds id+1 of the occupying piece, so the zero value is an empty board.
// Captured pieces stay in the arena with Active=false and are not referenced by
// any cell.
type Board struct {
	pieces []Piece
	cells  [BoardSize][BoardSize][TierCount]int
}

// NewBoard returns an empty board.
func NewBoard() *Board { return &Board{} }

// Clone returns an independent copy.
func (b *Board) Clone() *Board {
	if b == nil {
		return nil
	}
	return &Board{
		pieces: append([]Piece(nil), b.pieces...),
		cells:  b.cells,
	}
}

// Add places a new active piece and returns its id.
func (b *Board) Add(t PieceType, owner Player, at Position) (PieceID, error) {
	if !at.InBounds() {
		return 0, fmt.Errorf("place %s at %s: %w", t, at, ErrOutOfBounds)
	}
	if b.occupant(at) != 0 {
		return 0, fmt.Errorf("place %s at %s: cell occupied", t, at)
	}
	id := PieceID(len(b.pieces))
	b.pieces = append(b.pieces, Piece{ID: id, Type: t, Owner: owner, Position: at, Active: true})
	b.setCell(at, id)
	return id, nil
}

// At returns the piece occupying pos.
func (b *Board) At(pos Position) (Piece, bool) {
	if !pos.InBounds() {
		return Piece{}, false
	}
	ref := b.occupant(pos)
	if ref == 0 {
		return Piece{}, false
	}
	p := b.pieces[ref-1]
	if !p.Active || p.Position != pos {
		panic(fmt.Sprintf("gungi: corrupted board: cell %s references piece %d at %s (active=%v)", pos, p.ID, p.Position, p.Active))
	}
	return p, true
}

// Occupied reports whether any piece stands on pos.
func (b *Board) Occupied(pos Position) bool {
	return pos.InBounds() && b.occupant(pos) != 0
}

// Piece returns the arena entry for id, active or not.
func (b *Board) Piece(id PieceID) (Piece, bool) {
	if id < 0 || int(id) >= len(b.pieces) {
		return Piece{}, false
	}
	return b.pieces[id], true
}

// Pieces returns a copy of the arena.
func (b *Board) Pieces() []Piece {
	return append([]Piece(nil), b.pieces...)
}

// ActivePieces returns the active pieces owned by p.
func (b *Board) ActivePieces(p Player) []Piece {
	var out []Piece
	for _, pc := range b.pieces {
		if pc.Active && pc.Owner == p {
			out = append(out, pc)
		}
	}
	return out
}

// Marshal returns owner's Marshal if it is still on the board.
func (b *Board) Marshal(owner Player) (Piece, bool) {
	for _, pc := range b.pieces {
		if pc.Type == Marshal && pc.Owner == owner && pc.Active {
			return pc, true
		}
	}
	return Piece{}, false
}

// Relocate moves the piece standing on from to to, capturing whatever stands on
// to. The caller validates legality first. It returns the mover after the move
// and the captured piece, if any.
func (b *Board) Relocate(from, to Position) (moved Piece, captured *Piece) {
	ref := b.occupant(from)
	if ref == 0 {
		panic(fmt.Sprintf("gungi: relocate from empty cell %s", from))
	}
	if victim := b.occupant(to); victim != 0 {
		v := &b.pieces[victim-1]
		v.Active = false
		snap := *v
		captured = &snap
	}
	b.clearCell(from)
	p := &b.pieces[ref-1]
	p.Position = to
	p.MoveCount++
	b.setCell(to, p.ID)
	return *p, captured
}

// MarshalJSON renders the arena, captured pieces included.
func (b *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Pieces []Piece `json:"pieces"`
	}{Pieces: b.Pieces()})
}

// Fingerprint digests piece placement and the side to move.
func (b *Board) Fingerprint(toMove Player) uint64 {
	d := xxhash.New()
	var buf [4]byte
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			for t := 0; t < TierCount; t++ {
				ref := b.cells[r][c][t]
				if ref == 0 {
					_, _ = d.Write([]byte{0})
					continue
				}
				p := b.pieces[ref-1]
				_, _ = d.WriteString(string(p.Owner))
				_, _ = d.WriteString(string(p.Type))
				binary.BigEndian.PutUint32(buf[:], uint32(p.ID))
				_, _ = d.Write(buf[:])
			}
		}
	}
	_, _ = d.WriteString(string(toMove))
	return d.Sum64()
}

func (b *Board) occupant(pos Position) int {
	return b.cells[pos.Row][pos.Col][pos.Tier]
}

func (b *Board) setCell(pos Position, id PieceID) {
	b.cells[pos.Row][pos.Col][pos.Tier] = int(id) + 1
}

func (b *Board) clearCell(pos Position) {
	b.cells[pos.Row][pos.Col][pos.Tier] = 0
}

// rebuild derives the cell table from the arena. Used by Import after the
// arena has been validated.
func (b *Board) rebuild() error {
	b.cells = [BoardSize][BoardSize][TierCount]int{}
	for i, p := range b.pieces {
		if PieceID(i) != p.ID {
			return fmt.Errorf("piece %d stored at index %d", p.ID, i)
		}
		if !p.Position.InBounds() {
			return fmt.Errorf("piece %d: %w", p.ID, ErrOutOfBounds)
		}
		if !p.Active {
			continue
		}
		if b.occupant(p.Position) != 0 {
			return fmt.Errorf("piece %d: cell %s already occupied", p.ID, p.Position)
		}
		b.setCell(p.Position, p.ID)
	}
	return nil
}
