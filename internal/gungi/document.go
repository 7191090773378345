package gungi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentVersion is the only schema version Import accepts.
const DocumentVersion = 1

// document is the serialized form of a match. The arena is stored whole so
// captured pieces keep their ids and last positions.
type document struct {
	Version        int        `json:"version"`
	ID             string     `json:"id"`
	CurrentPlayer  Player     `json:"currentPlayer"`
	Status         Status     `json:"status"`
	Result         Result     `json:"result"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	Winner         *Player    `json:"winner,omitempty"`
	Pieces         []Piece    `json:"pieces"`
	Moves          []Move     `json:"moves"`
	CapturedPieces []Piece    `json:"capturedPieces"`
}

var (
	documentKeys = keySet{
		required: []string{"version", "id", "currentPlayer", "status", "result", "startTime", "pieces", "moves", "capturedPieces"},
		optional: []string{"endTime", "winner"},
	}
	pieceKeys    = keySet{required: []string{"id", "type", "owner", "position", "isActive", "moveCount"}}
	positionKeys = keySet{required: []string{"row", "col", "tier"}}
	moveKeys     = keySet{
		required: []string{"id", "player", "piece", "from", "to", "isCapture", "isStack", "timestamp", "moveNumber"},
		optional: []string{"capturedPiece"},
	}
)

// Export serializes the match into a self-describing JSON document.
func (m *Match) Export() ([]byte, error) {
	doc := document{
		Version:        DocumentVersion,
		ID:             m.id,
		CurrentPlayer:  m.current,
		Status:         m.status,
		Result:         m.result,
		StartTime:      m.start,
		EndTime:        m.end,
		Winner:         m.winner,
		Pieces:         m.board.Pieces(),
		Moves:          cloneMoves(m.moves),
		CapturedPieces: append([]Piece{}, m.captured...),
	}
	if doc.Pieces == nil {
		doc.Pieces = []Piece{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("export match %s: %w", m.id, err)
	}
	return data, nil
}

// Import replaces the match state with the contents of data. The document is
// checked completely before anything is replaced; on error the match is
// unchanged. Clock and limits are kept.
func (m *Match) Import(data []byte) error {
	next, err := decodeDocument(data)
	if err != nil {
		return err
	}
	next.clock = m.clock
	next.timeLimit = m.timeLimit
	next.moveLimit = m.moveLimit
	*m = *next
	return nil
}

// ImportMatch builds a new match from an exported document.
func ImportMatch(data []byte, opts ...Option) (*Match, error) {
	m := NewMatch("", opts...)
	if err := m.Import(data); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeDocument(data []byte) (*Match, error) {
	if err := checkDocumentShape(data); err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, invalidDocument("%v", err)
	}
	if dec.More() {
		return nil, invalidDocument("trailing data after document")
	}
	if doc.Version != DocumentVersion {
		return nil, invalidDocument("unsupported version %d", doc.Version)
	}
	if doc.ID == "" {
		return nil, invalidDocument("empty id")
	}
	if !doc.CurrentPlayer.Valid() {
		return nil, invalidDocument("currentPlayer %q", doc.CurrentPlayer)
	}
	if doc.Status.rank() < 0 {
		return nil, invalidDocument("status %q", doc.Status)
	}
	if !doc.Result.valid() {
		return nil, invalidDocument("result %q", doc.Result)
	}
	if doc.StartTime.IsZero() {
		return nil, invalidDocument("missing startTime")
	}

	board := &Board{pieces: doc.Pieces}
	for _, p := range doc.Pieces {
		if err := checkPiece(p); err != nil {
			return nil, invalidDocument("pieces: %v", err)
		}
	}
	if err := board.rebuild(); err != nil {
		return nil, invalidDocument("pieces: %v", err)
	}
	if err := checkCaptured(board, doc.CapturedPieces); err != nil {
		return nil, err
	}
	if err := checkMoves(doc.Moves, len(doc.CapturedPieces)); err != nil {
		return nil, err
	}
	if err := checkOutcome(&doc, board); err != nil {
		return nil, err
	}

	m := &Match{
		id:       doc.ID,
		board:    board,
		current:  doc.CurrentPlayer,
		status:   doc.Status,
		result:   doc.Result,
		moves:    doc.Moves,
		captured: doc.CapturedPieces,
		start:    normalizeTime(doc.StartTime),
		winner:   doc.Winner,
	}
	for i := range m.moves {
		m.moves[i].Timestamp = normalizeTime(m.moves[i].Timestamp)
	}
	if doc.EndTime != nil {
		end := normalizeTime(*doc.EndTime)
		m.end = &end
	}
	if m.moves == nil {
		m.moves = []Move{}
	}
	if m.captured == nil {
		m.captured = []Piece{}
	}
	return m, nil
}

func checkPiece(p Piece) error {
	if !p.Type.Valid() {
		return fmt.Errorf("piece %d: type %q", p.ID, p.Type)
	}
	if !p.Owner.Valid() {
		return fmt.Errorf("piece %d: owner %q", p.ID, p.Owner)
	}
	if !p.Position.InBounds() {
		return fmt.Errorf("piece %d: position %s: %w", p.ID, p.Position, ErrOutOfBounds)
	}
	if p.MoveCount < 0 {
		return fmt.Errorf("piece %d: negative moveCount", p.ID)
	}
	return nil
}

// checkCaptured requires capturedPieces to list exactly the inactive arena
// entries, each once and identical to the arena copy.
func checkCaptured(b *Board, captured []Piece) error {
	seen := make(map[PieceID]bool, len(captured))
	for _, c := range captured {
		arena, ok := b.Piece(c.ID)
		if !ok || arena != c || arena.Active {
			return invalidDocument("capturedPieces: piece %d does not match an inactive arena piece", c.ID)
		}
		if seen[c.ID] {
			return invalidDocument("capturedPieces: piece %d listed twice", c.ID)
		}
		seen[c.ID] = true
	}
	for _, p := range b.pieces {
		if !p.Active && !seen[p.ID] {
			return invalidDocument("capturedPieces: inactive piece %d missing", p.ID)
		}
	}
	return nil
}

func checkMoves(moves []Move, captures int) error {
	n := 0
	for i, mv := range moves {
		if mv.MoveNumber != i+1 {
			return invalidDocument("moves[%d]: moveNumber %d, want %d", i, mv.MoveNumber, i+1)
		}
		if mv.ID == uuid.Nil {
			return invalidDocument("moves[%d]: missing id", i)
		}
		if !mv.Player.Valid() {
			return invalidDocument("moves[%d]: player %q", i, mv.Player)
		}
		if i > 0 && mv.Player != moves[i-1].Player.Opponent() {
			return invalidDocument("moves[%d]: players do not alternate", i)
		}
		if !mv.From.InBounds() || !mv.To.InBounds() {
			return invalidDocument("moves[%d]: coordinates out of bounds", i)
		}
		if err := checkPiece(mv.Piece); err != nil {
			return invalidDocument("moves[%d]: %v", i, err)
		}
		if mv.IsCapture != (mv.CapturedPiece != nil) {
			return invalidDocument("moves[%d]: isCapture disagrees with capturedPiece", i)
		}
		if mv.CapturedPiece != nil {
			if err := checkPiece(*mv.CapturedPiece); err != nil {
				return invalidDocument("moves[%d]: captured %v", i, err)
			}
			n++
		}
		if mv.IsStack != IsStack(mv.From, mv.To) {
			return invalidDocument("moves[%d]: isStack disagrees with coordinates", i)
		}
	}
	if n != captures {
		return invalidDocument("%d capturing moves but %d captured pieces", n, captures)
	}
	return nil
}

func checkOutcome(doc *document, b *Board) error {
	if n := len(doc.Moves); n > 0 && doc.CurrentPlayer != doc.Moves[n-1].Player.Opponent() {
		return invalidDocument("currentPlayer %s after a move by %s", doc.CurrentPlayer, doc.Moves[n-1].Player)
	} else if n == 0 && doc.CurrentPlayer != Player1 {
		return invalidDocument("currentPlayer %s before the first move", doc.CurrentPlayer)
	}

	switch doc.Status {
	case StatusPending, StatusActive:
		if doc.Result != ResultOngoing || doc.EndTime != nil || doc.Winner != nil {
			return invalidDocument("%s match carries an outcome", doc.Status)
		}
		if doc.Status == StatusActive {
			for _, p := range []Player{Player1, Player2} {
				if _, ok := b.Marshal(p); !ok {
					return invalidDocument("active match without %s marshal", p)
				}
			}
		}
	case StatusCancelled:
		if doc.Result != ResultOngoing || doc.EndTime == nil || doc.Winner != nil {
			return invalidDocument("cancelled match must have endTime and no result")
		}
	case StatusCompleted:
		if doc.Result == ResultOngoing || doc.EndTime == nil {
			return invalidDocument("completed match must have result and endTime")
		}
		var want Player
		switch doc.Result {
		case ResultPlayer1Win:
			want = Player1
		case ResultPlayer2Win:
			want = Player2
		}
		switch {
		case want == "" && doc.Winner != nil:
			return invalidDocument("result %s has a winner", doc.Result)
		case want != "" && (doc.Winner == nil || *doc.Winner != want):
			return invalidDocument("result %s needs winner %s", doc.Result, want)
		}
	}
	return nil
}

type keySet struct {
	required []string
	optional []string
}

// check decodes raw as an object and enforces its key set.
func (k keySet) check(raw json.RawMessage, where string) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, invalidDocument("%s: expected object", where)
	}
	allowed := make(map[string]bool, len(k.required)+len(k.optional))
	for _, key := range k.required {
		if _, ok := obj[key]; !ok {
			return nil, invalidDocument("%s: missing field %q", where, key)
		}
		allowed[key] = true
	}
	for _, key := range k.optional {
		allowed[key] = true
	}
	for key := range obj {
		if !allowed[key] {
			return nil, invalidDocument("%s: unknown field %q", where, key)
		}
	}
	return obj, nil
}

// checkDocumentShape walks the raw document and rejects missing or unknown
// keys at every level before any typed decoding happens.
func checkDocumentShape(data []byte) error {
	top, err := documentKeys.check(data, "document")
	if err != nil {
		return err
	}
	pieces, err := rawArray(top["pieces"], "pieces")
	if err != nil {
		return err
	}
	captured, err := rawArray(top["capturedPieces"], "capturedPieces")
	if err != nil {
		return err
	}
	for i, raw := range append(pieces, captured...) {
		if err := checkPieceShape(raw, fmt.Sprintf("piece[%d]", i)); err != nil {
			return err
		}
	}
	moves, err := rawArray(top["moves"], "moves")
	if err != nil {
		return err
	}
	for i, raw := range moves {
		where := fmt.Sprintf("moves[%d]", i)
		obj, err := moveKeys.check(raw, where)
		if err != nil {
			return err
		}
		if err := checkPieceShape(obj["piece"], where+".piece"); err != nil {
			return err
		}
		for _, key := range []string{"from", "to"} {
			if _, err := positionKeys.check(obj[key], where+"."+key); err != nil {
				return err
			}
		}
		if cp, ok := obj["capturedPiece"]; ok && string(cp) != "null" {
			if err := checkPieceShape(cp, where+".capturedPiece"); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkPieceShape(raw json.RawMessage, where string) error {
	obj, err := pieceKeys.check(raw, where)
	if err != nil {
		return err
	}
	_, err = positionKeys.check(obj["position"], where+".position")
	return err
}

func rawArray(raw json.RawMessage, where string) ([]json.RawMessage, error) {
	var out []json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return nil, invalidDocument("%s: expected array", where)
	}
	return out, nil
}
