package gungi

import (
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a match.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusActive:
		return 1
	case StatusCompleted, StatusCancelled:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether no further moves can be applied.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

// Result is the outcome of a match.
type Result string

const (
	ResultOngoing    Result = "ONGOING"
	ResultPlayer1Win Result = "PLAYER1_WIN"
	ResultPlayer2Win Result = "PLAYER2_WIN"
	ResultDraw       Result = "DRAW"
	ResultStalemate  Result = "STALEMATE"
	ResultTimeLimit  Result = "TIME_LIMIT"
	ResultMoveLimit  Result = "MOVE_LIMIT"
)

func (r Result) valid() bool {
	switch r {
	case ResultOngoing, ResultPlayer1Win, ResultPlayer2Win, ResultDraw,
		ResultStalemate, ResultTimeLimit, ResultMoveLimit:
		return true
	}
	return false
}

const (
	DefaultTimeLimit = time.Hour
	DefaultMoveLimit = 500
)

// Move is an applied move. Piece is the mover as it stood before the move.
type Move struct {
	ID            uuid.UUID `json:"id"`
	Player        Player    `json:"player"`
	Piece         Piece     `json:"piece"`
	From          Position  `json:"from"`
	To            Position  `json:"to"`
	CapturedPiece *Piece    `json:"capturedPiece,omitempty"`
	IsCapture     bool      `json:"isCapture"`
	IsStack       bool      `json:"isStack"`
	Timestamp     time.Time `json:"timestamp"`
	MoveNumber    int       `json:"moveNumber"`
}

// GameState is a detached snapshot of a match.
type GameState struct {
	ID             string     `json:"id"`
	Board          *Board     `json:"board"`
	CurrentPlayer  Player     `json:"currentPlayer"`
	Status         Status     `json:"status"`
	Result         Result     `json:"result"`
	Moves          []Move     `json:"moves"`
	CapturedPieces []Piece    `json:"capturedPieces"`
	StartTime      time.Time  `json:"startTime"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	Winner         *Player    `json:"winner,omitempty"`
}

// Option configures a Match.
type Option func(*Match)

// WithClock replaces the wall clock used for timestamps and the time limit.
func WithClock(c quartz.Clock) Option {
	return func(m *Match) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithTimeLimit overrides the one-hour limit. Non-positive values disable it.
func WithTimeLimit(d time.Duration) Option {
	return func(m *Match) { m.timeLimit = d }
}

// WithMoveLimit overrides the 500-move limit. Non-positive values disable it.
func WithMoveLimit(n int) Option {
	return func(m *Match) { m.moveLimit = n }
}

// Match is the authoritative state machine for one game. It is not safe for
// concurrent use; callers serialize access per match.
type Match struct {
	id        string
	board     *Board
	current   Player
	status    Status
	result    Result
	moves     []Move
	captured  []Piece
	start     time.Time
	end       *time.Time
	winner    *Player
	clock     quartz.Clock
	timeLimit time.Duration
	moveLimit int
}

// NewMatch returns an active match with the standard formation, Player1 to
// move.
func NewMatch(id string, opts ...Option) *Match {
	m := &Match{
		id:        id,
		clock:     quartz.NewReal(),
		timeLimit: DefaultTimeLimit,
		moveLimit: DefaultMoveLimit,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.board = StandardBoard()
	m.current = Player1
	m.status = StatusActive
	m.result = ResultOngoing
	m.start = m.now()
	return m
}

func (m *Match) now() time.Time { return normalizeTime(m.clock.Now()) }

// normalizeTime drops the monotonic reading and location so timestamps survive
// a JSON round trip unchanged.
func normalizeTime(t time.Time) time.Time { return t.Round(0).UTC() }

func (m *Match) ID() string            { return m.id }
func (m *Match) Status() Status        { return m.status }
func (m *Match) Result() Result        { return m.result }
func (m *Match) CurrentPlayer() Player { return m.current }
func (m *Match) MoveCount() int        { return len(m.moves) }

// Winner returns the winning side, if any.
func (m *Match) Winner() (Player, bool) {
	if m.winner == nil {
		return "", false
	}
	return *m.winner, true
}

// Board returns a copy of the current board.
func (m *Match) Board() *Board { return m.board.Clone() }

// PieceAt returns the piece standing on pos.
func (m *Match) PieceAt(pos Position) (Piece, bool) { return m.board.At(pos) }

// Fingerprint digests the board and the side to move.
func (m *Match) Fingerprint() uint64 { return m.board.Fingerprint(m.current) }

// MakeMove validates and applies a move for the side to move. A rejected move
// leaves the match untouched.
func (m *Match) MakeMove(from, to Position) (Move, error) {
	if m.status != StatusActive {
		return Move{}, ErrGameNotActive
	}
	piece, ok := m.board.At(from)
	if !ok {
		return Move{}, ErrNoPieceAtSource
	}
	if piece.Owner != m.current {
		return Move{}, ErrNotYourTurn
	}
	if err := Validate(m.board, piece, from, to); err != nil {
		return Move{}, err
	}

	_, captured := m.board.Relocate(from, to)
	mv := Move{
		ID:            uuid.New(),
		Player:        m.current,
		Piece:         piece,
		From:          from,
		To:            to,
		CapturedPiece: captured,
		IsCapture:     captured != nil,
		IsStack:       IsStack(from, to),
		Timestamp:     m.now(),
		MoveNumber:    len(m.moves) + 1,
	}
	if captured != nil {
		m.captured = append(m.captured, *captured)
	}
	m.moves = append(m.moves, mv)
	m.current = m.current.Opponent()
	m.checkTerminal(mv.Timestamp)
	return mv, nil
}

func (m *Match) checkTerminal(now time.Time) {
	switch {
	case !m.marshalAlive(Player1):
		m.finish(ResultPlayer2Win, Player2, now)
	case !m.marshalAlive(Player2):
		m.finish(ResultPlayer1Win, Player1, now)
	case m.timeLimit > 0 && now.Sub(m.start) > m.timeLimit:
		m.finish(ResultTimeLimit, "", now)
	case m.moveLimit > 0 && len(m.moves) >= m.moveLimit:
		m.finish(ResultMoveLimit, "", now)
	}
}

func (m *Match) marshalAlive(p Player) bool {
	_, ok := m.board.Marshal(p)
	return ok
}

func (m *Match) finish(r Result, winner Player, now time.Time) {
	m.transition(StatusCompleted)
	m.result = r
	if winner != "" {
		w := winner
		m.winner = &w
	}
	end := now
	m.end = &end
}

// Cancel stops an active match.
func (m *Match) Cancel() error {
	if m.status != StatusActive {
		return ErrGameNotActive
	}
	m.transition(StatusCancelled)
	end := m.now()
	m.end = &end
	return nil
}

// transition moves the status forward; going backward is a programming error.
func (m *Match) transition(next Status) {
	if next.rank() <= m.status.rank() {
		panic(fmt.Sprintf("gungi: match %s: illegal status transition %s -> %s", m.id, m.status, next))
	}
	m.status = next
}

// ValidMoves enumerates every legal (from, to) pair for the side to move.
func (m *Match) ValidMoves() []Move {
	if m.status != StatusActive {
		return nil
	}
	var out []Move
	targets := AllPositions()
	for _, p := range m.board.ActivePieces(m.current) {
		for _, to := range targets {
			if Validate(m.board, p, p.Position, to) != nil {
				continue
			}
			mv := Move{
				Player:    m.current,
				Piece:     p,
				From:      p.Position,
				To:        to,
				IsStack:   IsStack(p.Position, to),
				IsCapture: IsCapture(m.board, m.current, to),
			}
			if mv.IsCapture {
				victim, _ := m.board.At(to)
				mv.CapturedPiece = &victim
			}
			out = append(out, mv)
		}
	}
	return out
}

// State returns a deep copy of the match.
func (m *Match) State() GameState {
	st := GameState{
		ID:             m.id,
		Board:          m.board.Clone(),
		CurrentPlayer:  m.current,
		Status:         m.status,
		Result:         m.result,
		Moves:          cloneMoves(m.moves),
		CapturedPieces: append([]Piece{}, m.captured...),
		StartTime:      m.start,
	}
	if m.end != nil {
		end := *m.end
		st.EndTime = &end
	}
	if m.winner != nil {
		w := *m.winner
		st.Winner = &w
	}
	return st
}

func cloneMoves(in []Move) []Move {
	out := make([]Move, len(in))
	for i, mv := range in {
		if mv.CapturedPiece != nil {
			c := *mv.CapturedPiece
			mv.CapturedPiece = &c
		}
		out[i] = mv
	}
	return out
}
