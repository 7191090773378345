package session

import (
	"errors"
	"sync"
	"time"

	"github.com/park285/gungi-arena/internal/gungi"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExists    = errors.New("session already exists")
	ErrSessionNotActive = errors.New("session not active")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrNotParticipant   = errors.New("player is not part of this session")
	ErrInvalidMove      = errors.New("invalid move")
	ErrTooFast          = errors.New("move submitted faster than the minimum thinking time")
	ErrInvalidArgs      = errors.New("invalid arguments")
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Config is the per-session tuning passed to CreateSession.
type Config struct {
	// Policy decides whether a submission is plausible. Nil uses the
	// coordinator default.
	Policy FraudPolicy
}

// MoveData is one externally submitted move.
type MoveData struct {
	From gungi.Position `json:"from"`
	To   gungi.Position `json:"to"`
	// Confidence is the client-reported accuracy score in [0,1].
	Confidence float64 `json:"confidence,omitempty"`
}

// SubmitResult reports an accepted move.
type SubmitResult struct {
	Success    bool          `json:"success"`
	MoveHash   string        `json:"moveHash,omitempty"`
	MoveNumber int           `json:"moveNumber"`
	Latency    time.Duration `json:"latency"`
	Capture    bool          `json:"capture"`
	Suspicious bool          `json:"suspicious,omitempty"`
	// Completed is set when this move captured a Marshal.
	Completed bool   `json:"completed,omitempty"`
	Winner    string `json:"winner,omitempty"`
}

// MoveRecord is an accepted session move.
type MoveRecord struct {
	Number   int              `json:"number"`
	Player   string           `json:"player"`
	Side     gungi.Player     `json:"side"`
	Piece    gungi.PieceType  `json:"piece"`
	From     gungi.Position   `json:"from"`
	To       gungi.Position   `json:"to"`
	Hash     string           `json:"hash"`
	Captured *gungi.PieceType `json:"captured,omitempty"`
	At       time.Time        `json:"at"`
}

// Session is a live match tracked by the coordinator. Every field below mu is
// guarded by it.
type Session struct {
	id string

	mu           sync.Mutex
	closed       bool
	player1      string
	player2      string
	region       string
	policy       FraudPolicy
	status       Status
	board        *gungi.Board
	currentTurn  gungi.Player
	moveNumber   int
	createdAt    time.Time
	activatedAt  time.Time
	lastMoveAt   time.Time
	lastActivity time.Time
	winner       string
	history      []MoveRecord
}

// Snapshot is a detached copy of a session.
type Snapshot struct {
	ID          string       `json:"sessionId"`
	Player1     string       `json:"player1"`
	Player2     string       `json:"player2"`
	Region      string       `json:"region"`
	Status      Status       `json:"status"`
	CurrentTurn gungi.Player `json:"currentTurn"`
	MoveNumber  int          `json:"moveNumber"`
	CreatedAt   time.Time    `json:"createdAt"`
	LastMoveAt  time.Time    `json:"lastMoveAt"`
	Winner      string       `json:"winner,omitempty"`
	Board       *gungi.Board `json:"board"`
	Moves       []MoveRecord `json:"moves"`
}

func (s *Session) ID() string { return s.id }

// Snapshot copies the session under its lock.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:          s.id,
		Player1:     s.player1,
		Player2:     s.player2,
		Region:      s.region,
		Status:      s.status,
		CurrentTurn: s.currentTurn,
		MoveNumber:  s.moveNumber,
		CreatedAt:   s.createdAt,
		LastMoveAt:  s.lastMoveAt,
		Winner:      s.winner,
		Board:       s.board.Clone(),
		Moves:       append([]MoveRecord{}, s.history...),
	}
}

func (s *Session) sideOf(playerID string) (gungi.Player, bool) {
	switch playerID {
	case "":
		return "", false
	case s.player1:
		return gungi.Player1, true
	case s.player2:
		return gungi.Player2, true
	}
	return "", false
}

