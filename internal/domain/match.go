package domain

import "time"

// Record kinds.
const (
	KindMatch   = "match"
	KindSession = "session"
)

// MatchRecord is a finished game as handed to the persistence layer.
type MatchRecord struct {
	ID        int64
	MatchID   string
	Kind      string
	Player1   string
	Player2   string
	Region    string
	Status    string
	Result    string
	Winner    string
	MoveCount int
	// Document is the exported game for matches, or the JSON move list for
	// sessions.
	Document  []byte
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}
