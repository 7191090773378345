package gungidto

import (
	"time"

	"github.com/park285/gungi-arena/internal/gungi"
)

// MoveResult is the reply to a match move.
type MoveResult struct {
	Success bool         `json:"success"`
	Move    *gungi.Move  `json:"move,omitempty"`
	Status  gungi.Status `json:"status,omitempty"`
	Result  gungi.Result `json:"result,omitempty"`
	Error   *DomainError `json:"error,omitempty"`
}

// SubmitResult is the reply to a session move.
type SubmitResult struct {
	Success    bool          `json:"success"`
	MoveHash   string        `json:"moveHash,omitempty"`
	MoveNumber int           `json:"moveNumber,omitempty"`
	Latency    time.Duration `json:"latency"`
	Suspicious bool          `json:"suspicious,omitempty"`
	Completed  bool          `json:"completed,omitempty"`
	Winner     string        `json:"winner,omitempty"`
	Error      *DomainError  `json:"error,omitempty"`
}

// Suggestion is a proposed move for the side to move.
type Suggestion struct {
	From       gungi.Position  `json:"from"`
	To         gungi.Position  `json:"to"`
	Piece      gungi.PieceType `json:"piece"`
	Capture    bool            `json:"capture"`
	Difficulty string          `json:"difficulty"`
	Cached     bool            `json:"cached"`
}
