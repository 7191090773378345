package gateway

import (
	"encoding/json"

	"github.com/park285/gungi-arena/internal/gungi"
	"github.com/park285/gungi-arena/internal/session"
	"github.com/park285/gungi-arena/pkg/gungidto"
)

// Request types accepted on the socket. A reply carries the same type and
// request_id as the request it answers.
const (
	TypeCreateMatch    = "create_match"
	TypeMakeMove       = "make_move"
	TypeGameState      = "game_state"
	TypeExportGame     = "export_game"
	TypeImportGame     = "import_game"
	TypeCancelMatch    = "cancel_match"
	TypeValidMoves     = "valid_moves"
	TypeSuggestMove    = "suggest_move"
	TypeCreateSession  = "create_session"
	TypeJoinSession    = "join_session"
	TypeSubmitMove     = "submit_move"
	TypeSessionState   = "session_state"
	TypeSessionMetrics = "session_metrics"
)

// Envelope is one frame in either direction.
type Envelope struct {
	Type      string                `json:"type"`
	RequestID string                `json:"request_id,omitempty"`
	Payload   json.RawMessage       `json:"payload,omitempty"`
	Error     *gungidto.DomainError `json:"error,omitempty"`
}

type MatchRequest struct {
	MatchID string `json:"match_id"`
}

type MoveRequest struct {
	MatchID string         `json:"match_id"`
	From    gungi.Position `json:"from"`
	To      gungi.Position `json:"to"`
}

type ImportRequest struct {
	MatchID  string          `json:"match_id"`
	Document json.RawMessage `json:"document"`
}

type ExportReply struct {
	Document json.RawMessage `json:"document"`
}

type ImportReply struct {
	Imported bool `json:"imported"`
}

type SuggestRequest struct {
	MatchID    string `json:"match_id"`
	Difficulty string `json:"difficulty,omitempty"`
}

type CreateSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Player1   string `json:"player1"`
	Player2   string `json:"player2,omitempty"`
	Region    string `json:"region,omitempty"`
}

type JoinSessionRequest struct {
	SessionID string `json:"session_id"`
	Player2   string `json:"player2"`
}

type SubmitRequest struct {
	SessionID string           `json:"session_id"`
	PlayerID  string           `json:"player_id"`
	Token     string           `json:"token,omitempty"`
	Move      session.MoveData `json:"move"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

// Health is the /healthz body.
type Health struct {
	Status   string `json:"status"`
	Matches  int    `json:"matches"`
	Sessions int    `json:"sessions"`
	Conns    int64  `json:"conns"`
}
