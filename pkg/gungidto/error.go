package gungidto

// Error codes returned across the service boundary.
const (
	CodeOutOfBounds           = "OUT_OF_BOUNDS"
	CodeCannotCaptureOwnPiece = "CANNOT_CAPTURE_OWN_PIECE"
	CodeIllegalPattern        = "ILLEGAL_PATTERN"
	CodeGameNotActive         = "GAME_NOT_ACTIVE"
	CodeNoPieceAtSource       = "NO_PIECE_AT_SOURCE"
	CodeNotYourTurn           = "NOT_YOUR_TURN"
	CodeInvalidDocument       = "INVALID_DOCUMENT"
	CodeMatchNotFound         = "MATCH_NOT_FOUND"
	CodeMatchExists           = "MATCH_EXISTS"
	CodeSessionNotFound       = "SESSION_NOT_FOUND"
	CodeSessionExists         = "SESSION_EXISTS"
	CodeSessionNotActive      = "SESSION_NOT_ACTIVE"
	CodeNotParticipant        = "NOT_PARTICIPANT"
	CodeTooFast               = "TOO_FAST"
	CodeInvalidMove           = "INVALID_MOVE"
	CodeInvalidArgs           = "INVALID_ARGS"
	CodeInternal              = "INTERNAL"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "gungi service error"
}
