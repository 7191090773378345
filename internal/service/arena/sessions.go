package arena

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/park285/gungi-arena/internal/domain"
	"github.com/park285/gungi-arena/internal/gungi"
	"github.com/park285/gungi-arena/internal/session"
	"github.com/park285/gungi-arena/pkg/gungidto"
)

func (s *Service) Sessions() *session.Coordinator { return s.sessions }

func (s *Service) CreateSession(id, player1, player2 string, cfg session.Config, region string) (session.Snapshot, error) {
	return s.sessions.CreateSession(id, player1, player2, cfg, region)
}

func (s *Service) JoinSession(id, player2 string) (session.Snapshot, error) {
	return s.sessions.JoinSession(id, player2)
}

func (s *Service) Session(id string) (session.Snapshot, error) {
	return s.sessions.Session(id)
}

func (s *Service) SessionMetrics(id string) *session.PerformanceMetrics {
	return s.sessions.Metrics(id)
}

// SubmitMove forwards a live move and records the session once a Marshal
// falls. The result is never nil.
func (s *Service) SubmitMove(ctx context.Context, id string, move session.MoveData, playerID, token string) *gungidto.SubmitResult {
	res, err := s.sessions.SubmitMove(ctx, id, move, playerID, token)
	if err != nil {
		return &gungidto.SubmitResult{Latency: res.Latency, Error: ToDomainError(err)}
	}
	if res.Completed {
		if snap, err := s.sessions.Session(id); err == nil {
			s.record(ctx, sessionRecord(snap))
		} else {
			s.logger.Warn("session_record_skipped", zap.String("session_id", id), zap.Error(err))
		}
	}
	return &gungidto.SubmitResult{
		Success:    true,
		MoveHash:   res.MoveHash,
		MoveNumber: res.MoveNumber,
		Latency:    res.Latency,
		Suspicious: res.Suspicious,
		Completed:  res.Completed,
		Winner:     res.Winner,
	}
}

func sessionRecord(snap session.Snapshot) *domain.MatchRecord {
	doc, _ := json.Marshal(snap.Moves)
	rec := &domain.MatchRecord{
		MatchID:   snap.ID,
		Kind:      domain.KindSession,
		Player1:   snap.Player1,
		Player2:   snap.Player2,
		Region:    snap.Region,
		Status:    string(snap.Status),
		Result:    string(gungi.ResultOngoing),
		Winner:    snap.Winner,
		MoveCount: snap.MoveNumber,
		Document:  doc,
		StartedAt: snap.CreatedAt,
		EndedAt:   snap.LastMoveAt,
		Duration:  snap.LastMoveAt.Sub(snap.CreatedAt),
	}
	switch snap.Winner {
	case "":
	case snap.Player1:
		rec.Result = string(gungi.ResultPlayer1Win)
	case snap.Player2:
		rec.Result = string(gungi.ResultPlayer2Win)
	}
	return rec
}
