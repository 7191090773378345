package gateway

import (
	"context"
	"encoding/json"

	"github.com/park285/gungi-arena/internal/session"
)

func (s *Server) createMatch(_ context.Context, raw json.RawMessage) reply {
	var req MatchRequest
	if len(raw) > 0 {
		if err := decode(raw, &req); err != nil {
			return fail(err, nil)
		}
	}
	st, err := s.svc.CreateMatch(req.MatchID)
	if err != nil {
		return fail(err, map[string]any{"ID": req.MatchID})
	}
	return reply{payload: st}
}

func (s *Server) makeMove(ctx context.Context, raw json.RawMessage) reply {
	var req MoveRequest
	if err := decode(raw, &req); err != nil {
		return fail(err, nil)
	}
	res := s.svc.MakeMove(ctx, req.MatchID, req.From, req.To)
	return reply{
		payload: res,
		err:     res.Error,
		data:    map[string]any{"ID": req.MatchID, "From": req.From, "To": req.To},
	}
}

func (s *Server) gameState(_ context.Context, raw json.RawMessage) reply {
	var req MatchRequest
	if err := decode(raw, &req); err != nil {
		return fail(err, nil)
	}
	st, err := s.svc.GameState(req.MatchID)
	if err != nil {
		return fail(err, map[string]any{"ID": req.MatchID})
	}
	return reply{payload: st}
}

func (s *Server) exportGame(_ context.Context, raw json.RawMessage) reply {
	var req MatchRequest
	if err := decode(raw, &req); err != nil {
		return fail(err, nil)
	}
	doc, err := s.svc.ExportGameState(req.MatchID)
	if err != nil {
		return fail(err, map[string]any{"ID": req.MatchID})
	}
	return reply{payload: ExportReply{Document: doc}}
}

func (s *Server) importGame(_ context.Context, raw json.RawMessage) reply {
	var req ImportRequest
	if err := decode(raw, &req); err != nil {
		return fail(err, nil)
	}
	if err := s.svc.ImportGameState(req.MatchID, req.Document); err != nil {
		r := fail(err, map[string]any{"ID": req.MatchID})
		r.payload = ImportReply{Imported: false}
		return r
	}
	return reply{payload: ImportReply{Imported: true}}
}

func (s *Server) cancelMatch(_ context.Context, raw json.RawMessage) reply {
	var req MatchRequest
	if err := decode(raw, &req); err != nil {
		return fail(err, nil)
	}
	if err := s.svc.CancelMatch(req.MatchID); err != nil {
		return fail(err, map[string]any{"ID": req.MatchID})
	}
	st, err := s.svc.GameState(req.MatchID)
	if err != nil {
		return fail(err, map[string]any{"ID": req.MatchID})
	}
	return reply{payload: st}
}

func (s *Server) validMoves(_ context.Context, raw json.RawMessage) reply {
	var req MatchRequest
	if err := decode(raw, &req); err != nil {
		return fail(err, nil)
	}
	moves, err := s.svc.ValidMoves(req.MatchID)
	if err != nil {
		return fail(err, map[string]any{"ID": req.MatchID})
	}
	return reply{payload: moves}
}

func (s *Server) suggestMove(ctx context.Context, raw json.RawMessage) reply {
	var req SuggestRequest
	if err := decode(raw, &req); err != nil {
		return fail(err, nil)
	}
	sug, err := s.svc.SuggestMove(ctx, req.MatchID, req.Difficulty)
	if err != nil {
		return fail(err, map[string]any{"ID": req.MatchID})
	}
	return reply{payload: sug}
}

func (s *Server) createSession(_ context.Context, raw json.RawMessage) reply {
	var req CreateSessionRequest
	if err := decode(raw, &req); err != nil {
		return fail(err, nil)
	}
	snap, err := s.svc.CreateSession(req.SessionID, req.Player1, req.Player2, session.Config{}, req.Region)
	if err != nil {
		return fail(err, map[string]any{"ID": req.SessionID})
	}
	return reply{payload: snap}
}

func (s *Server) joinSession(_ context.Context, raw json.RawMessage) reply {
	var req JoinSessionRequest
	if err := decode(raw, &req); err != nil {
		return fail(err, nil)
	}
	snap, err := s.svc.JoinSession(req.SessionID, req.Player2)
	if err != nil {
		return fail(err, map[string]any{"ID": req.SessionID})
	}
	return reply{payload: snap}
}

func (s *Server) submitMove(ctx context.Context, raw json.RawMessage) reply {
	var req SubmitRequest
	if err := decode(raw, &req); err != nil {
		return fail(err, nil)
	}
	res := s.svc.SubmitMove(ctx, req.SessionID, req.Move, req.PlayerID, req.Token)
	return reply{
		payload: res,
		err:     res.Error,
		data:    map[string]any{"ID": req.SessionID, "From": req.Move.From, "To": req.Move.To},
	}
}

func (s *Server) sessionState(_ context.Context, raw json.RawMessage) reply {
	var req SessionRequest
	if err := decode(raw, &req); err != nil {
		return fail(err, nil)
	}
	snap, err := s.svc.Session(req.SessionID)
	if err != nil {
		return fail(err, map[string]any{"ID": req.SessionID})
	}
	return reply{payload: snap}
}

func (s *Server) sessionMetrics(_ context.Context, raw json.RawMessage) reply {
	var req SessionRequest
	if err := decode(raw, &req); err != nil {
		return fail(err, nil)
	}
	m := s.svc.SessionMetrics(req.SessionID)
	if m == nil {
		return fail(session.ErrSessionNotFound, map[string]any{"ID": req.SessionID})
	}
	return reply{payload: m}
}
