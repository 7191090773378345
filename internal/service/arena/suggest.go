package arena

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/gungi-arena/internal/gungi"
	"github.com/park285/gungi-arena/internal/movecache"
	"github.com/park285/gungi-arena/pkg/gungidto"
)

const (
	DifficultyEasy   = "easy"
	DifficultyNormal = "normal"
	DifficultyHard   = "hard"
)

func (s *Service) normalizeDifficulty(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	switch d {
	case DifficultyEasy, DifficultyNormal, DifficultyHard:
		return d
	default:
		return s.cfg.DefaultDifficulty
	}
}

// SuggestMove proposes a move for the side to move. Answers are cached per
// board fingerprint and difficulty; a cache outage only costs a recompute.
func (s *Service) SuggestMove(ctx context.Context, id, difficulty string) (*gungidto.Suggestion, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	difficulty = s.normalizeDifficulty(difficulty)

	e.mu.Lock()
	if e.match.Status() != gungi.StatusActive {
		e.mu.Unlock()
		return nil, gungi.ErrGameNotActive
	}
	fp := e.match.Fingerprint()
	moves := e.match.ValidMoves()
	e.mu.Unlock()

	if len(moves) == 0 {
		return nil, ErrNoLegalMoves
	}

	if s.cache != nil {
		cached, err := s.cache.Lookup(ctx, fp, difficulty)
		switch {
		case err != nil:
			s.logger.Warn("move_cache_lookup_failed", zap.String("match_id", id), zap.Error(err))
		case cached != nil && containsMove(moves, cached.From, cached.To):
			return &gungidto.Suggestion{
				From:       cached.From,
				To:         cached.To,
				Piece:      cached.Piece,
				Capture:    cached.Capture,
				Difficulty: difficulty,
				Cached:     true,
			}, nil
		}
	}

	mv := pickMove(moves, difficulty)
	out := &gungidto.Suggestion{
		From:       mv.From,
		To:         mv.To,
		Piece:      mv.Piece.Type,
		Capture:    mv.IsCapture,
		Difficulty: difficulty,
	}
	if s.cache != nil {
		entry := movecache.CachedMove{
			From:     out.From,
			To:       out.To,
			Piece:    out.Piece,
			Capture:  out.Capture,
			StoredAt: s.cfg.Clock.Now().UTC(),
		}
		if err := s.cache.Store(ctx, fp, difficulty, entry); err != nil {
			s.logger.Warn("move_cache_store_failed", zap.String("match_id", id), zap.Error(err))
		}
	}
	return out, nil
}

// pickMove: easy takes the first legal move; otherwise a Marshal capture wins,
// then the most valuable capture, then the first legal move.
func pickMove(moves []gungi.Move, difficulty string) gungi.Move {
	if difficulty == DifficultyEasy {
		return moves[0]
	}
	best := -1
	bestValue := 0
	for i, mv := range moves {
		if mv.CapturedPiece == nil {
			continue
		}
		v := mv.CapturedPiece.Type.Value()
		if difficulty == DifficultyHard {
			// prefer trading down: cheaper attacker wins ties
			v = v*16 - mv.Piece.Type.Value()
		}
		if best < 0 || v > bestValue {
			best, bestValue = i, v
		}
	}
	if best < 0 {
		return moves[0]
	}
	return moves[best]
}

func containsMove(moves []gungi.Move, from, to gungi.Position) bool {
	for _, mv := range moves {
		if mv.From == from && mv.To == to {
			return true
		}
	}
	return false
}
