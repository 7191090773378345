package arena

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/gungi-arena/internal/domain"
	"github.com/park285/gungi-arena/internal/gungi"
	"github.com/park285/gungi-arena/internal/movecache"
	"github.com/park285/gungi-arena/internal/session"
	"github.com/park285/gungi-arena/pkg/gungidto"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrMatchExists   = errors.New("match already exists")
	ErrIDMismatch    = errors.New("document id does not match")
	ErrNoLegalMoves  = errors.New("no legal moves")
)

const recordTimeout = 5 * time.Second

// MoveCache answers "have we already picked a move for this board?".
type MoveCache interface {
	Lookup(ctx context.Context, fingerprint uint64, difficulty string) (*movecache.CachedMove, error)
	Store(ctx context.Context, fingerprint uint64, difficulty string, mv movecache.CachedMove) error
}

// Recorder persists finished games.
type Recorder interface {
	RecordMatch(ctx context.Context, rec *domain.MatchRecord) error
}

type Config struct {
	MatchTimeLimit    time.Duration
	MatchMoveLimit    int
	DefaultDifficulty string
	Clock             quartz.Clock
}

// Service is the entry point for matches and live sessions. Each match has its
// own lock; collaborators are only called after that lock is released.
type Service struct {
	mu       sync.RWMutex
	matches  map[string]*matchEntry
	sessions *session.Coordinator
	cache    MoveCache
	recorder Recorder
	cfg      Config
	logger   *zap.Logger
}

type matchEntry struct {
	mu    sync.Mutex
	match *gungi.Match
}

// NewService wires the service. cache and recorder may be nil.
func NewService(sessions *session.Coordinator, cache MoveCache, recorder Recorder, cfg Config, logger *zap.Logger) (*Service, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session coordinator is required")
	}
	if cfg.MatchTimeLimit == 0 {
		cfg.MatchTimeLimit = gungi.DefaultTimeLimit
	}
	if cfg.MatchMoveLimit == 0 {
		cfg.MatchMoveLimit = gungi.DefaultMoveLimit
	}
	cfg.DefaultDifficulty = strings.ToLower(strings.TrimSpace(cfg.DefaultDifficulty))
	if cfg.DefaultDifficulty == "" {
		cfg.DefaultDifficulty = DifficultyNormal
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		matches:  make(map[string]*matchEntry),
		sessions: sessions,
		cache:    cache,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

func (s *Service) matchOptions() []gungi.Option {
	return []gungi.Option{
		gungi.WithClock(s.cfg.Clock),
		gungi.WithTimeLimit(s.cfg.MatchTimeLimit),
		gungi.WithMoveLimit(s.cfg.MatchMoveLimit),
	}
}

func (s *Service) entry(id string) (*matchEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.matches[id]
	if !ok {
		return nil, ErrMatchNotFound
	}
	return e, nil
}

// CreateMatch starts a match in the standard formation. An empty id is
// replaced by a random one.
func (s *Service) CreateMatch(id string) (gungi.GameState, error) {
	if id = strings.TrimSpace(id); id == "" {
		id = uuid.NewString()
	}
	m := gungi.NewMatch(id, s.matchOptions()...)

	s.mu.Lock()
	if _, ok := s.matches[id]; ok {
		s.mu.Unlock()
		return gungi.GameState{}, ErrMatchExists
	}
	s.matches[id] = &matchEntry{match: m}
	s.mu.Unlock()

	s.logger.Info("match_created", zap.String("match_id", id))
	return m.State(), nil
}

// MakeMove applies a move and reports the outcome. The result is never nil.
func (s *Service) MakeMove(ctx context.Context, id string, from, to gungi.Position) *gungidto.MoveResult {
	e, err := s.entry(id)
	if err != nil {
		return &gungidto.MoveResult{Error: ToDomainError(err)}
	}

	e.mu.Lock()
	mv, err := e.match.MakeMove(from, to)
	status, result := e.match.Status(), e.match.Result()
	var rec *domain.MatchRecord
	if err == nil && status == gungi.StatusCompleted {
		rec = matchRecord(e.match)
	}
	e.mu.Unlock()

	if err != nil {
		s.logger.Debug("match_move_rejected",
			zap.String("match_id", id),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.String("reason", string(gungi.ReasonOf(err))),
		)
		return &gungidto.MoveResult{Status: status, Result: result, Error: ToDomainError(err)}
	}

	s.logger.Info("match_move",
		zap.String("match_id", id),
		zap.Int("move_number", mv.MoveNumber),
		zap.String("player", string(mv.Player)),
		zap.String("piece", string(mv.Piece.Type)),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.Bool("capture", mv.IsCapture),
	)
	if rec != nil {
		s.logger.Info("match_completed",
			zap.String("match_id", id),
			zap.String("result", rec.Result),
			zap.String("winner", rec.Winner),
		)
		s.record(ctx, rec)
	}
	return &gungidto.MoveResult{Success: true, Move: &mv, Status: status, Result: result}
}

// GameState returns a deep copy of the match.
func (s *Service) GameState(id string) (gungi.GameState, error) {
	e, err := s.entry(id)
	if err != nil {
		return gungi.GameState{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.match.State(), nil
}

// ExportGameState serializes the match.
func (s *Service) ExportGameState(id string) ([]byte, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.match.Export()
}

// ImportGameState replaces (or creates) match id from an exported document.
// The document's own id must equal id. On error nothing changes.
func (s *Service) ImportGameState(id string, doc []byte) error {
	m, err := gungi.ImportMatch(doc, s.matchOptions()...)
	if err != nil {
		return err
	}
	if m.ID() != id {
		return fmt.Errorf("%w: document %q, target %q", ErrIDMismatch, m.ID(), id)
	}

	s.mu.Lock()
	e, ok := s.matches[id]
	if !ok {
		s.matches[id] = &matchEntry{match: m}
		s.mu.Unlock()
		s.logger.Info("match_imported", zap.String("match_id", id), zap.Int("moves", m.MoveCount()))
		return nil
	}
	s.mu.Unlock()

	e.mu.Lock()
	e.match = m
	e.mu.Unlock()
	s.logger.Info("match_imported", zap.String("match_id", id), zap.Int("moves", m.MoveCount()), zap.Bool("replaced", true))
	return nil
}

// CancelMatch moves an active match to Cancelled.
func (s *Service) CancelMatch(id string) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	err = e.match.Cancel()
	e.mu.Unlock()
	if err == nil {
		s.logger.Info("match_cancelled", zap.String("match_id", id))
	}
	return err
}

// ValidMoves lists the legal moves for the side to move.
func (s *Service) ValidMoves(id string) ([]gungi.Move, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.match.ValidMoves(), nil
}

// Matches returns the ids of all registered matches.
func (s *Service) Matches() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.matches))
	for id := range s.matches {
		out = append(out, id)
	}
	return out
}

func (s *Service) record(ctx context.Context, rec *domain.MatchRecord) {
	if s.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.recorder.RecordMatch(ctx, rec); err != nil {
		s.logger.Warn("match_record_failed",
			zap.String("match_id", rec.MatchID),
			zap.String("kind", rec.Kind),
			zap.Error(err),
		)
	}
}

func matchRecord(m *gungi.Match) *domain.MatchRecord {
	st := m.State()
	doc, _ := m.Export()
	rec := &domain.MatchRecord{
		MatchID:   st.ID,
		Kind:      domain.KindMatch,
		Player1:   string(gungi.Player1),
		Player2:   string(gungi.Player2),
		Status:    string(st.Status),
		Result:    string(st.Result),
		MoveCount: len(st.Moves),
		Document:  doc,
		StartedAt: st.StartTime,
	}
	if st.Winner != nil {
		rec.Winner = string(*st.Winner)
	}
	if st.EndTime != nil {
		rec.EndedAt = *st.EndTime
		rec.Duration = st.EndTime.Sub(st.StartTime)
	}
	return rec
}
