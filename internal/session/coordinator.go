package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/gungi-arena/internal/gungi"
)

// CoordinatorConfig carries defaults applied to every session.
type CoordinatorConfig struct {
	Policy        FraudPolicy
	DefaultRegion string
	Clock         quartz.Clock
}

// Coordinator accepts live moves and serializes them per session.
type Coordinator struct {
	store     *Store
	policy    FraudPolicy
	region    string
	clock     quartz.Clock
	telemetry Telemetry
	logger    *zap.Logger
}

func NewCoordinator(store *Store, cfg CoordinatorConfig, telemetry Telemetry, logger *zap.Logger) (*Coordinator, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Policy == nil {
		cfg.Policy = DefaultPolicy()
	}
	if cfg.Clock == nil {
		cfg.Clock = store.clock
	}
	if telemetry == nil {
		telemetry = nopTelemetry{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:     store,
		policy:    cfg.Policy,
		region:    strings.TrimSpace(cfg.DefaultRegion),
		clock:     cfg.Clock,
		telemetry: telemetry,
		logger:    logger,
	}, nil
}

func (c *Coordinator) Store() *Store { return c.store }

// CreateSession registers a session with a fresh projection in the standard
// formation. An empty id is replaced by a random one; an empty player2 leaves
// the session waiting for JoinSession.
func (c *Coordinator) CreateSession(id, player1, player2 string, cfg Config, region string) (Snapshot, error) {
	player1, player2 = strings.TrimSpace(player1), strings.TrimSpace(player2)
	if player1 == "" || player1 == player2 {
		return Snapshot{}, ErrInvalidArgs
	}
	if id = strings.TrimSpace(id); id == "" {
		id = uuid.NewString()
	}
	if region = strings.TrimSpace(region); region == "" {
		region = c.region
	}
	policy := cfg.Policy
	if policy == nil {
		policy = c.policy
	}

	now := c.clock.Now()
	s := &Session{
		id:           id,
		player1:      player1,
		player2:      player2,
		region:       region,
		policy:       policy,
		status:       StatusWaiting,
		board:        gungi.StandardBoard(),
		currentTurn:  gungi.Player1,
		createdAt:    now,
		lastActivity: now,
	}
	if player2 != "" {
		s.status = StatusActive
		s.activatedAt = now
	}
	if err := c.store.add(s); err != nil {
		return Snapshot{}, err
	}
	c.logger.Info("session_created",
		zap.String("session_id", id),
		zap.String("player1", player1),
		zap.String("player2", player2),
		zap.String("region", region),
		zap.String("status", string(s.status)),
	)
	return s.Snapshot(), nil
}

// JoinSession seats player2 in a waiting session and activates it.
func (c *Coordinator) JoinSession(id, player2 string) (Snapshot, error) {
	player2 = strings.TrimSpace(player2)
	if player2 == "" {
		return Snapshot{}, ErrInvalidArgs
	}
	s, ok := c.store.Get(id)
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Snapshot{}, ErrSessionNotFound
	}
	if s.status != StatusWaiting {
		return Snapshot{}, ErrSessionNotActive
	}
	if player2 == s.player1 {
		return Snapshot{}, ErrInvalidArgs
	}
	now := c.clock.Now()
	s.player2 = player2
	s.status = StatusActive
	s.activatedAt = now
	s.lastActivity = now
	c.logger.Info("session_joined", zap.String("session_id", id), zap.String("player2", player2))
	return s.snapshotLocked(), nil
}

// Session returns a snapshot of id.
func (c *Coordinator) Session(id string) (Snapshot, error) {
	s, ok := c.store.Get(id)
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	return s.Snapshot(), nil
}

// Metrics returns the metrics for id, or nil when the session is unknown.
func (c *Coordinator) Metrics(id string) *PerformanceMetrics {
	m, ok := c.store.Metrics(id)
	if !ok {
		return nil
	}
	return &m
}

// SubmitMove validates and applies one move. Moves for a session are processed
// one at a time; a rejected move changes nothing except the error counter.
func (c *Coordinator) SubmitMove(ctx context.Context, id string, move MoveData, playerID, token string) (SubmitResult, error) {
	start := c.clock.Now()
	s, ok := c.store.Get(id)
	if !ok {
		return SubmitResult{}, ErrSessionNotFound
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return SubmitResult{}, ErrSessionNotFound
	}
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return SubmitResult{}, err
	}
	res, err := c.applyLocked(s, move, playerID, token)
	metrics := c.store.metricsFor(id)
	now := c.clock.Now()
	res.Latency = now.Sub(start)
	s.lastActivity = now
	if metrics != nil {
		if err != nil {
			metrics.failed(res.Latency, now)
		} else {
			metrics.accepted(res.Latency, now)
		}
	}
	region := s.region
	s.mu.Unlock()

	obs := MoveObservation{
		SessionID:  id,
		Region:     region,
		PlayerID:   playerID,
		MoveNumber: res.MoveNumber,
		Latency:    res.Latency,
		Accepted:   err == nil,
		Suspicious: res.Suspicious,
		Err:        err,
	}
	if metrics != nil {
		obs.Metrics = metrics.snapshot()
	}
	c.telemetry.ObserveMove(obs)

	if err != nil {
		return SubmitResult{Latency: res.Latency}, err
	}
	return res, nil
}

// applyLocked requires s.mu.
func (c *Coordinator) applyLocked(s *Session, move MoveData, playerID, token string) (SubmitResult, error) {
	if s.status != StatusActive {
		return SubmitResult{}, ErrSessionNotActive
	}
	side, ok := s.sideOf(playerID)
	if !ok {
		return SubmitResult{}, ErrNotParticipant
	}
	if side != s.currentTurn {
		return SubmitResult{}, ErrNotYourTurn
	}

	now := c.clock.Now()
	since := s.lastMoveAt
	if since.IsZero() {
		since = s.activatedAt
	}
	verdict := s.policy.Check(FraudInput{
		SessionID:  s.id,
		PlayerID:   playerID,
		ThinkTime:  now.Sub(since),
		Confidence: move.Confidence,
		Token:      token,
	})
	if verdict.Reject != nil {
		c.logger.Warn("session_move_too_fast",
			zap.String("session_id", s.id),
			zap.String("player_id", playerID),
			zap.Duration("think_time", now.Sub(since)),
		)
		return SubmitResult{}, verdict.Reject
	}
	if verdict.Suspicious {
		c.logger.Warn("session_move_suspicious",
			zap.String("session_id", s.id),
			zap.String("player_id", playerID),
			zap.Float64("confidence", move.Confidence),
			zap.String("reason", verdict.Reason),
		)
	}

	piece, ok := s.board.At(move.From)
	if !ok {
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrInvalidMove, gungi.ErrNoPieceAtSource)
	}
	if piece.Owner != side {
		return SubmitResult{}, fmt.Errorf("%w: piece at %s belongs to %s", ErrInvalidMove, move.From, piece.Owner)
	}
	if err := gungi.Validate(s.board, piece, move.From, move.To); err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %w", ErrInvalidMove, err)
	}

	_, captured := s.board.Relocate(move.From, move.To)
	hash := MoveHash(move.From, move.To, now)
	s.moveNumber++
	rec := MoveRecord{
		Number: s.moveNumber,
		Player: playerID,
		Side:   side,
		Piece:  piece.Type,
		From:   move.From,
		To:     move.To,
		Hash:   hash,
		At:     now,
	}
	res := SubmitResult{
		Success:    true,
		MoveHash:   hash,
		MoveNumber: s.moveNumber,
		Capture:    captured != nil,
		Suspicious: verdict.Suspicious,
	}
	if captured != nil {
		t := captured.Type
		rec.Captured = &t
		if t == gungi.Marshal {
			s.status = StatusCompleted
			s.winner = playerID
			res.Completed = true
			res.Winner = playerID
		}
	}
	s.history = append(s.history, rec)
	s.currentTurn = s.currentTurn.Opponent()
	s.lastMoveAt = now

	c.logger.Info("session_move",
		zap.String("session_id", s.id),
		zap.String("player_id", playerID),
		zap.Int("move_number", s.moveNumber),
		zap.String("from", move.From.String()),
		zap.String("to", move.To.String()),
		zap.Bool("capture", res.Capture),
	)
	if res.Completed {
		c.logger.Info("session_completed", zap.String("session_id", s.id), zap.String("winner", playerID))
	}
	return res, nil
}
