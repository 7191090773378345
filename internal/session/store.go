package session

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
	"go.uber.org/zap"
)

const (
	DefaultIdleTimeout   = 5 * time.Minute
	DefaultSweepInterval = 30 * time.Second
)

// StoreConfig tunes idle eviction.
type StoreConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
	Clock         quartz.Clock
}

// Store is the registry of live sessions and their metrics.
//
// Lock order: a session's mu is always taken before Store.mu.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	metrics  map[string]*metricsEntry

	idleTimeout   time.Duration
	sweepInterval time.Duration
	clock         quartz.Clock
	logger        *zap.Logger

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewStore(cfg StoreConfig, logger *zap.Logger) *Store {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions:      make(map[string]*Session),
		metrics:       make(map[string]*metricsEntry),
		idleTimeout:   cfg.IdleTimeout,
		sweepInterval: cfg.SweepInterval,
		clock:         cfg.Clock,
		logger:        logger,
	}
}

// add registers s with zeroed metrics.
func (st *Store) add(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[s.id]; ok {
		return ErrSessionExists
	}
	st.sessions[s.id] = s
	st.metrics[s.id] = newMetricsEntry(s.createdAt)
	return nil
}

// Get returns the live session for id.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *Store) metricsFor(id string) *metricsEntry {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.metrics[id]
}

// Metrics returns a copy of the metrics for id.
func (st *Store) Metrics(id string) (PerformanceMetrics, bool) {
	e := st.metricsFor(id)
	if e == nil {
		return PerformanceMetrics{}, false
	}
	return e.snapshot(), true
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Remove drops id and its metrics. In-flight submissions observe
// ErrSessionNotFound.
func (st *Store) Remove(id string) bool {
	s, ok := st.Get(id)
	if !ok {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return st.evictLocked(s)
}

// evictLocked requires s.mu to be held.
func (st *Store) evictLocked(s *Session) bool {
	if s.closed {
		return false
	}
	s.closed = true
	st.mu.Lock()
	delete(st.sessions, s.id)
	delete(st.metrics, s.id)
	st.mu.Unlock()
	return true
}

// Sweep evicts every session idle for longer than the idle timeout and returns
// how many were removed. Idleness is re-checked under the session lock so a
// session in the middle of a move is never evicted.
func (st *Store) Sweep() int {
	st.mu.RLock()
	candidates := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		candidates = append(candidates, s)
	}
	st.mu.RUnlock()

	evicted := 0
	for _, s := range candidates {
		s.mu.Lock()
		idle := st.clock.Since(s.lastActivity)
		if idle > st.idleTimeout && st.evictLocked(s) {
			evicted++
			st.logger.Info("session_evicted",
				zap.String("session_id", s.id),
				zap.Duration("idle", idle),
			)
		}
		s.mu.Unlock()
	}
	return evicted
}

// Start launches the background sweep. Calling Start twice is a no-op.
func (st *Store) Start(ctx context.Context) {
	st.lifecycle.Lock()
	defer st.lifecycle.Unlock()
	if st.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	st.cancel = cancel
	ticker := st.clock.NewTicker(st.sweepInterval, "session", "sweep")
	st.wg.Add(1)
	go func() {
		defer st.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				st.Sweep()
			}
		}
	}()
}

// Shutdown stops the sweep and waits for it to exit.
func (st *Store) Shutdown() {
	st.lifecycle.Lock()
	cancel := st.cancel
	st.lifecycle.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	st.wg.Wait()
}
