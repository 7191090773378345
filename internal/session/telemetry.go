package session

import (
	"time"

	"go.uber.org/zap"
)

// MoveObservation is emitted once per submission, after the session lock is
// released.
type MoveObservation struct {
	SessionID  string
	Region     string
	PlayerID   string
	MoveNumber int
	Latency    time.Duration
	Accepted   bool
	Suspicious bool
	Err        error
	Metrics    PerformanceMetrics
}

// Telemetry receives latency and error counters.
type Telemetry interface {
	ObserveMove(MoveObservation)
}

type nopTelemetry struct{}

func (nopTelemetry) ObserveMove(MoveObservation) {}

// LogTelemetry writes observations to a zap logger.
type LogTelemetry struct {
	logger *zap.Logger
}

func NewLogTelemetry(logger *zap.Logger) *LogTelemetry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogTelemetry{logger: logger}
}

func (t *LogTelemetry) ObserveMove(o MoveObservation) {
	fields := []zap.Field{
		zap.String("session_id", o.SessionID),
		zap.String("region", o.Region),
		zap.String("player_id", o.PlayerID),
		zap.Int("move_number", o.MoveNumber),
		zap.Duration("latency", o.Latency),
		zap.Duration("avg_latency", o.Metrics.AverageMoveLatency),
		zap.Duration("peak_latency", o.Metrics.PeakLatency),
		zap.Int("errors", o.Metrics.ErrorCount),
	}
	if o.Accepted {
		t.logger.Debug("session_move_observed", append(fields, zap.Bool("suspicious", o.Suspicious))...)
		return
	}
	t.logger.Debug("session_move_rejected", append(fields, zap.Error(o.Err))...)
}
