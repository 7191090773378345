package session

import (
	"sync"
	"time"
)

// PerformanceMetrics summarizes submissions for one session.
type PerformanceMetrics struct {
	AverageMoveLatency time.Duration `json:"averageMoveLatency"`
	TotalMoves         int           `json:"totalMoves"`
	PeakLatency        time.Duration `json:"peakLatency"`
	ErrorCount         int           `json:"errorCount"`
	LastUpdateTime     time.Time     `json:"lastUpdateTime"`
}

type metricsEntry struct {
	mu sync.Mutex
	m  PerformanceMetrics
}

func newMetricsEntry(now time.Time) *metricsEntry {
	return &metricsEntry{m: PerformanceMetrics{LastUpdateTime: now}}
}

// accepted folds an accepted move into the running average.
func (e *metricsEntry) accepted(latency time.Duration, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := time.Duration(e.m.TotalMoves)
	e.m.AverageMoveLatency = (e.m.AverageMoveLatency*n + latency) / (n + 1)
	e.m.TotalMoves++
	e.observe(latency, now)
}

func (e *metricsEntry) failed(latency time.Duration, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.m.ErrorCount++
	e.observe(latency, now)
}

func (e *metricsEntry) observe(latency time.Duration, now time.Time) {
	if latency > e.m.PeakLatency {
		e.m.PeakLatency = latency
	}
	e.m.LastUpdateTime = now
}

func (e *metricsEntry) snapshot() PerformanceMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.m
}
