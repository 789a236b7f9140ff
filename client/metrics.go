package client

import (
	"sync"
	"time"
)

// Outcome labels a completed request for metrics purposes.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// MetricSample is one aggregated series: every request sharing a request
// type, server and outcome.
type MetricSample struct {
	RequestType string
	ServerID    string
	Outcome     Outcome
	Count       int64
	Total       time.Duration
	Min         time.Duration
	Max         time.Duration
}

// Avg returns the mean duration of the series.
func (s MetricSample) Avg() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

type metricKey struct {
	requestType string
	serverID    string
	outcome     Outcome
}

// Metrics aggregates per-request durations and outcomes in process.
// A disabled collector accepts records and discards them.
type Metrics struct {
	enabled bool

	mu      sync.Mutex
	samples map[metricKey]*MetricSample
}

// NewMetrics creates a collector.
func NewMetrics(enabled bool) *Metrics {
	return &Metrics{
		enabled: enabled,
		samples: make(map[metricKey]*MetricSample),
	}
}

// Record adds one completed request to its series. serverID may be empty
// when the request failed before selection.
func (m *Metrics) Record(requestType, serverID string, outcome Outcome, d time.Duration) {
	if !m.enabled {
		return
	}
	key := metricKey{requestType: requestType, serverID: serverID, outcome: outcome}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.samples[key]
	if !ok {
		s = &MetricSample{
			RequestType: requestType,
			ServerID:    serverID,
			Outcome:     outcome,
			Min:         d,
			Max:         d,
		}
		m.samples[key] = s
	}
	s.Count++
	s.Total += d
	if d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
}

// Snapshot returns a copy of every series recorded so far.
func (m *Metrics) Snapshot() []MetricSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MetricSample, 0, len(m.samples))
	for _, s := range m.samples {
		out = append(out, *s)
	}
	return out
}
