package monitoring

import (
	"sync"
	"time"
)

// Metrics counts served predictions and errors per model.
type Metrics struct {
	mu sync.RWMutex

	startTime    time.Time
	predictions  map[string]int64
	errors       int64
	totalLatency time.Duration
	totalCount   int64
}

// Snapshot is a point-in-time JSON view of the collected metrics.
type Snapshot struct {
	UptimeSeconds      float64          `json:"uptime_seconds"`
	PredictionsTotal   int64            `json:"predictions_total"`
	PredictionsByModel map[string]int64 `json:"predictions_by_model"`
	Errors             int64            `json:"errors"`
	AvgLatencyMs       float64          `json:"avg_latency_ms"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		startTime:   time.Now(),
		predictions: make(map[string]int64),
	}
}

// RecordPrediction counts one served prediction and its latency.
func (m *Metrics) RecordPrediction(modelName string, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions[modelName]++
	m.totalCount++
	m.totalLatency += latency
}

// RecordError counts one failed prediction request.
func (m *Metrics) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byModel := make(map[string]int64, len(m.predictions))
	for name, count := range m.predictions {
		byModel[name] = count
	}
	snapshot := Snapshot{
		UptimeSeconds:      time.Since(m.startTime).Seconds(),
		PredictionsTotal:   m.totalCount,
		PredictionsByModel: byModel,
		Errors:             m.errors,
	}
	if m.totalCount > 0 {
		snapshot.AvgLatencyMs = float64(m.totalLatency.Milliseconds()) / float64(m.totalCount)
	}
	return snapshot
}
