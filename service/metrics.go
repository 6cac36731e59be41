package service

import (
	"sync"
	"time"
)

// MetricsCollector tracks timing for vote processing and tally runs.
type MetricsCollector struct {
	mu sync.RWMutex

	votingStartTime time.Time
	votingEndTime   time.Time
	votingCount     int
	votingTotalTime time.Duration

	tallyStartTime time.Time
	tallyEndTime   time.Time
	tallyCount     int
	tallyTotalTime time.Duration
}

// OperationMetrics contains timing information for one operation kind.
type OperationMetrics struct {
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Count          int       `json:"count"`
	ProcessingTime int64     `json:"processing_time_ms"`
}

// MetricsResponse provides the metrics for all operations.
type MetricsResponse struct {
	Voting OperationMetrics `json:"voting"`
	Tally  OperationMetrics `json:"tally"`
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordVoteStart marks the start of a vote-processing operation.
func (mc *MetricsCollector) RecordVoteStart() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.votingCount == 0 {
		mc.votingStartTime = time.Now()
	}
	mc.votingCount++
}

// RecordVoteEnd marks the end of a vote-processing operation.
func (mc *MetricsCollector) RecordVoteEnd(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.votingEndTime = time.Now()
	mc.votingTotalTime += duration
}

// RecordTallyStart marks the start of a tally run.
func (mc *MetricsCollector) RecordTallyStart() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.tallyCount == 0 {
		mc.tallyStartTime = time.Now()
	}
	mc.tallyCount++
}

// RecordTallyEnd marks the end of a tally run.
func (mc *MetricsCollector) RecordTallyEnd(duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.tallyEndTime = time.Now()
	mc.tallyTotalTime += duration
}

// Snapshot returns the collected metrics.
func (mc *MetricsCollector) Snapshot() *MetricsResponse {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return &MetricsResponse{
		Voting: OperationMetrics{
			StartTime:      mc.votingStartTime,
			EndTime:        mc.votingEndTime,
			Count:          mc.votingCount,
			ProcessingTime: mc.votingTotalTime.Milliseconds(),
		},
		Tally: OperationMetrics{
			StartTime:      mc.tallyStartTime,
			EndTime:        mc.tallyEndTime,
			Count:          mc.tallyCount,
			ProcessingTime: mc.tallyTotalTime.Milliseconds(),
		},
	}
}
