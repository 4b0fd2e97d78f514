package dtlproc

import (
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// ProcessingStats tracks per-run decode statistics, including a latency
// histogram of individual file decodes.
type ProcessingStats struct {
	mu             sync.Mutex
	FilesDecoded   int64
	PopulatedFiles int64
	EmptyFiles     int64
	FailedFiles    int64
	RecordsDecoded int64
	StartTime      time.Time
	Duration       time.Duration
	decodeMicros   *hdrhistogram.Histogram
}

// NewProcessingStats creates stats with the clock started.
func NewProcessingStats() *ProcessingStats {
	return &ProcessingStats{
		StartTime: time.Now(),
		// 1µs to 10min at 3 significant figures covers any realistic
		// single-file decode.
		decodeMicros: hdrhistogram.New(1, 10*time.Minute.Microseconds(), 3),
	}
}

// RecordFile accounts for one decoded table and its decode duration.
func (ps *ProcessingStats) RecordFile(table *DecodedTable, elapsed time.Duration) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.FilesDecoded++
	ps.RecordsDecoded += int64(table.RecordCount())
	switch table.Status {
	case StatusPopulated:
		ps.PopulatedFiles++
	case StatusFailed:
		ps.FailedFiles++
	default:
		ps.EmptyFiles++
	}

	micros := elapsed.Microseconds()
	if micros < 1 {
		micros = 1
	}
	// RecordValue only fails outside the configured range; clamp to max.
	if err := ps.decodeMicros.RecordValue(micros); err != nil {
		ps.decodeMicros.RecordValue(ps.decodeMicros.HighestTrackableValue())
	}
}

// UpdateDuration stamps the total elapsed run time.
func (ps *ProcessingStats) UpdateDuration() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.Duration = time.Since(ps.StartTime)
}

// String returns a one-line summary including decode latency quantiles.
func (ps *ProcessingStats) String() string {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	return fmt.Sprintf("Files: %d (populated: %d, empty: %d, failed: %d), Records: %d, Decode p50/p99/max: %dµs/%dµs/%dµs, Duration: %v",
		ps.FilesDecoded, ps.PopulatedFiles, ps.EmptyFiles, ps.FailedFiles,
		ps.RecordsDecoded,
		ps.decodeMicros.ValueAtQuantile(50.0),
		ps.decodeMicros.ValueAtQuantile(99.0),
		ps.decodeMicros.Max(),
		ps.Duration)
}
