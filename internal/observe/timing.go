package observe

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/process"
)

// MemorySampler returns the current memory footprint in bytes
type MemorySampler func() (uint64, error)

// ProcessRSS samples the resident set size of the current process
func ProcessRSS() (uint64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, fmt.Errorf("failed to open process: %w", err)
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return 0, fmt.Errorf("failed to read memory info: %w", err)
	}
	return info.RSS, nil
}

// Timing records start/end timestamps and memory samples
type Timing struct {
	StartedAt   time.Time
	CompletedAt time.Time

	StartMemory uint64
	EndMemory   uint64
	// MemoryErr is set when either sample failed; the delta is then zero
	MemoryErr error

	sampler MemorySampler
}

// NewTiming creates timing with current start time. A nil sampler disables
// memory tracking.
func NewTiming(sampler MemorySampler) *Timing {
	t := &Timing{sampler: sampler}
	if sampler != nil {
		t.StartMemory, t.MemoryErr = sampler()
	}
	t.StartedAt = time.Now()
	return t
}

// Complete records completion time and the closing memory sample
func (t *Timing) Complete() {
	t.CompletedAt = time.Now()
	if t.sampler != nil && t.MemoryErr == nil {
		t.EndMemory, t.MemoryErr = t.sampler()
	}
}

// Duration returns execution duration
func (t *Timing) Duration() time.Duration {
	if t.CompletedAt.IsZero() {
		return time.Since(t.StartedAt)
	}
	return t.CompletedAt.Sub(t.StartedAt)
}

// MemoryDelta returns EndMemory - StartMemory, which may be negative
func (t *Timing) MemoryDelta() int64 {
	if t.sampler == nil || t.MemoryErr != nil || t.CompletedAt.IsZero() {
		return 0
	}
	return int64(t.EndMemory) - int64(t.StartMemory)
}

// FormatDelta renders a signed byte count, e.g. "+1.2 MB" or "-512 B"
func FormatDelta(delta int64) string {
	if delta < 0 {
		return "-" + humanize.Bytes(uint64(-delta))
	}
	return "+" + humanize.Bytes(uint64(delta))
}
