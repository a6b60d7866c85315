package process

import (
	"fmt"
	"time"
)

// Result is the outcome of one process run. It is set once, when the
// process exits, and never changes afterwards.
type Result struct {
	Program string `json:"program"`
	PID     int    `json:"pid"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	// A non-zero exit code is still a completed run
	ExitCode int `json:"exit_code"`
}

func newResult(program string, pid, exitCode int, start, end time.Time) *Result {
	return &Result{
		Program:   program,
		PID:       pid,
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
		ExitCode:  exitCode,
	}
}

// Succeeded reports whether the process exited with status 0
func (r *Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Summary is the one-line form used in command output and logs
func (r *Result) Summary() string {
	return fmt.Sprintf("%s | exit=%d | pid=%d | runtime=%s",
		r.Program, r.ExitCode, r.PID, r.Duration.Round(time.Millisecond))
}
