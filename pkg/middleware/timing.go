package middleware

import (
	"fmt"
	"time"

	"github.com/psantana5/cmdexec/internal/observe"
)

const (
	DefaultTimingOption = "timing"
	TimingPriority      = 10
)

// Timing reports wall-clock time and memory delta of an execution. It applies
// only when the timing option is set and reports only in verbose mode.
type Timing struct {
	option  string
	sampler observe.MemorySampler
}

// NewTiming creates the timing reporter. An empty option defaults to
// DefaultTimingOption; a nil sampler uses the process resident set size.
func NewTiming(option string, sampler observe.MemorySampler) *Timing {
	if option == "" {
		option = DefaultTimingOption
	}
	if sampler == nil {
		sampler = observe.ProcessRSS
	}
	return &Timing{option: option, sampler: sampler}
}

func (t *Timing) Priority() int {
	return TimingPriority
}

func (t *Timing) Applies(inv *Invocation) bool {
	return inv.Input.BoolOption(t.option)
}

func (t *Timing) Handle(inv *Invocation, next Handler) (int, error) {
	timing := observe.NewTiming(t.sampler)
	status, err := next(inv)
	timing.Complete()

	if inv.Output.IsVerbose() {
		memory := observe.FormatDelta(timing.MemoryDelta())
		if timing.MemoryErr != nil {
			memory = "n/a"
		}
		inv.Output.Info(fmt.Sprintf("Execution time: %s, memory: %s",
			timing.Duration().Round(time.Microsecond), memory))
	}
	return status, err
}
