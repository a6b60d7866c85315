package middleware

import (
	"time"

	"github.com/psantana5/cmdexec/pkg/metrics"
)

const MetricsPriority = 40

// Metrics observes duration and exit status of every execution
type Metrics struct {
	collector *metrics.Collector
}

func NewMetrics(c *metrics.Collector) *Metrics {
	return &Metrics{collector: c}
}

func (m *Metrics) Priority() int {
	return MetricsPriority
}

func (m *Metrics) Applies(*Invocation) bool {
	return m.collector != nil
}

func (m *Metrics) Handle(inv *Invocation, next Handler) (int, error) {
	start := time.Now()
	status, err := next(inv)
	m.collector.CommandObserved(inv.Command.Name(), time.Since(start), status, err)
	return status, err
}
