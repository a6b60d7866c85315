package metrics

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Collector holds the prometheus metrics of one executor and its pipeline.
// A nil *Collector is valid and records nothing.
type Collector struct {
	submitted  *prometheus.CounterVec
	rejected   prometheus.Counter
	completed  *prometheus.CounterVec
	cancelled  prometheus.Counter
	running    prometheus.Gauge
	duration   *prometheus.HistogramVec
	exitStatus *prometheus.CounterVec
}

// NewCollector creates the metrics and registers them on reg.
// A nil reg leaves them unregistered.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmdexec_tasks_submitted_total",
				Help: "Commands submitted to the executor by execution mode",
			},
			[]string{"mode"}, // "sync" or "async"
		),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cmdexec_tasks_rejected_total",
			Help: "Async submissions refused because the concurrency cap was reached",
		}),
		completed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmdexec_tasks_completed_total",
				Help: "Tracked async tasks that settled, by outcome",
			},
			[]string{"outcome"}, // "fulfilled" or "rejected"
		),
		cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cmdexec_tasks_cancelled_total",
			Help: "Pending tasks force-rejected by CancelAll",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cmdexec_tasks_running",
			Help: "Async tasks currently tracked by the executor",
		}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cmdexec_command_duration_seconds",
				Help:    "Wall-clock duration of commands run through the pipeline",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"command"},
		),
		exitStatus: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmdexec_command_exit_status_total",
				Help: "Exit statuses returned through the pipeline",
			},
			[]string{"command", "status"},
		),
	}

	if reg != nil {
		reg.MustRegister(c.submitted, c.rejected, c.completed, c.cancelled, c.running, c.duration, c.exitStatus)
	}
	return c
}

func (c *Collector) TaskSubmitted(mode string) {
	if c == nil {
		return
	}
	c.submitted.WithLabelValues(mode).Inc()
}

func (c *Collector) TaskRejected() {
	if c == nil {
		return
	}
	c.rejected.Inc()
}

func (c *Collector) TaskCompleted(outcome string) {
	if c == nil {
		return
	}
	c.completed.WithLabelValues(outcome).Inc()
}

func (c *Collector) TasksCancelled(n int) {
	if c == nil {
		return
	}
	c.cancelled.Add(float64(n))
}

func (c *Collector) SetRunning(n int) {
	if c == nil {
		return
	}
	c.running.Set(float64(n))
}

// CommandObserved records one pipeline execution. A failed execution
// (err != nil) is recorded under status "error".
func (c *Collector) CommandObserved(command string, d time.Duration, status int, err error) {
	if c == nil {
		return
	}
	label := strconv.Itoa(status)
	if err != nil {
		label = "error"
	}
	c.duration.WithLabelValues(command).Observe(d.Seconds())
	c.exitStatus.WithLabelValues(command, label).Inc()
}

// WriteText writes every metric gathered from g in the text exposition format
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	encoder := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
