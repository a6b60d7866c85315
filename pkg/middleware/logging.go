package middleware

import (
	"time"

	"github.com/psantana5/cmdexec/pkg/logging"
)

const LoggingPriority = 50

// Logging records every execution: input on start, duration and status on
// completion. Errors are logged and returned unchanged.
type Logging struct {
	logger *logging.Logger
}

func NewLogging(logger *logging.Logger) *Logging {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Logging{logger: logger.WithField("component", "pipeline")}
}

func (l *Logging) Priority() int {
	return LoggingPriority
}

func (l *Logging) Applies(*Invocation) bool {
	return true
}

func (l *Logging) Handle(inv *Invocation, next Handler) (int, error) {
	name := inv.Command.Name()
	start := time.Now()
	l.logger.Info("Command started", logging.Fields{
		"command": name,
		"input":   inv.Input.Summary(),
	})

	status, err := next(inv)
	elapsed := time.Since(start)

	if err != nil {
		l.logger.Error("Command failed", logging.Fields{
			"command":     name,
			"duration_ms": elapsed.Milliseconds(),
			"error":       err,
		})
		return status, err
	}

	l.logger.Info("Command finished", logging.Fields{
		"command":     name,
		"duration_ms": elapsed.Milliseconds(),
		"status":      status,
	})
	return status, nil
}
