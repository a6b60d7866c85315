package middleware

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/psantana5/cmdexec/pkg/command"
	"github.com/psantana5/cmdexec/pkg/metrics"
)

func TestMetricsObservesExecutions(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, _ := NewPipeline(NewMetrics(metrics.NewCollector(reg)))

	p.Execute(context.Background(), stubCommand{"deploy"}, nil, &command.Buffer{}, func(*Invocation) (int, error) {
		return 2, nil
	})

	var buf bytes.Buffer
	if err := metrics.WriteText(&buf, reg); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `cmdexec_command_exit_status_total{command="deploy",status="2"} 1`) {
		t.Errorf("status not recorded:\n%s", buf.String())
	}
}

func TestMetricsWithoutCollector(t *testing.T) {
	if NewMetrics(nil).Applies(&Invocation{}) {
		t.Error("metrics middleware without collector should not apply")
	}
}
