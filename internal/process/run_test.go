package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/psantana5/cmdexec/pkg/task"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestStartCapturesExitCode(t *testing.T) {
	requireShell(t)

	tests := []struct {
		script   string
		exitCode int
	}{
		{"exit 0", 0},
		{"exit 3", 3},
	}

	for _, tt := range tests {
		tk, err := Start(context.Background(), "sh", []string{"-c", tt.script}, nil, nil, 0)
		if err != nil {
			t.Fatalf("Start(%q): %v", tt.script, err)
		}
		v, err := tk.Wait(context.Background(), time.Millisecond)
		if err != nil {
			t.Fatalf("Wait(%q): %v", tt.script, err)
		}
		res, ok := v.(*Result)
		if !ok {
			t.Fatalf("result is %T, want *Result", v)
		}
		if res.ExitCode != tt.exitCode {
			t.Errorf("%q: exit code = %d, want %d", tt.script, res.ExitCode, tt.exitCode)
		}
		if res.Succeeded() != (tt.exitCode == 0) {
			t.Errorf("%q: Succeeded() = %v", tt.script, res.Succeeded())
		}
		if res.PID == 0 || res.Duration < 0 {
			t.Errorf("%q: implausible result %+v", tt.script, res)
		}
	}
}

func TestStartForwardsOutput(t *testing.T) {
	requireShell(t)

	var stdout bytes.Buffer
	tk, err := Start(context.Background(), "sh", []string{"-c", "echo hello"}, &stdout, nil, 0)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := tk.Wait(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "hello" {
		t.Errorf("stdout = %q, want hello", got)
	}
}

func TestStartTimeoutKillsProcess(t *testing.T) {
	requireShell(t)

	tk, err := Start(context.Background(), "sh", []string{"-c", "sleep 5"}, nil, nil, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	begin := time.Now()
	_, err = tk.Wait(context.Background(), time.Millisecond)
	if !errors.Is(err, task.ErrTimeout) {
		t.Fatalf("Wait error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(begin); elapsed > 2*time.Second {
		t.Errorf("Wait took %s, want close to the timeout", elapsed)
	}
}

func TestStartErrors(t *testing.T) {
	if _, err := Start(context.Background(), "", nil, nil, nil, 0); !errors.Is(err, ErrEmptyProgram) {
		t.Errorf("empty program error = %v, want ErrEmptyProgram", err)
	}
	if _, err := Start(context.Background(), "cmdexec-no-such-program", nil, nil, nil, 0); err == nil {
		t.Error("Start of a missing program succeeded, want error")
	}
}

func TestResultSummary(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := newResult("sleep", 42, 1, start, start.Add(1500*time.Millisecond))

	if r.Duration != 1500*time.Millisecond {
		t.Errorf("Duration = %s, want 1.5s", r.Duration)
	}
	if got, want := r.Summary(), "sleep | exit=1 | pid=42 | runtime=1.5s"; got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}
