package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/cmdexec/pkg/command"
	"github.com/psantana5/cmdexec/pkg/executor"
	"github.com/psantana5/cmdexec/pkg/logging"
	"github.com/psantana5/cmdexec/pkg/task"
)

var parallelOptions []string

// parallelCmd represents the parallel command
var parallelCmd = &cobra.Command{
	Use:   "parallel <command[:polls]> ...",
	Short: "Run several async commands and wait for all of them",
	Long: `Submit every listed async command to the executor at once and wait for the
aggregate. The first rejection wins; commands still running at that point are
drained and reported individually. Every submission passes through the
middleware pipeline, so protected commands need a credential here too.`,
	Example: `  cmdexec parallel countdown:2 countdown:5
  cmdexec parallel countdown:3 fail:1 --output json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParallel,
}

func init() {
	rootCmd.AddCommand(parallelCmd)
	parallelCmd.Flags().StringArrayVar(&parallelOptions, "set", nil, "option applied to every command as name=value (repeatable)")
}

type parallelRow struct {
	Key    string `json:"key"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

type parallelReport struct {
	Fulfilled bool          `json:"fulfilled"`
	Error     string        `json:"error,omitempty"`
	Results   []parallelRow `json:"results"`
}

func runParallel(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	subs := make([]executor.Submission, 0, len(args))
	for i, arg := range args {
		name, polls, err := parseTarget(arg)
		if err != nil {
			return err
		}
		target, err := rt.commands.Lookup(name)
		if err != nil {
			return err
		}
		in, err := buildInput(nil, parallelOptions)
		if err != nil {
			return err
		}
		if polls > 0 {
			in.WithOption("polls", polls)
		}
		subs = append(subs, executor.Submission{
			Key:     fmt.Sprintf("%d:%s", i+1, name),
			Command: target,
			Input:   in,
		})
	}

	ctx, stop := rt.listen(cmd.Context())
	defer stop()

	tasks, status, err := rt.submitAll(ctx, subs)
	if err != nil {
		if status != command.ExitFailure {
			// the pipeline already reported why, e.g. an auth denial
			return statusError(status)
		}
		return err
	}

	report := waitParallel(ctx, tasks, cfg.Executor.PollInterval)
	if !report.Fulfilled {
		rt.logger.Warn("Parallel execution rejected", logging.Fields{"error": report.Error})
	}

	if IsJSONOutput() {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Println(string(data))
	} else {
		if !report.Fulfilled {
			fmt.Printf("Parallel execution failed: %s\n", report.Error)
		}
		if len(report.Results) > 0 {
			table := tablewriter.NewWriter(os.Stdout)
			table.Header("Key", "Status", "Result")
			for _, row := range report.Results {
				detail := row.Result
				if row.Error != "" {
					detail = row.Error
				}
				table.Append(row.Key, row.Status, detail)
			}
			table.Render()
		}
	}

	if !report.Fulfilled {
		return statusError(command.ExitFailure)
	}
	return nil
}

// waitParallel waits for all tasks to fulfill. When the aggregate rejects,
// every input is still waited on so settled and drained siblings are both
// reported under their submission key.
func waitParallel(ctx context.Context, tasks map[string]*task.Task[any], poll time.Duration) parallelReport {
	results, err := task.All(tasks).Wait(ctx, poll)

	report := parallelReport{Fulfilled: err == nil}
	if err != nil {
		report.Error = err.Error()
		for key, t := range tasks {
			value, taskErr := t.Wait(ctx, poll)
			report.Results = append(report.Results, outcomeRow(key, value, taskErr))
		}
	} else {
		for key, value := range results {
			report.Results = append(report.Results, outcomeRow(key, value, nil))
		}
	}

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].Key < report.Results[j].Key
	})
	return report
}

// parseTarget splits "name" or "name:polls"
func parseTarget(arg string) (string, int, error) {
	name, rest, found := strings.Cut(arg, ":")
	if name == "" {
		return "", 0, fmt.Errorf("invalid target %q", arg)
	}
	if !found {
		return name, 0, nil
	}
	polls, err := strconv.Atoi(rest)
	if err != nil || polls < 1 {
		return "", 0, fmt.Errorf("invalid poll count in %q", arg)
	}
	return name, polls, nil
}

func outcomeRow(key string, value any, err error) parallelRow {
	if err != nil {
		return parallelRow{Key: key, Status: "rejected", Error: err.Error()}
	}
	return parallelRow{Key: key, Status: "fulfilled", Result: fmt.Sprint(value)}
}
