package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/psantana5/cmdexec/pkg/command"
)

var (
	runOptions   []string
	runPolls     int
	runSync      bool
	runTiming    bool
	runAuthToken string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <command> [name=value ...]",
	Short: "Run a command through the middleware pipeline",
	Long: `Run a registered command. Positional name=value pairs become command arguments;
--set name=value pairs become options. Async commands are submitted to the executor
and waited on; the process exits with the status the command reports.`,
	Example: `  cmdexec run echo message=hello
  cmdexec run countdown --polls 5 --timing -v
  cmdexec run secret --auth-token s3cr3t
  cmdexec run exec program=sleep args=1 --auth-token s3cr3t`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVar(&runOptions, "set", nil, "command option as name=value (repeatable)")
	runCmd.Flags().IntVar(&runPolls, "polls", 0, "number of polls before an async demo command settles")
	runCmd.Flags().BoolVar(&runSync, "sync", false, "ask the command to run inline")
	runCmd.Flags().BoolVar(&runTiming, "timing", false, "report execution time and memory (needs -v)")
	runCmd.Flags().StringVar(&runAuthToken, "auth-token", "", "credential for protected commands")
}

func runRun(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	target, err := rt.commands.Lookup(args[0])
	if err != nil {
		return err
	}

	in, err := buildInput(args[1:], runOptions)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("polls") {
		in.WithOption("polls", runPolls)
	}
	if runSync {
		in.WithOption("sync", true)
	}
	if runTiming {
		in.WithOption("timing", true)
	}
	if runAuthToken != "" {
		in.WithOption(cfg.Auth.Option, runAuthToken)
	}

	ctx, stop := rt.listen(cmd.Context())
	defer stop()

	status, err := rt.run(ctx, target, in)
	if err != nil {
		return err
	}
	return statusError(status)
}

// buildInput parses positional name=value arguments and --set options
func buildInput(args, options []string) (*command.Input, error) {
	in := command.NewInput()
	for _, arg := range args {
		name, value, err := splitPair(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid argument: %w", err)
		}
		in.WithArg(name, value)
	}
	for _, opt := range options {
		name, value, err := splitPair(opt)
		if err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
		in.WithOption(name, value)
	}
	return in, nil
}

func splitPair(s string) (string, string, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("%q is not name=value", s)
	}
	return name, value, nil
}
