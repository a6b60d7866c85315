package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/psantana5/cmdexec/internal/config"
	"github.com/psantana5/cmdexec/pkg/command"
)

var (
	cfgFile      string
	outputFormat string
	verbose      bool
	dumpMetrics  bool

	cfg *config.Config
)

// exitError carries a command exit status out of cobra
type exitError struct {
	status int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.status)
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cmdexec",
	Short: "Run commands through a middleware pipeline and an async executor",
	Long: `cmdexec runs commands through a prioritized middleware pipeline (authentication,
logging, metrics, timing) and executes long-running ones as cooperatively polled
tasks under a concurrency cap.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute runs the root command and returns the process exit status
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return command.ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.status
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return command.ExitFailure
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.cmdexec/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose command output and debug logging")
	rootCmd.PersistentFlags().BoolVar(&dumpMetrics, "metrics", false, "print collected metrics in Prometheus text format on exit")
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}

// statusError turns a non-zero exit status into an error cobra propagates
func statusError(status int) error {
	if status == command.ExitSuccess {
		return nil
	}
	return &exitError{status: status}
}
