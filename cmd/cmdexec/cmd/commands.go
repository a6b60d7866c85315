package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/psantana5/cmdexec/internal/demo"
	"github.com/psantana5/cmdexec/pkg/command"
	"github.com/psantana5/cmdexec/pkg/middleware"
)

// commandsCmd represents the commands command
var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the registered commands",
	RunE:  runCommands,
}

func init() {
	rootCmd.AddCommand(commandsCmd)
}

type commandInfo struct {
	Name        string `json:"name"`
	Async       bool   `json:"async"`
	Protected   bool   `json:"protected"`
	Description string `json:"description"`
}

func runCommands(cmd *cobra.Command, args []string) error {
	registry := demo.NewRegistry(cfg.Executor.TaskTimeout)
	gate := middleware.NewAuth(middleware.AuthConfig{Protected: cfg.Auth.Protected})

	infos := make([]commandInfo, 0)
	for _, name := range registry.Names() {
		c, err := registry.Lookup(name)
		if err != nil {
			return err
		}
		_, async := c.(command.AsyncCommand)
		infos = append(infos, commandInfo{
			Name:        name,
			Async:       async,
			Protected:   gate.IsProtected(name),
			Description: demo.Describe(c),
		})
	}

	if IsJSONOutput() {
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode commands: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Name", "Async", "Protected", "Description")
	for _, info := range infos {
		table.Append(info.Name, yesNo(info.Async), yesNo(info.Protected), info.Description)
	}
	table.Render()
	fmt.Printf("\nTotal commands: %d\n", len(infos))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
