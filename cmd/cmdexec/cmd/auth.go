package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/psantana5/cmdexec/pkg/auth"
)

var hashCost int

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage credentials for protected commands",
}

// authHashCmd represents the auth hash command
var authHashCmd = &cobra.Command{
	Use:   "hash <key>",
	Short: "Hash a key for the auth.keys config list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := auth.HashKey(args[0], hashCost)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

// authCheckCmd represents the auth check command
var authCheckCmd = &cobra.Command{
	Use:   "check <key>",
	Short: "Check a key against the configured credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(cfg.Auth.Keys) == 0 {
			fmt.Println("No keys configured: any non-empty credential is accepted")
			return nil
		}
		if err := auth.NewKeyStore(cfg.Auth.Keys...).Validate(args[0]); err != nil {
			return err
		}
		fmt.Println("Key accepted")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authHashCmd)
	authCmd.AddCommand(authCheckCmd)

	authHashCmd.Flags().IntVar(&hashCost, "cost", bcrypt.DefaultCost, "bcrypt cost")
}
