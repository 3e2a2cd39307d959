package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scribeworks/scribe/secret"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage stored credentials",
}

var secretSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a credential (e.g. anthropic_api_key)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := secret.NewResolver(cfg.Storage.SecretsDir)
		if err != nil {
			return err
		}
		if err := resolver.Store(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Stored %s.\n", args[0])
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a stored credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolver, err := secret.NewResolver(cfg.Storage.SecretsDir)
		if err != nil {
			return err
		}
		if err := resolver.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed %s.\n", args[0])
		return nil
	},
}

func init() {
	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretDeleteCmd)
	rootCmd.AddCommand(secretCmd)
}
