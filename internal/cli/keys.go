package cli

import (
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage webhook secrets",
}

var bindDescription string

var keysBindCmd = &cobra.Command{
	Use:   "bind <strategy>",
	Short: "Create a secret for a strategy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().KeysBind(cmd.Context(), args[0], bindDescription)
	},
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bound secrets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().KeysList(cmd.Context())
	},
}

func init() {
	keysBindCmd.Flags().StringVar(&bindDescription, "description", "", "Free-form note stored with the key")
	keysCmd.AddCommand(keysBindCmd, keysListCmd)
}
