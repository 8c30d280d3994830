package cli

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook and chart API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Serve(cmd.Context())
	},
}

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().InitDB(cmd.Context())
	},
}
