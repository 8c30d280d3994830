package cli

import (
	"github.com/spf13/cobra"

	"strategy-alerts/internal/app"
)

var importOpts app.ImportOptions

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replay newline-delimited webhook payloads into the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Import(cmd.Context(), importOpts)
	},
}

func init() {
	importCmd.Flags().StringVar(&importOpts.Secret, "secret", "", "Webhook secret the payloads belong to")
	importCmd.Flags().StringVar(&importOpts.Path, "file", "", "File with one JSON payload per line")
	importCmd.Flags().BoolVar(&importOpts.DryRun, "dry-run", false, "Validate payloads without storing them")
}
