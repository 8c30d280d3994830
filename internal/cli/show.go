package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"strategy-alerts/internal/app"
)

var showOpts app.ShowOptions

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showOpts.Limit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}
		return getApp().Show(cmd.Context(), showOpts)
	},
}

func init() {
	showCmd.Flags().IntVar(&showOpts.Limit, "limit", 20, "Number of alerts to display")
	showCmd.Flags().StringVar(&showOpts.Strategy, "strategy", "", "Only show this strategy")
}
