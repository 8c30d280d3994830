package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"strategy-alerts/internal/app"
)

var simulateOpts app.SimulateOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a synthetic alert through the configured notifier",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(simulateOpts.Strategy) == "" {
			return errors.New("--strategy must be provided")
		}
		return getApp().SimulateAlert(cmd.Context(), simulateOpts)
	},
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simulateOpts.Strategy, "strategy", "", "Strategy name shown in the message")
	f.StringVar(&simulateOpts.Contract, "contract", "TEST", "Contract symbol")
	f.StringVar(&simulateOpts.TradeType, "side", "buy", "Trade type")
	f.StringVar(&simulateOpts.Quantity, "quantity", "1", "Quantity")
	f.StringVar(&simulateOpts.Price, "price", "1", "Price")
}
