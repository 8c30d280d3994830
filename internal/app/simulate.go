package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"strategy-alerts/internal/alert"
)

// SimulateAlert sends a synthetic alert through the configured notifier
// without storing it.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	quantity, err := decimal.NewFromString(opts.Quantity)
	if err != nil {
		return fmt.Errorf("invalid --quantity: %w", err)
	}
	price, err := decimal.NewFromString(opts.Price)
	if err != nil {
		return fmt.Errorf("invalid --price: %w", err)
	}

	now := time.Now().UTC()
	rec := alert.Record{
		StrategyName: opts.Strategy,
		Timestamp:    now,
		Contract:     opts.Contract,
		TradeType:    opts.TradeType,
		Quantity:     quantity,
		Price:        price,
		CreatedAt:    now,
	}

	if timeout := a.Config.Alerting.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := notifier.Notify(ctx, rec); err != nil {
		return err
	}
	a.Logger.Info().Str("strategy", rec.StrategyName).Msg("simulated alert sent")
	return nil
}
