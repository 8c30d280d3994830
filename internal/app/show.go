package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"strategy-alerts/internal/storage"
)

// Show prints recent alerts, newest first.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListAlerts(ctx, storage.ListFilter{Strategy: opts.Strategy, Limit: opts.Limit})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(a.Out, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tTime (UTC)\tStrategy\tContract\tSide\tQuantity\tPrice")

	for _, rec := range records {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.ID,
			rec.Timestamp.UTC().Format(time.RFC3339),
			sanitizeInline(rec.StrategyName),
			sanitizeInline(rec.Contract),
			rec.TradeType,
			rec.Quantity.String(),
			rec.Price.String(),
		)
	}

	return writer.Flush()
}

// KeysBind creates a secret for a strategy and prints it.
func (a *App) KeysBind(ctx context.Context, name, description string) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	key, err := a.newService(store, nil, nil).BindKey(ctx, name, description)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "strategy: %s\nsecret: %s\nwebhook: /alerts/create/%s\n", key.StrategyName, key.SecretKey, key.SecretKey)
	return nil
}

// KeysList prints every bound secret.
func (a *App) KeysList(ctx context.Context) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := a.newService(store, nil, nil).ListKeys(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.Out, "no keys found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Strategy\tSecret\tCreated (UTC)\tDescription")
	for _, key := range list {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\n",
			sanitizeInline(key.StrategyName),
			key.SecretKey,
			key.CreatedAt.UTC().Format(time.RFC3339),
			sanitizeInline(key.Description),
		)
	}
	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
