package app

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"strategy-alerts/internal/alert"
)

// maxImportLine bounds a single payload line.
const maxImportLine = 1 << 20

// Import replays newline-delimited webhook payloads for a secret, as if
// each line had been posted to the ingest endpoint. Blank lines and lines
// starting with # are skipped. With DryRun the lines are only validated.
func (a *App) Import(ctx context.Context, opts ImportOptions) error {
	if opts.Path == "" {
		return errors.New("--file must be provided")
	}

	file, err := os.Open(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	var ingest func(ctx context.Context, body []byte) error
	if opts.DryRun {
		a.Logger.Warn().Msg("import dry-run: nothing will be stored")
		ingest = func(_ context.Context, body []byte) error {
			_, err := alert.DecodePayload(body)
			return err
		}
	} else {
		if opts.Secret == "" {
			return errors.New("--secret must be provided")
		}
		store, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		svc := a.newService(store, nil, nil)
		ingest = func(ctx context.Context, body []byte) error {
			_, err := svc.Ingest(ctx, opts.Secret, body)
			return err
		}
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)

	processed, failed, line := 0, 0, 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}

		body := bytes.TrimSpace(scanner.Bytes())
		if len(body) == 0 || body[0] == '#' {
			continue
		}

		if err := ingest(ctx, body); err != nil {
			if !errors.Is(err, alert.ErrMalformedPayload) {
				return fmt.Errorf("line %d: %w", line, err)
			}
			failed++
			a.Logger.Error().Err(err).Int("line", line).Msg("payload rejected")
			continue
		}
		processed++
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("import finished")
	if failed > 0 {
		return fmt.Errorf("%d payload(s) rejected, see log", failed)
	}
	return nil
}
