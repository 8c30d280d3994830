package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"strategy-alerts/internal/alert"
	"strategy-alerts/internal/alerting"
	"strategy-alerts/internal/chart"
	"strategy-alerts/internal/config"
	"strategy-alerts/internal/filter"
	"strategy-alerts/internal/keys"
	"strategy-alerts/internal/metrics"
	"strategy-alerts/internal/scheduler"
	"strategy-alerts/internal/storage"
)

// Rejection reasons reported to metrics.
const (
	reasonUnknownSecret = "unknown_secret"
	reasonMalformed     = "malformed_payload"
	reasonStore         = "store_error"
)

// Service orchestrates webhook ingest, key binding and chart queries.
type Service struct {
	store     storage.AlertStore
	keys      *keys.Resolver
	notifier  alerting.Notifier
	metrics   *metrics.Metrics
	scheduler *scheduler.Scheduler
	logger    zerolog.Logger

	notifyTimeout time.Duration
	location      *time.Location
	chartDefaults chart.BuildOptions
	now           func() time.Time
}

// New constructs the service. notifier, m and sched may be nil.
func New(cfg *config.Config, store storage.AlertStore, keyStore storage.KeyStore, notifier alerting.Notifier, m *metrics.Metrics, sched *scheduler.Scheduler, logger zerolog.Logger) *Service {
	logger = logger.With().Str("component", "service").Logger()

	mode, err := chart.ParseMode(cfg.Chart.DefaultMode)
	if err != nil {
		logger.Warn().Str("mode", cfg.Chart.DefaultMode).Msg("unknown chart.default_mode, using raw")
		mode = chart.ModeRaw
	}

	pnl := chart.DefaultPnLOptions()
	if cfg.Chart.Multiplier > 0 {
		pnl.Multiplier = decimal.NewFromFloat(cfg.Chart.Multiplier)
	}
	if cfg.Chart.Delta > 0 {
		pnl.Delta = decimal.NewFromFloat(cfg.Chart.Delta)
	}
	pnl.FeePerTrade = decimal.NewFromFloat(cfg.Chart.FeePerTrade)
	pnl.FeePerUnit = decimal.NewFromFloat(cfg.Chart.FeePerUnit)

	if notifier == nil {
		notifier = alerting.Nop{}
	}

	return &Service{
		store:         store,
		keys:          keys.NewResolver(keyStore),
		notifier:      notifier,
		metrics:       m,
		scheduler:     sched,
		logger:        logger,
		notifyTimeout: cfg.Alerting.Timeout,
		location:      cfg.Location(),
		chartDefaults: chart.BuildOptions{
			Mode:           mode,
			Measure:        chart.MeasureCount,
			AggregateAfter: cfg.Chart.AggregateAfter,
			PnL:            pnl,
		},
		now: time.Now,
	}
}

// Run refreshes the stored-alert gauges on the scheduler until ctx ends.
// Without a scheduler it returns immediately.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Run(ctx, s.RefreshGauges)
}

// RefreshGauges publishes the per-strategy record counts.
func (s *Service) RefreshGauges(ctx context.Context, _ time.Time) error {
	counts, err := s.store.CountByStrategy(ctx)
	if err != nil {
		return fmt.Errorf("count alerts: %w", err)
	}
	s.metrics.SetStored(counts)
	return nil
}

// Ingest resolves secret, validates body and stores the resulting record.
func (s *Service) Ingest(ctx context.Context, secret string, body []byte) (alert.Record, error) {
	strategy, err := s.keys.Resolve(ctx, secret)
	if err != nil {
		if errors.Is(err, keys.ErrUnknownSecret) {
			s.metrics.ObserveRejected(reasonUnknownSecret)
		}
		return alert.Record{}, err
	}

	payload, err := alert.DecodePayload(body)
	if err != nil {
		s.metrics.ObserveRejected(reasonMalformed)
		return alert.Record{}, err
	}

	rec, err := s.store.InsertAlert(ctx, payload.Record(strategy, s.now()))
	if err != nil {
		s.metrics.ObserveRejected(reasonStore)
		return alert.Record{}, fmt.Errorf("store alert: %w", err)
	}
	s.metrics.ObserveIngest(strategy)

	s.logger.Info().
		Int64("alert_id", rec.ID).
		Str("strategy", strategy).
		Str("contract", rec.Contract).
		Str("trade_type", rec.TradeType).
		Msg("alert stored")

	s.forward(ctx, rec)
	return rec, nil
}

func (s *Service) forward(ctx context.Context, rec alert.Record) {
	if s.notifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.notifyTimeout)
		defer cancel()
	}
	if err := s.notifier.Notify(ctx, rec); err != nil {
		s.logger.Warn().Err(err).Int64("alert_id", rec.ID).Msg("alert forward failed")
	}
}

// BindKey issues a new webhook secret for a strategy.
func (s *Service) BindKey(ctx context.Context, name, description string) (storage.StrategyKey, error) {
	key, err := s.keys.Bind(ctx, name, description)
	if err != nil {
		return storage.StrategyKey{}, err
	}
	s.logger.Info().Str("strategy", key.StrategyName).Str("key_id", key.ID).Msg("key bound")
	return key, nil
}

// ResolveStrategy returns the strategy bound to secret.
func (s *Service) ResolveStrategy(ctx context.Context, secret string) (string, error) {
	return s.keys.Resolve(ctx, secret)
}

// ListKeys returns every bound key.
func (s *Service) ListKeys(ctx context.Context) ([]storage.StrategyKey, error) {
	return s.keys.List(ctx)
}

// ChartDefaults returns the configured build options for decoding requests.
func (s *Service) ChartDefaults() chart.BuildOptions {
	return s.chartDefaults
}

// Select validates spec and returns the matching records of its strategy.
// The spec is rejected before any store access.
func (s *Service) Select(ctx context.Context, spec filter.Spec) ([]alert.Record, error) {
	spec = spec.WithDefaultLocation(s.location)
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	records, err := s.store.ListAlertsByStrategy(ctx, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}
	return chart.Select(records, spec)
}

// Chart runs the query flow with the configured defaults.
func (s *Service) Chart(ctx context.Context, spec filter.Spec) (chart.Figure, error) {
	return s.ChartWithOptions(ctx, spec, s.chartDefaults)
}

// ChartWithOptions selects, builds and assembles a figure for spec.
func (s *Service) ChartWithOptions(ctx context.Context, spec filter.Spec, opts chart.BuildOptions) (chart.Figure, error) {
	spec = spec.WithDefaultLocation(s.location)

	matched, err := s.Select(ctx, spec)
	if err != nil {
		s.metrics.ObserveChart(string(opts.Mode), outcome(err))
		return chart.Figure{}, err
	}

	fig, mode := s.Figure(spec, matched, opts)
	s.metrics.ObserveChart(string(mode), "ok")

	s.logger.Debug().
		Str("strategy", spec.Name).
		Str("mode", string(mode)).
		Int("matched", len(matched)).
		Int("traces", len(fig.Data)).
		Msg("chart assembled")
	return fig, nil
}

// Figure builds and assembles already selected records. It reports the
// concrete mode used, so ModeAuto never comes back.
func (s *Service) Figure(spec filter.Spec, matched []alert.Record, opts chart.BuildOptions) (chart.Figure, chart.Mode) {
	spec = spec.WithDefaultLocation(s.location)
	opts.Strategy = spec.Name
	opts.Location = spec.Zone()
	opts.Mode = chart.ResolveMode(matched, opts)
	return chart.Assemble(chart.Build(matched, opts), chart.AssembleOptions{Title: spec.Name}), opts.Mode
}

func outcome(err error) string {
	if errors.Is(err, filter.ErrInvalidFilter) {
		return "invalid"
	}
	return "error"
}

// StrategyNames lists the distinct strategies with stored alerts.
func (s *Service) StrategyNames(ctx context.Context) ([]string, error) {
	names, err := s.store.ListStrategyNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list strategy names: %w", err)
	}
	return names, nil
}

// ListAlerts returns recent alerts, newest first.
func (s *Service) ListAlerts(ctx context.Context, f storage.ListFilter) ([]alert.Record, error) {
	return s.store.ListAlerts(ctx, f)
}

// GetAlert loads a single alert.
func (s *Service) GetAlert(ctx context.Context, id int64) (alert.Record, error) {
	return s.store.GetAlert(ctx, id)
}

// DeleteAlert removes a single alert.
func (s *Service) DeleteAlert(ctx context.Context, id int64) error {
	if err := s.store.DeleteAlert(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("alert_id", id).Msg("alert deleted")
	return nil
}
