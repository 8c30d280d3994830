package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"strategy-alerts/internal/alerting"
	"strategy-alerts/internal/config"
	"strategy-alerts/internal/metrics"
	"strategy-alerts/internal/scheduler"
	"strategy-alerts/internal/server"
	"strategy-alerts/internal/service"
	"strategy-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives command output meant for the terminal.
	Out io.Writer

	open func(ctx context.Context, cfg config.DatabaseConfig) (storage.Repository, error)
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{
		Config: cfg,
		Logger: logger.With().Str("component", "app").Logger(),
		Out:    os.Stdout,
		open:   storage.Open,
	}
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, a.Config.Alerting.Timeout, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (storage.Repository, error) {
	if a.Config.Database.Driver == config.DriverMemory {
		a.Logger.Warn().Msg("database.driver is memory; records are lost on exit")
	}
	return a.open(ctx, a.Config.Database)
}

func (a *App) newService(store storage.Repository, m *metrics.Metrics, sched *scheduler.Scheduler) *service.Service {
	return service.New(a.Config, store, store, a.newNotifier(), m, sched, a.Logger)
}

// Serve runs the HTTP API and the gauge refresher until a signal arrives.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	var (
		m     *metrics.Metrics
		sched *scheduler.Scheduler
	)
	if a.Config.Metrics.Enabled {
		m = metrics.New()
		sched = scheduler.New(scheduler.Options{
			Interval:  a.Config.Metrics.RefreshInterval,
			Immediate: true,
		}, a.Logger)
	}

	svc := a.newService(store, m, sched)
	srv := server.New(a.Config, svc, m, a.Logger)

	a.Logger.Info().Str("driver", a.Config.Database.Driver).Msg("starting alert service")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	g.Go(func() error { return svc.Run(gctx) })

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("alert service stopped")
	return nil
}

// InitDB creates the schema of the configured store.
func (a *App) InitDB(ctx context.Context) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	a.Logger.Info().Str("driver", a.Config.Database.Driver).Msg("schema ready")
	return nil
}

// ExportOptions hold parameters for exporting a chart query.
type ExportOptions struct {
	Strategy  string
	StartDate string
	EndDate   string
	StartTime string
	EndTime   string
	Days      []string
	Weeks     []int
	Timezone  string

	Mode       string
	Measure    string
	PNGPath    string
	CSVPath    string
	JSONPath   string
	MaxRecords int
}

// RenderOptions configure rendering a stored figure file.
type RenderOptions struct {
	FigurePath string
	PNGPath    string
	Width      int
	Height     int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Strategy string
	Limit    int
}

// ImportOptions configure replaying webhook payloads from a file.
type ImportOptions struct {
	Secret string
	Path   string
	DryRun bool
}

// SimulateOptions describe the synthetic alert sent by simulate-alert.
type SimulateOptions struct {
	Strategy  string
	Contract  string
	TradeType string
	Quantity  string
	Price     string
}
