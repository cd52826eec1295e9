package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"hotel-price-watch/internal/alerting"
	"hotel-price-watch/internal/browser"
	"hotel-price-watch/internal/config"
	"hotel-price-watch/internal/scheduler"
	"hotel-price-watch/internal/service"
	"hotel-price-watch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// stores bundles the persistence interfaces one backend provides.
type stores struct {
	states  storage.StateStore
	history storage.HistorySink
	alerts  storage.AlertStore
	close   func()
}

// openStores selects the Postgres backend when database.dsn is configured,
// otherwise the flat-file store under monitor.data_dir.
func (a *App) openStores(ctx context.Context) (stores, error) {
	if a.Config.Database.DSN != "" {
		pool, err := storage.NewPool(ctx, a.Config.Database)
		if err != nil {
			return stores{}, err
		}
		store := storage.NewStore(pool)
		return stores{
			states:  store,
			history: store,
			alerts:  store,
			close:   store.Close,
		}, nil
	}

	fileStore, err := storage.NewFileStore(a.Config.Monitor.DataDir)
	if err != nil {
		return stores{}, err
	}
	return stores{states: fileStore, history: fileStore}, nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newFetcher() (*browser.Fetcher, error) {
	cfg := a.Config.Browser
	return browser.New(browser.Options{
		Bin:           cfg.Bin,
		Headless:      cfg.Headless,
		NoSandbox:     cfg.NoSandbox,
		PageTimeout:   cfg.PageTimeout,
		SettleDelay:   cfg.SettleDelay,
		ScrollOffsets: cfg.ScrollOffsets,
		RateSelectors: cfg.RateSelectors,
	}, a.Logger)
}

// Run executes the long-running monitoring service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(a.Config.Monitor.Targets) == 0 {
		return errors.New("monitor.targets is empty; nothing to watch")
	}

	st, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	if st.close != nil {
		defer st.close()
	}

	fetcher, err := a.newFetcher()
	if err != nil {
		return err
	}
	defer fetcher.Close()

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToSweep,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	notifier := a.newNotifier()

	svc := service.New(a.Config, sched, fetcher, st.states, st.history, st.alerts, notifier, a.Logger)

	a.Logger.Info().Int("targets", len(a.Config.Monitor.Targets)).Msg("starting monitoring service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}

// CheckOptions configure a one-shot check. When URL is set an ad-hoc single
// target is checked instead of the configured list.
type CheckOptions struct {
	URL      string
	Expected *float64
	Target   *float64
	DropPct  *float64
}

// Check runs one sweep immediately and prints the outcome per target.
func (a *App) Check(ctx context.Context, opts CheckOptions) error {
	cfg := *a.Config
	if opts.URL != "" {
		cfg.Monitor.Targets = []config.TargetConfig{{
			Name:     "single",
			URL:      opts.URL,
			Expected: opts.Expected,
			Target:   opts.Target,
			DropPct:  opts.DropPct,
		}}
	}
	if len(cfg.Monitor.Targets) == 0 {
		return errors.New("no targets: provide --url or configure monitor.targets")
	}

	st, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	if st.close != nil {
		defer st.close()
	}

	fetcher, err := a.newFetcher()
	if err != nil {
		return err
	}
	defer fetcher.Close()

	svc := service.New(&cfg, nil, fetcher, st.states, st.history, st.alerts, a.newNotifier(), a.Logger)

	results, err := svc.Sweep(ctx)
	if err != nil {
		return err
	}

	for _, result := range results {
		price := "-"
		if result.Price != nil {
			price = "£" + result.Price.StringFixed(2)
		}
		fmt.Fprintf(os.Stdout, "%s | chosen=%s | source=%s | found=%d\n",
			result.Name, price, result.Source, len(result.Amounts))
		for _, line := range result.Alerts {
			fmt.Fprintln(os.Stdout, "  ALERT: "+firstLine(line))
		}
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

// ExportOptions hold parameters for exporting a target's history.
type ExportOptions struct {
	Target    string
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Target string
	Limit  int
}
