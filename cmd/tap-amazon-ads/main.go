package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tap_amazon_ads/internal/catalog"
	"tap_amazon_ads/internal/client"
	"tap_amazon_ads/internal/config"
	"tap_amazon_ads/internal/metrics"
	"tap_amazon_ads/internal/output"
	"tap_amazon_ads/internal/scheduler"
	"tap_amazon_ads/internal/service"
	"tap_amazon_ads/internal/storage/file"
	"tap_amazon_ads/internal/storage/postgres"
	"tap_amazon_ads/internal/stream"
)

type options struct {
	configPath  string
	statePath   string
	catalogPath string
	discover    bool
	interval    time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TAP_AMAZON_ADS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "tap-amazon-ads",
		Short:         "Extract Amazon Advertising entities as Singer messages",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := options{
				configPath:  v.GetString("config"),
				statePath:   v.GetString("state"),
				catalogPath: v.GetString("catalog"),
				discover:    v.GetBool("discover"),
				interval:    v.GetDuration("interval"),
			}
			logger := setupLogger("info")
			if opts.configPath == "" {
				err := errors.New("--config is required")
				logger.Error("invalid arguments", "error", err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, opts, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("tap failed", "error", err)
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "Path to the config file (required)")
	flags.String("state", "", "Path to a state file to resume from")
	flags.String("catalog", "", "Path to a catalog with stream selection")
	flags.Bool("discover", false, "Write the discovery catalog to stdout and exit")
	flags.Duration("interval", 0, "Repeat the sync on this interval instead of running once")
	_ = v.BindPFlags(flags)

	return cmd
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	logger = setupLogger(cfg.LogLevel)

	registry, err := stream.NewRegistry(stream.Definitions())
	if err != nil {
		return fmt.Errorf("build stream registry: %w", err)
	}

	if opts.discover {
		return service.Discover(os.Stdout, registry.Definitions())
	}

	cat, err := loadCatalog(opts.catalogPath, registry, logger)
	if err != nil {
		return err
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, m, logger)
		defer shutdown()
	}

	emitter, err := openEmitter(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := emitter.Close(); err != nil {
			logger.Error("failed to flush output", "error", err)
		}
	}()

	store, closeStore, err := openStateStore(ctx, cfg, opts.statePath, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	interval := cfg.Sync.Interval
	if opts.interval > 0 {
		interval = opts.interval
	}

	return client.WithClient(ctx, cfg.ClientConfig(), logger, func(c *client.Client) error {
		syncService := service.NewSyncService(
			registry,
			cat,
			c,
			store,
			emitter,
			logger,
			cfg.Sync,
			service.WithMetrics(m),
		)

		if interval <= 0 {
			_, err := syncService.Sync(ctx)
			return err
		}

		logger.Info("starting tap in interval mode", "interval", interval)
		return scheduler.NewScheduler(syncService, interval, logger).Start(ctx)
	}, client.WithMetrics(m))
}

// loadCatalog falls back to every stream selected when no catalog is given.
func loadCatalog(path string, registry *stream.Registry, logger *slog.Logger) (*catalog.Catalog, error) {
	if path != "" {
		cat, err := catalog.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		return cat, nil
	}
	logger.Warn("no catalog given, syncing every stream")
	cat := catalog.Discover(registry.Definitions())
	cat.SelectAll()
	return cat, nil
}

func openEmitter(cfg *config.Config, logger *slog.Logger) (output.Emitter, error) {
	emitters := output.Tee{output.NewSinger(os.Stdout)}
	if cfg.RabbitMQ.URL == "" {
		return emitters, nil
	}

	rabbit, err := output.NewRabbitMQ(output.RabbitMQConfig{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		return nil, err
	}
	return append(emitters, rabbit), nil
}

// openStateStore prefers the configured store. Without one, --state is read
// and never written; later runs in interval mode resume from the state the
// previous run saved in memory.
func openStateStore(ctx context.Context, cfg *config.Config, statePath string, logger *slog.Logger) (service.StateStore, func(), error) {
	switch cfg.StateStore.Type {
	case "postgres":
		db, err := postgres.Open(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, err
		}
		logger.Info("connected to database", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)
		return postgres.NewStateStore(db), func() { db.Close() }, nil
	case "file":
		if statePath != "" {
			logger.Warn("ignoring --state, using the configured state store", "path", cfg.StateStore.Path)
		}
		return file.NewStore(cfg.StateStore.Path), func() {}, nil
	default:
		return file.NewStore(statePath, file.ReadOnly()), func() {}, nil
	}
}

func serveMetrics(addr string, m *metrics.Metrics, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}
