// Command storaged runs the storagecore HTTP daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"storagecore/internal/api"
	"storagecore/internal/blob"
	"storagecore/internal/bus"
	"storagecore/internal/catalog"
	"storagecore/internal/config"
	"storagecore/internal/core"
	"storagecore/internal/log"
	"storagecore/pkg/storageapi"
	"storagecore/plugins/dropbox"
	"storagecore/plugins/github"
	"storagecore/plugins/googledrive"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "storaged: %v\n", err)
		os.Exit(1)
	}
}

// availablePlugins maps config names to plugin constructors.
var availablePlugins = map[string]func() storageapi.Plugin{
	"dropbox":     func() storageapi.Plugin { return dropbox.New() },
	"github":      func() storageapi.Plugin { return github.New() },
	"googledrive": func() storageapi.Plugin { return googledrive.New() },
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log.Configure(log.Config{Level: cfg.LogLevel})
	logger := log.WithComponent("storaged")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := catalog.NewRulesEngine(
		catalog.KeyFormatRule{},
		catalog.ObjectQuotaRule{SoftLimit: cfg.Quota.SoftLimit, HardLimit: cfg.Quota.HardLimit},
	)

	cat, err := core.OpenCatalogStore(core.CatalogDriver(cfg.Catalog.Driver), catalogDSN(cfg), engine)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer func() {
		if err := cat.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing catalog store failed")
		}
	}()

	factory := blob.NewFactory()
	events := bus.NewMemoryBus()
	recorder, err := core.NewPrometheusMetricsRecorder(nil)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	// Plugins must register their drivers before the blob store opens, so a
	// plugin-provided driver can serve as the primary backend.
	service := core.NewService(nil, cat, engine,
		core.WithFactory(factory),
		core.WithBus(events),
		core.WithMetricsRecorder(recorder),
		core.WithLogger(log.WithComponent("core")),
	)
	for _, name := range cfg.Plugins.Enabled {
		ctor, ok := availablePlugins[name]
		if !ok {
			return fmt.Errorf("unknown plugin %q in config", name)
		}
		meta, err := service.InstallPlugin(ctor())
		if err != nil {
			return fmt.Errorf("install plugin %s: %w", name, err)
		}
		logger.Info().Str("plugin", meta.Name).Strs("drivers", meta.Drivers).Msg("plugin enabled")
	}

	store, err := factory.Open(ctx, blob.Driver(cfg.Blob.Driver), blob.Settings{
		FSRoot:      cfg.Blob.FSRoot,
		S3Bucket:    cfg.Blob.S3.Bucket,
		S3Region:    cfg.Blob.S3.Region,
		S3Endpoint:  cfg.Blob.S3.Endpoint,
		S3PathStyle: cfg.Blob.S3.PathStyle,
		Token:       cfg.Blob.Token,
		Extra:       cfg.Blob.Extra,
	})
	if err != nil {
		return fmt.Errorf("open blob store %s: %w", cfg.Blob.Driver, err)
	}
	service.SetStore(blob.Instrument(store, recorder, log.WithComponent("blob")))

	server := api.NewServer(service, config.NewRuntime(), api.Options{
		RateLimit: cfg.API.RateLimit,
		Logger:    log.WithComponent("api"),
	})
	httpServer := &http.Server{
		Addr:              cfg.API.Listen,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("listen", cfg.API.Listen).Str("driver", cfg.Blob.Driver).Msg("storaged listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("storaged stopped")
	return nil
}

func catalogDSN(cfg config.FileConfig) string {
	if cfg.Catalog.Driver == "postgres" {
		return cfg.Catalog.PostgresDSN
	}
	return cfg.Catalog.SQLitePath
}
