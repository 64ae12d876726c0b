package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/vaultconsole/internal/common/eventbus"
	"github.com/tansive/vaultconsole/internal/common/httpclient"
	"github.com/tansive/vaultconsole/internal/common/logtrace"
	"github.com/tansive/vaultconsole/internal/console/config"
	"github.com/tansive/vaultconsole/internal/console/filemgmt"
	"github.com/tansive/vaultconsole/internal/console/form"
	"github.com/tansive/vaultconsole/internal/console/querypanel"
	"github.com/tansive/vaultconsole/internal/console/server"
	"github.com/tansive/vaultconsole/internal/console/store"
	"github.com/tansive/vaultconsole/internal/metadata"
	"github.com/tansive/vaultconsole/internal/vaultapi"
)

type cmdoptions struct {
	configFile string
	envFile    string
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	opt := parseFlags()

	if err := config.LoadConfig(opt.configFile, opt.envFile); err != nil {
		logtrace.InitLogger("info")
		return fmt.Errorf("loading config file: %w", err)
	}
	cfg := config.Config()
	logtrace.InitLogger(cfg.LogLevel)
	ctx = log.Logger.WithContext(ctx)

	slog := log.With().Str("state", "init").Logger()
	slog.Info().Str("config_file", opt.configFile).Str("backend", cfg.Backend.URL).Msg("config loaded")

	client := httpclient.NewClient(cfg, httpclient.ClientOptions{
		InsecureSkipVerify: cfg.Backend.InsecureSkipVerify,
		Timeout:            cfg.BackendTimeout(),
	})
	backend := vaultapi.New(client, vaultapi.WithFilePrefix(cfg.Backend.FilePrefix))

	bus := eventbus.New()
	defer bus.Shutdown()

	st := store.New(backend, bus)
	if path := cfg.Store.SnapshotPath; path != "" {
		if n, err := st.LoadSnapshot(path); err != nil {
			slog.Warn().Err(err).Str("path", path).Msg("snapshot ignored")
		} else {
			slog.Info().Int("collections", n).Str("path", path).Msg("snapshot restored")
		}
	}
	if err := st.Warm(ctx, metadata.AllKinds(), cfg.Store.WarmAttempts); err != nil {
		// the server still starts; /ready reports 503 until the reference
		// collections load
		slog.Error().Err(err).Msg("collection warm-up incomplete")
	}

	forms := form.NewRegistry(form.Deps{
		Collections: st,
		Backend:     backend,
		OnSubmitted: server.RefreshAfterSubmit(st),
	})
	forms.Follow(ctx, bus, store.TopicPrefix)

	var panel *querypanel.Panel
	if cfg.Query.DSN != "" {
		p, err := querypanel.Open(ctx, querypanel.Config{
			DSN:              cfg.Query.DSN,
			StatementTimeout: cfg.StatementTimeout(),
			RowLimit:         cfg.Query.RowLimit,
		})
		if err != nil {
			slog.Error().Err(err).Msg("query panel disabled")
		} else {
			panel = p
			defer panel.Close()
		}
	}

	s, err := server.CreateNewServer(server.Deps{
		Store: st,
		Forms: forms,
		Files: filemgmt.NewService(backend),
		Query: panel,
	}, server.Options{
		HandleCORS:  cfg.HandleCORS,
		CORSOrigins: cfg.CORSOrigins,
		Timeout:     cfg.HandlerTimeout(),
		UserEmail:   cfg.UserEmail,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	s.MountHandlers()

	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	go sweepForms(bgCtx, forms, cfg.FormIdleTimeout())
	if every := cfg.RefreshInterval(); every > 0 {
		go refreshCollections(bgCtx, st, every)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	serverErrors := make(chan error, 1)

	// Start the service listening for requests.
	go func() {
		slog.Info().Str("addr", srv.Addr).Msg("server started")
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for an interrupt or terminate signal from the OS.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		slog.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		stopBackground()

		// Give outstanding requests 5 seconds to complete and initiate the shutdown.
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error().Err(err).Msg("could not stop server gracefully")
			if err := srv.Close(); err != nil {
				slog.Error().Err(err).Msg("could not stop server")
			}
		}
	}

	if path := cfg.Store.SnapshotPath; path != "" {
		if err := st.SaveSnapshot(path); err != nil {
			slog.Error().Err(err).Str("path", path).Msg("could not save snapshot")
		}
	}
	slog.Info().Msg("server stopped")
	return nil
}

// sweepForms closes form sessions idle for longer than maxIdle.
func sweepForms(ctx context.Context, forms *form.Registry, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(maxIdle / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := forms.Sweep(maxIdle); n > 0 {
				log.Ctx(ctx).Info().Int("closed", n).Msg("idle form sessions closed")
			}
		}
	}
}

type refresher interface {
	Refresh(ctx context.Context, kinds ...metadata.Kind) error
}

// refreshCollections refetches every collection periodically. Failed kinds
// keep their held collections.
func refreshCollections(ctx context.Context, st refresher, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := st.Refresh(ctx, metadata.AllKinds()...); err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("collection refresh incomplete")
			}
		}
	}
}

const DefaultConfigFile = "/etc/vaultconsole/vaultconsole.conf"

func parseFlags() cmdoptions {
	var opt cmdoptions
	flag.StringVar(&opt.configFile, "config", DefaultConfigFile, "Path to the config file")
	flag.StringVar(&opt.envFile, "env-file", ".env", "Path to a .env file with overrides")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [options]\n\n", os.Args[0])
		fmt.Println("Options:")
		flag.PrintDefaults()
	}
	flag.Parse()
	return opt
}
