// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/showtime/internal/api/connect"
	"github.com/osa030/showtime/internal/api/httpapi"
	"github.com/osa030/showtime/internal/api/ws"
	"github.com/osa030/showtime/internal/app/filter"
	"github.com/osa030/showtime/internal/app/notification"
	"github.com/osa030/showtime/internal/app/repertoire"
	"github.com/osa030/showtime/internal/infra/config"
	"github.com/osa030/showtime/internal/infra/logger"
	"github.com/osa030/showtime/internal/infra/spotify"
	"github.com/osa030/showtime/internal/infra/store"
)

var (
	app        = kingpin.New("showtime-server", "showtime repertoire and setlist server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: from config)").String()

	// check-config command
	checkConfigCmd = app.Command("check-config", "Validate the config file and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Console logging until the config is loaded
	if _, err := logger.Init(loggerConfig(config.Default().Log)); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == checkConfigCmd.FullCommand() {
		if _, err := filter.NewChainFromConfig(cfg.Import); err != nil {
			zlog.Fatal().Msgf("Invalid import filters: %v", err)
		}
		printConfig(cfg)
		return
	}

	closer, err := logger.Init(loggerConfig(cfg.Log))
	if err != nil {
		zlog.Fatal().Msgf("Failed to initialize logger: %v", err)
	}
	defer closer.Close()

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		_ = closer.Close()
		os.Exit(1)
	}
}

// loggerConfig applies command-line overrides to the configured logger.
func loggerConfig(c config.LogConfig) logger.Config {
	lc := logger.Config{
		Output:     c.Output,
		Level:      c.Level,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	}
	if *verbose {
		lc.Level = "debug"
	}
	if *logfile != "" {
		lc.Output = *logfile
		lc.File = *logfile
	}
	return lc
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open the document store
	gateway, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return errors.Wrap(err, "failed to open store")
	}
	defer gateway.Close()

	// Build import filter chain from config
	filters, err := filter.NewChainFromConfig(cfg.Import)
	if err != nil {
		return errors.Wrap(err, "failed to build import filters")
	}

	notifications := notification.NewManager()
	opts := []repertoire.Option{
		repertoire.WithImportFilters(filters),
		repertoire.WithGapSeconds(cfg.Show.GapSeconds),
		repertoire.WithLanguage(cfg.Language()),
		repertoire.WithNotificationManager(notifications),
	}

	// Spotify import is optional
	if cfg.Spotify.Enabled() {
		spotifyClient, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return errors.Wrap(err, "failed to create Spotify client")
		}
		opts = append(opts, repertoire.WithTrackSource(spotifyClient))
		zlog.Info().Msgf("Spotify import enabled: market=%s", cfg.Spotify.Market)
	} else {
		zlog.Info().Msg("Spotify credentials not configured, playlist import disabled")
	}

	// Create repertoire manager
	repertoireMgr := repertoire.NewManager(gateway, opts...)
	if err := repertoireMgr.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to start repertoire")
	}
	defer repertoireMgr.Close()

	// Websocket hub fed by the notification manager
	hub := ws.NewHub()
	go hub.Run(ctx)
	hubSubscription := notifications.Subscribe(hub)
	defer notifications.Unsubscribe(hubSubscription)
	wsHandler := ws.NewHandler(hub, func() *notification.Event {
		return notifications.Stamp(notification.KindState, repertoireMgr.State())
	}, cfg.Server.AllowedOrigins)

	// Create RPC services
	handlerOpts := apiconnect.HandlerOptions()
	var mounts []httpapi.Mount
	for _, register := range []func() (string, http.Handler){
		func() (string, http.Handler) {
			return apiconnect.NewLibraryServiceHandler(apiconnect.NewLibraryService(repertoireMgr), handlerOpts...)
		},
		func() (string, http.Handler) {
			return apiconnect.NewSetlistServiceHandler(apiconnect.NewSetlistService(repertoireMgr), handlerOpts...)
		},
		func() (string, http.Handler) {
			return apiconnect.NewPresetServiceHandler(apiconnect.NewPresetService(repertoireMgr), handlerOpts...)
		},
	} {
		path, handler := register()
		mounts = append(mounts, httpapi.Mount{Path: path, Handler: handler})
	}

	router := httpapi.NewServer(repertoireMgr, cfg.Server, wsHandler, mounts...).Router(httpapi.DefaultMiddlewares()...)

	// Determine server address
	serverAddr := cfg.Server.Addr
	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s store=%s", serverAddr, cfg.Store.Driver)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return errors.Wrap(err, "server error")
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Close notifications first to terminate active streams
	notifications.Close()
	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// printConfig prints the effective configuration.
func printConfig(cfg *config.Config) {
	printConfigTo(os.Stdout, cfg)
}

func printConfigTo(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration OK:")
	fmt.Fprintf(w, "  %-14s %s\n", "addr", cfg.Server.Addr)
	fmt.Fprintf(w, "  %-14s %s\n", "store", cfg.Store.Driver)
	fmt.Fprintf(w, "  %-14s %d\n", "gap_seconds", cfg.Show.GapSeconds)
	fmt.Fprintf(w, "  %-14s %s\n", "collation", cfg.Language())
	fmt.Fprintf(w, "  %-14s %t\n", "spotify", cfg.Spotify.Enabled())
	if cfg.Server.RateLimit.RequestsPerSecond < 0 {
		fmt.Fprintf(w, "  %-14s %s\n", "rate_limit", "disabled")
	} else {
		fmt.Fprintf(w, "  %-14s %.1f/s burst %d\n", "rate_limit", cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst)
	}

	fmt.Fprintln(w, "\nImport filters:")
	registered := filter.GetRegistered()
	for _, name := range filter.Names() {
		status := "[DISABLED]"
		if cfg.Import.IsFilterEnabled(name) {
			status = "[ENABLED] "
		}
		f := registered[name]()
		fmt.Fprintf(w, "  %s %-24s %s\n", status, name, f.Description())
		fmt.Fprintf(w, "  %s %-24s codes: %v\n", "          ", "", f.ReturnCodes())
	}
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
