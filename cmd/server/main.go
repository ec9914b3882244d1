// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/19queue/internal/api/connect"
	"github.com/osa030/19queue/internal/app/gate"
	"github.com/osa030/19queue/internal/app/identity"
	"github.com/osa030/19queue/internal/app/jukebox"
	"github.com/osa030/19queue/internal/app/notification"
	"github.com/osa030/19queue/internal/app/playlists"
	"github.com/osa030/19queue/internal/app/reconcile"
	"github.com/osa030/19queue/internal/infra/config"
	"github.com/osa030/19queue/internal/infra/logger"
	"github.com/osa030/19queue/internal/infra/redisbus"
	"github.com/osa030/19queue/internal/infra/spotify"
	"github.com/osa030/19queue/internal/infra/store"
	"github.com/osa030/19queue/internal/infra/token"
)

var (
	app        = kingpin.New("19queue-server", "19queue collaborative queue server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	logFormat  = app.Flag("log-format", "Console log format: console or json").Default("console").Enum("console", "json")

	listRulesCmd = app.Command("list-rules", "List available gate rules and exit")
)

func init() {
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listRulesCmd.FullCommand() {
		printRules()
		return
	}

	loggerConfig := logger.Config{
		Output:  "stdout",
		Level:   "info",
		Format:  *logFormat,
		Service: "19queue-server",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closeLog()

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chain, err := gate.BuildChain(ruleConfigs(cfg))
	if err != nil {
		return fmt.Errorf("invalid rule config: %w", err)
	}

	st, err := store.Open(ctx, store.Config{Driver: cfg.Store.Driver, DSN: cfg.Store.DSN})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	notifications := notification.NewManager()
	defer notifications.Close()
	var pub notification.Publisher = notifications

	var bus *redisbus.Bus
	if cfg.Redis.Addr != "" {
		bus, err = redisbus.New(ctx, redisbus.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			return fmt.Errorf("failed to connect event bus: %w", err)
		}
		defer bus.Close()
		pub = notification.Multi(notifications, bus)
	}

	var spotifyClient *spotify.Client
	if cfg.Spotify.Configured() {
		spotifyClient, err = spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return fmt.Errorf("failed to create Spotify client: %w", err)
		}
	} else {
		zlog.Warn().Msg("Spotify is not configured: search, devices and reconciliation are disabled")
	}

	g := gate.New(st,
		gate.WithChain(chain),
		gate.WithDefaults(cfg.Queue),
		gate.WithMessages(cfg.GetMessage),
		gate.WithPublisher(pub),
	)
	if created, _, err := g.InitializeSettings(ctx); err != nil {
		return fmt.Errorf("failed to initialize settings: %w", err)
	} else if created {
		zlog.Info().Msgf("Queue settings initialized: max_queue_size=%d", cfg.Queue.MaxQueueSize)
	}

	engineOpts := []jukebox.Option{jukebox.WithPublisher(pub)}
	if cfg.Reconcile.ForwardEnqueues && spotifyClient != nil {
		engineOpts = append(engineOpts, jukebox.WithForwarder(spotifyClient))
	}
	engine := jukebox.NewEngine(st, g, engineOpts...)
	lists := playlists.NewEngine(st, playlists.WithPublisher(pub))
	users := identity.NewService(st, identity.WithAdminEmails(cfg.Admin.Emails...))

	// interface values stay nil when Spotify is off
	var catalog apiconnect.Catalog
	var reconciler apiconnect.Reconciler
	var adapter *reconcile.Adapter
	if spotifyClient != nil {
		catalog = spotifyClient
	}
	if cfg.Reconcile.Enabled && spotifyClient != nil {
		adapter = reconcile.New(spotifyClient, st, engine, reconcile.Config{
			Interval:    cfg.Reconcile.Interval,
			MinInterval: cfg.Reconcile.MinInterval,
		}, reconcile.WithPublisher(pub))
		reconciler = adapter
		go adapter.Run(ctx)
	}

	if bus != nil {
		stop, err := bus.Listen(ctx, func(ev notification.Event) {
			notifications.Publish(ctx, ev)
			if adapter != nil && ev.Type == notification.EventQueueChanged {
				adapter.Invalidate()
			}
		})
		if err != nil {
			return fmt.Errorf("failed to listen on event bus: %w", err)
		}
		defer stop()
	}

	var signer *token.Signer
	if cfg.Auth.JWTSecret != "" {
		signer, err = token.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("failed to create token signer: %w", err)
		}
	}
	identityInterceptor := connect.WithInterceptors(
		apiconnect.NewIdentityInterceptor(users, signer, cfg.Auth.TrustHeader),
	)
	adminAuthInterceptor := connect.WithInterceptors(apiconnect.NewAdminAuthInterceptor(cfg.Admin.Token))

	queueService := apiconnect.NewQueueService(engine, catalog, reconciler, notifications)
	playlistService := apiconnect.NewPlaylistService(lists, users, catalog)
	adminService := apiconnect.NewAdminService(engine, g, users)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewQueueServiceHandler(queueService, identityInterceptor))
	mux.Handle(apiconnect.NewPlaylistServiceHandler(playlistService, identityInterceptor))
	mux.Handle(apiconnect.NewAdminServiceHandler(adminService, adminAuthInterceptor))

	serverAddr := cfg.Server.Addr
	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    serverAddr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	go func() {
		zlog.Info().Msgf("Starting server: addr=%s store=%s reconcile=%t bus=%t",
			serverAddr, cfg.Store.Driver, adapter != nil, bus != nil)
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// end Watch streams and the reconciler before draining connections
	queueService.Close()
	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

func ruleConfigs(cfg *config.Config) map[string]gate.RuleConfig {
	out := make(map[string]gate.RuleConfig, len(cfg.Rules))
	for name, r := range cfg.Rules {
		out[name] = gate.RuleConfig{Enabled: r.Enabled, Settings: r.Settings}
	}
	return out
}

// printRules prints available gate rules.
func printRules() {
	fmt.Println("Available Rules:")
	registry := gate.GetRegistered()
	for _, name := range gate.RegisteredNames() {
		r := registry[name]()
		codes := strings.Join(r.ReturnCodes(), ", ")
		fmt.Printf("  %-22s - %s [codes: %s]\n", r.Name(), r.Description(), codes)
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
