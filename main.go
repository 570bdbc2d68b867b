// Command tiny-battle-run starts the Tiny Battle Run game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing the browser client, REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, config directory, logging, version output,
// and optional ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/tiny-battle-run/api"
	"github.com/wricardo/tiny-battle-run/game/config"
	"github.com/wricardo/tiny-battle-run/game/service"
	"github.com/wricardo/tiny-battle-run/game/session"
	"github.com/wricardo/tiny-battle-run/transport/mcp"
	"github.com/wricardo/tiny-battle-run/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Tiny Battle Run Server"
)

const (
	cleanupInterval = 10 * time.Minute
	sessionMaxAge   = 2 * time.Hour
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port         = flag.Int("port", 8080, "HTTP server port")
	host         = flag.String("host", "localhost", "HTTP server host")
	configDir    = flag.String("config-dir", getEnvDefault("CONFIG_DIR", "configs"), "Directory containing game configurations")
	staticDir    = flag.String("static-dir", getEnvDefault("STATIC_DIR", "static"), "Directory containing the browser client")
	debug        = flag.Bool("debug", false, "Enable debug logging with human-readable output")
	logLevel     = flag.String("log-level", getEnvDefault("LOG_LEVEL", "info"), "Log level (trace, debug, info, warn, error)")
	version      = flag.Bool("version", false, "Show version information")
	ngrokEnabled = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth    = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain  = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// getEnvDefault returns the environment variable key, or fallback when unset
func getEnvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with client, API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio, mcp   Aliases for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                    # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090 -debug  # Run HTTP server on port 9090 with console logs\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp          # Run MCP stdio server\n", os.Args[0])
	}
}

// services holds the wired game components
type services struct {
	game     service.GameService
	sessions *session.Manager
	configs  *config.Manager
	hub      *websocket.Hub
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	// Logs go to stderr so stdio-mcp keeps stdout for the protocol
	logger := newLogger(os.Stderr, *debug, *logLevel)
	if envErr == nil {
		logger.Info().Msg("loaded environment variables from .env file")
	} else if !os.IsNotExist(envErr) {
		logger.Warn().Err(envErr).Msg("error loading .env file")
	}

	args := flag.Args()
	mode := "server"
	if len(args) > 0 {
		mode = args[0]
	}

	logger.Info().Str("version", Version).Str("mode", mode).Msg("starting " + AppName)

	svcs, err := initializeServices(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize services")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		err = runStdioMCPWithInternalServer(ctx, svcs, logger)
	case "server", "http":
		err = runHTTPServer(ctx, svcs, logger)
	default:
		logger.Fatal().Str("mode", mode).Msg("unknown mode, use 'server' (default) or 'stdio-mcp'")
	}

	svcs.sessions.StopAll()
	svcs.hub.Stop()

	if err != nil {
		logger.Fatal().Err(err).Msg("server stopped with error")
	}
	logger.Info().Msg("server stopped")
}

// newLogger builds the process logger. debug switches to the console writer
// and at least debug level.
func newLogger(w io.Writer, debug bool, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if debug && lvl > zerolog.DebugLevel {
		lvl = zerolog.DebugLevel
	}

	if debug {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// initializeServices wires the hub, session and config managers and the game
// service. Pointer reports arriving over WebSocket are routed to the service.
func initializeServices(logger zerolog.Logger) (*services, error) {
	configManager, err := config.NewManager(*configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	hub := websocket.NewHub(logger.With().Str("component", "hub").Logger())

	sessionManager := session.NewManager(
		session.WithBroadcaster(hub),
		session.WithLogger(logger.With().Str("component", "session").Logger()),
	)

	gameService := service.NewGameService(sessionManager, configManager)

	hub.SetInputHandler(func(ctx context.Context, sessionID string, x, viewportWidth float64) error {
		_, err := gameService.ReportPointer(ctx, sessionID, x, viewportWidth)
		return err
	})

	logger.Info().
		Str("config_dir", *configDir).
		Int("configs", configManager.Count()).
		Str("default_config", configManager.DefaultID()).
		Msg("services initialized")

	return &services{
		game:     gameService,
		sessions: sessionManager,
		configs:  configManager,
		hub:      hub,
	}, nil
}

// newHandler combines the API server and the /mcp endpoint
func newHandler(svcs *services, mcpClient *mcp.Client, logger zerolog.Logger) http.Handler {
	apiServer := api.NewServer(svcs.game, svcs.hub,
		api.WithLogger(logger.With().Str("component", "api").Logger()),
		api.WithStaticDir(*staticDir),
	)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// runHTTPServer serves until ctx is cancelled. The hub, the session cleanup
// routine and the optional ngrok tunnel share its lifetime.
func runHTTPServer(ctx context.Context, svcs *services, logger zerolog.Logger) error {
	addr := fmt.Sprintf("%s:%d", *host, *port)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))
	handler := newHandler(svcs, mcpClient, logger)

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		svcs.hub.Run()
		return nil
	})

	g.Go(func() error {
		logger.Info().
			Str("addr", addr).
			Str("client", fmt.Sprintf("http://%s/", addr)).
			Str("api", fmt.Sprintf("http://%s/api", addr)).
			Str("websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)).
			Str("mcp", fmt.Sprintf("http://%s/mcp", addr)).
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		runSessionCleanup(ctx, svcs.sessions, cleanupInterval, sessionMaxAge, logger)
		return nil
	})

	if settings, ok := ngrokSettingsFromEnv(); ok {
		g.Go(func() error {
			return runNgrok(ctx, settings, handler, logger)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		svcs.hub.Stop()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// runSessionCleanup periodically removes sessions that have not been accessed
// within maxAge, stopping their timers
func runSessionCleanup(ctx context.Context, manager *session.Manager, interval, maxAge time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(maxAge); removed > 0 {
				logger.Info().Int("removed", removed).Msg("cleaned up expired sessions")
			}
		}
	}
}

// ngrokSettings holds the tunnel options resolved from flags and environment
type ngrokSettings struct {
	authToken string
	domain    string
}

// ngrokSettingsFromEnv reports whether the tunnel is enabled and with which
// options. Flags win over NGROK_ENABLED, NGROK_AUTHTOKEN (or
// NGROK_AUTH_TOKEN) and NGROK_DOMAIN.
func ngrokSettingsFromEnv() (ngrokSettings, bool) {
	enabled := *ngrokEnabled
	if !enabled {
		if envEnabled := os.Getenv("NGROK_ENABLED"); envEnabled == "true" || envEnabled == "1" {
			enabled = true
		}
	}
	if !enabled {
		return ngrokSettings{}, false
	}

	settings := ngrokSettings{authToken: *ngrokAuth, domain: *ngrokDomain}
	if settings.authToken == "" {
		settings.authToken = os.Getenv("NGROK_AUTHTOKEN")
		if settings.authToken == "" {
			settings.authToken = os.Getenv("NGROK_AUTH_TOKEN")
		}
	}
	if settings.domain == "" {
		settings.domain = os.Getenv("NGROK_DOMAIN")
	}
	return settings, true
}

// runNgrok serves handler through an ngrok tunnel until ctx is cancelled.
// A missing auth token or a failed tunnel is logged, not fatal.
func runNgrok(ctx context.Context, settings ngrokSettings, handler http.Handler, logger zerolog.Logger) error {
	if settings.authToken == "" {
		logger.Warn().Msg("ngrok enabled but no auth token provided (use -ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if settings.domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.authToken))
	if err != nil {
		logger.Error().Err(err).Msg("failed to start ngrok tunnel")
		return nil
	}

	ngrokURL := tun.URL()
	logger.Info().
		Str("url", ngrokURL).
		Str("api", ngrokURL+"/api").
		Str("websocket", ngrokURL+"/ws?session=<session_id>").
		Str("mcp", ngrokURL+"/mcp").
		Msg("ngrok tunnel established")

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error().Err(err).Msg("ngrok server error")
	}
	logger.Info().Msg("ngrok tunnel closed")
	return nil
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at http://localhost:8080; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, svcs *services, logger zerolog.Logger) error {
	externalURL := "http://localhost:8080"
	baseURL := externalURL
	logger.Info().Str("url", externalURL).Msg("checking for external API server")

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		logger.Info().Str("url", externalURL).Msg("external API server found, using it for MCP")
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())

		go svcs.hub.Run()

		httpServer := &http.Server{Handler: newHandler(svcs, mcp.NewClient(baseURL), logger)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		logger.Info().Str("url", baseURL).Msg("started internal HTTP server for MCP stdio")
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info().Str("api", baseURL).Msg("MCP stdio server ready")

	errCh := make(chan error, 1)
	go func() { errCh <- server.ServeStdio(mcpClient.GetMCPServer()) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return nil
	}
}
