package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/liftwise/coach-agent/pkg/server"
	"github.com/liftwise/coach-agent/pkg/storage"
	"github.com/liftwise/coach-agent/pkg/tools"
	"github.com/liftwise/coach-agent/pkg/tools/history"
	"github.com/liftwise/coach-agent/pkg/tools/logset"
	"github.com/liftwise/coach-agent/pkg/tools/prefs"
	"github.com/liftwise/coach-agent/pkg/tools/trend"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

const (
	ServerName      = "coach-agent"
	ServiceName     = "Coaching Agent Action Pipeline"
	ShutdownTimeout = 10 * time.Second
)

//go:embed VERSION
var Version string

var toolDescriptions = map[string]string{
	"log_set":      "Log one workout set (reps, weight, or duration) for the current user. Records an undoable action.",
	"set_history":  "Browse the user's logged sets, or undo a recorded action (undo) or a whole conversational turn (undo_turn).",
	"volume_trend": "Weekly training volume trend for one exercise.",
	"set_units":    "Switch the client's displayed weight unit. Client-local, no server-side effect.",
}

func main() {
	var (
		debug        bool
		bindAddr     string
		dbPath       string
		printVersion bool
	)
	flag.BoolVar(&debug, "debug", false, "debug mode")
	flag.StringVar(&bindAddr, "bind", "localhost:8990", "bind address (host:port)")
	flag.StringVar(&dbPath, "db", "build/coach-agent.db", "SQLite database file path")
	flag.BoolVar(&printVersion, "version", false, "print version and exit")
	flag.Parse()
	// Sanitize version
	version := strings.TrimSpace(Version)
	// Check if the version flag is set
	if printVersion {
		fmt.Printf("%s Version: %s\n", ServiceName, version)
		os.Exit(0)
	}

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger.Debug().Msg("debug mode enabled")
	}

	impl := &mcp.Implementation{
		Name:    ServerName,
		Version: version,
	}

	// Initialize storage
	storeCfg := storage.Config{
		DatabasePath: dbPath,
		Debug:        debug,
	}
	store, err := storage.NewSQLiteStorage(storeCfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to initialize storage: %v", err)
	}
	logger.Info().Msgf("Database initialized at %s", dbPath)

	// Register all tools
	registry := tools.NewRegistry(logger)
	toolList := []tools.Tool{
		logset.New(logger),
		history.New(logger),
		trend.New(logger),
		prefs.New(logger),
	}
	for _, tool := range toolList {
		if err := tool.Register(registry); err != nil {
			logger.Error().Msgf("Failed to register tool: %v", err)
		}
	}

	srv := server.NewServer(impl, logger, store, registry)
	srv.BridgeTools(toolDescriptions)

	// Create HTTP handler for MCP server
	// Stateless mode avoids "session not found" errors after server restart
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return &srv.Server
	}, &mcp.StreamableHTTPOptions{
		Stateless: true,
	})

	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)
	srv.Routes(mux)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"service": ServiceName,
			"version": version,
			"endpoints": map[string]string{
				"mcp":         "/mcp",
				"dispatch":    "/v1/dispatch",
				"undo_action": "/v1/undo/action",
				"undo_turn":   "/v1/undo/turn",
			},
		})
	})

	logger.Info().Msgf("%s starting on address %s", ServiceName, bindAddr)
	logger.Info().Msgf("MCP endpoint available at: http://%s/mcp", bindAddr)

	go func() {
		//nolint:gosec
		if err := http.ListenAndServe(bindAddr, mux); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Msgf("%s failed to start: %v", ServerName, err)
		}
	}()
	<-signalCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	// Shutdown MCP server
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Msgf("%s shutdown error: %v", ServiceName, err)
	} else {
		logger.Info().Msgf("%s shutdown complete", ServiceName)
	}
}
