// Operator Agent - streaming LLM agent backend
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xpandai03/operator-agent/internal/agent"
	"github.com/xpandai03/operator-agent/internal/airtable"
	"github.com/xpandai03/operator-agent/internal/api"
	"github.com/xpandai03/operator-agent/internal/bootstrap"
	"github.com/xpandai03/operator-agent/internal/computer"
	"github.com/xpandai03/operator-agent/internal/config"
	"github.com/xpandai03/operator-agent/internal/middleware"
	"github.com/xpandai03/operator-agent/internal/runtime"
	"github.com/xpandai03/operator-agent/internal/session"
	"github.com/xpandai03/operator-agent/internal/state"
	"github.com/xpandai03/operator-agent/internal/ws"
	"github.com/xpandai03/operator-agent/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "computer_mode", cfg.ComputerMode)

	// Session store: sqlite when a path is configured, memory otherwise.
	var store session.Store
	if cfg.DBPath != "" {
		sqliteStore, err := session.NewSQLite(cfg.DBPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		if err := sqliteStore.Ping(context.Background()); err != nil {
			slog.Error("Database health check failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Database connected", "path", cfg.DBPath)
		store = sqliteStore
	} else {
		store = session.NewMemoryStore(cfg.SessionCapacity)
		slog.Info("Using in-memory session store", "capacity", cfg.SessionCapacity)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()

	stateFile := state.NewFile(cfg.StatePath)

	mode := computer.ModeMock
	if cfg.ComputerMode == config.ComputerModeLive {
		mode = computer.ModeLive
	}
	adapter := computer.NewAdapter(mode, cfg.ComputerBridgeURL, logger)
	computerTool := runtime.NewComputerTool(adapter)

	tools := []runtime.Tool{computerTool}
	if cfg.HasAirtable() {
		tools = append(tools, runtime.NewAirtableTool(airtable.NewClient(
			cfg.AirtableAPIKey, cfg.AirtableBaseID, cfg.AirtableTableName, logger)))
		slog.Info("Airtable tool enabled", "table", cfg.AirtableTableName)
	}

	var rt runtime.Runtime
	if cfg.HasOpenAI() {
		vectorStoreID, err := bootstrap.EnsureVectorStore(
			context.Background(), cfg.OpenAIAPIKey, cfg.OpenAIVectorStoreID, stateFile, logger)
		if err != nil {
			slog.Warn("Vector store bootstrap failed, file search disabled", "error", err)
		}
		cfg.OpenAIVectorStoreID = vectorStoreID

		rt, err = runtime.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, tools, logger)
		if err != nil {
			slog.Error("Failed to initialize OpenAI runtime", "error", err)
			os.Exit(1)
		}
		slog.Info("OpenAI runtime initialized", "model", cfg.OpenAIModel)
	} else {
		rt = runtime.NewMock(computerTool, logger)
		slog.Info("No OPENAI_API_KEY set, using demo runtime")
	}
	defer rt.Close()

	orchestrator := agent.NewOrchestrator(rt, store, logger)

	baseHandler := api.NewHandler(cfg, rt, adapter)
	wsHandler := ws.NewHandler(orchestrator, store, cfg.FrontendURL, cfg.IsDevelopment())

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	r.Get("/", baseHandler.Info)
	r.Get("/healthz", baseHandler.Health)
	r.Post("/run", baseHandler.Run)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", wsHandler.ServeHTTP)
	r.Handle("/demo/*", http.StripPrefix("/demo", web.Handler()))

	// WebSocket streams outlive request deadlines, so no WriteTimeout.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
