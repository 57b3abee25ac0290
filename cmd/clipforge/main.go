// clipforge orchestrator: consumes YouTube URL submissions, drives each
// through the agent pipeline to a finished vertical clip, and serves the
// ops API.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clipforge/clipforge/pkg/agent"
	"github.com/clipforge/clipforge/pkg/api"
	"github.com/clipforge/clipforge/pkg/chat"
	"github.com/clipforge/clipforge/pkg/cleanup"
	"github.com/clipforge/clipforge/pkg/config"
	"github.com/clipforge/clipforge/pkg/consumer"
	"github.com/clipforge/clipforge/pkg/events"
	"github.com/clipforge/clipforge/pkg/pipeline"
	"github.com/clipforge/clipforge/pkg/queue"
	"github.com/clipforge/clipforge/pkg/state"
	"github.com/clipforge/clipforge/pkg/throttle"
	"github.com/clipforge/clipforge/pkg/version"
	"github.com/clipforge/clipforge/pkg/watchdog"
	"github.com/clipforge/clipforge/pkg/workflows"
	"github.com/clipforge/clipforge/pkg/workspace"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Parse command-line flags
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	slog.Info("Starting clipforge",
		"version", version.Full(),
		"config_dir", *configDir)

	ctx := context.Background()
	logger := slog.Default()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. File-backed infrastructure: state store, queue, workspaces
	store := state.NewStore(cfg.WorkspaceDir)
	itemQueue, err := queue.New(cfg.QueueDir)
	if err != nil {
		slog.Error("Failed to initialize queue", "error", err)
		os.Exit(1)
	}
	workspaces := workspace.NewManager(cfg.WorkspaceDir)

	// 3. Event bus with the per-run event log listener
	bus := events.NewBus()
	bus.Subscribe(events.NewLogWriter(cfg.WorkspaceDir))

	// 4. Chat integration (optional; nil service is a no-op)
	var chatService *chat.Service
	var submissions consumer.SubmissionSource
	if cfg.Chat.Enabled {
		token := os.Getenv(cfg.Chat.TokenEnv)
		client := chat.NewClient(token, cfg.Chat.ChatID)
		chatService = chat.NewServiceWithClient(client)
		submissions = chat.NewPoller(client)
		slog.Info("Chat integration enabled", "chat_id", cfg.Chat.ChatID)
	} else {
		slog.Info("Chat integration disabled")
	}

	// 5. Agent CLI ports and the workflow library
	executor := agent.NewCLIExecutor(cfg.Agent.Bin, cfg.Agent.Timeout)
	dispatcher := agent.NewCLIDispatcher(cfg.Agent.Bin, cfg.Agent.Timeout)
	library := workflows.NewLibrary(cfg.WorkflowsDir)

	// 6. Pipeline core
	loop := pipeline.NewLoop(executor, dispatcher, cfg.Agent.MaxAttempts, cfg.Agent.MinQAScore, logger)
	chain := pipeline.NewChain(executor, chatService, logger)
	stages := pipeline.NewStageRunner(loop, chain, executor, bus, logger)
	runner := pipeline.NewRunner(store, bus, stages, cfg.Sequence(), library, cfg.WorkflowsDir, logger)
	scanner := pipeline.NewScanner(store, chatService, cfg.Sequence(), logger)

	// 7. Host-pressure throttle and systemd watchdog
	throttler := throttle.NewThrottler(
		throttle.NewSystemMonitor(), chatService,
		cfg.Throttle.MaxMemoryUsedBytes,
		cfg.Throttle.MaxCPUPercent,
		cfg.Throttle.MaxTemperatureCelsius,
		cfg.Throttle.CheckInterval,
		logger)
	heartbeat := watchdog.New()

	// 8. Retention sweeper
	sweeper := cleanup.NewService(cfg.Retention, itemQueue.CompletedDir(), store)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// 9. Ops API server (non-blocking)
	httpServer := api.NewServer(itemQueue, store)
	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.HTTPPort
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	// 10. Consumer loop (crash recovery runs first inside it)
	loopCtx, cancelLoop := context.WithCancel(ctx)
	loopDone := make(chan error, 1)
	go func() {
		loopDone <- consumer.NewLoop(consumer.Options{
			Queue:       itemQueue,
			Throttler:   throttler,
			Workspaces:  workspaces,
			Runner:      runner,
			Scanner:     scanner,
			Submissions: submissions,
			Heartbeat:   heartbeat,
			Notifier:    chatService,
			Files:       chatService,
		}).Run(loopCtx)
	}()

	slog.Info("clipforge started successfully")

	// 11. Wait for shutdown signal, loop exit, or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	exitCode := 0
	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
		exitCode = 1
	case err := <-loopDone:
		if err != nil {
			slog.Error("Consumer loop failed", "error", err)
			exitCode = 1
		}
		loopDone = nil
	}

	// 12. Graceful shutdown: stop claiming, let the in-flight run finish
	cancelLoop()
	if loopDone != nil {
		select {
		case <-loopDone:
			slog.Info("Consumer loop stopped gracefully")
		case <-time.After(cfg.Agent.Timeout + 30*time.Second):
			slog.Warn("Consumer shutdown timeout exceeded, interrupted run will be resumed on next boot")
		}
	}

	// Stop HTTP server with its own timeout budget
	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
	os.Exit(exitCode)
}
