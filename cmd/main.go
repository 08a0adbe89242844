package main

import (
	"approval-notify/infrastructure/http/server"
	"approval-notify/internal"
	"approval-notify/observability"
	"approval-notify/runtime"
	"approval-notify/runtime/workers"
	"approval-notify/services"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Notification server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Deferred cleanups run before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	process, err := observability.NewProcessMonitor()
	if err != nil {
		log.Warn("Process monitoring disabled", "error", err)
	}

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Orchestrator: registry, publisher and supervised workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, sup, processOrNil(process), runtime.OrchestratorConfig{
		WriteTimeout:      config.WriteTimeout,
		HeartbeatInterval: config.HeartbeatInterval,
		StatsInterval:     config.StatsInterval,
		BufferSize:        config.NotificationBufferSize,
		PublishWorkers:    config.PublishWorkers,
	})
	if err = orchestrator.Start(ctx); err != nil {
		return exitRuntime, fmt.Errorf("orchestrator failed to start: %w", err)
	}
	defer orchestrator.Stop()

	// 4. HTTP / WebSocket server
	notificationService := services.NewNotificationService(log, orchestrator)
	notificationServer := server.NewNotificationServer(
		log,
		orchestrator.Session(),
		orchestrator.Registry(),
		notificationService,
		processOrNil(process),
		config.Origins(),
		int64(config.ReadLimit),
	)
	httpServer := &http.Server{
		Addr:        config.Address(),
		Handler:     notificationServer.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting notification server", "address", config.Address())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 5. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err = <-errChan:
		return exitRuntime, err
	}

	// 6. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err = httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown incomplete", "error", err)
	}
	log.Info("Program stopped cleanly")
	return exitOK, nil
}

// processOrNil avoids handing a typed nil pointer to an interface field.
func processOrNil(p *observability.ProcessMonitor) observability.IProcessMonitor {
	if p == nil {
		return nil
	}
	return p
}
