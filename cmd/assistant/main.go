// cmd/assistant/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"procurement-assistant/internal/api"
	"procurement-assistant/internal/app"
	"procurement-assistant/internal/common/camunda"
	"procurement-assistant/internal/common/config"
	"procurement-assistant/internal/common/logger"

	pq "procurement-assistant/internal/workers/assistant/process-query"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting procurement assistant...",
		zap.String("environment", cfg.App.Environment),
		zap.String("provider", cfg.APIs.GenAI.Provider),
	)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	assistant, err := app.Build(ctx, cfg, app.Options{
		ConnectAttempts: 15,
		ConnectDelay:    2 * time.Second,
	}, log)
	if err != nil {
		zapLog.Fatal("pipeline init failed", zap.Error(err))
	}
	defer assistant.Close()

	go assistant.Orchestrator.RunJanitor(ctx, config.GetDuration(cfg.Cache.CleanupInterval))

	// --- Zeebe worker ---
	var (
		zeebeClient *camunda.Client
		jobWorker   worker.JobWorker
	)
	if cfg.Camunda.Enabled {
		err = app.RetryWithBackoff(func() error {
			var err error
			zeebeClient, err = camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		assistant.Checks["zeebe"] = zeebeClient.HealthCheck

		wcfg := config.GetWorkerConfig(cfg, pq.TaskType)
		handler := pq.NewHandler(pq.LoadConfig(wcfg), assistant.Orchestrator, log)
		jobWorker = camunda.StartWorker(zeebeClient.GetClient(), pq.TaskType, wcfg, handler, log)
	}

	// --- HTTP API ---
	server := api.NewServer(assistant.Orchestrator, api.Options{
		ServiceName: cfg.App.Name,
		Checks:      assistant.Checks,
	}, log)
	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Router(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP API listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if jobWorker != nil {
		jobWorker.Close()
		jobWorker.AwaitClose()
	}
	if zeebeClient != nil {
		if err := zeebeClient.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	stop()

	zapLog.Info("Procurement assistant stopped gracefully")
}
