package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clauselens/clauselens/internal/bootstrap"
	"github.com/clauselens/clauselens/internal/config"
	"github.com/clauselens/clauselens/internal/core/domain"
	"github.com/clauselens/clauselens/internal/observability/logging"
	"github.com/clauselens/clauselens/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if app.ProcessUC == nil {
		log.Fatal("GEMINI_API_KEY is required for the worker")
	}

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := startMetricsServer(cfg.WorkerMetricsPort, workerMetrics)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeContractUploaded(ctx, func(handlerCtx context.Context, contractID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if record, readErr := app.Repo.GetForProcessing(processCtx, contractID); readErr == nil {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(record.CreatedAt))
		}

		workerMetrics.StartAnalysis()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, contractID)
		workerMetrics.FinishAnalysis(serviceName, time.Since(start), processErr)

		if processErr == nil {
			if record, readErr := app.Repo.GetForProcessing(processCtx, contractID); readErr == nil && record.Status == domain.StatusCompleted {
				workerMetrics.ObserveClauseCount(serviceName, len(record.Clauses))
			}
		}
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func startMetricsServer(port string, m *metrics.WorkerMetrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics server error", "error", err)
		}
	}()
	return server
}
