// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"farmer-assistant-workers/internal/common/camunda"
	"farmer-assistant-workers/internal/common/config"
	"farmer-assistant-workers/internal/common/database"
	"farmer-assistant-workers/internal/common/logger"
	"farmer-assistant-workers/internal/common/metrics"
	"farmer-assistant-workers/internal/common/observability"
	"farmer-assistant-workers/internal/intent"
	"farmer-assistant-workers/internal/session"
	"farmer-assistant-workers/pkg/registry"

	ba "farmer-assistant-workers/internal/workers/ai-conversation/build-advice"
	dfi "farmer-assistant-workers/internal/workers/ai-conversation/detect-farmer-intent"
	llm "farmer-assistant-workers/internal/workers/ai-conversation/llm-synthesis"
	sc "farmer-assistant-workers/internal/workers/ai-conversation/summarize-conversation"
)

// retryWithBackoff retries an operation with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func workerOptions(cfg *config.Config, taskType string) camunda.WorkerOptions {
	wc := config.GetWorkerConfig(cfg, taskType)
	return camunda.WorkerOptions{
		MaxJobsActive: wc.MaxJobsActive,
		Timeout:       config.GetDuration(wc.Timeout),
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOptions(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Intent detector
	detector, err := intent.New(cfg.Detector.IntentConfig(),
		intent.WithLogger(log.WithFields(map[string]interface{}{"component": "intent-detector"})),
		intent.WithObserver(metrics.DetectorObserver{}),
	)
	if err != nil {
		// The detector still answers with the fallback intent; /ready reports false until a reload succeeds.
		zapLog.Error("CONFIGURATION_ERROR: intent sources failed to load", zap.Error(err))
	}
	stats := detector.Stats()
	zapLog.Info("Intent detector initialized",
		zap.Int("intents", stats.Intents),
		zap.Int("samples", stats.Samples),
		zap.Int("keywords", stats.Keywords),
	)

	if cfg.Detector.WatchSources {
		watcher, err := intent.NewWatcher(detector, cfg.Detector.CSVSources,
			config.GetDuration(cfg.Detector.WatchDebounce), log)
		if err != nil {
			zapLog.Error("intent source watcher disabled", zap.Error(err))
		} else {
			go watcher.Run(ctx)
			zapLog.Info("Watching intent sources for changes", zap.Strings("sources", cfg.Detector.CSVSources))
		}
	}

	// Session store
	var store *session.Store
	if cfg.Session.Enabled {
		var rc *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			rc, err = database.Connect(ctx, cfg.Database.Redis)
			return err
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer rc.Close()
		zapLog.Info("Redis connected successfully")

		store = session.NewStore(rc.GetClient(), session.Config{
			KeyPrefix: cfg.Session.KeyPrefix,
			TTL:       time.Duration(cfg.Session.TTL) * time.Second,
			MaxTurns:  cfg.Session.MaxTurns,
		})
	}

	// Zeebe client
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	activities, err := registry.LoadRegistry(cfg.App.RegistryPath)
	if err != nil {
		zapLog.Warn("activity registry unavailable", zap.String("path", cfg.App.RegistryPath), zap.Error(err))
	}

	var workers []worker.JobWorker

	if config.IsWorkerEnabled(cfg, dfi.TaskType) {
		dc := dfi.LoadConfig()
		dc.Timeout = config.GetDuration(config.GetWorkerConfig(cfg, dfi.TaskType).Timeout)
		var recorder dfi.TurnRecorder
		if store != nil {
			recorder = store
		}
		handler := dfi.NewHandler(dc, detector, recorder, log)
		workers = append(workers, camunda.StartWorker(zeebe.GetClient(), dfi.TaskType,
			workerOptions(cfg, dfi.TaskType), handler.Handle, obs, zapLog))
	}

	if config.IsWorkerEnabled(cfg, ba.TaskType) {
		bc := ba.LoadConfig()
		bc.TemplatesPath = cfg.Advice.TemplatesPath
		bc.FallbackIntent = detector.ScoringConfig().FallbackIntent
		handler := ba.NewHandler(bc, detector, log)
		workers = append(workers, camunda.StartWorker(zeebe.GetClient(), ba.TaskType,
			workerOptions(cfg, ba.TaskType), handler.Handle, obs, zapLog))
	}

	if config.IsWorkerEnabled(cfg, llm.TaskType) {
		lc := llm.LoadConfig()
		lc.Host = cfg.LLM.Host
		lc.Model = cfg.LLM.Model
		lc.Timeout = config.GetDuration(cfg.LLM.Timeout)
		lc.Temperature = cfg.LLM.Temperature
		lc.NumPredict = cfg.LLM.NumPredict
		lc.SystemPrompt = cfg.LLM.SystemPrompt
		lc.MaxRetries = config.GetWorkerConfig(cfg, llm.TaskType).MaxRetries

		chat, err := llm.NewOllamaClient(lc.Host)
		if err != nil {
			zapLog.Fatal("failed to create ollama client", zap.Error(err))
		}
		handler := llm.NewHandler(lc, chat, obs, log)
		workers = append(workers, camunda.StartWorker(zeebe.GetClient(), llm.TaskType,
			workerOptions(cfg, llm.TaskType), handler.Handle, obs, zapLog))
	}

	if store != nil && config.IsWorkerEnabled(cfg, sc.TaskType) {
		handler := sc.NewHandler(sc.LoadConfig(), store, log)
		workers = append(workers, camunda.StartWorker(zeebe.GetClient(), sc.TaskType,
			workerOptions(cfg, sc.TaskType), handler.Handle, obs, zapLog))
	}

	zapLog.Info("Workers registered successfully", zap.Int("count", len(workers)))

	if activities != nil {
		for _, taskType := range []string{dfi.TaskType, ba.TaskType, llm.TaskType, sc.TaskType} {
			if a, ok := activities.Find(taskType); ok {
				zapLog.Debug("activity registered", zap.String("taskType", taskType), zap.String("version", a.Version))
			} else {
				zapLog.Warn("worker has no activity registry entry", zap.String("taskType", taskType))
			}
		}
	}

	// Health, readiness and metrics
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		body := map[string]interface{}{
			"status":  "ready",
			"intents": detector.Stats().Intents,
			"time":    time.Now().Format(time.RFC3339),
		}
		code := http.StatusOK
		if !detector.Ready() {
			body["status"], code = "intent table empty", http.StatusServiceUnavailable
		} else if err := zeebe.HealthCheck(r.Context()); err != nil {
			body["status"], code = "zeebe unavailable", http.StatusServiceUnavailable
		} else if r.URL.Query().Has("verbose") {
			if topo, err := zeebe.Topology(r.Context()); err == nil {
				body["zeebe"] = topo
			}
		}
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(body)
	})
	http.HandleFunc("/activities", func(w http.ResponseWriter, r *http.Request) {
		if activities == nil {
			http.Error(w, "activity registry not loaded", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(activities)
	})
	http.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port)}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, jw := range workers {
		jw.Close()
		jw.AwaitClose()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping HTTP server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
