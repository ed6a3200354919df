// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"civicmatch-workers/internal/common/camunda"
	"civicmatch-workers/internal/common/config"
	"civicmatch-workers/internal/common/database"
	"civicmatch-workers/internal/common/logger"
	"civicmatch-workers/internal/common/observability"
	"civicmatch-workers/internal/oracle"
	"civicmatch-workers/pkg/registry"

	// Feedback Workers (2)
	ap "civicmatch-workers/internal/workers/feedback/analyze-project"
	rp "civicmatch-workers/internal/workers/feedback/rank-projects"

	// Data Access Workers (2)
	qp "civicmatch-workers/internal/workers/data-access/query-projects"
	sp "civicmatch-workers/internal/workers/data-access/search-projects"

	// Communication Workers (1)
	sd "civicmatch-workers/internal/workers/communication/send-digest"
)

// retryWithBackoff attempts to execute a function with exponential backoff
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
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// The activity registry is advisory: a worker missing from it still
	// starts, but the gap is worth flagging.
	var activityReg *registry.ActivityRegistry
	if reg, err := registry.LoadRegistry(cfg.Registry.Path); err != nil {
		zapLog.Warn("activity registry unavailable", zap.String("path", cfg.Registry.Path), zap.Error(err))
	} else if err := registry.Validate(reg); err != nil {
		zapLog.Warn("activity registry invalid", zap.Error(err))
	} else {
		activityReg = reg
		zapLog.Info("activity registry loaded", zap.Int("activities", len(reg.Activities)))
	}

	if cfg.Tracing.Enabled {
		tracer, err := observability.NewTracer(cfg.App.Name, cfg.Tracing.JaegerEndpoint)
		if err != nil {
			zapLog.Fatal("tracer init failed", zap.Error(err))
		}
		defer tracer.Shutdown(ctx)
		zapLog.Info("Tracing enabled", zap.String("endpoint", cfg.Tracing.JaegerEndpoint))
	}

	// --- Init Zeebe Client with retry ---
	// The wrapper verifies broker topology on creation, so a successful
	// return means the gateway is actually reachable.
	var camundaClient *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		camundaClient, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.Timeout),
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zeebeClient := camundaClient.GetClient()
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Oracle Client ---
	// One shared client for every worker that talks to the generative API.
	// Without an API key it stays up in degraded mode and every call fails
	// with ORACLE_UNAVAILABLE, which the ranking fallback absorbs.
	oracleClient := oracle.NewClient(oracle.Config{
		BaseURL:     cfg.APIs.GenAI.BaseURL,
		APIKey:      cfg.APIs.GenAI.APIKey,
		Model:       cfg.APIs.GenAI.Model,
		Temperature: cfg.APIs.GenAI.Temperature,
	}, log)
	if !oracleClient.Configured() {
		zapLog.Warn("GenAI API key missing, oracle running in degraded mode")
	}

	var workers []*camunda.CamundaWorker
	register := func(taskType string, handler camunda.JobHandler) {
		wcfg := cfg.Workers[taskType]
		if !wcfg.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		if activityReg != nil {
			if _, ok := activityReg.FindByTaskType(taskType); !ok {
				zapLog.Warn("worker not in activity registry", zap.String("taskType", taskType))
			}
		}
		w := camunda.NewWorker(zeebeClient, taskType, wcfg.MaxJobsActive, config.GetDuration(wcfg.Timeout), handler, zapLog)
		w.Start()
		workers = append(workers, w)
	}

	// --- 1. Feedback Workers (2) ---
	register(rp.TaskType, rp.NewHandler(
		&rp.Config{
			Timeout:       config.GetDuration(cfg.Workers[rp.TaskType].Timeout),
			OracleTimeout: config.GetDuration(cfg.Ranking.OracleTimeout),
			Concurrency:   cfg.Ranking.Concurrency,
			Recorder:      obs,
		},
		oracleClient, log,
	))

	register(ap.TaskType, ap.NewHandler(
		&ap.Config{
			Timeout:     config.GetDuration(cfg.Workers[ap.TaskType].Timeout),
			Temperature: 0.7,
		},
		oracleClient, log,
	))

	// --- 2. Data Access Workers (2) ---
	register(qp.TaskType, qp.NewHandler(
		&qp.Config{
			Timeout:  config.GetDuration(cfg.Workers[qp.TaskType].Timeout),
			CacheTTL: 5 * time.Minute,
		},
		pg.DB, redisClient.Client, log,
	))

	register(sp.TaskType, sp.NewHandler(
		&sp.Config{
			Timeout:      config.GetDuration(cfg.Workers[sp.TaskType].Timeout),
			DefaultIndex: cfg.Database.Elasticsearch.Index,
		},
		esClient.Client, log,
	))

	// --- 3. Communication Workers (1) ---
	if cfg.Workers[sd.TaskType].Enabled {
		digestHandler, err := sd.NewHandler(
			&sd.Config{
				EmailEnabled: cfg.Notifications.Email.Enabled && cfg.Integrations.AWS.SES.Enabled,
				SMSEnabled:   cfg.Notifications.SMS.Enabled && cfg.Integrations.AWS.SNS.Enabled,
				FromEmail:    cfg.Integrations.AWS.SES.FromEmail,
				AWSRegion:    cfg.Integrations.AWS.Region,
				SMSSenderID:  cfg.Integrations.AWS.SNS.DefaultSMSSenderID,
				Timeout:      config.GetDuration(cfg.Workers[sd.TaskType].Timeout),
			},
			pg.DB, log,
		)
		if err != nil {
			zapLog.Fatal("failed to create send-digest handler", zap.Error(err))
		}
		register(sd.TaskType, digestHandler)
	}

	zapLog.Info("All workers registered successfully", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	go func() {
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
			if err := camundaClient.HealthCheck(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "not ready",
					"error":  err.Error(),
					"time":   time.Now().Format(time.RFC3339),
				})
				return
			}
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop(shutdownCtx)
	}

	if err := camundaClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}
