// The worker binary consumes prescription OCR jobs from Kafka, runs the
// extraction pipeline, and publishes completion events. It exposes /healthz,
// /readyz, and /metrics on a separate listener for probes and scraping.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medimatch/medimatch/internal/application/prescription"
	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/infrastructure/database/postgres"
	"github.com/medimatch/medimatch/internal/infrastructure/database/postgres/repositories"
	"github.com/medimatch/medimatch/internal/infrastructure/database/redis"
	"github.com/medimatch/medimatch/internal/infrastructure/messaging/kafka"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/prometheus"
	"github.com/medimatch/medimatch/internal/infrastructure/storage/minio"
	"github.com/medimatch/medimatch/internal/infrastructure/vision/gemini"
	"github.com/medimatch/medimatch/internal/infrastructure/vision/hostedocr"
	httpserver "github.com/medimatch/medimatch/internal/interfaces/http"
	"github.com/medimatch/medimatch/internal/interfaces/http/handlers"
)

// version is injected at build time via -ldflags.
var version = "dev"

const (
	defaultConfigPath = "configs/config.yaml"

	// processLockTTL bounds how long a crashed worker keeps a prescription
	// locked. Vision extraction of a large image can take minutes.
	processLockTTL = 5 * time.Minute

	lagSampleInterval = 15 * time.Second
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to the YAML configuration file")
	probePort := flag.Int("probe-port", 9090, "port for health and metrics endpoints")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("starting medimatch ocr worker",
		logging.String("version", version),
		logging.String("topic", kafka.TopicOCRRequested),
		logging.Int("concurrency", cfg.Worker.Concurrency),
	)

	if err := run(cfg, log, *probePort); err != nil {
		log.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logging.Logger, probePort int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.Connect(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()

	mc, err := minio.NewClient(cfg.MinIO, log)
	if err != nil {
		return fmt.Errorf("minio: %w", err)
	}
	store := minio.NewImageStore(mc, log)

	// Redis backs the per-prescription processing lock. Without it the
	// worker still functions; duplicate deliveries may then be processed
	// twice, which the pipeline tolerates.
	var redisClient *redis.Client
	if rc, err := redis.NewClient(cfg.Redis, log); err != nil {
		log.Warn("redis unavailable, processing without dedup locks", logging.Err(err))
	} else {
		redisClient = rc
		defer redisClient.Close()
	}

	producer, err := kafka.NewProducer(cfg.Kafka, log)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer producer.Close()
	publisher := kafka.NewEventPublisher(producer)

	if tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, log); err != nil {
		log.Warn("topic manager unavailable, assuming topics exist", logging.Err(err))
	} else {
		if err := tm.EnsureDefaultTopics(ctx); err != nil {
			log.Warn("topic creation failed, assuming topics exist", logging.Err(err))
		}
		tm.Close()
	}

	drugRepo := repositories.NewDrugRepository(pg.Pool(), log)
	rxRepo := repositories.NewPrescriptionRepository(pg.Pool(), log)

	// The worker never re-enqueues, so the service gets no publisher and
	// Process runs the pipeline inline.
	rxSvc := prescription.NewService(
		rxRepo,
		store,
		hostedocr.New(cfg.OCR, log),
		gemini.New(cfg.LLM, log),
		nil,
		drugRepo,
		log,
	)

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "medimatch",
		Subsystem:            "worker",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, log)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	appMetrics := prometheus.NewAppMetrics(collector)

	consumer, err := kafka.NewConsumer(kafka.NewConsumerConfig(cfg.Kafka, cfg.Worker), log)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	defer consumer.Close()

	proc := &processor{
		rx:        rxSvc,
		publisher: publisher,
		redis:     redisClient,
		metrics:   appMetrics,
		log:       log.Named("processor"),
	}
	consumer.Subscribe(kafka.TopicOCRRequested, proc.handle)

	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}

	probe := newProbeServer(probePort, cfg.Server, collector, pg, mc, log)

	go sampleConsumerLag(ctx, consumer, appMetrics)

	errCh := make(chan error, 1)
	go func() {
		log.Info("probe server listening", logging.String("addr", probe.Addr()))
		errCh <- probe.Start()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("probe server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return probe.Stop(shutdownCtx)
}

// newProbeServer builds a minimal router carrying only health and metrics
// routes on the worker's probe port.
func newProbeServer(port int, srvCfg config.ServerConfig, collector prometheus.MetricsCollector, pg *postgres.Connection, mc *minio.Client, log logging.Logger) *httpserver.Server {
	checks := map[string]handlers.CheckFunc{
		"postgres": pg.HealthCheck,
		"minio":    mc.HealthCheck,
	}
	router := httpserver.NewRouter(httpserver.Handlers{
		Health: handlers.NewHealthHandler(version, checks, log),
	}, httpserver.RouterConfig{
		Logger:         log.Named("probe"),
		MetricsHandler: collector.Handler(),
	})

	probeCfg := config.ServerConfig{
		Port:            port,
		Mode:            "release",
		ReadTimeout:     srvCfg.ReadTimeout,
		WriteTimeout:    srvCfg.WriteTimeout,
		ShutdownTimeout: srvCfg.ShutdownTimeout,
	}
	return httpserver.NewServer(probeCfg, router, log)
}

// sampleConsumerLag periodically exports the consumer's lag gauge.
func sampleConsumerLag(ctx context.Context, consumer *kafka.Consumer, m *prometheus.AppMetrics) {
	ticker := time.NewTicker(lagSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			lag := consumer.Metrics()["lag"]
			m.OCRQueueLag.WithLabelValues(kafka.TopicOCRRequested).Set(float64(lag))
		}
	}
}

// loadConfig reads the config file when it exists and otherwise builds the
// configuration from MEDIMATCH_* environment variables alone.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err == nil {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

func newLogger(cfg config.LogConfig) (logging.Logger, error) {
	format := cfg.Format
	if format == "text" {
		format = "console"
	}
	lc := logging.LogConfig{
		Level:  cfg.Level,
		Format: format,
	}
	if cfg.Output != "" {
		lc.OutputPaths = []string{cfg.Output}
	}
	return logging.NewLogger(lc)
}
