// The apiserver binary serves the MediMatch REST API: drug search and
// lookup, molecular target prediction, drug comparison, prescription OCR,
// and the LLM assistant endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medimatch/medimatch/internal/application/assistant"
	"github.com/medimatch/medimatch/internal/application/comparison"
	"github.com/medimatch/medimatch/internal/application/insight"
	"github.com/medimatch/medimatch/internal/application/prediction"
	"github.com/medimatch/medimatch/internal/application/prescription"
	"github.com/medimatch/medimatch/internal/application/search"
	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/domain/molecule"
	"github.com/medimatch/medimatch/internal/infrastructure/database/neo4j"
	neo4jrepos "github.com/medimatch/medimatch/internal/infrastructure/database/neo4j/repositories"
	"github.com/medimatch/medimatch/internal/infrastructure/database/postgres"
	"github.com/medimatch/medimatch/internal/infrastructure/database/postgres/repositories"
	"github.com/medimatch/medimatch/internal/infrastructure/database/redis"
	"github.com/medimatch/medimatch/internal/infrastructure/external/arxiv"
	"github.com/medimatch/medimatch/internal/infrastructure/external/chembl"
	"github.com/medimatch/medimatch/internal/infrastructure/external/drugcentral"
	"github.com/medimatch/medimatch/internal/infrastructure/external/pubchem"
	"github.com/medimatch/medimatch/internal/infrastructure/external/rxnorm"
	"github.com/medimatch/medimatch/internal/infrastructure/external/serper"
	"github.com/medimatch/medimatch/internal/infrastructure/llm/groq"
	"github.com/medimatch/medimatch/internal/infrastructure/messaging/kafka"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/prometheus"
	"github.com/medimatch/medimatch/internal/infrastructure/search/milvus"
	"github.com/medimatch/medimatch/internal/infrastructure/search/opensearch"
	"github.com/medimatch/medimatch/internal/infrastructure/storage/minio"
	"github.com/medimatch/medimatch/internal/infrastructure/vision/gemini"
	"github.com/medimatch/medimatch/internal/infrastructure/vision/hostedocr"
	httpserver "github.com/medimatch/medimatch/internal/interfaces/http"
	"github.com/medimatch/medimatch/internal/interfaces/http/handlers"
	"github.com/medimatch/medimatch/internal/interfaces/http/middleware"
)

// version is injected at build time via -ldflags.
var version = "dev"

const (
	defaultConfigPath = "configs/config.yaml"
	indexSyncTimeout  = 5 * time.Minute
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to the YAML configuration file")
	port := flag.Int("port", 0, "HTTP port (overrides configuration)")
	skipMigrations := flag.Bool("skip-migrations", false, "do not run database migrations at startup")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: logger: %v\n", err)
		os.Exit(1)
	}
	log.Info("starting medimatch api server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
	)

	if err := run(cfg, log, *skipMigrations); err != nil {
		log.Error("api server exited with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logging.Logger, skipMigrations bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Required infrastructure ─────────────────────────────────────────

	if !skipMigrations {
		if err := postgres.RunMigrations(cfg.Database); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	pg, err := postgres.Connect(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pg.Close()

	redisClient, err := redis.NewClient(cfg.Redis, log)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, log)

	drugRepo := repositories.NewDrugRepository(pg.Pool(), log)
	rxRepo := repositories.NewPrescriptionRepository(pg.Pool(), log)

	checks := map[string]handlers.CheckFunc{
		"postgres": pg.HealthCheck,
		"redis":    redisClient.Ping,
	}

	// ── Optional infrastructure: each failure degrades one capability ──

	var searcher *opensearch.DrugSearcher
	var indexer *opensearch.DrugIndexer
	if osClient, err := opensearch.NewClient(cfg.OpenSearch, log); err != nil {
		log.Warn("opensearch unavailable, name search uses the database", logging.Err(err))
	} else {
		searcher = opensearch.NewDrugSearcher(osClient, log)
		indexer = opensearch.NewDrugIndexer(osClient, log)
	}

	var fingerprints *milvus.FingerprintIndex
	if mvClient, err := milvus.NewClient(cfg.Milvus, log); err != nil {
		log.Warn("milvus unavailable, prediction ranks the full dataset", logging.Err(err))
	} else {
		defer mvClient.Close()
		fingerprints = milvus.NewFingerprintIndex(mvClient, cfg.Milvus, cfg.Prediction.MorganRadius, log)
		checks["milvus"] = mvClient.CheckHealth
	}

	var graphRepo *neo4jrepos.GraphRepository
	if driver, err := neo4j.NewDriver(cfg.Neo4j, log); err != nil {
		log.Warn("neo4j unavailable, assistant endpoints disabled", logging.Err(err))
	} else {
		defer driver.Close()
		graphRepo = neo4jrepos.NewGraphRepository(driver, log)
		checks["neo4j"] = driver.HealthCheck
	}

	var store *minio.ImageStore
	if mc, err := minio.NewClient(cfg.MinIO, log); err != nil {
		log.Warn("minio unavailable, prescription endpoints disabled", logging.Err(err))
	} else {
		store = minio.NewImageStore(mc, log)
		checks["minio"] = mc.HealthCheck
	}

	var publisher prescription.Publisher
	if producer, err := kafka.NewProducer(cfg.Kafka, log); err != nil {
		log.Warn("kafka unavailable, prescriptions process inline", logging.Err(err))
	} else {
		defer producer.Close()
		publisher = kafka.NewEventPublisher(producer)
	}

	// ── External data sources ───────────────────────────────────────────

	pubchemClient := pubchem.New(cfg.External.PubChem, log)
	drugcentralClient := drugcentral.New(cfg.External.DrugCentral, cfg.External.DrugCentralInsecureSkipVerify, log)
	chemblClient := chembl.New(cfg.External.ChEMBL, log)
	rxnormClient := rxnorm.New(cfg.External.RxNorm, log)
	serperClient := serper.New(cfg.External.Serper, log)
	arxivClient := arxiv.New(cfg.External.ArXiv, log)
	groqClient := groq.New(cfg.LLM, log)
	geminiClient := gemini.New(cfg.LLM, log)
	ocrClient := hostedocr.New(cfg.OCR, log)

	// ── Application services ────────────────────────────────────────────

	repo := newSearchBackedRepo(drugRepo, searcher, log)

	searchSvc := search.NewService(repo, rxnormClient, search.Sources{
		PubChem:     pubchemClient,
		DrugCentral: drugcentralClient,
		ChEMBL:      chemblClient,
	}, cache, cfg.Redis.DefaultTTL, log)

	ranker := molecule.NewRanker(cfg.Prediction.MorganRadius, cfg.Prediction.FingerprintBits, cfg.Prediction.FingerprintCache, log)

	var candidateIndex prediction.CandidateIndex
	if fingerprints != nil {
		candidateIndex = fingerprints
	}
	predictSvc := prediction.NewService(drugRepo, searchSvc, candidateIndex, ranker, cfg.Prediction.TopK, log)

	compareSvc := comparison.NewService(searchSvc, log)
	insightSvc := insight.NewService(serperClient, arxivClient, groqClient, log)

	var assistantSvc assistant.Service
	if graphRepo != nil {
		assistantSvc = assistant.NewService(graphRepo, groqClient, log)
	}

	var rxSvc prescription.Service
	if store != nil {
		rxSvc = prescription.NewService(rxRepo, store, ocrClient, geminiClient, publisher, searchSvc, log)
	}

	// ── Metrics, handlers, router ───────────────────────────────────────

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "medimatch",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, log)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	appMetrics := prometheus.NewAppMetrics(collector)

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	defer limiter.Stop()

	h := httpserver.Handlers{
		Health:     handlers.NewHealthHandler(version, checks, log),
		Drug:       handlers.NewDrugHandler(searchSvc, compareSvc, log),
		Molecule:   handlers.NewMoleculeHandler(searchSvc, log),
		Prediction: handlers.NewPredictionHandler(predictSvc, log),
		Insight:    handlers.NewInsightHandler(insightSvc, log),
	}
	if assistantSvc != nil {
		h.Assistant = handlers.NewAssistantHandler(assistantSvc, log)
	}
	if rxSvc != nil {
		h.Prescription = handlers.NewPrescriptionHandler(rxSvc, log)
	}

	router := httpserver.NewRouter(h, httpserver.RouterConfig{
		Logger:         log,
		Metrics:        appMetrics,
		MetricsHandler: collector.Handler(),
		CORS:           middleware.DefaultCORSConfig(),
		RateLimiter:    limiter,
	})
	srv := httpserver.NewServer(cfg.Server, router, log)

	// Index sync runs in the background so a slow or absent cluster never
	// blocks serving.
	go func() {
		syncCtx, cancel := context.WithTimeout(context.Background(), indexSyncTimeout)
		defer cancel()
		if err := syncSearchIndexes(syncCtx, drugRepo, indexer, fingerprints, log); err != nil {
			log.Warn("search index sync failed", logging.Err(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", logging.String("addr", srv.Addr()))
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Stop(shutdownCtx)
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
