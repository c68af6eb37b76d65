// Package http assembles the gin router and HTTP server for the REST API.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/prometheus"
	"github.com/medimatch/medimatch/internal/interfaces/http/handlers"
	"github.com/medimatch/medimatch/internal/interfaces/http/middleware"
)

// Handlers bundles every endpoint handler the router mounts. Nil handlers
// leave their routes unregistered, which keeps partial wiring (e.g. a search
// only deployment) possible.
type Handlers struct {
	Health       *handlers.HealthHandler
	Drug         *handlers.DrugHandler
	Molecule     *handlers.MoleculeHandler
	Prediction   *handlers.PredictionHandler
	Insight      *handlers.InsightHandler
	Assistant    *handlers.AssistantHandler
	Prescription *handlers.PrescriptionHandler
}

// RouterConfig carries the cross-cutting pieces the router needs.
type RouterConfig struct {
	Logger logging.Logger

	// Metrics instruments requests and, when MetricsHandler is set, exposes
	// the scrape endpoint.
	Metrics        *prometheus.AppMetrics
	MetricsHandler http.Handler

	CORS middleware.CORSConfig

	// RateLimiter throttles per client IP; nil disables limiting.
	RateLimiter *middleware.RateLimiter

	Logging middleware.LoggingConfig
}

// NewRouter builds the gin engine with the full middleware chain and all
// routes mounted.
func NewRouter(h Handlers, cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(log, cfg.Logging))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware())
	}
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if h.Health != nil {
		r.GET("/healthz", h.Health.Liveness)
		r.GET("/readyz", h.Health.Readiness)
	}
	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	v1 := r.Group("/api/v1")

	if h.Drug != nil {
		v1.GET("/drugs", h.Drug.Names)
		v1.GET("/drugs/search", h.Drug.Search)
		v1.GET("/drugs/compare", h.Drug.Compare)
		v1.GET("/drugs/:name", h.Drug.Lookup)
	}
	if h.Molecule != nil {
		v1.POST("/molecules/molblock", h.Molecule.MolBlock)
	}
	if h.Prediction != nil {
		v1.POST("/predict/targets", h.Prediction.Predict)
	}
	if h.Insight != nil {
		v1.POST("/insights", h.Insight.Insight)
	}
	if h.Assistant != nil {
		v1.POST("/copilot", h.Assistant.Copilot)
		v1.POST("/chatbot", h.Assistant.Chatbot)
		v1.GET("/kg/:drug", h.Assistant.Graph)
	}
	if h.Prescription != nil {
		v1.POST("/prescriptions", h.Prescription.Upload)
		v1.GET("/prescriptions/:id", h.Prescription.Get)
		v1.POST("/prescriptions/interactions", h.Prescription.Interactions)
	}

	return r
}
