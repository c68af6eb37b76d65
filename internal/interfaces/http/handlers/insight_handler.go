package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/medimatch/medimatch/internal/application/insight"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// InsightHandler serves model-generated clinical summaries.
type InsightHandler struct {
	insight insight.Service
	log     logging.Logger
}

// NewInsightHandler wires the insight endpoint.
func NewInsightHandler(insightSvc insight.Service, log logging.Logger) *InsightHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &InsightHandler{insight: insightSvc, log: log.Named("insight_handler")}
}

// Insight handles POST /api/v1/insights.
func (h *InsightHandler) Insight(c *gin.Context) {
	var req drugtypes.InsightRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.DrugName == "" {
		respondValidation(c, "drug_name is required")
		return
	}

	resp, err := h.insight.Insight(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}
