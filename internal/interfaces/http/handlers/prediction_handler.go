package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/medimatch/medimatch/internal/application/prediction"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// PredictionHandler serves molecular target prediction.
type PredictionHandler struct {
	predict prediction.Service
	log     logging.Logger
}

// NewPredictionHandler wires the prediction endpoint.
func NewPredictionHandler(predictSvc prediction.Service, log logging.Logger) *PredictionHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PredictionHandler{predict: predictSvc, log: log.Named("prediction_handler")}
}

// Predict handles POST /api/v1/predict/targets. The query may be a drug name
// or a raw SMILES string.
func (h *PredictionHandler) Predict(c *gin.Context) {
	var req drugtypes.PredictRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Query == "" {
		respondValidation(c, "query is required")
		return
	}

	resp, err := h.predict.Predict(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}
