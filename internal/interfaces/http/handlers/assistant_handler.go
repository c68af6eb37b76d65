package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/medimatch/medimatch/internal/application/assistant"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

const defaultGraphNodes = 25

// AssistantHandler serves the graph-grounded question answering endpoints.
type AssistantHandler struct {
	assistant assistant.Service
	log       logging.Logger
}

// NewAssistantHandler wires the assistant endpoints.
func NewAssistantHandler(assistantSvc assistant.Service, log logging.Logger) *AssistantHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &AssistantHandler{assistant: assistantSvc, log: log.Named("assistant_handler")}
}

// Copilot handles POST /api/v1/copilot.
func (h *AssistantHandler) Copilot(c *gin.Context) {
	h.answer(c, h.assistant.Copilot)
}

// Chatbot handles POST /api/v1/chatbot.
func (h *AssistantHandler) Chatbot(c *gin.Context) {
	h.answer(c, h.assistant.Chatbot)
}

func (h *AssistantHandler) answer(c *gin.Context, answer func(ctx context.Context, req *drugtypes.AssistantRequest) (*drugtypes.AssistantResponse, error)) {
	var req drugtypes.AssistantRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Question == "" {
		respondValidation(c, "question is required")
		return
	}

	resp, err := answer(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}

// Graph handles GET /api/v1/kg/:drug?max_nodes=.
func (h *AssistantHandler) Graph(c *gin.Context) {
	drugName := c.Param("drug")
	if drugName == "" {
		respondValidation(c, "drug name is required")
		return
	}
	maxNodes := queryInt(c, "max_nodes", defaultGraphNodes)

	resp, err := h.assistant.Graph(c.Request.Context(), drugName, maxNodes)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}
