package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/medimatch/medimatch/internal/application/search"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// MoleculeHandler serves structure rendering.
type MoleculeHandler struct {
	search search.Service
	log    logging.Logger
}

// NewMoleculeHandler wires the molecule endpoints.
func NewMoleculeHandler(searchSvc search.Service, log logging.Logger) *MoleculeHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &MoleculeHandler{search: searchSvc, log: log.Named("molecule_handler")}
}

// MolBlock handles POST /api/v1/molecules/molblock. The body names either a
// SMILES string or a known drug.
func (h *MoleculeHandler) MolBlock(c *gin.Context) {
	var req drugtypes.MolBlockRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.SMILES == "" && req.Name == "" {
		respondValidation(c, "either smiles or name is required")
		return
	}

	resp, err := h.search.MolBlock(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}
