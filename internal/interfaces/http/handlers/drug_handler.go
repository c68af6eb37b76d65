package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/medimatch/medimatch/internal/application/comparison"
	"github.com/medimatch/medimatch/internal/application/search"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

const defaultSearchLimit = 20

// DrugHandler serves drug search, lookup, and comparison.
type DrugHandler struct {
	search  search.Service
	compare comparison.Service
	log     logging.Logger
}

// NewDrugHandler wires the drug endpoints.
func NewDrugHandler(searchSvc search.Service, compareSvc comparison.Service, log logging.Logger) *DrugHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &DrugHandler{
		search:  searchSvc,
		compare: compareSvc,
		log:     log.Named("drug_handler"),
	}
}

// Names handles GET /api/v1/drugs.
func (h *DrugHandler) Names(c *gin.Context) {
	names, err := h.search.Names(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, drugtypes.NamesResponse{Names: names})
}

// Lookup handles GET /api/v1/drugs/:name.
func (h *DrugHandler) Lookup(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		respondValidation(c, "drug name is required")
		return
	}
	dto, err := h.search.Lookup(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, dto)
}

// Search handles GET /api/v1/drugs/search?query=&limit=.
func (h *DrugHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		respondValidation(c, "query parameter is required")
		return
	}
	limit := queryInt(c, "limit", defaultSearchLimit)

	resp, err := h.search.Search(c.Request.Context(), query, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}

// Compare handles GET /api/v1/drugs/compare?drug1=&drug2=.
func (h *DrugHandler) Compare(c *gin.Context) {
	drug1 := c.Query("drug1")
	drug2 := c.Query("drug2")
	if drug1 == "" || drug2 == "" {
		respondValidation(c, "drug1 and drug2 parameters are required")
		return
	}

	resp, err := h.compare.Compare(c.Request.Context(), drug1, drug2)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}
