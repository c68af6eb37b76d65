package handlers

import (
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medimatch/medimatch/internal/application/prescription"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
	rxtypes "github.com/medimatch/medimatch/pkg/types/prescription"
)

// imageFormField is the multipart field carrying the prescription scan.
const imageFormField = "image"

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// PrescriptionHandler serves prescription upload, retrieval, and the
// interaction checker.
type PrescriptionHandler struct {
	rx  prescription.Service
	log logging.Logger
}

// NewPrescriptionHandler wires the prescription endpoints.
func NewPrescriptionHandler(rxSvc prescription.Service, log logging.Logger) *PrescriptionHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PrescriptionHandler{rx: rxSvc, log: log.Named("prescription_handler")}
}

// Upload handles POST /api/v1/prescriptions. The body is multipart form data
// with an "image" file; mode optionally forces the OCR backend and async
// defers extraction to the worker.
func (h *PrescriptionHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile(imageFormField)
	if err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodePrescriptionFileInvalid, "image file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !allowedImageTypes[contentType] {
		respondError(c, errors.Newf(errors.ErrCodePrescriptionFileInvalid,
			"unsupported content type %q", contentType))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, errors.Wrap(err, errors.ErrCodePrescriptionUploadFailed, "failed to read image"))
		return
	}
	if len(data) == 0 {
		respondError(c, errors.New(errors.ErrCodePrescriptionFileInvalid, "image file is empty"))
		return
	}

	engine, err := parseEngine(c.PostForm("mode"))
	if err != nil {
		respondError(c, err)
		return
	}
	async, _ := strconv.ParseBool(c.PostForm("async"))

	dto, err := h.rx.Upload(c.Request.Context(), prescription.UploadRequest{
		Image:       data,
		ContentType: contentType,
		Engine:      engine,
		Async:       async,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	created(c, dto)
}

// Get handles GET /api/v1/prescriptions/:id.
func (h *PrescriptionHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		respondValidation(c, "prescription id is required")
		return
	}
	dto, err := h.rx.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, dto)
}

// Interactions handles POST /api/v1/prescriptions/interactions.
func (h *PrescriptionHandler) Interactions(c *gin.Context) {
	var req rxtypes.InteractionRequest
	if !bindJSON(c, &req) {
		return
	}
	if len(req.Drugs) < 2 {
		respondValidation(c, "at least two drugs are required")
		return
	}

	resp, err := h.rx.CheckInteractions(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, resp)
}

func parseEngine(mode string) (rxtypes.Engine, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "":
		return "", nil
	case string(rxtypes.EngineHosted):
		return rxtypes.EngineHosted, nil
	case string(rxtypes.EngineGemini):
		return rxtypes.EngineGemini, nil
	default:
		return "", errors.Newf(errors.ErrCodeValidation, "unknown ocr mode %q", mode)
	}
}
