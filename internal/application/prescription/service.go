// Package prescription orchestrates the OCR pipeline: image storage, text
// extraction through the hosted OCR endpoint with a Gemini Vision fallback,
// item validation, and drug-drug interaction checks.
package prescription

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medimatch/medimatch/internal/domain/drug"
	domainrx "github.com/medimatch/medimatch/internal/domain/prescription"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
	rxtypes "github.com/medimatch/medimatch/pkg/types/prescription"
)

const (
	maxSuggestions = 3

	objectKeyPrefix = "prescriptions/"

	presignedURLExpiry = 15 * time.Minute

	visionPrompt = `You are an expert pharmacist. Read the prescription image and extract every medicine written on it.

Respond with a single JSON object, no markdown, in exactly this format:
{
  "medicines": [
    {
      "drug_name": "...",
      "dosage": "...",
      "frequency": "...",
      "duration": "...",
      "instructions": "..."
    }
  ],
  "confidence_score": 0.0
}

Use an empty string for anything not written on the prescription. confidence_score is your overall confidence between 0 and 1.`
)

// ─────────────────────────────────────────────────────────────────────────────
// Ports
// ─────────────────────────────────────────────────────────────────────────────

// ObjectStore stores prescription images. The MinIO adapter implements it.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// OCREngine is the hosted OCR endpoint.
type OCREngine interface {
	Configured() bool
	Extract(ctx context.Context, imageBase64 string) (string, error)
}

// VisionEngine is the multimodal LLM fallback.
type VisionEngine interface {
	Configured() bool
	AnalyzeImage(ctx context.Context, prompt, imageBase64, mimeType string) (string, error)
}

// Publisher emits async OCR jobs. The Kafka producer implements it.
type Publisher interface {
	PublishOCRRequested(ctx context.Context, prescriptionID string) error
}

// NameSource supplies the known drug names used for fuzzy correction.
type NameSource interface {
	Names(ctx context.Context) ([]string, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Service
// ─────────────────────────────────────────────────────────────────────────────

// UploadRequest carries one prescription image.
type UploadRequest struct {
	Image       []byte
	ContentType string

	// Engine optionally forces a backend; empty means hosted with Gemini
	// fallback.
	Engine rxtypes.Engine

	// Async stores the prescription and publishes an OCR job instead of
	// processing inline.
	Async bool
}

// Service is the prescription OCR application service.
type Service interface {
	// Upload stores the image, creates the prescription, and either runs the
	// pipeline inline or publishes an async job.
	Upload(ctx context.Context, req UploadRequest) (*rxtypes.PrescriptionDTO, error)

	// Process runs extraction and validation for a stored prescription. The
	// worker calls this for async jobs.
	Process(ctx context.Context, id string) (*rxtypes.PrescriptionDTO, error)

	// Get returns the prescription with a presigned image URL.
	Get(ctx context.Context, id string) (*rxtypes.PrescriptionDTO, error)

	// CheckInteractions flags known drug-drug interactions in a medication
	// list.
	CheckInteractions(ctx context.Context, req rxtypes.InteractionRequest) (*rxtypes.InteractionResponse, error)
}

type serviceImpl struct {
	repo      domainrx.Repository
	store     ObjectStore
	ocr       OCREngine
	vision    VisionEngine
	publisher Publisher
	names     NameSource
	log       logging.Logger
}

// NewService wires the prescription pipeline. publisher may be nil when the
// deployment runs without Kafka; Upload then always processes inline.
func NewService(
	repo domainrx.Repository,
	store ObjectStore,
	ocr OCREngine,
	vision VisionEngine,
	publisher Publisher,
	names NameSource,
	log logging.Logger,
) Service {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &serviceImpl{
		repo:      repo,
		store:     store,
		ocr:       ocr,
		vision:    vision,
		publisher: publisher,
		names:     names,
		log:       log.Named("prescription"),
	}
}

func (s *serviceImpl) Upload(ctx context.Context, req UploadRequest) (*rxtypes.PrescriptionDTO, error) {
	if len(req.Image) == 0 {
		return nil, errors.New(errors.ErrCodePrescriptionFileInvalid, "empty image")
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	key := objectKeyPrefix + uuid.New().String() + extensionFor(contentType)
	if err := s.store.Upload(ctx, key, req.Image, contentType); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodePrescriptionUploadFailed, "store image")
	}

	p := domainrx.New(key)
	p.Engine = req.Engine
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("prescription uploaded",
		logging.String("id", p.ID),
		logging.String("object_key", key),
		logging.Bool("async", req.Async))

	if req.Async && s.publisher != nil {
		if err := s.publisher.PublishOCRRequested(ctx, p.ID); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodePrescriptionUploadFailed, "publish OCR job")
		}
		dto := p.ToDTO()
		return &dto, nil
	}
	return s.Process(ctx, p.ID)
}

func (s *serviceImpl) Process(ctx context.Context, id string) (*rxtypes.PrescriptionDTO, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.MarkProcessing()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	image, err := s.store.Get(ctx, p.ImageObjectKey)
	if err != nil {
		return s.fail(ctx, p, errors.Wrap(err, errors.ErrCodeOCRExtractionFailed, "load image"))
	}
	imageBase64 := base64.StdEncoding.EncodeToString(image)

	engine, items, rawText, err := s.extract(ctx, p.Engine, imageBase64, contentTypeFor(p.ImageObjectKey))
	if err != nil {
		return s.fail(ctx, p, err)
	}

	s.validateItems(ctx, items)
	p.Complete(engine, items, rawText)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("prescription processed",
		logging.String("id", p.ID),
		logging.String("engine", string(engine)),
		logging.Int("items", len(items)),
		logging.Float64("confidence", p.OverallConfidence))

	dto := p.ToDTO()
	return &dto, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (*rxtypes.PrescriptionDTO, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := p.ToDTO()
	if url, err := s.store.PresignedURL(ctx, p.ImageObjectKey, presignedURLExpiry); err != nil {
		s.log.Warn("presign image URL", logging.String("id", id), logging.Err(err))
	} else {
		dto.ImageURL = url
	}
	return &dto, nil
}

func (s *serviceImpl) CheckInteractions(_ context.Context, req rxtypes.InteractionRequest) (*rxtypes.InteractionResponse, error) {
	return &rxtypes.InteractionResponse{
		Drugs:    req.Drugs,
		Warnings: CheckInteractions(req.Drugs),
	}, nil
}

// extract runs the requested engine, or hosted-then-Gemini when no engine is
// forced. It returns the engine that produced the result.
func (s *serviceImpl) extract(ctx context.Context, preferred rxtypes.Engine, imageBase64, mimeType string) (rxtypes.Engine, []domainrx.Item, string, error) {
	tryHosted := preferred != rxtypes.EngineGemini && s.ocr != nil && s.ocr.Configured()
	tryGemini := preferred != rxtypes.EngineHosted && s.vision != nil && s.vision.Configured()

	if tryHosted {
		text, err := s.ocr.Extract(ctx, imageBase64)
		if err == nil {
			if items := parseFormattedText(text); len(items) > 0 {
				return rxtypes.EngineHosted, items, text, nil
			}
			err = errors.New(errors.ErrCodeOCRResponseUnparsable, "no medicines in OCR output")
		}
		if !tryGemini {
			return "", nil, "", err
		}
		s.log.Warn("hosted OCR failed, falling back to vision model", logging.Err(err))
	}

	if tryGemini {
		text, err := s.vision.AnalyzeImage(ctx, visionPrompt, imageBase64, mimeType)
		if err != nil {
			return "", nil, "", errors.Wrap(err, errors.ErrCodeOCRExtractionFailed, "vision extraction")
		}
		items, _, err := parseVisionJSON(text)
		if err != nil {
			return "", nil, "", err
		}
		return rxtypes.EngineGemini, items, text, nil
	}

	return "", nil, "", errors.New(errors.ErrCodeOCRExtractionFailed, "no OCR engine configured")
}

// validateItems normalizes doses and frequencies in place and attaches fuzzy
// name suggestions for drugs not present in the local dataset.
func (s *serviceImpl) validateItems(ctx context.Context, items []domainrx.Item) {
	names, seen, err := s.knownNames(ctx)
	if err != nil {
		s.log.Warn("load drug names for suggestions", logging.Err(err))
	}

	for i := range items {
		it := &items[i]
		it.DosageValid, it.Dosage = ValidateDosage(it.Dosage)
		it.FrequencyValid, it.Frequency = ValidateFrequency(it.Frequency)

		if len(names) == 0 || seen[strings.ToLower(it.DrugName)] {
			continue
		}
		it.Suggestions = drug.SuggestNames(it.DrugName, names, maxSuggestions)
	}
}

func (s *serviceImpl) knownNames(ctx context.Context) ([]string, map[string]bool, error) {
	if s.names == nil {
		return nil, nil, nil
	}
	names, err := s.names.Names(ctx)
	if err != nil {
		return nil, nil, err
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[strings.ToLower(n)] = true
	}
	return names, seen, nil
}

func (s *serviceImpl) fail(ctx context.Context, p *domainrx.Prescription, cause error) (*rxtypes.PrescriptionDTO, error) {
	p.Fail(cause.Error())
	if err := s.repo.Update(ctx, p); err != nil {
		s.log.Error("persist failed prescription", logging.String("id", p.ID), logging.Err(err))
	}
	return nil, cause
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func contentTypeFor(objectKey string) string {
	switch {
	case strings.HasSuffix(objectKey, ".png"):
		return "image/png"
	case strings.HasSuffix(objectKey, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
