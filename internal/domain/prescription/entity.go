// Package prescription contains the prescription aggregate produced by the
// OCR pipeline, plus its repository contract.
package prescription

import (
	"time"

	"github.com/google/uuid"

	"github.com/medimatch/medimatch/pkg/types/common"
	rxtypes "github.com/medimatch/medimatch/pkg/types/prescription"
)

// Item is one medication line extracted from a prescription image.
type Item struct {
	DrugName     string
	Dosage       string
	Frequency    string
	Duration     string
	Route        string
	Instructions string
	Confidence   float64

	DosageValid    bool
	FrequencyValid bool
	Suggestions    []string
}

// Prescription is the aggregate for one uploaded prescription image and its
// extraction result.
type Prescription struct {
	ID                string
	Status            rxtypes.Status
	Engine            rxtypes.Engine
	ImageObjectKey    string
	Items             []Item
	RawText           string
	OverallConfidence float64
	Error             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// New creates a pending prescription for a stored image.
func New(imageObjectKey string) *Prescription {
	now := time.Now().UTC()
	return &Prescription{
		ID:             uuid.New().String(),
		Status:         rxtypes.StatusPending,
		ImageObjectKey: imageObjectKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// MarkProcessing transitions the prescription into the processing state.
func (p *Prescription) MarkProcessing() {
	p.Status = rxtypes.StatusProcessing
	p.UpdatedAt = time.Now().UTC()
}

// Complete records a successful extraction.  The overall confidence is the
// mean of the item confidences; an extraction with no items scores zero.
func (p *Prescription) Complete(engine rxtypes.Engine, items []Item, rawText string) {
	p.Status = rxtypes.StatusCompleted
	p.Engine = engine
	p.Items = items
	p.RawText = rawText
	p.OverallConfidence = meanConfidence(items)
	p.Error = ""
	p.UpdatedAt = time.Now().UTC()
}

// Fail records a terminal extraction failure.
func (p *Prescription) Fail(reason string) {
	p.Status = rxtypes.StatusFailed
	p.Error = reason
	p.UpdatedAt = time.Now().UTC()
}

func meanConfidence(items []Item) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, it := range items {
		sum += it.Confidence
	}
	return sum / float64(len(items))
}

// ToDTO converts the aggregate to its transport representation.
func (p *Prescription) ToDTO() rxtypes.PrescriptionDTO {
	items := make([]rxtypes.ItemDTO, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, rxtypes.ItemDTO{
			DrugName:       it.DrugName,
			Dosage:         it.Dosage,
			Frequency:      it.Frequency,
			Duration:       it.Duration,
			Route:          it.Route,
			Instructions:   it.Instructions,
			Confidence:     it.Confidence,
			DosageValid:    it.DosageValid,
			FrequencyValid: it.FrequencyValid,
			Suggestions:    it.Suggestions,
		})
	}
	return rxtypes.PrescriptionDTO{
		ID:                p.ID,
		Status:            p.Status,
		Engine:            p.Engine,
		ImageObjectKey:    p.ImageObjectKey,
		Items:             items,
		RawText:           p.RawText,
		OverallConfidence: p.OverallConfidence,
		Error:             p.Error,
		CreatedAt:         common.Timestamp(p.CreatedAt),
		UpdatedAt:         common.Timestamp(p.UpdatedAt),
	}
}
