// Package prescription defines the prescription-domain Data Transfer Objects
// shared by the HTTP layer, the client SDK, and the async OCR worker.
package prescription

import "github.com/medimatch/medimatch/pkg/types/common"

// Status is the processing state of an uploaded prescription.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Engine names the OCR backend that produced a result.
type Engine string

const (
	EngineHosted Engine = "hosted"
	EngineGemini Engine = "gemini"
)

// ItemDTO is one medication line extracted from a prescription image.
type ItemDTO struct {
	DrugName     string  `json:"drug_name"`
	Dosage       string  `json:"dosage,omitempty"`
	Frequency    string  `json:"frequency,omitempty"`
	Duration     string  `json:"duration,omitempty"`
	Route        string  `json:"route,omitempty"`
	Instructions string  `json:"instructions,omitempty"`
	Confidence   float64 `json:"confidence"`

	// DosageValid and FrequencyValid report whether the extracted strings
	// parse as a plausible dose and schedule.
	DosageValid    bool `json:"dosage_valid"`
	FrequencyValid bool `json:"frequency_valid"`

	// Suggestions lists fuzzy-matched dataset drug names when DrugName does
	// not match anything known.
	Suggestions []string `json:"suggestions,omitempty"`
}

// PrescriptionDTO is the canonical prescription representation.
type PrescriptionDTO struct {
	ID                string           `json:"id"`
	Status            Status           `json:"status"`
	Engine            Engine           `json:"engine,omitempty"`
	ImageObjectKey    string           `json:"image_object_key,omitempty"`
	ImageURL          string           `json:"image_url,omitempty"`
	Items             []ItemDTO        `json:"items,omitempty"`
	RawText           string           `json:"raw_text,omitempty"`
	OverallConfidence float64          `json:"overall_confidence"`
	Error             string           `json:"error,omitempty"`
	CreatedAt         common.Timestamp `json:"created_at"`
	UpdatedAt         common.Timestamp `json:"updated_at"`
}

// InteractionRequest asks for pairwise interaction checks over a drug list.
type InteractionRequest struct {
	Drugs []string `json:"drugs"`
}

// InteractionWarning is one flagged drug pair.
type InteractionWarning struct {
	Drug1       string `json:"drug1"`
	Drug2       string `json:"drug2"`
	Severity    string `json:"severity"` // "major" | "moderate" | "minor"
	Description string `json:"description"`
}

// InteractionResponse is the output DTO for interaction checks.
type InteractionResponse struct {
	Drugs    []string             `json:"drugs"`
	Warnings []InteractionWarning `json:"warnings"`
}
