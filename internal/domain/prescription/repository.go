package prescription

import "context"

// Repository is the persistence contract for prescriptions.  The PostgreSQL
// implementation lives in the infrastructure layer.
type Repository interface {
	// Create stores a new prescription.
	Create(ctx context.Context, p *Prescription) error

	// Update persists status transitions and extraction results.
	Update(ctx context.Context, p *Prescription) error

	// FindByID returns the prescription, or an OCR_001 coded error when the
	// ID is unknown.
	FindByID(ctx context.Context, id string) (*Prescription, error)
}
