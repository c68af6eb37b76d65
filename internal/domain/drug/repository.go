package drug

import "context"

// Repository is the persistence contract for the local drug dataset.
// Implementations live in the infrastructure layer (PostgreSQL, with an
// optional OpenSearch backend for SearchByName).
type Repository interface {
	// FindByID returns the drug with the given ID, or a DRUG_001 coded error.
	FindByID(ctx context.Context, id string) (*Drug, error)

	// FindByName returns the drug whose name or synonym equals name,
	// ignoring case.  Not-found is a DRUG_001 coded error.
	FindByName(ctx context.Context, name string) (*Drug, error)

	// SearchByName returns drugs whose name contains the query substring,
	// case-insensitively, up to limit results.  An empty result is not an
	// error.
	SearchByName(ctx context.Context, query string, limit int) ([]*Drug, error)

	// FindBySMILES returns the drug with exactly this SMILES string.
	FindBySMILES(ctx context.Context, smiles string) (*Drug, error)

	// List returns every drug in the dataset.  The local dataset is small
	// (curated reference compounds), so full scans are acceptable for
	// similarity ranking.
	List(ctx context.Context) ([]*Drug, error)

	// Names returns every known drug name, sorted.
	Names(ctx context.Context) ([]string, error)

	// Upsert inserts or updates a drug keyed by name.
	Upsert(ctx context.Context, d *Drug) error
}
