package repositories

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medimatch/medimatch/internal/domain/prescription"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	appErrors "github.com/medimatch/medimatch/pkg/errors"
)

// itemRecord is the JSONB wire shape for one extracted medication line.  The
// domain struct is persisted through it so column contents stay stable if the
// Go field names change.
type itemRecord struct {
	DrugName       string   `json:"drug_name"`
	Dosage         string   `json:"dosage,omitempty"`
	Frequency      string   `json:"frequency,omitempty"`
	Duration       string   `json:"duration,omitempty"`
	Route          string   `json:"route,omitempty"`
	Instructions   string   `json:"instructions,omitempty"`
	Confidence     float64  `json:"confidence"`
	DosageValid    bool     `json:"dosage_valid"`
	FrequencyValid bool     `json:"frequency_valid"`
	Suggestions    []string `json:"suggestions,omitempty"`
}

// PrescriptionRepository is the PostgreSQL implementation of
// prescription.Repository.
type PrescriptionRepository struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

// NewPrescriptionRepository constructs a ready-to-use PrescriptionRepository.
func NewPrescriptionRepository(pool *pgxpool.Pool, log logging.Logger) *PrescriptionRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &PrescriptionRepository{pool: pool, log: log.Named("prescription_repo")}
}

func (r *PrescriptionRepository) Create(ctx context.Context, p *prescription.Prescription) error {
	items, err := marshalItems(p.Items)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO prescriptions (
			id, status, engine, image_object_key, items, raw_text,
			overall_confidence, error, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.Status, p.Engine, p.ImageObjectKey, items, p.RawText,
		p.OverallConfidence, p.Error, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		r.log.Error("insert prescription", logging.String("id", p.ID), logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "insert prescription")
	}
	return nil
}

func (r *PrescriptionRepository) Update(ctx context.Context, p *prescription.Prescription) error {
	items, err := marshalItems(p.Items)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE prescriptions SET
			status=$1, engine=$2, items=$3, raw_text=$4,
			overall_confidence=$5, error=$6, updated_at=$7
		WHERE id=$8`,
		p.Status, p.Engine, items, p.RawText,
		p.OverallConfidence, p.Error, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		r.log.Error("update prescription", logging.String("id", p.ID), logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "update prescription")
	}
	if tag.RowsAffected() == 0 {
		return appErrors.Newf(appErrors.ErrCodePrescriptionNotFound, "prescription %s not found", p.ID)
	}
	return nil
}

func (r *PrescriptionRepository) FindByID(ctx context.Context, id string) (*prescription.Prescription, error) {
	var (
		p         prescription.Prescription
		itemsJSON []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, status, engine, image_object_key, items, raw_text,
		       overall_confidence, error, created_at, updated_at
		FROM prescriptions WHERE id = $1`, id,
	).Scan(
		&p.ID, &p.Status, &p.Engine, &p.ImageObjectKey, &itemsJSON, &p.RawText,
		&p.OverallConfidence, &p.Error, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, appErrors.Newf(appErrors.ErrCodePrescriptionNotFound, "prescription %s not found", id)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "scan prescription")
	}

	items, err := unmarshalItems(itemsJSON)
	if err != nil {
		return nil, err
	}
	p.Items = items
	return &p, nil
}

func marshalItems(items []prescription.Item) ([]byte, error) {
	records := make([]itemRecord, 0, len(items))
	for _, it := range items {
		records = append(records, itemRecord(it))
	}
	b, err := json.Marshal(records)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeSerialization, "marshal prescription items")
	}
	return b, nil
}

func unmarshalItems(data []byte) ([]prescription.Item, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var records []itemRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeSerialization, "unmarshal prescription items")
	}
	items := make([]prescription.Item, 0, len(records))
	for _, rec := range records {
		items = append(items, prescription.Item(rec))
	}
	return items, nil
}
