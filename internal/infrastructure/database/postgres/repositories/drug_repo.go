// Package repositories contains the PostgreSQL implementations of the domain
// repository contracts.
package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	appErrors "github.com/medimatch/medimatch/pkg/errors"
)

const drugColumns = `id, name, chembl_id, smiles, formula,
	molecular_weight, log_p, log_d, psa, drug_likeness, ic50, pic50, max_phase,
	target, organism, target_type, mechanism_of_action, efo_term, mesh_heading,
	toxicity_alert, indication, description, synonyms, source,
	created_at, updated_at`

// DrugRepository is the PostgreSQL implementation of drug.Repository.
type DrugRepository struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

// NewDrugRepository constructs a ready-to-use DrugRepository.
func NewDrugRepository(pool *pgxpool.Pool, log logging.Logger) *DrugRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &DrugRepository{pool: pool, log: log.Named("drug_repo")}
}

func (r *DrugRepository) FindByID(ctx context.Context, id string) (*drug.Drug, error) {
	return r.scanDrug(r.pool.QueryRow(ctx,
		`SELECT `+drugColumns+` FROM drugs WHERE id = $1`, id))
}

// FindByName matches the drug name or any synonym, ignoring case.
func (r *DrugRepository) FindByName(ctx context.Context, name string) (*drug.Drug, error) {
	return r.scanDrug(r.pool.QueryRow(ctx,
		`SELECT `+drugColumns+` FROM drugs
		 WHERE LOWER(name) = LOWER($1)
		    OR LOWER($1) IN (SELECT LOWER(s) FROM unnest(synonyms) AS s)
		 LIMIT 1`, name))
}

func (r *DrugRepository) SearchByName(ctx context.Context, query string, limit int) ([]*drug.Drug, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+drugColumns+` FROM drugs
		 WHERE name ILIKE '%' || $1 || '%'
		 ORDER BY name
		 LIMIT $2`, query, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "search drugs by name")
	}
	defer rows.Close()
	return r.scanDrugs(rows)
}

func (r *DrugRepository) FindBySMILES(ctx context.Context, smiles string) (*drug.Drug, error) {
	return r.scanDrug(r.pool.QueryRow(ctx,
		`SELECT `+drugColumns+` FROM drugs WHERE smiles = $1 LIMIT 1`, smiles))
}

func (r *DrugRepository) List(ctx context.Context) ([]*drug.Drug, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+drugColumns+` FROM drugs ORDER BY name`)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "list drugs")
	}
	defer rows.Close()
	return r.scanDrugs(rows)
}

func (r *DrugRepository) Names(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM drugs ORDER BY name`)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "list drug names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "scan drug name")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "iterate drug names")
	}
	return names, nil
}

// Upsert inserts or updates a drug keyed by its case-insensitive name.
func (r *DrugRepository) Upsert(ctx context.Context, d *drug.Drug) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO drugs (
			id, name, chembl_id, smiles, formula,
			molecular_weight, log_p, log_d, psa, drug_likeness, ic50, pic50, max_phase,
			target, organism, target_type, mechanism_of_action, efo_term, mesh_heading,
			toxicity_alert, indication, description, synonyms, source,
			created_at, updated_at
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9,$10,$11,$12,$13,
			$14,$15,$16,$17,$18,$19,
			$20,$21,$22,$23,$24,
			$25,$26
		)
		ON CONFLICT ((LOWER(name))) DO UPDATE SET
			chembl_id           = EXCLUDED.chembl_id,
			smiles              = EXCLUDED.smiles,
			formula             = EXCLUDED.formula,
			molecular_weight    = EXCLUDED.molecular_weight,
			log_p               = EXCLUDED.log_p,
			log_d               = EXCLUDED.log_d,
			psa                 = EXCLUDED.psa,
			drug_likeness       = EXCLUDED.drug_likeness,
			ic50                = EXCLUDED.ic50,
			pic50               = EXCLUDED.pic50,
			max_phase           = EXCLUDED.max_phase,
			target              = EXCLUDED.target,
			organism            = EXCLUDED.organism,
			target_type         = EXCLUDED.target_type,
			mechanism_of_action = EXCLUDED.mechanism_of_action,
			efo_term            = EXCLUDED.efo_term,
			mesh_heading        = EXCLUDED.mesh_heading,
			toxicity_alert      = EXCLUDED.toxicity_alert,
			indication          = EXCLUDED.indication,
			description         = EXCLUDED.description,
			synonyms            = EXCLUDED.synonyms,
			source              = EXCLUDED.source,
			updated_at          = EXCLUDED.updated_at`,
		d.ID, d.Name, d.ChEMBLID, d.SMILES, d.Formula,
		d.MolecularWeight, d.LogP, d.LogD, d.PSA, d.DrugLikeness, d.IC50, d.PIC50, d.MaxPhase,
		d.Target, d.Organism, d.TargetType, d.MechanismOfAction, d.EFOTerm, d.MeSHHeading,
		d.ToxicityAlert, d.Indication, d.Description, d.Synonyms, d.Source,
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		r.log.Error("upsert drug", logging.String("name", d.Name), logging.Err(err))
		return appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "upsert drug")
	}
	return nil
}

func (r *DrugRepository) scanDrug(row pgx.Row) (*drug.Drug, error) {
	var d drug.Drug
	err := row.Scan(
		&d.ID, &d.Name, &d.ChEMBLID, &d.SMILES, &d.Formula,
		&d.MolecularWeight, &d.LogP, &d.LogD, &d.PSA, &d.DrugLikeness, &d.IC50, &d.PIC50, &d.MaxPhase,
		&d.Target, &d.Organism, &d.TargetType, &d.MechanismOfAction, &d.EFOTerm, &d.MeSHHeading,
		&d.ToxicityAlert, &d.Indication, &d.Description, &d.Synonyms, &d.Source,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, appErrors.New(appErrors.ErrCodeDrugNotFound, "drug not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "scan drug")
	}
	return &d, nil
}

func (r *DrugRepository) scanDrugs(rows pgx.Rows) ([]*drug.Drug, error) {
	var drugs []*drug.Drug
	for rows.Next() {
		var d drug.Drug
		err := rows.Scan(
			&d.ID, &d.Name, &d.ChEMBLID, &d.SMILES, &d.Formula,
			&d.MolecularWeight, &d.LogP, &d.LogD, &d.PSA, &d.DrugLikeness, &d.IC50, &d.PIC50, &d.MaxPhase,
			&d.Target, &d.Organism, &d.TargetType, &d.MechanismOfAction, &d.EFOTerm, &d.MeSHHeading,
			&d.ToxicityAlert, &d.Indication, &d.Description, &d.Synonyms, &d.Source,
			&d.CreatedAt, &d.UpdatedAt,
		)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "scan drug row")
		}
		drugs = append(drugs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCodeDatabaseError, "iterate drug rows")
	}
	return drugs, nil
}
