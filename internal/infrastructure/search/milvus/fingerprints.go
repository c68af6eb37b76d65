package milvus

import (
	"context"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/medimatch/medimatch/internal/config"
	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/internal/domain/molecule"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
)

const (
	collectionSuffix = "drug_fingerprints"

	fieldDrugID      = "drug_id"
	fieldName        = "name"
	fieldSMILES      = "smiles"
	fieldFingerprint = "fingerprint"

	indexNList   = 128
	searchNProbe = 16

	ensureTimeout = 120 * time.Second
)

// FingerprintIndex stores Morgan fingerprints as binary vectors under Jaccard
// distance. Jaccard distance over bit vectors is 1 minus Tanimoto similarity,
// so nearest neighbours here are the highest-Tanimoto candidates.
type FingerprintIndex struct {
	client     *Client
	collection string
	bits       int
	radius     int
	log        logging.Logger
}

// NewFingerprintIndex builds the index accessor. Call EnsureCollection before
// first use.
func NewFingerprintIndex(c *Client, cfg config.MilvusConfig, morganRadius int, log logging.Logger) *FingerprintIndex {
	if log == nil {
		log = logging.NewNopLogger()
	}
	bits := cfg.FingerprintBits
	if bits <= 0 {
		bits = molecule.DefaultNumBits
	}
	if morganRadius <= 0 {
		morganRadius = molecule.DefaultMorganRadius
	}
	return &FingerprintIndex{
		client:     c,
		collection: cfg.CollectionPrefix + collectionSuffix,
		bits:       bits,
		radius:     morganRadius,
		log:        log.Named("fingerprint_index"),
	}
}

// EnsureCollection creates, indexes, and loads the fingerprint collection if
// it does not exist yet.
func (f *FingerprintIndex) EnsureCollection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ensureTimeout)
	defer cancel()

	mc := f.client.Milvus()
	has, err := mc.HasCollection(ctx, f.collection)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to check collection existence")
	}

	if !has {
		schema := entity.NewSchema().
			WithName(f.collection).
			WithDescription("Morgan fingerprints of known drugs").
			WithField(entity.NewField().WithName(fieldDrugID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(fieldName).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256)).
			WithField(entity.NewField().WithName(fieldSMILES).WithDataType(entity.FieldTypeVarChar).WithMaxLength(2048)).
			WithField(entity.NewField().WithName(fieldFingerprint).WithDataType(entity.FieldTypeBinaryVector).WithDim(int64(f.bits)))

		if err := mc.CreateCollection(ctx, schema, 1); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create collection")
		}

		idx, err := entity.NewIndexBinIvfFlat(entity.JACCARD, indexNList)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to build index definition")
		}
		if err := mc.CreateIndex(ctx, f.collection, fieldFingerprint, idx, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create index")
		}
		f.log.Info("fingerprint collection created",
			logging.String("collection", f.collection),
			logging.Int("bits", f.bits))
	}

	if err := mc.LoadCollection(ctx, f.collection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "failed to load collection")
	}
	return nil
}

// IndexDrugs upserts fingerprints for every drug with a SMILES string.
// Drugs whose SMILES cannot be fingerprinted are skipped with a warning.
func (f *FingerprintIndex) IndexDrugs(ctx context.Context, drugs []*drug.Drug) (int, error) {
	ids := make([]string, 0, len(drugs))
	names := make([]string, 0, len(drugs))
	smiles := make([]string, 0, len(drugs))
	vectors := make([][]byte, 0, len(drugs))

	for _, d := range drugs {
		if d.SMILES == "" {
			continue
		}
		fp, err := molecule.CalculateMorganFingerprint(d.SMILES, f.radius, f.bits)
		if err != nil {
			f.log.Warn("skipping unfingerprintable drug",
				logging.String("name", d.Name), logging.Err(err))
			continue
		}
		ids = append(ids, d.ID)
		names = append(names, d.Name)
		smiles = append(smiles, d.SMILES)
		vectors = append(vectors, fp.ToBytes())
	}
	if len(ids) == 0 {
		return 0, nil
	}

	_, err := f.client.Milvus().Upsert(ctx, f.collection, "",
		entity.NewColumnVarChar(fieldDrugID, ids),
		entity.NewColumnVarChar(fieldName, names),
		entity.NewColumnVarChar(fieldSMILES, smiles),
		entity.NewColumnBinaryVector(fieldFingerprint, f.bits, vectors),
	)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to upsert fingerprints")
	}

	f.log.Info("fingerprints indexed", logging.Int("count", len(ids)))
	return len(ids), nil
}

// SimilarNames returns up to k drug names ordered by ascending Jaccard
// distance to the query SMILES. It satisfies the prediction service's
// candidate index port.
func (f *FingerprintIndex) SimilarNames(ctx context.Context, smiles string, k int) ([]string, error) {
	if smiles == "" {
		return nil, errors.New(errors.ErrCodeValidation, "smiles required")
	}
	if k <= 0 {
		k = 10
	}

	fp, err := molecule.CalculateMorganFingerprint(smiles, f.radius, f.bits)
	if err != nil {
		return nil, err
	}

	sp, err := entity.NewIndexBinIvfFlatSearchParam(searchNProbe)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build search params")
	}

	results, err := f.client.Milvus().Search(ctx, f.collection, nil, "",
		[]string{fieldName},
		[]entity.Vector{entity.BinaryVector(fp.ToBytes())},
		fieldFingerprint, entity.JACCARD, k, sp)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "fingerprint search failed")
	}

	var names []string
	for _, res := range results {
		col := res.Fields.GetColumn(fieldName)
		if col == nil {
			continue
		}
		for i := 0; i < res.ResultCount; i++ {
			name, err := col.GetAsString(i)
			if err != nil {
				continue
			}
			names = append(names, name)
		}
	}
	return names, nil
}

// Remove deletes a drug's fingerprint from the index.
func (f *FingerprintIndex) Remove(ctx context.Context, drugID string) error {
	expr := fieldDrugID + ` == "` + drugID + `"`
	if err := f.client.Milvus().Delete(ctx, f.collection, "", expr); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to delete fingerprint")
	}
	return nil
}

