// Package search provides the application-level drug search and lookup
// service. Local dataset hits are served from the repository; unknown names
// fall back to a merged multi-source external lookup.
package search

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/internal/domain/molecule"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// maxSuggestions bounds how many spelling corrections a search returns.
const maxSuggestions = 3

// Fetcher fetches a drug record from one upstream source. A not-found
// result is a coded error, not a nil record.
type Fetcher interface {
	FetchDrug(ctx context.Context, name string) (*drug.Drug, error)
}

// Normalizer resolves a free-text drug name to its preferred form.
type Normalizer interface {
	Normalize(ctx context.Context, name string) (normalized string, rxcui string, err error)
}

// Cache is the subset of the redis cache used for merged lookup results.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Sources groups the external fetchers by name so the merge can apply its
// per-field priority. Any of them may be nil.
type Sources struct {
	PubChem     Fetcher
	DrugCentral Fetcher
	ChEMBL      Fetcher
}

// Service defines drug search and lookup operations.
type Service interface {
	// Search finds local drugs whose name contains the query. When nothing
	// matches, the query is fuzzy-corrected against the known names and the
	// best correction is searched instead.
	Search(ctx context.Context, query string, limit int) (*drugtypes.SearchResponse, error)

	// Names returns all known drug names for autocompletion.
	Names(ctx context.Context) ([]string, error)

	// Lookup returns the full record for one drug, falling back to the
	// merged external sources when the local dataset misses.
	Lookup(ctx context.Context, name string) (*drugtypes.DrugDTO, error)

	// MolBlock renders a V2000 MOL block for a SMILES string or a drug name.
	MolBlock(ctx context.Context, req *drugtypes.MolBlockRequest) (*drugtypes.MolBlockResponse, error)
}

type serviceImpl struct {
	repo       drug.Repository
	normalizer Normalizer
	sources    Sources
	cache      Cache
	cacheTTL   time.Duration
	logger     logging.Logger
}

// NewService creates the drug search service. normalizer and cache may be
// nil; the lookup then skips name normalization or caching respectively.
func NewService(repo drug.Repository, normalizer Normalizer, sources Sources, cache Cache, cacheTTL time.Duration, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &serviceImpl{
		repo:       repo,
		normalizer: normalizer,
		sources:    sources,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger.Named("search"),
	}
}

func (s *serviceImpl) Search(ctx context.Context, query string, limit int) (*drugtypes.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New(errors.ErrCodeDrugNameInvalid, "search query is empty")
	}
	if limit <= 0 {
		limit = 20
	}

	results, err := s.repo.SearchByName(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	resp := &drugtypes.SearchResponse{Query: query}
	if len(results) == 0 {
		if corrected := s.correct(ctx, query); corrected != "" {
			results, err = s.repo.SearchByName(ctx, corrected, limit)
			if err != nil {
				return nil, err
			}
			resp.Corrected = corrected
		}
	}

	resp.Results = make([]drugtypes.DrugDTO, 0, len(results))
	for _, d := range results {
		resp.Results = append(resp.Results, d.ToDTO())
	}
	return resp, nil
}

// correct returns the best fuzzy correction for query, or "" when no known
// name is close enough.
func (s *serviceImpl) correct(ctx context.Context, query string) string {
	names, err := s.repo.Names(ctx)
	if err != nil {
		s.logger.Warn("name list unavailable for correction", logging.Err(err))
		return ""
	}
	suggestions := drug.SuggestNames(query, names, 1)
	if len(suggestions) == 0 || strings.EqualFold(suggestions[0], query) {
		return ""
	}
	return suggestions[0]
}

func (s *serviceImpl) Names(ctx context.Context) ([]string, error) {
	return s.repo.Names(ctx)
}

func (s *serviceImpl) Lookup(ctx context.Context, name string) (*drugtypes.DrugDTO, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New(errors.ErrCodeDrugNameInvalid, "drug name is empty")
	}

	if d, err := s.repo.FindByName(ctx, name); err == nil {
		dto := d.ToDTO()
		return &dto, nil
	} else if !errors.IsNotFound(err) {
		return nil, err
	}

	cacheKey := "drug:lookup:" + strings.ToLower(name)
	if s.cache != nil {
		var cached drugtypes.DrugDTO
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	merged, err := s.lookupExternal(ctx, name)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, merged); err != nil {
		s.logger.Warn("upsert of external lookup failed",
			logging.String("drug", merged.Name), logging.Err(err))
	}

	dto := merged.ToDTO()
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, &dto, s.cacheTTL); err != nil {
			s.logger.Warn("cache write failed", logging.String("key", cacheKey), logging.Err(err))
		}
	}
	return &dto, nil
}

// lookupExternal queries all configured sources in parallel for the
// original and the normalized name, then merges the per-source records.
func (s *serviceImpl) lookupExternal(ctx context.Context, name string) (*drug.Drug, error) {
	names := []string{name}
	if s.normalizer != nil {
		normalized, _, err := s.normalizer.Normalize(ctx, name)
		if err != nil {
			s.logger.Debug("name normalization failed", logging.String("name", name), logging.Err(err))
		} else if normalized != "" && !strings.EqualFold(normalized, name) {
			names = append(names, normalized)
		}
	}

	var pubchemHit, drugcentralHit, chemblHit *drug.Drug
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pubchemHit = s.fetchFirst(gctx, s.sources.PubChem, "pubchem", names)
		return nil
	})
	g.Go(func() error {
		drugcentralHit = s.fetchFirst(gctx, s.sources.DrugCentral, "drugcentral", names)
		return nil
	})
	g.Go(func() error {
		chemblHit = s.fetchFirst(gctx, s.sources.ChEMBL, "chembl", names)
		return nil
	})
	_ = g.Wait()

	if pubchemHit == nil && drugcentralHit == nil && chemblHit == nil {
		return nil, errors.Newf(errors.ErrCodeDrugNotFound, "drug %q not found in any source", name)
	}

	merged := mergeSources(pubchemHit, drugcentralHit, chemblHit)
	if merged.Name == "" {
		merged.Name = strings.ToUpper(name)
	}
	s.logger.Info("external lookup merged",
		logging.String("drug", merged.Name),
		logging.String("sources", merged.Source),
	)
	return merged, nil
}

// fetchFirst tries each candidate name against one source and keeps the
// first hit. Failures are logged and treated as a miss.
func (s *serviceImpl) fetchFirst(ctx context.Context, f Fetcher, source string, names []string) *drug.Drug {
	if f == nil {
		return nil
	}
	for _, n := range names {
		d, err := f.FetchDrug(ctx, n)
		if err != nil {
			s.logger.Debug("source lookup miss",
				logging.String("source", source),
				logging.String("name", n),
				logging.Err(err))
			continue
		}
		return d
	}
	return nil
}

// mergeSources folds per-source records into one, with field-group
// priorities: structure from PubChem, pharmacology from DrugCentral,
// bioactivity and identifiers from ChEMBL.
func mergeSources(pubchem, drugcentral, chembl *drug.Drug) *drug.Drug {
	merged := &drug.Drug{}

	// Structure and physicochemical descriptors.
	merged.Name = firstStr(get(pubchem, name), get(chembl, name), get(drugcentral, name))
	merged.SMILES = firstStr(get(pubchem, smiles), get(chembl, smiles), get(drugcentral, smiles))
	merged.Formula = firstStr(get(pubchem, formula), get(chembl, formula), get(drugcentral, formula))
	merged.MolecularWeight = firstF64(getF(pubchem, weight), getF(chembl, weight), getF(drugcentral, weight))
	merged.PSA = firstF64(getF(pubchem, psa), getF(chembl, psa), getF(drugcentral, psa))
	merged.LogP = firstF64(getF(pubchem, logP), getF(drugcentral, logP), getF(chembl, logP))

	// Pharmacology and safety.
	merged.MechanismOfAction = firstStr(get(drugcentral, mechanism), get(chembl, mechanism), get(pubchem, mechanism))
	merged.Target = firstStr(get(drugcentral, target), get(chembl, target), get(pubchem, target))
	merged.TargetType = firstStr(get(drugcentral, targetType), get(chembl, targetType), get(pubchem, targetType))
	merged.ToxicityAlert = firstStr(get(drugcentral, toxicity), get(chembl, toxicity), get(pubchem, toxicity))
	merged.Indication = firstStr(get(drugcentral, indication), get(chembl, indication), get(pubchem, indication))

	// Bioactivity and identifiers.
	merged.IC50 = firstF64(getF(chembl, ic50), getF(drugcentral, ic50), getF(pubchem, ic50))
	merged.PIC50 = firstF64(getF(chembl, pic50), getF(drugcentral, pic50), getF(pubchem, pic50))
	merged.DrugLikeness = firstF64(getF(chembl, likeness), getF(drugcentral, likeness), getF(pubchem, likeness))
	merged.MaxPhase = firstInt(getI(chembl), getI(drugcentral), getI(pubchem))
	merged.ID = firstStr(get(chembl, id), get(drugcentral, id), get(pubchem, id))
	merged.ChEMBLID = firstStr(get(chembl, chemblID), get(drugcentral, chemblID), get(pubchem, chemblID))
	merged.Organism = firstStr(get(chembl, organism), get(drugcentral, organism), get(pubchem, organism))
	merged.EFOTerm = firstStr(get(chembl, efo), get(drugcentral, efo), get(pubchem, efo))
	merged.MeSHHeading = firstStr(get(chembl, mesh), get(drugcentral, mesh), get(pubchem, mesh))
	merged.LogD = firstF64(getF(chembl, logD), getF(drugcentral, logD), getF(pubchem, logD))

	for _, d := range []*drug.Drug{pubchem, drugcentral, chembl} {
		if d == nil {
			continue
		}
		merged.Synonyms = append(merged.Synonyms, d.Synonyms...)
		if d.Source != "" {
			if merged.Source != "" {
				merged.Source += " + "
			}
			merged.Source += d.Source
		}
	}
	return merged
}

// Field selectors keep the merge table readable.
type strField func(*drug.Drug) string
type f64Field func(*drug.Drug) *float64

var (
	name       strField = func(d *drug.Drug) string { return d.Name }
	id         strField = func(d *drug.Drug) string { return d.ID }
	chemblID   strField = func(d *drug.Drug) string { return d.ChEMBLID }
	smiles     strField = func(d *drug.Drug) string { return d.SMILES }
	formula    strField = func(d *drug.Drug) string { return d.Formula }
	mechanism  strField = func(d *drug.Drug) string { return d.MechanismOfAction }
	target     strField = func(d *drug.Drug) string { return d.Target }
	targetType strField = func(d *drug.Drug) string { return d.TargetType }
	toxicity   strField = func(d *drug.Drug) string { return d.ToxicityAlert }
	indication strField = func(d *drug.Drug) string { return d.Indication }
	organism   strField = func(d *drug.Drug) string { return d.Organism }
	efo        strField = func(d *drug.Drug) string { return d.EFOTerm }
	mesh       strField = func(d *drug.Drug) string { return d.MeSHHeading }

	weight   f64Field = func(d *drug.Drug) *float64 { return d.MolecularWeight }
	psa      f64Field = func(d *drug.Drug) *float64 { return d.PSA }
	logP     f64Field = func(d *drug.Drug) *float64 { return d.LogP }
	logD     f64Field = func(d *drug.Drug) *float64 { return d.LogD }
	ic50     f64Field = func(d *drug.Drug) *float64 { return d.IC50 }
	pic50    f64Field = func(d *drug.Drug) *float64 { return d.PIC50 }
	likeness f64Field = func(d *drug.Drug) *float64 { return d.DrugLikeness }
)

func get(d *drug.Drug, f strField) string {
	if d == nil {
		return ""
	}
	v := f(d)
	// Upstream placeholder values never beat real data.
	if v == "N/A" || v == "Unknown" {
		return ""
	}
	return v
}

func getF(d *drug.Drug, f f64Field) *float64 {
	if d == nil {
		return nil
	}
	return f(d)
}

func getI(d *drug.Drug) *int {
	if d == nil {
		return nil
	}
	return d.MaxPhase
}

func firstStr(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstF64(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstInt(vals ...*int) *int {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func (s *serviceImpl) MolBlock(ctx context.Context, req *drugtypes.MolBlockRequest) (*drugtypes.MolBlockResponse, error) {
	smilesStr := strings.TrimSpace(req.SMILES)
	if smilesStr == "" && req.Name != "" {
		dto, err := s.Lookup(ctx, req.Name)
		if err != nil {
			return nil, err
		}
		smilesStr = dto.SMILES
	}
	if smilesStr == "" {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "no SMILES available for mol block")
	}

	block, err := molecule.GenerateMolBlock(smilesStr)
	if err != nil {
		return nil, err
	}
	return &drugtypes.MolBlockResponse{SMILES: smilesStr, MolBlock: block}, nil
}
