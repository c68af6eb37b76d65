// Package prediction provides similarity-based target prediction: the query
// molecule is fingerprinted, ranked against the local dataset, and the
// targets of its nearest neighbours are aggregated into hypotheses.
package prediction

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/internal/domain/molecule"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// Resolver resolves a drug name to a full record, including external
// fallback. The search service satisfies this.
type Resolver interface {
	Lookup(ctx context.Context, name string) (*drugtypes.DrugDTO, error)
}

// CandidateIndex narrows the candidate set before exact Tanimoto ranking.
// The Milvus binary-vector index satisfies this; a nil index means the full
// local dataset is ranked.
type CandidateIndex interface {
	SimilarNames(ctx context.Context, smiles string, k int) ([]string, error)
}

// Service predicts likely targets for a query molecule.
type Service interface {
	Predict(ctx context.Context, req *drugtypes.PredictRequest) (*drugtypes.PredictResponse, error)
}

type serviceImpl struct {
	repo     drug.Repository
	resolver Resolver
	index    CandidateIndex
	ranker   *molecule.Ranker
	topK     int
	logger   logging.Logger
}

// NewService creates the prediction service. resolver and index may be nil.
func NewService(repo drug.Repository, resolver Resolver, index CandidateIndex, ranker *molecule.Ranker, topK int, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if topK <= 0 {
		topK = 5
	}
	return &serviceImpl{
		repo:     repo,
		resolver: resolver,
		index:    index,
		ranker:   ranker,
		topK:     topK,
		logger:   logger.Named("prediction"),
	}
}

func (s *serviceImpl) Predict(ctx context.Context, req *drugtypes.PredictRequest) (*drugtypes.PredictResponse, error) {
	queryText := strings.TrimSpace(req.Query)
	if queryText == "" {
		return nil, errors.New(errors.ErrCodeMoleculeInvalidSMILES, "query is empty")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.topK
	}

	query, err := s.resolveQuery(ctx, queryText)
	if err != nil {
		return nil, err
	}

	candidates, err := s.loadCandidates(ctx, query.SMILES)
	if err != nil {
		return nil, err
	}

	matches, err := s.ranker.Rank(query, candidates, topK)
	if err != nil {
		return nil, err
	}

	resp := &drugtypes.PredictResponse{
		Query:            queryText,
		QuerySMILES:      query.SMILES,
		SimilarDrugs:     make([]drugtypes.SimilarDrugDTO, 0, len(matches)),
		PredictedTargets: aggregateTargets(matches),
	}
	for _, m := range matches {
		resp.SimilarDrugs = append(resp.SimilarDrugs, drugtypes.SimilarDrugDTO{
			Name:              m.Name,
			Similarity:        m.Score,
			SharedProperty:    m.Shared,
			Justification:     justify(m),
			Target:            m.Target,
			MechanismOfAction: m.MechanismOfAction,
			MaxPhase:          m.MaxPhase,
		})
	}

	s.logger.Info("target prediction done",
		logging.String("query", queryText),
		logging.Int("similar_drugs", len(resp.SimilarDrugs)),
		logging.Int("predicted_targets", len(resp.PredictedTargets)),
	)
	return resp, nil
}

// resolveQuery turns the free-text query into a ranked Query. A known drug
// name wins over a SMILES reading; an unknown name is resolved externally
// before the text is treated as a raw SMILES string.
func (s *serviceImpl) resolveQuery(ctx context.Context, queryText string) (molecule.Query, error) {
	if d, err := s.repo.FindByName(ctx, queryText); err == nil && d.SMILES != "" {
		return molecule.Query{
			SMILES:            d.SMILES,
			Target:            d.Target,
			MechanismOfAction: d.MechanismOfAction,
		}, nil
	}

	if s.resolver != nil {
		if dto, err := s.resolver.Lookup(ctx, queryText); err == nil && dto.SMILES != "" {
			return molecule.Query{
				SMILES:            dto.SMILES,
				Target:            dto.Target,
				MechanismOfAction: dto.MechanismOfAction,
			}, nil
		}
	}

	// Fall through: the query itself may be a SMILES string. The ranker
	// rejects it with a coded error if it is not parsable.
	return molecule.Query{SMILES: queryText}, nil
}

// loadCandidates returns the reference set, excluding the query molecule
// itself and duplicate names.
func (s *serviceImpl) loadCandidates(ctx context.Context, querySMILES string) ([]molecule.Candidate, error) {
	var drugs []*drug.Drug
	var err error

	if s.index != nil {
		// Pre-filter via the vector index, fetching a generous multiple of
		// topK so self and duplicate removal cannot starve the ranking.
		names, idxErr := s.index.SimilarNames(ctx, querySMILES, s.topK*4)
		if idxErr == nil {
			for _, n := range names {
				d, findErr := s.repo.FindByName(ctx, n)
				if findErr != nil {
					continue
				}
				drugs = append(drugs, d)
			}
		} else {
			s.logger.Warn("vector index unavailable, ranking full dataset", logging.Err(idxErr))
		}
	}
	if len(drugs) == 0 {
		drugs, err = s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]struct{}, len(drugs))
	candidates := make([]molecule.Candidate, 0, len(drugs))
	for _, d := range drugs {
		if d.SMILES == "" || d.SMILES == querySMILES {
			continue
		}
		key := strings.ToLower(d.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, molecule.Candidate{
			Name:              d.Name,
			SMILES:            d.SMILES,
			Target:            d.Target,
			Organism:          d.Organism,
			TargetType:        d.TargetType,
			MechanismOfAction: d.MechanismOfAction,
			MaxPhase:          d.MaxPhase,
		})
	}
	return candidates, nil
}

// aggregateTargets groups match targets into hypotheses ordered by support
// count, then maximum similarity. Confidence is the maximum similarity of
// any supporting neighbour.
func aggregateTargets(matches []molecule.Match) []drugtypes.PredictedTargetDTO {
	type key struct {
		target   string
		organism string
	}
	agg := make(map[key]*drugtypes.PredictedTargetDTO)
	order := make([]key, 0, len(matches))

	for _, m := range matches {
		if m.Target == "" {
			continue
		}
		k := key{target: m.Target, organism: m.Organism}
		entry, ok := agg[k]
		if !ok {
			entry = &drugtypes.PredictedTargetDTO{
				Target:     m.Target,
				Organism:   m.Organism,
				TargetType: m.TargetType,
			}
			agg[k] = entry
			order = append(order, k)
		}
		entry.SupportCount++
		if m.Score > entry.MaxSimilarity {
			entry.MaxSimilarity = m.Score
		}
	}

	out := make([]drugtypes.PredictedTargetDTO, 0, len(agg))
	for _, k := range order {
		entry := agg[k]
		entry.Confidence = entry.MaxSimilarity
		out = append(out, *entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SupportCount != out[j].SupportCount {
			return out[i].SupportCount > out[j].SupportCount
		}
		return out[i].MaxSimilarity > out[j].MaxSimilarity
	})
	return out
}

// justify renders the human-readable explanation shown beside a neighbour.
func justify(m molecule.Match) string {
	base := fmt.Sprintf("Tanimoto similarity %.2f", m.Score)
	switch m.Shared {
	case drugtypes.SharedMechanism:
		return fmt.Sprintf("%s; shares mechanism of action (%s)", base, m.MechanismOfAction)
	case drugtypes.SharedTarget:
		return fmt.Sprintf("%s; shares target (%s)", base, m.Target)
	default:
		return base + "; structural analogue"
	}
}
