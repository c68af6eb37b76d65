package molecule

import (
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// Tanimoto computes the Tanimoto coefficient (Jaccard index) of two bit
// vectors: |A∩B| / |A∪B|.  Two all-zero fingerprints score 0.0 rather than
// raising a division error.
func Tanimoto(a, b *Fingerprint) (float64, error) {
	if a == nil || b == nil {
		return 0, errors.InvalidParam("fingerprints must be non-nil")
	}
	if a.Type != b.Type || a.Length != b.Length {
		return 0, errors.InvalidParam("fingerprints must have the same type and dimension")
	}

	intersection := 0
	union := 0
	for i := range a.Bits {
		intersection += popCountByte(a.Bits[i] & b.Bits[i])
		union += popCountByte(a.Bits[i] | b.Bits[i])
	}
	if union == 0 {
		return 0.0, nil
	}
	return float64(intersection) / float64(union), nil
}

func popCountByte(b byte) int {
	count := 0
	for b != 0 {
		b &= b - 1
		count++
	}
	return count
}

// Similarity threshold constants used when classifying a score.
const (
	ThresholdIdentical          = 0.99
	ThresholdHighSimilarity     = 0.85
	ThresholdModerateSimilarity = 0.70
	ThresholdLowSimilarity      = 0.50
)

// ClassifySimilarity returns a qualitative label for a Tanimoto score.
func ClassifySimilarity(score float64) string {
	switch {
	case score >= ThresholdIdentical:
		return "identical"
	case score >= ThresholdHighSimilarity:
		return "high"
	case score >= ThresholdModerateSimilarity:
		return "moderate"
	case score >= ThresholdLowSimilarity:
		return "low"
	default:
		return "dissimilar"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Ranker
// ─────────────────────────────────────────────────────────────────────────────

// Query is the molecule being ranked against, with the metadata needed to
// label what each match shares with it.
type Query struct {
	SMILES            string
	Target            string
	MechanismOfAction string
}

// Candidate is one reference molecule considered during ranking.
type Candidate struct {
	Name              string
	SMILES            string
	Target            string
	Organism          string
	TargetType        string
	MechanismOfAction string
	MaxPhase          *int
}

// Match is one scored candidate.  Score is a Tanimoto coefficient in [0, 1];
// Shared labels the strongest property the candidate has in common with the
// query.
type Match struct {
	Candidate
	Score  float64
	Shared drugtypes.SharedProperty
}

// Ranker scores candidates against a query molecule by Morgan-fingerprint
// Tanimoto similarity.  Candidate fingerprints are memoized in an LRU cache
// keyed by SMILES because the reference set is re-ranked on every request.
//
// Ranking is deterministic and side-effect-free: results are sorted by
// descending score with ties keeping their input order, candidates whose
// SMILES cannot be parsed are skipped, and an unparsable query fails the
// whole call.
type Ranker struct {
	radius int
	nBits  int
	cache  *lru.Cache[string, *Fingerprint]
	log    logging.Logger
}

// NewRanker constructs a Ranker.  cacheSize bounds the fingerprint memo; a
// non-positive value disables caching.
func NewRanker(radius, nBits, cacheSize int, log logging.Logger) *Ranker {
	if radius <= 0 {
		radius = DefaultMorganRadius
	}
	if nBits <= 0 {
		nBits = DefaultNumBits
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	var cache *lru.Cache[string, *Fingerprint]
	if cacheSize > 0 {
		cache, _ = lru.New[string, *Fingerprint](cacheSize)
	}
	return &Ranker{radius: radius, nBits: nBits, cache: cache, log: log}
}

// Rank scores every candidate against the query and returns the top k
// matches.  k <= 0 means all matches.  An empty candidate set yields an empty
// result and no error.
func (r *Ranker) Rank(query Query, candidates []Candidate, k int) ([]Match, error) {
	queryFP, err := CalculateMorganFingerprint(query.SMILES, r.radius, r.nBits)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeMoleculeInvalidSMILES, "query SMILES is not parsable")
	}

	matches := make([]Match, 0, len(candidates))
	skipped := 0
	for _, cand := range candidates {
		candFP, err := r.fingerprint(cand.SMILES)
		if err != nil {
			skipped++
			r.log.Debug("skipping candidate with unparsable SMILES",
				logging.String("name", cand.Name),
				logging.String("smiles", cand.SMILES))
			continue
		}
		score, err := Tanimoto(queryFP, candFP)
		if err != nil {
			skipped++
			continue
		}
		matches = append(matches, Match{
			Candidate: cand,
			Score:     score,
			Shared:    sharedProperty(query, cand),
		})
	}
	if skipped > 0 {
		r.log.Debug("ranking skipped unparsable candidates", logging.Int("skipped", skipped))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// fingerprint returns the memoized Morgan fingerprint for a candidate SMILES.
func (r *Ranker) fingerprint(smiles string) (*Fingerprint, error) {
	if r.cache != nil {
		if fp, ok := r.cache.Get(smiles); ok {
			return fp, nil
		}
	}
	fp, err := CalculateMorganFingerprint(smiles, r.radius, r.nBits)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		r.cache.Add(smiles, fp)
	}
	return fp, nil
}

// sharedProperty labels the strongest property a candidate shares with the
// query: identical mechanism of action beats identical target, which beats
// structural similarity alone.
func sharedProperty(q Query, c Candidate) drugtypes.SharedProperty {
	if q.MechanismOfAction != "" && c.MechanismOfAction != "" &&
		strings.EqualFold(q.MechanismOfAction, c.MechanismOfAction) {
		return drugtypes.SharedMechanism
	}
	if q.Target != "" && c.Target != "" && strings.EqualFold(q.Target, c.Target) {
		return drugtypes.SharedTarget
	}
	return drugtypes.SharedStructure
}
