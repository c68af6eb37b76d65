// Package testutil provides in-memory repository implementations and shared
// fixtures for tests that wire full service stacks without a database.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/internal/domain/kg"
	domainrx "github.com/medimatch/medimatch/internal/domain/prescription"
	"github.com/medimatch/medimatch/pkg/errors"
)

// DrugRepo is an in-memory drug.Repository keyed by lowercased name.
type DrugRepo struct {
	mu    sync.RWMutex
	drugs map[string]*drug.Drug
}

// NewDrugRepo creates a DrugRepo pre-loaded with the given drugs.
func NewDrugRepo(seed ...*drug.Drug) *DrugRepo {
	r := &DrugRepo{drugs: make(map[string]*drug.Drug)}
	for _, d := range seed {
		cp := *d
		r.drugs[strings.ToLower(d.Name)] = &cp
	}
	return r
}

func (r *DrugRepo) FindByID(ctx context.Context, id string) (*drug.Drug, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.drugs {
		if d.ID == id {
			cp := *d
			return &cp, nil
		}
	}
	return nil, errors.Newf(errors.ErrCodeDrugNotFound, "drug %q not found", id)
}

func (r *DrugRepo) FindByName(ctx context.Context, name string) (*drug.Drug, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.drugs[strings.ToLower(name)]; ok {
		cp := *d
		return &cp, nil
	}
	for _, d := range r.drugs {
		for _, syn := range d.Synonyms {
			if strings.EqualFold(syn, name) {
				cp := *d
				return &cp, nil
			}
		}
	}
	return nil, errors.Newf(errors.ErrCodeDrugNotFound, "drug %q not found", name)
}

func (r *DrugRepo) SearchByName(ctx context.Context, query string, limit int) ([]*drug.Drug, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := strings.ToLower(query)
	var out []*drug.Drug
	for _, d := range r.drugs {
		if strings.Contains(strings.ToLower(d.Name), q) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *DrugRepo) FindBySMILES(ctx context.Context, smiles string) (*drug.Drug, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.drugs {
		if d.SMILES == smiles {
			cp := *d
			return &cp, nil
		}
	}
	return nil, errors.New(errors.ErrCodeDrugNotFound, "no drug with that structure")
}

func (r *DrugRepo) List(ctx context.Context) ([]*drug.Drug, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*drug.Drug, 0, len(r.drugs))
	for _, d := range r.drugs {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *DrugRepo) Names(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.drugs))
	for _, d := range r.drugs {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *DrugRepo) Upsert(ctx context.Context, d *drug.Drug) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.drugs[strings.ToLower(d.Name)] = &cp
	return nil
}

// TripleRepo is an in-memory kg.Repository.
type TripleRepo struct {
	mu      sync.RWMutex
	triples []kg.Triple
}

// NewTripleRepo creates a TripleRepo holding the given triples.
func NewTripleRepo(triples ...kg.Triple) *TripleRepo {
	return &TripleRepo{triples: triples}
}

func (r *TripleRepo) FindByHead(ctx context.Context, head string, limit int) ([]kg.Triple, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []kg.Triple
	for _, t := range r.triples {
		if strings.EqualFold(t.Head, head) {
			out = append(out, t)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *TripleRepo) SearchTerm(ctx context.Context, term string, limit int) ([]kg.Triple, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := strings.ToLower(term)
	var out []kg.Triple
	for _, t := range r.triples {
		if strings.Contains(strings.ToLower(t.Head), q) || strings.Contains(strings.ToLower(t.Tail), q) {
			out = append(out, t)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *TripleRepo) DrugNames(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var names []string
	for _, t := range r.triples {
		if !seen[t.Head] {
			seen[t.Head] = true
			names = append(names, t.Head)
		}
	}
	sort.Strings(names)
	return names, nil
}

// PrescriptionRepo is an in-memory prescription repository.
type PrescriptionRepo struct {
	mu   sync.RWMutex
	byID map[string]*domainrx.Prescription
}

// NewPrescriptionRepo creates an empty PrescriptionRepo.
func NewPrescriptionRepo() *PrescriptionRepo {
	return &PrescriptionRepo{byID: make(map[string]*domainrx.Prescription)}
}

func (r *PrescriptionRepo) Create(ctx context.Context, p *domainrx.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *PrescriptionRepo) Update(ctx context.Context, p *domainrx.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return errors.Newf(errors.ErrCodePrescriptionNotFound, "prescription %q not found", p.ID)
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *PrescriptionRepo) FindByID(ctx context.Context, id string) (*domainrx.Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, errors.Newf(errors.ErrCodePrescriptionNotFound, "prescription %q not found", id)
	}
	cp := *p
	return &cp, nil
}
