package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/internal/domain/kg"
	"github.com/medimatch/medimatch/pkg/errors"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }

// SampleDrugs returns a small reference set of well-known compounds with
// valid SMILES, suitable for exercising search, comparison, and similarity
// ranking end to end.
func SampleDrugs() []*drug.Drug {
	return []*drug.Drug{
		{
			ID:                "d-aspirin",
			Name:              "Aspirin",
			ChEMBLID:          "CHEMBL25",
			SMILES:            "CC(=O)Oc1ccccc1C(=O)O",
			Formula:           "C9H8O4",
			MolecularWeight:   f64(180.16),
			MaxPhase:          intp(4),
			Target:            "Prostaglandin G/H synthase 1",
			Organism:          "Homo sapiens",
			TargetType:        "SINGLE PROTEIN",
			MechanismOfAction: "Cyclooxygenase inhibitor",
			Indication:        "Pain, fever, inflammation",
			Synonyms:          []string{"Acetylsalicylic acid", "ASA"},
			Source:            "local",
		},
		{
			ID:                "d-ibuprofen",
			Name:              "Ibuprofen",
			ChEMBLID:          "CHEMBL521",
			SMILES:            "CC(C)Cc1ccc(cc1)C(C)C(=O)O",
			Formula:           "C13H18O2",
			MolecularWeight:   f64(206.28),
			MaxPhase:          intp(4),
			Target:            "Prostaglandin G/H synthase 2",
			Organism:          "Homo sapiens",
			TargetType:        "SINGLE PROTEIN",
			MechanismOfAction: "Cyclooxygenase inhibitor",
			Indication:        "Pain, inflammation",
			Source:            "local",
		},
		{
			ID:                "d-metformin",
			Name:              "Metformin",
			ChEMBLID:          "CHEMBL1431",
			SMILES:            "CN(C)C(=N)NC(=N)N",
			Formula:           "C4H11N5",
			MolecularWeight:   f64(129.16),
			MaxPhase:          intp(4),
			Target:            "AMP-activated protein kinase",
			Organism:          "Homo sapiens",
			TargetType:        "PROTEIN COMPLEX",
			MechanismOfAction: "AMPK activator",
			Indication:        "Type 2 diabetes mellitus",
			Synonyms:          []string{"Glucophage"},
			Source:            "local",
		},
		{
			ID:              "d-paracetamol",
			Name:            "Paracetamol",
			ChEMBLID:        "CHEMBL112",
			SMILES:          "CC(=O)Nc1ccc(O)cc1",
			Formula:         "C8H9NO2",
			MolecularWeight: f64(151.16),
			MaxPhase:        intp(4),
			Target:          "Prostaglandin G/H synthase 1",
			Organism:        "Homo sapiens",
			Indication:      "Pain, fever",
			Synonyms:        []string{"Acetaminophen", "Tylenol"},
			Source:          "local",
		},
	}
}

// SampleTriples returns knowledge-graph facts about the sample drugs.
func SampleTriples() []kg.Triple {
	return []kg.Triple{
		{Head: "Aspirin", Relation: "MAY_TREAT", Tail: "Pain"},
		{Head: "Aspirin", Relation: "MAY_TREAT", Tail: "Fever"},
		{Head: "Aspirin", Relation: "HAS_MECHANISM", Tail: "Cyclooxygenase inhibition"},
		{Head: "Aspirin", Relation: "INTERACTS_WITH", Tail: "Warfarin"},
		{Head: "Ibuprofen", Relation: "MAY_TREAT", Tail: "Inflammation"},
		{Head: "Metformin", Relation: "MAY_TREAT", Tail: "Type 2 diabetes"},
		{Head: "Metformin", Relation: "HAS_SIDE_EFFECT", Tail: "Lactic acidosis"},
	}
}

// ObjectStore is an in-memory object store for prescription images.
type ObjectStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewObjectStore creates an empty ObjectStore.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: make(map[string][]byte)}
}

func (s *ObjectStore) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[key] = cp
	return nil
}

func (s *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, errors.Newf(errors.ErrCodePrescriptionNotFound, "object %q not found", key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *ObjectStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.objects[key]; !ok {
		return "", errors.Newf(errors.ErrCodePrescriptionNotFound, "object %q not found", key)
	}
	return fmt.Sprintf("https://objects.test/%s", key), nil
}

// Len reports how many objects the store holds.
func (s *ObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
