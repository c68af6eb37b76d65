package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/pkg/errors"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// MockRepository is a mock implementation of drug.Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByID(ctx context.Context, id string) (*drug.Drug, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*drug.Drug), args.Error(1)
}

func (m *MockRepository) FindByName(ctx context.Context, name string) (*drug.Drug, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*drug.Drug), args.Error(1)
}

func (m *MockRepository) SearchByName(ctx context.Context, query string, limit int) ([]*drug.Drug, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*drug.Drug), args.Error(1)
}

func (m *MockRepository) FindBySMILES(ctx context.Context, smiles string) (*drug.Drug, error) {
	args := m.Called(ctx, smiles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*drug.Drug), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]*drug.Drug, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*drug.Drug), args.Error(1)
}

func (m *MockRepository) Names(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRepository) Upsert(ctx context.Context, d *drug.Drug) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// MockFetcher is a mock implementation of Fetcher.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchDrug(ctx context.Context, name string) (*drug.Drug, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*drug.Drug), args.Error(1)
}

// MockNormalizer is a mock implementation of Normalizer.
type MockNormalizer struct {
	mock.Mock
}

func (m *MockNormalizer) Normalize(ctx context.Context, name string) (string, string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.String(1), args.Error(2)
}

func f64(v float64) *float64 { return &v }

func notFoundErr() error {
	return errors.New(errors.ErrCodeDrugNotFound, "drug not found")
}

func TestSearch_LocalHit(t *testing.T) {
	repo := new(MockRepository)
	repo.On("SearchByName", mock.Anything, "aspirin", 20).
		Return([]*drug.Drug{{Name: "Aspirin", SMILES: "CC(=O)Oc1ccccc1C(=O)O"}}, nil)

	svc := NewService(repo, nil, Sources{}, nil, time.Hour, nil)
	resp, err := svc.Search(context.Background(), "aspirin", 0)
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Aspirin", resp.Results[0].Name)
	assert.Empty(t, resp.Corrected)
	repo.AssertExpectations(t)
}

func TestSearch_CorrectsMisspelling(t *testing.T) {
	repo := new(MockRepository)
	repo.On("SearchByName", mock.Anything, "asprin", 20).Return([]*drug.Drug{}, nil)
	repo.On("Names", mock.Anything).Return([]string{"Aspirin", "Ibuprofen"}, nil)
	repo.On("SearchByName", mock.Anything, "Aspirin", 20).
		Return([]*drug.Drug{{Name: "Aspirin"}}, nil)

	svc := NewService(repo, nil, Sources{}, nil, time.Hour, nil)
	resp, err := svc.Search(context.Background(), "asprin", 0)
	require.NoError(t, err)

	assert.Equal(t, "Aspirin", resp.Corrected)
	require.Len(t, resp.Results, 1)
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc := NewService(new(MockRepository), nil, Sources{}, nil, time.Hour, nil)
	_, err := svc.Search(context.Background(), "  ", 5)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDrugNameInvalid))
}

func TestLookup_LocalFirst(t *testing.T) {
	repo := new(MockRepository)
	repo.On("FindByName", mock.Anything, "aspirin").
		Return(&drug.Drug{Name: "Aspirin", Source: "local"}, nil)

	svc := NewService(repo, nil, Sources{}, nil, time.Hour, nil)
	dto, err := svc.Lookup(context.Background(), "aspirin")
	require.NoError(t, err)
	assert.Equal(t, "Aspirin", dto.Name)
	assert.Equal(t, "local", dto.Source)
}

func TestLookup_ExternalMerge(t *testing.T) {
	repo := new(MockRepository)
	repo.On("FindByName", mock.Anything, "aspirin").Return(nil, notFoundErr())
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	normalizer := new(MockNormalizer)
	normalizer.On("Normalize", mock.Anything, "aspirin").Return("aspirin", "1191", nil)

	pubchem := new(MockFetcher)
	pubchem.On("FetchDrug", mock.Anything, "aspirin").Return(&drug.Drug{
		Name:   "ASPIRIN",
		SMILES: "CC(=O)OC1=CC=CC=C1C(=O)O",
		LogP:   f64(1.2),
		Source: "pubchem",
	}, nil)

	drugcentral := new(MockFetcher)
	drugcentral.On("FetchDrug", mock.Anything, "aspirin").Return(&drug.Drug{
		Name:              "aspirin",
		SMILES:            "different-smiles",
		MechanismOfAction: "Cyclooxygenase inhibitor",
		LogP:              f64(1.31),
		Source:            "drugcentral",
	}, nil)

	chembl := new(MockFetcher)
	chembl.On("FetchDrug", mock.Anything, "aspirin").Return(&drug.Drug{
		Name:     "ASPIRIN",
		ChEMBLID: "CHEMBL25",
		IC50:     f64(1500),
		LogD:     f64(0.9),
		Source:   "chembl",
	}, nil)

	svc := NewService(repo, normalizer, Sources{
		PubChem:     pubchem,
		DrugCentral: drugcentral,
		ChEMBL:      chembl,
	}, nil, time.Hour, nil)

	dto, err := svc.Lookup(context.Background(), "aspirin")
	require.NoError(t, err)

	// Structure from PubChem, pharmacology from DrugCentral, identifiers
	// and bioactivity from ChEMBL.
	assert.Equal(t, "CC(=O)OC1=CC=CC=C1C(=O)O", dto.SMILES)
	assert.Equal(t, "Cyclooxygenase inhibitor", dto.MechanismOfAction)
	assert.Equal(t, "CHEMBL25", dto.ChEMBLID)
	require.NotNil(t, dto.LogP)
	assert.InDelta(t, 1.2, *dto.LogP, 1e-9)
	require.NotNil(t, dto.IC50)
	assert.InDelta(t, 1500, *dto.IC50, 1e-9)
	assert.Equal(t, "pubchem + drugcentral + chembl", dto.Source)

	repo.AssertExpectations(t)
}

func TestLookup_AllSourcesMiss(t *testing.T) {
	repo := new(MockRepository)
	repo.On("FindByName", mock.Anything, "ghostdrug").Return(nil, notFoundErr())

	miss := new(MockFetcher)
	miss.On("FetchDrug", mock.Anything, "ghostdrug").
		Return(nil, errors.New(errors.ErrCodeSourceNotFound, "miss"))

	svc := NewService(repo, nil, Sources{PubChem: miss, DrugCentral: miss, ChEMBL: miss}, nil, time.Hour, nil)
	_, err := svc.Lookup(context.Background(), "ghostdrug")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDrugNotFound))
}

func TestLookup_NormalizedNameFallback(t *testing.T) {
	repo := new(MockRepository)
	repo.On("FindByName", mock.Anything, "paracetamol").Return(nil, notFoundErr())
	repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	normalizer := new(MockNormalizer)
	normalizer.On("Normalize", mock.Anything, "paracetamol").Return("acetaminophen", "161", nil)

	pubchem := new(MockFetcher)
	pubchem.On("FetchDrug", mock.Anything, "paracetamol").
		Return(nil, errors.New(errors.ErrCodeSourceNotFound, "miss"))
	pubchem.On("FetchDrug", mock.Anything, "acetaminophen").
		Return(&drug.Drug{Name: "ACETAMINOPHEN", SMILES: "CC(=O)Nc1ccc(O)cc1", Source: "pubchem"}, nil)

	svc := NewService(repo, normalizer, Sources{PubChem: pubchem}, nil, time.Hour, nil)
	dto, err := svc.Lookup(context.Background(), "paracetamol")
	require.NoError(t, err)
	assert.Equal(t, "ACETAMINOPHEN", dto.Name)
	pubchem.AssertExpectations(t)
}

func TestMolBlock_FromSMILES(t *testing.T) {
	svc := NewService(new(MockRepository), nil, Sources{}, nil, time.Hour, nil)
	resp, err := svc.MolBlock(context.Background(), &drugtypes.MolBlockRequest{SMILES: "CCO"})
	require.NoError(t, err)
	assert.Equal(t, "CCO", resp.SMILES)
	assert.Contains(t, resp.MolBlock, "V2000")
	assert.Contains(t, resp.MolBlock, "M  END")
}

func TestMolBlock_NoInput(t *testing.T) {
	svc := NewService(new(MockRepository), nil, Sources{}, nil, time.Hour, nil)
	_, err := svc.MolBlock(context.Background(), &drugtypes.MolBlockRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMoleculeInvalidSMILES))
}
