package comparison

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medimatch/medimatch/pkg/errors"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// MockResolver is a mock implementation of Resolver.
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Lookup(ctx context.Context, name string) (*drugtypes.DrugDTO, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*drugtypes.DrugDTO), args.Error(1)
}

func f64(v float64) *float64 { return &v }
func i(v int) *int           { return &v }

func aspirin() *drugtypes.DrugDTO {
	return &drugtypes.DrugDTO{
		Name:              "Aspirin",
		LogP:              f64(1.31),
		LogD:              f64(0.9),
		PSA:               f64(63.6),
		MaxPhase:          i(4),
		Target:            "COX-1",
		MechanismOfAction: "Cyclooxygenase inhibitor",
		ToxicityAlert:     "GI bleeding risk",
	}
}

func ibuprofen() *drugtypes.DrugDTO {
	return &drugtypes.DrugDTO{
		Name:              "Ibuprofen",
		LogP:              f64(3.97),
		LogD:              f64(3.5),
		PSA:               f64(37.3),
		MaxPhase:          i(4),
		Target:            "COX-2",
		MechanismOfAction: "Cyclooxygenase inhibitor",
	}
}

func TestCompare(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Lookup", mock.Anything, "aspirin").Return(aspirin(), nil)
	resolver.On("Lookup", mock.Anything, "ibuprofen").Return(ibuprofen(), nil)

	resp, err := NewService(resolver, nil).Compare(context.Background(), "aspirin", "ibuprofen")
	require.NoError(t, err)

	assert.Equal(t, "Aspirin", resp.Drug1.Name)
	assert.Equal(t, "Ibuprofen", resp.Drug2.Name)
	require.NotEmpty(t, resp.Points)

	byProp := map[string]drugtypes.ComparisonPoint{}
	for _, p := range resp.Points {
		byProp[p.Property] = p
	}

	logP, ok := byProp["logP"]
	require.True(t, ok)
	assert.Equal(t, "1.31", logP.Value1)
	assert.Equal(t, "3.97", logP.Value2)
	assert.Contains(t, logP.Summary, "Aspirin has lower")

	phase, ok := byProp["max_phase"]
	require.True(t, ok)
	assert.Contains(t, phase.Summary, "same clinical phase")

	mech, ok := byProp["mechanism_of_action"]
	require.True(t, ok)
	assert.Contains(t, mech.Summary, "same mechanism of action")

	tox, ok := byProp["toxicity"]
	require.True(t, ok)
	assert.Equal(t, "GI bleeding risk", tox.Value1)
	assert.Equal(t, "not reported", tox.Value2)
	assert.Contains(t, tox.Summary, "only Aspirin")
}

func TestCompare_MissingValuesOmitted(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Lookup", mock.Anything, "a").Return(&drugtypes.DrugDTO{Name: "A"}, nil)
	resolver.On("Lookup", mock.Anything, "b").Return(&drugtypes.DrugDTO{Name: "B", LogP: f64(2.0)}, nil)

	resp, err := NewService(resolver, nil).Compare(context.Background(), "a", "b")
	require.NoError(t, err)

	for _, p := range resp.Points {
		if p.Property == "target" || p.Property == "indication" {
			t.Errorf("property %s should be omitted when both sides are empty", p.Property)
		}
	}
}

func TestCompare_SameDrug(t *testing.T) {
	_, err := NewService(new(MockResolver), nil).Compare(context.Background(), "aspirin", "Aspirin")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDrugComparisonFailed))
}

func TestCompare_ResolveFailure(t *testing.T) {
	resolver := new(MockResolver)
	resolver.On("Lookup", mock.Anything, "ghost").
		Return(nil, errors.New(errors.ErrCodeDrugNotFound, "not found"))

	_, err := NewService(resolver, nil).Compare(context.Background(), "ghost", "aspirin")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDrugComparisonFailed))
}

func TestCompare_EmptyNames(t *testing.T) {
	_, err := NewService(new(MockResolver), nil).Compare(context.Background(), "", "aspirin")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDrugNameInvalid))
}
