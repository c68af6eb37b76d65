package drug

import (
	"testing"

	"github.com/stretchr/testify/assert"

	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

func f64(v float64) *float64 { return &v }

func TestAssessSolubility(t *testing.T) {
	tests := []struct {
		name string
		logP *float64
		logD *float64
		psa  *float64
		want drugtypes.Solubility
	}{
		{"good", f64(2.0), f64(1.5), f64(80), drugtypes.SolubilityGood},
		{"moderate", f64(4.0), f64(3.5), f64(60), drugtypes.SolubilityModerate},
		{"poor high logp", f64(6.0), f64(5.5), f64(60), drugtypes.SolubilityPoor},
		{"poor low psa", f64(2.0), f64(1.5), f64(30), drugtypes.SolubilityPoor},
		{"boundary logp 3 not good", f64(3.0), f64(1.0), f64(80), drugtypes.SolubilityModerate},
		{"missing logp", nil, f64(1.5), f64(80), drugtypes.SolubilityUnknown},
		{"missing logd", f64(2.0), nil, f64(80), drugtypes.SolubilityUnknown},
		{"missing psa", f64(2.0), f64(1.5), nil, drugtypes.SolubilityUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AssessSolubility(tt.logP, tt.logD, tt.psa))
		})
	}
}

func TestDrug_MatchesName(t *testing.T) {
	d := &Drug{Name: "Aspirin", Synonyms: []string{"Acetylsalicylic acid", "ASA"}}

	assert.True(t, d.MatchesName("aspirin"))
	assert.True(t, d.MatchesName("  ASPIRIN  "))
	assert.True(t, d.MatchesName("asa"))
	assert.False(t, d.MatchesName("ibuprofen"))
}

func TestDrug_Merge(t *testing.T) {
	primary := &Drug{
		Name:   "Aspirin",
		SMILES: "CC(=O)OC1=CC=CC=C1C(=O)O",
		LogP:   f64(1.2),
		Source: "pubchem",
	}
	secondary := &Drug{
		Name:              "acetylsalicylic acid",
		SMILES:            "different-smiles",
		LogP:              f64(9.9),
		LogD:              f64(1.0),
		Target:            "Cyclooxygenase-1",
		MechanismOfAction: "Cyclooxygenase inhibitor",
		Source:            "chembl",
	}

	primary.Merge(secondary)

	// Set fields win.
	assert.Equal(t, "Aspirin", primary.Name)
	assert.Equal(t, "CC(=O)OC1=CC=CC=C1C(=O)O", primary.SMILES)
	assert.Equal(t, 1.2, *primary.LogP)
	// Unset fields are filled.
	assert.Equal(t, 1.0, *primary.LogD)
	assert.Equal(t, "Cyclooxygenase-1", primary.Target)
	assert.Equal(t, "Cyclooxygenase inhibitor", primary.MechanismOfAction)
	// Sources record every contributor.
	assert.Equal(t, "pubchem+chembl", primary.Source)
}

func TestDrug_MergeNil(t *testing.T) {
	d := &Drug{Name: "Aspirin"}
	assert.NotPanics(t, func() { d.Merge(nil) })
	assert.Equal(t, "Aspirin", d.Name)
}

func TestDrug_ToDTO(t *testing.T) {
	d := &Drug{
		Name:   "Aspirin",
		LogP:   f64(1.2),
		LogD:   f64(1.0),
		PSA:    f64(80),
		Target: "Cyclooxygenase-1",
		Source: "local",
	}

	dto := d.ToDTO()
	assert.Equal(t, "Aspirin", dto.Name)
	assert.Equal(t, drugtypes.SolubilityGood, dto.Solubility)
	assert.Equal(t, "Cyclooxygenase-1", dto.Target)
	assert.Nil(t, dto.MaxPhase)
}
