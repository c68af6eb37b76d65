// Package drug contains the drug aggregate, its derived property logic, and
// the repository contract for the local drug dataset.
package drug

import (
	"strings"
	"time"

	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// Drug is the domain entity for one drug record.  Numeric descriptors are
// pointers because upstream sources routinely omit them; nil means "not
// reported" and must survive merges without collapsing to zero.
type Drug struct {
	ID       string
	Name     string
	ChEMBLID string
	SMILES   string
	Formula  string

	MolecularWeight *float64
	LogP            *float64
	LogD            *float64
	PSA             *float64
	DrugLikeness    *float64
	IC50            *float64
	PIC50           *float64
	MaxPhase        *int

	Target            string
	Organism          string
	TargetType        string
	MechanismOfAction string
	EFOTerm           string
	MeSHHeading       string
	ToxicityAlert     string
	Indication        string
	Description       string
	Synonyms          []string

	Source    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AssessSolubility derives the qualitative aqueous-solubility class from the
// LogP / LogD / PSA triple.  All three descriptors are required; any missing
// value yields SolubilityUnknown.
//
// Thresholds: LogP < 3 and LogD < 3 and PSA > 75 is Good; LogP < 5 and
// LogD < 5 and PSA > 50 is Moderate; anything else is Poor.
func AssessSolubility(logP, logD, psa *float64) drugtypes.Solubility {
	if logP == nil || logD == nil || psa == nil {
		return drugtypes.SolubilityUnknown
	}
	if *logP < 3 && *logD < 3 && *psa > 75 {
		return drugtypes.SolubilityGood
	}
	if *logP < 5 && *logD < 5 && *psa > 50 {
		return drugtypes.SolubilityModerate
	}
	return drugtypes.SolubilityPoor
}

// Solubility returns the solubility class of this drug.
func (d *Drug) Solubility() drugtypes.Solubility {
	return AssessSolubility(d.LogP, d.LogD, d.PSA)
}

// MatchesName reports whether name equals the drug's name or one of its
// synonyms, ignoring case and surrounding whitespace.
func (d *Drug) MatchesName(name string) bool {
	name = strings.TrimSpace(name)
	if strings.EqualFold(d.Name, name) {
		return true
	}
	for _, syn := range d.Synonyms {
		if strings.EqualFold(syn, name) {
			return true
		}
	}
	return false
}

// Merge copies every field that is unset on d from other.  Set fields always
// win, so callers control precedence by merge order.  Source strings are
// concatenated with "+" when both records contributed.
func (d *Drug) Merge(other *Drug) {
	if other == nil {
		return
	}
	if d.Name == "" {
		d.Name = other.Name
	}
	if d.ChEMBLID == "" {
		d.ChEMBLID = other.ChEMBLID
	}
	if d.SMILES == "" {
		d.SMILES = other.SMILES
	}
	if d.Formula == "" {
		d.Formula = other.Formula
	}
	if d.MolecularWeight == nil {
		d.MolecularWeight = other.MolecularWeight
	}
	if d.LogP == nil {
		d.LogP = other.LogP
	}
	if d.LogD == nil {
		d.LogD = other.LogD
	}
	if d.PSA == nil {
		d.PSA = other.PSA
	}
	if d.DrugLikeness == nil {
		d.DrugLikeness = other.DrugLikeness
	}
	if d.IC50 == nil {
		d.IC50 = other.IC50
	}
	if d.PIC50 == nil {
		d.PIC50 = other.PIC50
	}
	if d.MaxPhase == nil {
		d.MaxPhase = other.MaxPhase
	}
	if d.Target == "" {
		d.Target = other.Target
	}
	if d.Organism == "" {
		d.Organism = other.Organism
	}
	if d.TargetType == "" {
		d.TargetType = other.TargetType
	}
	if d.MechanismOfAction == "" {
		d.MechanismOfAction = other.MechanismOfAction
	}
	if d.EFOTerm == "" {
		d.EFOTerm = other.EFOTerm
	}
	if d.MeSHHeading == "" {
		d.MeSHHeading = other.MeSHHeading
	}
	if d.ToxicityAlert == "" {
		d.ToxicityAlert = other.ToxicityAlert
	}
	if d.Indication == "" {
		d.Indication = other.Indication
	}
	if d.Description == "" {
		d.Description = other.Description
	}
	if len(d.Synonyms) == 0 {
		d.Synonyms = other.Synonyms
	}
	switch {
	case d.Source == "":
		d.Source = other.Source
	case other.Source != "" && other.Source != d.Source:
		d.Source = d.Source + "+" + other.Source
	}
}

// ToDTO converts the entity to its transport representation, including the
// derived solubility class.
func (d *Drug) ToDTO() drugtypes.DrugDTO {
	return drugtypes.DrugDTO{
		ID:                d.ID,
		Name:              d.Name,
		ChEMBLID:          d.ChEMBLID,
		SMILES:            d.SMILES,
		Formula:           d.Formula,
		MolecularWeight:   d.MolecularWeight,
		LogP:              d.LogP,
		LogD:              d.LogD,
		PSA:               d.PSA,
		DrugLikeness:      d.DrugLikeness,
		IC50:              d.IC50,
		PIC50:             d.PIC50,
		MaxPhase:          d.MaxPhase,
		Solubility:        d.Solubility(),
		Target:            d.Target,
		Organism:          d.Organism,
		TargetType:        d.TargetType,
		MechanismOfAction: d.MechanismOfAction,
		EFOTerm:           d.EFOTerm,
		MeSHHeading:       d.MeSHHeading,
		ToxicityAlert:     d.ToxicityAlert,
		Indication:        d.Indication,
		Description:       d.Description,
		Synonyms:          d.Synonyms,
		Source:            d.Source,
	}
}
