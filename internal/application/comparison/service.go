// Package comparison builds side-by-side property comparisons of two drugs,
// resolving each through the search service's lookup (local dataset with
// external fallback).
package comparison

import (
	"context"
	"fmt"
	"strings"

	"github.com/medimatch/medimatch/internal/domain/drug"
	"github.com/medimatch/medimatch/internal/infrastructure/monitoring/logging"
	"github.com/medimatch/medimatch/pkg/errors"
	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// Resolver resolves a drug name to a full record.
type Resolver interface {
	Lookup(ctx context.Context, name string) (*drugtypes.DrugDTO, error)
}

// Service compares two drugs property by property.
type Service interface {
	Compare(ctx context.Context, name1, name2 string) (*drugtypes.CompareResponse, error)
}

type serviceImpl struct {
	resolver Resolver
	logger   logging.Logger
}

// NewService creates the comparison service.
func NewService(resolver Resolver, logger logging.Logger) Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &serviceImpl{
		resolver: resolver,
		logger:   logger.Named("comparison"),
	}
}

func (s *serviceImpl) Compare(ctx context.Context, name1, name2 string) (*drugtypes.CompareResponse, error) {
	name1 = strings.TrimSpace(name1)
	name2 = strings.TrimSpace(name2)
	if name1 == "" || name2 == "" {
		return nil, errors.New(errors.ErrCodeDrugNameInvalid, "both drug names are required")
	}
	if strings.EqualFold(name1, name2) {
		return nil, errors.New(errors.ErrCodeDrugComparisonFailed, "cannot compare a drug with itself")
	}

	d1, err := s.resolver.Lookup(ctx, name1)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeDrugComparisonFailed, "resolve %q", name1)
	}
	d2, err := s.resolver.Lookup(ctx, name2)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeDrugComparisonFailed, "resolve %q", name2)
	}

	resp := &drugtypes.CompareResponse{
		Drug1:  *d1,
		Drug2:  *d2,
		Points: buildPoints(d1, d2),
	}
	s.logger.Info("drug comparison done",
		logging.String("drug1", d1.Name),
		logging.String("drug2", d2.Name),
		logging.Int("points", len(resp.Points)),
	)
	return resp, nil
}

// buildPoints renders one comparison point per property that at least one
// drug reports a value for.
func buildPoints(d1, d2 *drugtypes.DrugDTO) []drugtypes.ComparisonPoint {
	points := make([]drugtypes.ComparisonPoint, 0, 10)

	add := func(property, v1, v2, summary string) {
		if v1 == "" && v2 == "" {
			return
		}
		points = append(points, drugtypes.ComparisonPoint{
			Property: property,
			Value1:   orMissing(v1),
			Value2:   orMissing(v2),
			Summary:  summary,
		})
	}

	add("solubility",
		string(solubilityOf(d1)), string(solubilityOf(d2)),
		summarizeCategorical("aqueous solubility", d1.Name, string(solubilityOf(d1)), d2.Name, string(solubilityOf(d2))))

	add("logP", fmtFloat(d1.LogP), fmtFloat(d2.LogP),
		summarizeLower("lipophilicity (logP)", d1.Name, d1.LogP, d2.Name, d2.LogP))
	add("logD", fmtFloat(d1.LogD), fmtFloat(d2.LogD),
		summarizeLower("distribution coefficient (logD)", d1.Name, d1.LogD, d2.Name, d2.LogD))
	add("psa", fmtFloat(d1.PSA), fmtFloat(d2.PSA),
		summarizeHigher("polar surface area", d1.Name, d1.PSA, d2.Name, d2.PSA))
	add("drug_likeness", fmtFloat(d1.DrugLikeness), fmtFloat(d2.DrugLikeness),
		summarizeHigher("drug-likeness (QED)", d1.Name, d1.DrugLikeness, d2.Name, d2.DrugLikeness))
	add("max_phase", fmtInt(d1.MaxPhase), fmtInt(d2.MaxPhase),
		summarizePhase(d1, d2))

	add("target", d1.Target, d2.Target,
		summarizeCategorical("primary target", d1.Name, d1.Target, d2.Name, d2.Target))
	add("mechanism_of_action", d1.MechanismOfAction, d2.MechanismOfAction,
		summarizeCategorical("mechanism of action", d1.Name, d1.MechanismOfAction, d2.Name, d2.MechanismOfAction))
	add("toxicity", d1.ToxicityAlert, d2.ToxicityAlert,
		summarizeToxicity(d1, d2))
	add("indication", d1.Indication, d2.Indication, "")

	return points
}

func solubilityOf(d *drugtypes.DrugDTO) drugtypes.Solubility {
	if d.Solubility != "" {
		return d.Solubility
	}
	return drug.AssessSolubility(d.LogP, d.LogD, d.PSA)
}

func orMissing(v string) string {
	if v == "" {
		return "not reported"
	}
	return v
}

func fmtFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *v)
}

func fmtInt(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func summarizeCategorical(property, name1, v1, name2, v2 string) string {
	switch {
	case v1 == "" || v2 == "":
		return ""
	case strings.EqualFold(v1, v2):
		return fmt.Sprintf("%s and %s have the same %s", name1, name2, property)
	default:
		return fmt.Sprintf("%s and %s differ in %s", name1, name2, property)
	}
}

func summarizeLower(property, name1 string, v1 *float64, name2 string, v2 *float64) string {
	if v1 == nil || v2 == nil {
		return ""
	}
	switch {
	case *v1 < *v2:
		return fmt.Sprintf("%s has lower %s than %s", name1, property, name2)
	case *v2 < *v1:
		return fmt.Sprintf("%s has lower %s than %s", name2, property, name1)
	default:
		return fmt.Sprintf("%s and %s have equal %s", name1, name2, property)
	}
}

func summarizeHigher(property, name1 string, v1 *float64, name2 string, v2 *float64) string {
	if v1 == nil || v2 == nil {
		return ""
	}
	switch {
	case *v1 > *v2:
		return fmt.Sprintf("%s has higher %s than %s", name1, property, name2)
	case *v2 > *v1:
		return fmt.Sprintf("%s has higher %s than %s", name2, property, name1)
	default:
		return fmt.Sprintf("%s and %s have equal %s", name1, name2, property)
	}
}

func summarizePhase(d1, d2 *drugtypes.DrugDTO) string {
	if d1.MaxPhase == nil || d2.MaxPhase == nil {
		return ""
	}
	switch {
	case *d1.MaxPhase > *d2.MaxPhase:
		return fmt.Sprintf("%s has reached a later clinical phase than %s", d1.Name, d2.Name)
	case *d2.MaxPhase > *d1.MaxPhase:
		return fmt.Sprintf("%s has reached a later clinical phase than %s", d2.Name, d1.Name)
	default:
		return fmt.Sprintf("%s and %s have reached the same clinical phase", d1.Name, d2.Name)
	}
}

func summarizeToxicity(d1, d2 *drugtypes.DrugDTO) string {
	switch {
	case d1.ToxicityAlert != "" && d2.ToxicityAlert == "":
		return fmt.Sprintf("only %s carries a toxicity alert", d1.Name)
	case d2.ToxicityAlert != "" && d1.ToxicityAlert == "":
		return fmt.Sprintf("only %s carries a toxicity alert", d2.Name)
	case d1.ToxicityAlert != "" && d2.ToxicityAlert != "":
		return "both drugs carry toxicity alerts"
	default:
		return ""
	}
}
