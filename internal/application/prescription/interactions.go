package prescription

import (
	"strings"

	rxtypes "github.com/medimatch/medimatch/pkg/types/prescription"
)

type drugPair struct {
	a, b string
}

// knownInteractions is a curated table of clinically significant pairs.
// Keys are lowercase and checked in both orders.
var knownInteractions = map[drugPair]string{
	{"aspirin", "warfarin"}:  "Increased bleeding risk",
	{"aspirin", "ibuprofen"}: "Increased GI bleeding risk",
	{"metformin", "alcohol"}: "Risk of lactic acidosis",
}

// CheckInteractions scans every pair in the drug list against the curated
// interaction table. Fewer than two drugs yields no warnings.
func CheckInteractions(drugs []string) []rxtypes.InteractionWarning {
	names := make([]string, 0, len(drugs))
	for _, d := range drugs {
		if d = strings.TrimSpace(d); d != "" {
			names = append(names, d)
		}
	}
	if len(names) < 2 {
		return nil
	}

	var warnings []rxtypes.InteractionWarning
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			a, b := strings.ToLower(names[i]), strings.ToLower(names[j])
			desc, ok := knownInteractions[drugPair{a, b}]
			if !ok {
				desc, ok = knownInteractions[drugPair{b, a}]
			}
			if !ok {
				continue
			}
			warnings = append(warnings, rxtypes.InteractionWarning{
				Drug1:       names[i],
				Drug2:       names[j],
				Severity:    "major",
				Description: desc,
			})
		}
	}
	return warnings
}
