package prescription

import (
	"fmt"
	"regexp"
	"strings"
)

var dosageRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([a-zA-Z]+)`)

// unitAliases maps the dose units seen on real prescriptions to their
// canonical spelling.
var unitAliases = map[string]string{
	"mg":        "mg",
	"g":         "g",
	"gm":        "g",
	"gram":      "g",
	"grams":     "g",
	"mcg":       "mcg",
	"microgram": "mcg",
	"ml":        "ml",
	"iu":        "IU",
}

// frequencyAliases expands the shorthand notations prescribers use into
// unambiguous phrases.
var frequencyAliases = []struct {
	pattern    string
	normalized string
}{
	{"1-0-1", "1-0-1 (twice daily)"},
	{"1-1-1", "1-1-1 (three times daily)"},
	{"0-0-1", "0-0-1 (once at night)"},
	{"od", "Once Daily"},
	{"bd", "Twice Daily"},
	{"tds", "Three Times Daily"},
	{"qid", "Four Times Daily"},
}

// ValidateDosage checks a dosage string for an amount-unit pair and
// returns the normalized form. Unknown units and missing amounts are
// reported as invalid with the input passed through unchanged.
func ValidateDosage(dosage string) (bool, string) {
	dosage = strings.TrimSpace(dosage)
	if dosage == "" {
		return false, dosage
	}
	m := dosageRe.FindStringSubmatch(dosage)
	if m == nil {
		return false, dosage
	}
	unit, ok := unitAliases[strings.ToLower(m[2])]
	if !ok {
		return false, dosage
	}
	return true, fmt.Sprintf("%s%s", m[1], unit)
}

// ValidateFrequency normalizes common frequency shorthand. Unrecognized
// values are accepted as-is: free-text frequencies like "every 6 hours"
// are legitimate.
func ValidateFrequency(frequency string) (bool, string) {
	trimmed := strings.TrimSpace(frequency)
	if trimmed == "" {
		return false, frequency
	}
	lower := strings.ToLower(trimmed)
	for _, a := range frequencyAliases {
		if lower == a.pattern {
			return true, a.normalized
		}
	}
	return true, trimmed
}
