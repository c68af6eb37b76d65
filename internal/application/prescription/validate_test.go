package prescription

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDosage(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		valid      bool
		normalized string
	}{
		{"plain mg", "500 mg", true, "500mg"},
		{"no space", "500mg", true, "500mg"},
		{"decimal", "2.5 mg", true, "2.5mg"},
		{"gm alias", "1 gm", true, "1g"},
		{"gram alias", "1 gram", true, "1g"},
		{"microgram alias", "50 microgram", true, "50mcg"},
		{"iu uppercased", "400 iu", true, "400IU"},
		{"ml", "5 ml", true, "5ml"},
		{"embedded in text", "take 500 mg with water", true, "500mg"},
		{"unknown unit", "2 pints", false, "2 pints"},
		{"no amount", "some tablets", false, "some tablets"},
		{"empty", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, normalized := ValidateDosage(tt.input)
			assert.Equal(t, tt.valid, valid)
			assert.Equal(t, tt.normalized, normalized)
		})
	}
}

func TestValidateFrequency(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		valid      bool
		normalized string
	}{
		{"numeric twice daily", "1-0-1", true, "1-0-1 (twice daily)"},
		{"numeric three times", "1-1-1", true, "1-1-1 (three times daily)"},
		{"numeric at night", "0-0-1", true, "0-0-1 (once at night)"},
		{"od", "OD", true, "Once Daily"},
		{"bd lowercase", "bd", true, "Twice Daily"},
		{"tds", "TDS", true, "Three Times Daily"},
		{"qid", "qid", true, "Four Times Daily"},
		{"free text accepted", "every 6 hours", true, "every 6 hours"},
		{"whitespace trimmed", "  BD  ", true, "Twice Daily"},
		{"empty", "", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, normalized := ValidateFrequency(tt.input)
			assert.Equal(t, tt.valid, valid)
			assert.Equal(t, tt.normalized, normalized)
		})
	}
}
