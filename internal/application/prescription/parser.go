package prescription

import (
	"encoding/json"
	"regexp"
	"strings"

	domainrx "github.com/medimatch/medimatch/internal/domain/prescription"
	"github.com/medimatch/medimatch/pkg/errors"
)

// hostedConfidence is assigned to items from the hosted OCR engine, which
// does not report per-item confidence itself.
const hostedConfidence = 0.85

// defaultRoute is assumed when an engine does not report one.
const defaultRoute = "oral"

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

// parseFormattedText parses the hosted OCR engine's formatted text into
// items. Bold lines (**Name**) open a new item; subsequent lines are
// classified as dosage, frequency, or duration by keyword.
func parseFormattedText(text string) []domainrx.Item {
	var items []domainrx.Item
	var current *domainrx.Item

	flush := func() {
		if current != nil && current.DrugName != "" {
			items = append(items, *current)
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**") {
			flush()
			current = &domainrx.Item{
				DrugName:   strings.TrimSpace(strings.Trim(line, "*")),
				Route:      defaultRoute,
				Confidence: hostedConfidence,
			}
			continue
		}
		if current == nil {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "mg") || strings.Contains(lower, "ml") || strings.Contains(lower, "tablet"):
			current.Dosage = line
		case strings.Contains(lower, "daily") || strings.Contains(lower, "times") ||
			strings.Contains(lower, "once") || strings.Contains(lower, "twice"):
			current.Frequency = line
		case strings.Contains(lower, "day") || strings.Contains(lower, "week") || strings.Contains(lower, "month"):
			current.Duration = line
		}
	}
	flush()
	return items
}

// visionResult mirrors the JSON shape the vision prompt asks for.
type visionResult struct {
	Medicines []struct {
		DrugName     string `json:"drug_name"`
		Dosage       string `json:"dosage"`
		Frequency    string `json:"frequency"`
		Duration     string `json:"duration"`
		Instructions string `json:"instructions"`
	} `json:"medicines"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// parseVisionJSON parses the vision model's output, tolerating markdown
// code fences and surrounding prose around the JSON object.
func parseVisionJSON(text string) ([]domainrx.Item, float64, error) {
	payload := extractJSON(text)
	if payload == "" {
		return nil, 0, errors.New(errors.ErrCodeOCRResponseUnparsable, "no JSON object in vision output")
	}

	var result visionResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeOCRResponseUnparsable, "decode vision output")
	}

	confidence := result.ConfidenceScore
	if confidence <= 0 || confidence > 1 {
		confidence = hostedConfidence
	}

	items := make([]domainrx.Item, 0, len(result.Medicines))
	for _, m := range result.Medicines {
		name := strings.TrimSpace(m.DrugName)
		if name == "" {
			continue
		}
		items = append(items, domainrx.Item{
			DrugName:     name,
			Dosage:       strings.TrimSpace(m.Dosage),
			Frequency:    strings.TrimSpace(m.Frequency),
			Duration:     strings.TrimSpace(m.Duration),
			Instructions: strings.TrimSpace(m.Instructions),
			Route:        defaultRoute,
			Confidence:   confidence,
		})
	}
	return items, confidence, nil
}

// extractJSON strips markdown code fences and returns the outermost JSON
// object embedded in the text, or "" when none is present.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	return jsonObjectRe.FindString(text)
}
