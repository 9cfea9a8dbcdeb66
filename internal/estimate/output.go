package estimate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/franckalain/nutrisnap/internal/models"
)

var requiredFields = []string{"calories", "protein", "carbs", "fat"}

// parseOutput validates the model's answer against the output contract.
// Missing or non-numeric fields fail; nothing is defaulted.
func parseOutput(text string) (*models.NutrientEstimate, error) {
	raw := extractJSON(text)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrInvalidOutput)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	values := make(map[string]float64, len(requiredFields))
	for _, name := range requiredFields {
		v, ok := fields[name]
		if !ok || v == nil {
			return nil, fmt.Errorf("%w: missing required field %q", ErrInvalidOutput, name)
		}
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("%w: field %q is %T, not a number", ErrInvalidOutput, name, v)
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: field %q is negative (%g)", ErrInvalidOutput, name, n)
		}
		values[name] = n
	}

	est := &models.NutrientEstimate{
		Nutrients: models.Nutrients{
			Calories: values["calories"],
			Protein:  values["protein"],
			Carbs:    values["carbs"],
			Fat:      values["fat"],
		},
	}

	switch v := fields["explanation"].(type) {
	case nil:
	case string:
		est.Explanation = strings.TrimSpace(v)
	default:
		return nil, fmt.Errorf("%w: field \"explanation\" is %T, not a string", ErrInvalidOutput, v)
	}

	return est, nil
}

// extractJSON strips markdown fences and any prose around the outermost
// JSON object
func extractJSON(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
