package gemini

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/bobmcallan/chartsage/internal/models"
)

// outermostObject spans from the first '{' to the last '}'.
var outermostObject = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON parses a JSON object out of model text that may be wrapped in
// prose or a Markdown code fence. The outermost brace span is tried first,
// then the whole text. Failure wraps models.ErrMalformedResponse.
func ExtractJSON(text string) (map[string]any, error) {
	if span := outermostObject.FindString(text); span != "" {
		var obj map[string]any
		if err := json.Unmarshal([]byte(span), &obj); err == nil {
			return obj, nil
		}
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &obj); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrMalformedResponse, truncate(text, 120))
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: null object", models.ErrMalformedResponse)
	}
	return obj, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
