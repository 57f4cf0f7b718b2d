package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeJSON extracts a JSON object from an LLM response and decodes it
// into v. Models wrap JSON in markdown fences or prose often enough
// that we strip fences and bound to the outermost braces before
// decoding.
func decodeJSON(text string, v interface{}) error {
	jsonStr := strings.TrimSpace(text)

	if strings.HasPrefix(jsonStr, "```") {
		lines := strings.Split(jsonStr, "\n")
		var kept []string
		for _, line := range lines {
			if strings.HasPrefix(line, "```") {
				continue
			}
			kept = append(kept, line)
		}
		jsonStr = strings.Join(kept, "\n")
	}

	start := strings.Index(jsonStr, "{")
	end := strings.LastIndex(jsonStr, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON object in response")
	}
	jsonStr = jsonStr[start : end+1]

	if err := json.Unmarshal([]byte(jsonStr), v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
