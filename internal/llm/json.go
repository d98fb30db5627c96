package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONArray is returned by DecodeArray when no array can be recovered.
var ErrNoJSONArray = errors.New("llm: response has no JSON array")

// CleanJSON strips Markdown code fences the model may have added despite
// instructions, and any prose around the outermost JSON array.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// ```json ... ``` or ``` ... ```
	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}

// DecodeArray parses a model response that should hold a JSON array of
// objects. A direct parse is tried first, then CleanJSON.
func DecodeArray(raw string) ([]map[string]any, error) {
	var direct []map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &direct); err == nil {
		return direct, nil
	}

	clean := CleanJSON(raw)
	if !strings.HasPrefix(clean, "[") {
		return nil, ErrNoJSONArray
	}
	var out []map[string]any
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, errors.Join(ErrNoJSONArray, err)
	}
	return out, nil
}
