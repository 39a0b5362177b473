package tools

import (
	"encoding/json"
	"strings"
)

// SanitizeArguments normalizes model-produced tool arguments before dispatch.
// Sentinel strings the model uses for "no value" become JSON null, and string
// values that themselves contain encoded JSON are decoded in place. Anything
// that cannot be improved is returned unchanged.
func SanitizeArguments(name, arguments string) (string, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		// keep original if not a JSON object
		return arguments, nil
	}

	changed := false
	for key, value := range args {
		s, ok := value.(string)
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "", "null", "none":
			args[key] = nil
			changed = true
			continue
		}
		if looksLikeJSON(s) {
			var decoded any
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				args[key] = decoded
				changed = true
			}
		}
	}
	if !changed {
		return arguments, nil
	}

	out, err := json.Marshal(args)
	if err != nil {
		return arguments, nil
	}
	return string(out), nil
}

func looksLikeJSON(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return false
	}
	switch s[0] {
	case '{', '[':
		return true
	}
	return false
}
