package core

import "strings"

const RedactedValue = "[REDACTED]"

var sensitiveFieldMarkers = []string{
	"authorization",
	"cookie",
	"credential",
	"password",
	"secret",
	"token",
}

// RedactFields returns a copy of fields with credential bearing values masked.
// Nested maps and header maps are walked.
func RedactFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if isSensitiveField(key) {
			out[key] = RedactedValue
			continue
		}
		out[key] = redactValue(value)
	}
	return out
}

func redactValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return RedactFields(typed)
	case map[string]string:
		out := make(map[string]string, len(typed))
		for key, item := range typed {
			if isSensitiveField(key) {
				out[key] = RedactedValue
				continue
			}
			out[key] = item
		}
		return out
	case Credential:
		if typed.IsZero() {
			return typed
		}
		return RedactedValue
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = redactValue(typed[i])
		}
		return out
	default:
		return value
	}
}

func isSensitiveField(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	for _, marker := range sensitiveFieldMarkers {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}
