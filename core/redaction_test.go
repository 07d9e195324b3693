package core

import (
	"context"
	"testing"
)

func TestRedactFields_MasksCredentialValues(t *testing.T) {
	redacted := RedactFields(map[string]any{
		"method":      "GET",
		"accessToken": "secret-token",
		"headers":     map[string]string{"Authorization": "Bearer secret-token", "Accept": "application/json"},
		"nested":      map[string]any{"refresh_cookie": "r1", "path": "/orders"},
		"stored":      Credential("live"),
		"empty":       Credential(""),
		"attempts":    []any{map[string]any{"set-cookie": "session=1"}},
		"status_code": 401,
	})

	if redacted["method"] != "GET" || redacted["status_code"] != 401 {
		t.Fatalf("expected plain fields to remain visible: %#v", redacted)
	}
	if redacted["accessToken"] != RedactedValue {
		t.Fatalf("expected token to be redacted, got %#v", redacted["accessToken"])
	}
	headers := redacted["headers"].(map[string]string)
	if headers["Authorization"] != RedactedValue || headers["Accept"] != "application/json" {
		t.Fatalf("unexpected headers: %#v", headers)
	}
	nested := redacted["nested"].(map[string]any)
	if nested["refresh_cookie"] != RedactedValue || nested["path"] != "/orders" {
		t.Fatalf("unexpected nested fields: %#v", nested)
	}
	if redacted["stored"] != RedactedValue {
		t.Fatalf("expected credential value to be redacted, got %#v", redacted["stored"])
	}
	if redacted["empty"] != Credential("") {
		t.Fatalf("expected empty credential to stay empty, got %#v", redacted["empty"])
	}
	attempts := redacted["attempts"].([]any)
	if attempts[0].(map[string]any)["set-cookie"] != RedactedValue {
		t.Fatalf("expected list entries to be walked: %#v", attempts)
	}
}

func TestTelemetry_LogsRedactedFields(t *testing.T) {
	logger := &capturingLogger{}
	tel := telemetry{logger: logger}
	tel.logInfo(context.Background(), "login succeeded", map[string]any{"credential": Credential("live"), "cycle": 1})

	if len(logger.args) != 4 {
		t.Fatalf("expected two key value pairs, got %#v", logger.args)
	}
	if logger.args[0] != "credential" || logger.args[1] != RedactedValue {
		t.Fatalf("expected credential to be redacted, got %#v", logger.args)
	}
}

type capturingLogger struct {
	stubLogger
	args []any
}

func (l *capturingLogger) Info(_ string, args ...any) { l.args = append(l.args, args...) }

func (l *capturingLogger) WithContext(context.Context) Logger { return l }
