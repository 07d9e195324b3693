package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Credential is the opaque bearer token attached to authenticated requests.
type Credential string

func (c Credential) String() string {
	return string(c)
}

func (c Credential) IsZero() bool {
	return strings.TrimSpace(string(c)) == ""
}

// Request describes a single call against the remote API. Values are treated
// as immutable: attach credentials or headers on a Clone.
type Request struct {
	Method               string
	Path                 string
	Query                map[string]string
	Headers              map[string]string
	Body                 []byte
	Timeout              time.Duration
	MaxResponseBodyBytes int64
	// SkipRenewal disables credential renewal for this request, e.g. for the
	// login call itself where 401 means bad credentials.
	SkipRenewal bool
}

func NewRequest(method string, path string) Request {
	return Request{
		Method:  strings.ToUpper(strings.TrimSpace(method)),
		Path:    strings.TrimSpace(path),
		Query:   map[string]string{},
		Headers: map[string]string{},
	}
}

// NewJSONRequest encodes body as JSON. A nil body produces a request without payload.
func NewJSONRequest(method string, path string, body any) (Request, error) {
	req := NewRequest(method, path)
	req.Headers["Accept"] = "application/json"
	if body == nil {
		return req, nil
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return Request{}, fmt.Errorf("core: encode request body: %w", err)
	}
	req.Body = payload
	req.Headers["Content-Type"] = "application/json"
	return req, nil
}

func (r Request) Clone() Request {
	cloned := r
	cloned.Query = cloneStringMap(r.Query)
	cloned.Headers = cloneStringMap(r.Headers)
	if r.Body != nil {
		cloned.Body = append([]byte(nil), r.Body...)
	}
	return cloned
}

func (r Request) WithHeader(key string, value string) Request {
	cloned := r.Clone()
	key = strings.TrimSpace(key)
	if key == "" {
		return cloned
	}
	cloned.Headers[key] = value
	return cloned
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

func (r Response) DecodeJSON(target any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("core: response body is empty")
	}
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("core: decode response body: %w", err)
	}
	return nil
}

func DecodeResponse[T any](resp Response) (T, error) {
	var out T
	if err := resp.DecodeJSON(&out); err != nil {
		return out, err
	}
	return out, nil
}

// ResponseError is returned by transports for non-2xx responses.
type ResponseError struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

func (e *ResponseError) Error() string {
	if e == nil {
		return "core: response error"
	}
	return fmt.Sprintf("core: remote api responded with status %d", e.StatusCode)
}

// Transport executes a single request. Credentials are passed in on the
// request, transports never look them up.
type Transport interface {
	Do(ctx context.Context, req Request) (Response, error)
}

type TransportFunc func(ctx context.Context, req Request) (Response, error)

func (f TransportFunc) Do(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// CredentialStore holds the current session credential. An empty Credential
// with a nil error means no session.
type CredentialStore interface {
	Get(ctx context.Context) (Credential, error)
	Set(ctx context.Context, credential Credential) error
	Clear(ctx context.Context, reason string) error
}

// SecretProvider seals credentials before they are persisted.
type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// Signer attaches a credential to an outgoing request.
type Signer interface {
	Sign(ctx context.Context, req Request, credential Credential) (Request, error)
}

type RenewalState string

const (
	RenewalStateIdle     RenewalState = "idle"
	RenewalStateRenewing RenewalState = "renewing"
)

type SessionEventType string

const (
	SessionEventStarted SessionEventType = "session.started"
	SessionEventRenewed SessionEventType = "session.renewed"
	SessionEventEnded   SessionEventType = "session.ended"
)

type SessionEvent struct {
	Type       SessionEventType
	Reason     string
	Cycle      int64
	OccurredAt time.Time
	Err        error
}

// SessionHook receives session lifecycle notifications. Hosts subscribe to
// SessionEventEnded to present the logout.
type SessionHook interface {
	Name() string
	OnSessionEvent(ctx context.Context, event SessionEvent) error
}

type SessionStatus struct {
	Authenticated bool
	State         RenewalState
	Cycles        int64
	LastRenewedAt *time.Time
	LastFailure   string
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

func cloneStringMap(input map[string]string) map[string]string {
	if len(input) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}

func isSuccessStatus(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}
