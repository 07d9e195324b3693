package core

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

// fakeAPI records every request and answers through handle.
type fakeAPI struct {
	mu       sync.Mutex
	requests []Request
	handle   func(ctx context.Context, req Request) (Response, error)
}

func newFakeAPI(handle func(ctx context.Context, req Request) (Response, error)) *fakeAPI {
	return &fakeAPI{handle: handle}
}

func (f *fakeAPI) Do(ctx context.Context, req Request) (Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req.Clone())
	handle := f.handle
	f.mu.Unlock()
	return handle(ctx, req)
}

func (f *fakeAPI) callsTo(path string) []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []Request{}
	for _, req := range f.requests {
		if req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

func jsonResponse(status int, body string) Response {
	return Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
	}
}

// expiringAPI rejects any token but fresh on /orders and answers /auth/refresh
// with refresh, after release is closed when one is set.
func expiringAPI(fresh string, release <-chan struct{}, refresh func() (Response, error)) *fakeAPI {
	return newFakeAPI(func(ctx context.Context, req Request) (Response, error) {
		if req.Path == DefaultRefreshPath {
			if release != nil {
				select {
				case <-release:
				case <-ctx.Done():
					return Response{}, ctx.Err()
				}
			}
			return refresh()
		}
		if req.Headers[DefaultAuthHeader] == "Bearer "+fresh {
			return jsonResponse(http.StatusOK, `{"ok":true}`), nil
		}
		return jsonResponse(http.StatusUnauthorized, `{"msg":"token expired"}`), nil
	})
}

type recordingHook struct {
	mu     sync.Mutex
	events []SessionEvent
}

func (h *recordingHook) Name() string { return "recording" }

func (h *recordingHook) OnSessionEvent(_ context.Context, event SessionEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *recordingHook) count(eventType SessionEventType) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, event := range h.events {
		if event.Type == eventType {
			total++
		}
	}
	return total
}

func waitForWaiters(t *testing.T, coordinator *RenewalCoordinator, expected int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if coordinator.PendingWaiters() == expected {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected %d queued waiters, got %d", expected, coordinator.PendingWaiters())
}

func newTestClient(t *testing.T, api Transport, store CredentialStore, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithTransport(api),
		WithCredentialStore(store),
		WithLogger(stubLogger{}),
	}
	client, err := NewClient(DefaultConfig(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}
