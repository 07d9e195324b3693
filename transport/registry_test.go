package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-reauth/core"
)

func TestRegistry_DefaultKinds(t *testing.T) {
	registry := NewDefaultRegistry()
	kinds := registry.Kinds()
	if len(kinds) != 2 || kinds[0] != KindREST || kinds[1] != KindRetryingREST {
		t.Fatalf("expected rest and retrying_rest kinds, got %v", kinds)
	}

	cfg := core.DefaultConfig()
	cfg.BaseURL = "https://api.example"
	cfg.Transport.Kind = KindRetryingREST
	adapter, err := registry.Build(cfg)
	if err != nil {
		t.Fatalf("build adapter: %v", err)
	}
	if adapter.Kind() != KindRetryingREST {
		t.Fatalf("expected retrying_rest adapter, got %q", adapter.Kind())
	}

	cfg.Transport.Kind = "soap"
	if _, err := registry.Build(cfg); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
	if err := registry.RegisterFactory(KindREST, restFactory(NewHTTPClient)); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestRegistry_RegisterFactoryBuildsCustomAdapter(t *testing.T) {
	registry := NewRegistry()
	if err := registry.RegisterFactory("Static", func(core.Config) (Adapter, error) {
		return staticAdapter{kind: "static"}, nil
	}); err != nil {
		t.Fatalf("register adapter factory: %v", err)
	}
	cfg := core.DefaultConfig()
	cfg.Transport.Kind = " STATIC "
	adapter, err := registry.Build(cfg)
	if err != nil {
		t.Fatalf("build adapter from factory: %v", err)
	}
	if adapter.Kind() != "static" {
		t.Fatalf("expected static adapter, got %q", adapter.Kind())
	}
}

type staticAdapter struct {
	kind string
}

func (a staticAdapter) Kind() string { return a.kind }

func (a staticAdapter) Do(context.Context, core.Request) (core.Response, error) {
	return core.Response{StatusCode: http.StatusOK}, nil
}

func TestRESTAdapter_DoSendsMethodHeadersAndQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST method, got %s", r.Method)
		}
		if r.URL.Path != "/api/orders" {
			t.Errorf("expected joined path, got %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "search" {
			t.Errorf("expected query value, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer abc" {
			t.Errorf("expected authorization header, got %q", got)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request body: %v", err)
		}
		if string(body) != "payload" {
			t.Errorf("expected request body payload")
		}
		w.Header().Set("X-Server", "ok")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("done"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client(), server.URL+"/api/")
	req := core.NewRequest(http.MethodPost, "/orders")
	req.Query["q"] = "search"
	req.Headers["Authorization"] = "Bearer abc"
	req.Body = []byte("payload")
	req.Timeout = 5 * time.Second

	result, err := adapter.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("perform rest request: %v", err)
	}
	if result.StatusCode != http.StatusAccepted {
		t.Fatalf("expected accepted status, got %d", result.StatusCode)
	}
	if string(result.Body) != "done" {
		t.Fatalf("unexpected response body: %q", string(result.Body))
	}
	if result.Headers["X-Server"] != "ok" {
		t.Fatalf("expected response header")
	}
}

func TestRESTAdapter_NonSuccessStatusReturnsResponseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"msg":"token expired"}`))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client(), server.URL)
	_, err := adapter.Do(context.Background(), core.NewRequest(http.MethodGet, "/orders"))

	var responseErr *core.ResponseError
	if !errors.As(err, &responseErr) {
		t.Fatalf("expected response error, got %T %v", err, err)
	}
	if responseErr.StatusCode != http.StatusUnauthorized || string(responseErr.Body) != `{"msg":"token expired"}` {
		t.Fatalf("unexpected response error: %#v", responseErr)
	}
	if responseErr.Headers["Content-Type"] != "application/json" {
		t.Fatalf("expected response headers on error")
	}
}

func TestRESTAdapter_AbsolutePathIgnoresBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/direct" {
			t.Errorf("expected direct path, got %q", r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client(), "https://unused.example")
	result, err := adapter.Do(context.Background(), core.NewRequest(http.MethodDelete, server.URL+"/direct"))
	if err != nil {
		t.Fatalf("perform request: %v", err)
	}
	if result.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", result.StatusCode)
	}
}

func TestRESTAdapter_RelativePathRequiresBaseURL(t *testing.T) {
	adapter := NewRESTAdapter(nil, "")
	if _, err := adapter.Do(context.Background(), core.NewRequest(http.MethodGet, "/orders")); err == nil {
		t.Fatalf("expected missing base url error")
	}
}

func TestNewRESTAdapter_DefaultClientTimeout(t *testing.T) {
	adapter := NewRESTAdapter(nil, "")
	httpClient, ok := adapter.Client.(*http.Client)
	if !ok {
		t.Fatalf("expected default http client implementation")
	}
	if httpClient.Timeout != core.DefaultTransportTimeout {
		t.Fatalf("expected default timeout %s, got %s", core.DefaultTransportTimeout, httpClient.Timeout)
	}
	if adapter.MaxResponseBodyBytes != core.DefaultResponseBodyLimit {
		t.Fatalf("expected default response body limit %d, got %d", core.DefaultResponseBodyLimit, adapter.MaxResponseBodyBytes)
	}
}

func TestRESTAdapter_RequestBodyLimitOverridesAdapterLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("12345"))
	}))
	defer server.Close()

	adapter := NewRESTAdapter(server.Client(), server.URL)
	adapter.MaxResponseBodyBytes = 1024

	req := core.NewRequest(http.MethodGet, "/")
	req.MaxResponseBodyBytes = 4
	_, err := adapter.Do(context.Background(), req)
	if err == nil {
		t.Fatalf("expected response body limit error")
	}
	if !strings.Contains(err.Error(), "response body exceeds limit of 4 bytes") {
		t.Fatalf("unexpected error: %v", err)
	}
}
