package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-reauth/core"
)

func TestNewHTTPClient_ReplaysSessionCookies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "refresh", Value: "r-1", Path: "/"})
			w.WriteHeader(http.StatusOK)
		case "/auth/refresh":
			cookie, err := r.Cookie("refresh")
			if err != nil || cookie.Value != "r-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	client, err := NewHTTPClient(core.DefaultConfig().Transport)
	if err != nil {
		t.Fatalf("new http client: %v", err)
	}
	if client.Jar == nil {
		t.Fatalf("expected cookie jar")
	}
	adapter := NewRESTAdapter(client, server.URL)
	if _, err := adapter.Do(context.Background(), core.NewRequest(http.MethodPost, "/auth/login")); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := adapter.Do(context.Background(), core.NewRequest(http.MethodPost, "/auth/refresh")); err != nil {
		t.Fatalf("expected refresh cookie to be replayed: %v", err)
	}
}

func TestNewHTTPClient_DisableCookieJar(t *testing.T) {
	cfg := core.DefaultConfig().Transport
	cfg.DisableCookieJar = true
	cfg.Timeout = 0
	client, err := NewHTTPClient(cfg)
	if err != nil {
		t.Fatalf("new http client: %v", err)
	}
	if client.Jar != nil {
		t.Fatalf("expected no cookie jar")
	}
	if client.Timeout != core.DefaultTransportTimeout {
		t.Fatalf("expected default timeout, got %s", client.Timeout)
	}
}

func TestNewRetryingHTTPClient_DoesNotRetryStatuses(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"msg":"maintenance"}`))
	}))
	defer server.Close()

	cfg := core.DefaultConfig().Transport
	cfg.RetryMax = 3
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 2 * time.Millisecond
	client, err := NewRetryingHTTPClient(cfg)
	if err != nil {
		t.Fatalf("new retrying client: %v", err)
	}

	_, err = NewRESTAdapter(client, server.URL).Do(context.Background(), core.NewRequest(http.MethodGet, "/status"))
	var responseErr *core.ResponseError
	if !errors.As(err, &responseErr) || responseErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 response error, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", hits.Load())
	}
}

func TestRetryConnectionErrors(t *testing.T) {
	retry, err := retryConnectionErrors(context.Background(), &http.Response{StatusCode: http.StatusInternalServerError}, nil)
	if retry || err != nil {
		t.Fatalf("expected statuses not to be retried")
	}
	retry, _ = retryConnectionErrors(context.Background(), nil, errors.New("connection reset by peer"))
	if !retry {
		t.Fatalf("expected connection errors to be retried")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	retry, err = retryConnectionErrors(ctx, nil, errors.New("connection reset by peer"))
	if retry || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled context to stop retries")
	}
}
