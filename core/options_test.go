package core

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

type fixedOptionsResolver struct {
	cfg Config
}

func (r *fixedOptionsResolver) Resolve(Config, Config, Config) (Config, error) {
	return r.cfg, nil
}

func okTransport() Transport {
	return TransportFunc(func(context.Context, Request) (Response, error) {
		return jsonResponse(http.StatusOK, `{}`), nil
	})
}

func TestNewClient_DefaultDependencies(t *testing.T) {
	client, err := NewClient(Config{}, WithTransport(okTransport()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Logger() == nil {
		t.Fatalf("expected default logger")
	}
	if client.LoggerProvider() == nil {
		t.Fatalf("expected default logger provider")
	}
	cfg := client.Config()
	if cfg.ServiceName != "reauth" {
		t.Fatalf("expected default service_name=reauth, got %q", cfg.ServiceName)
	}
	if cfg.Auth.RefreshPath != DefaultRefreshPath || cfg.Auth.TokenField != DefaultRefreshTokenField {
		t.Fatalf("unexpected auth defaults: %#v", cfg.Auth)
	}
	if len(cfg.Auth.UnauthorizedStatuses) != 1 || cfg.Auth.UnauthorizedStatuses[0] != http.StatusUnauthorized {
		t.Fatalf("expected 401 as the only renewable status, got %v", cfg.Auth.UnauthorizedStatuses)
	}
	if cfg.Errors.DefaultMessage != DefaultErrorMessage {
		t.Fatalf("unexpected default message %q", cfg.Errors.DefaultMessage)
	}
	if credential, err := client.Credential(context.Background()); err != nil || !credential.IsZero() {
		t.Fatalf("expected empty default credential store")
	}
}

func TestNewClient_WithXOverrides(t *testing.T) {
	customLogger := stubLogger{}
	customProvider := stubLoggerProvider{logger: customLogger}
	resolver := &fixedOptionsResolver{cfg: Config{ServiceName: "resolved", Auth: AuthConfig{RefreshPath: "/session/renew"}}}

	client, err := NewClient(Config{ServiceName: "runtime"},
		WithTransport(okTransport()),
		WithLogger(customLogger),
		WithLoggerProvider(customProvider),
		WithConfigProvider(&fixedConfigProvider{cfg: Config{ServiceName: "from-provider"}}),
		WithOptionsResolver(resolver),
		WithRequestIDGenerator(func() string { return "req-1" }),
		WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.Logger() != customLogger {
		t.Fatalf("expected custom logger override")
	}
	if resolved := client.LoggerProvider().GetLogger("reauth.override"); resolved != customLogger {
		t.Fatalf("expected logger provider to resolve custom logger")
	}
	cfg := client.Config()
	if cfg.ServiceName != "resolved" {
		t.Fatalf("expected options resolver output config, got %q", cfg.ServiceName)
	}
	if cfg.Auth.RefreshPath != "/session/renew" || cfg.Auth.TokenField != DefaultRefreshTokenField {
		t.Fatalf("expected resolver output normalized with defaults, got %#v", cfg.Auth)
	}
}

func TestNewClient_ConfigLayeringPrecedence(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"service_name": "from-config",
		"auth": map[string]any{
			"refresh_path": "/session/refresh",
			"token_field":  "token",
		},
		"errors": map[string]any{
			"default_message": "Something went wrong",
		},
	}})

	client, err := NewClient(Config{ServiceName: "from-runtime", Transport: TransportConfig{RetryMax: 2}},
		WithTransport(okTransport()),
		WithConfigProvider(provider),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	cfg := client.Config()
	if cfg.ServiceName != "from-runtime" {
		t.Fatalf("expected runtime value to override config/default, got %q", cfg.ServiceName)
	}
	if cfg.Auth.RefreshPath != "/session/refresh" {
		t.Fatalf("expected config layer refresh path, got %q", cfg.Auth.RefreshPath)
	}
	if cfg.Auth.TokenField != "token" {
		t.Fatalf("expected config layer token field, got %q", cfg.Auth.TokenField)
	}
	if cfg.Transport.RetryMax != 2 {
		t.Fatalf("expected runtime retry_max, got %d", cfg.Transport.RetryMax)
	}
	if cfg.Errors.DefaultMessage != "Something went wrong" {
		t.Fatalf("expected config layer default message, got %q", cfg.Errors.DefaultMessage)
	}
	if cfg.Auth.HeaderName != DefaultAuthHeader {
		t.Fatalf("expected default header, got %q", cfg.Auth.HeaderName)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}
	cfg.Auth.UnauthorizedStatuses = []int{200}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected non-error status to be rejected")
	}
	cfg = DefaultConfig()
	cfg.Transport.RetryMax = -1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected negative retry_max to be rejected")
	}
}

func TestNewClient_CustomUnauthorizedStatuses(t *testing.T) {
	api := newFakeAPI(func(_ context.Context, req Request) (Response, error) {
		if req.Path == DefaultRefreshPath {
			return jsonResponse(http.StatusOK, `{"accessToken":"new"}`), nil
		}
		if req.Headers[DefaultAuthHeader] == "Bearer new" {
			return jsonResponse(http.StatusOK, `{}`), nil
		}
		return jsonResponse(419, `{"msg":"session expired"}`), nil
	})
	cfg := DefaultConfig()
	cfg.Auth.UnauthorizedStatuses = []int{http.StatusUnauthorized, 419}
	client, err := NewClient(cfg,
		WithTransport(api),
		WithCredentialStore(NewMemoryCredentialStore("old")),
		WithLogger(stubLogger{}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Send(context.Background(), NewRequest(http.MethodGet, "/orders")); err != nil {
		t.Fatalf("expected 419 to trigger renewal, got %v", err)
	}
}

func TestNewClient_TransportFactoryReceivesResolvedConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://api.example.test"
	var seen Config
	client, err := NewClient(cfg,
		WithLogger(stubLogger{}),
		WithTransportFactory(func(resolved Config) (Transport, error) {
			seen = resolved
			return okTransport(), nil
		}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client == nil || seen.BaseURL != "https://api.example.test" {
		t.Fatalf("expected factory to see resolved base url, got %q", seen.BaseURL)
	}

	explicitUsed := false
	_, err = NewClient(cfg,
		WithTransport(okTransport()),
		WithTransportFactory(func(Config) (Transport, error) {
			explicitUsed = true
			return nil, nil
		}),
	)
	if err != nil || explicitUsed {
		t.Fatalf("expected explicit transport to win over the factory (err=%v)", err)
	}

	if _, err := NewClient(cfg, WithTransportFactory(func(Config) (Transport, error) {
		return nil, errors.New("unknown kind")
	})); err == nil {
		t.Fatalf("expected factory error to fail construction")
	}
}
