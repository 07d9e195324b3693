package core

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Client is the authenticated request entry point. Every request is signed
// with the stored credential; an unauthorized response triggers one renewal
// through the coordinator and a single retry with the fresh credential.
type Client struct {
	config         Config
	logger         Logger
	loggerProvider LoggerProvider
	telemetry      telemetry
	transport      Transport
	store          CredentialStore
	signer         Signer
	coordinator    *RenewalCoordinator
	unauthorized   map[int]struct{}
	requestIDFn    func() string
	nowFn          func() time.Time
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	builder := defaultClientBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}
	provider, logger := glog.Resolve("reauth", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("reauth"); named != nil {
			logger = glog.Ensure(named)
		}
	}
	builder.loggerProvider, builder.logger = provider, logger

	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.requestIDFn == nil {
		builder.requestIDFn = uuid.NewString
	}
	if builder.nowFn == nil {
		builder.nowFn = func() time.Time { return time.Now().UTC() }
	}

	resolved, err := ResolveConfig(context.Background(), builder.runtimeConfig, builder.configProvider, builder.optionsResolver)
	if err != nil {
		return nil, err
	}
	if builder.transport == nil && builder.transportFn != nil {
		built, buildErr := builder.transportFn(resolved)
		if buildErr != nil {
			return nil, buildErr
		}
		builder.transport = built
	}
	if builder.transport == nil {
		return nil, newReauthError("core: transport is required", goerrors.CategoryBadInput, http.StatusBadRequest, ReauthErrorBadInput)
	}
	if builder.credentialStore == nil {
		builder.credentialStore = NewMemoryCredentialStore("")
	}
	if builder.signer == nil {
		builder.signer = NewBearerSigner(resolved.Auth.HeaderName, resolved.Auth.Scheme)
	}

	coordinator, err := NewRenewalCoordinator(
		builder.transport,
		builder.credentialStore,
		renewalConfigFrom(resolved),
		WithRenewalHooks(NewSessionHookCoordinator(builder.sessionHooks...)),
		WithRenewalLogger(builder.logger),
		WithRenewalMetricsRecorder(builder.metricsRecorder),
		WithRenewalClock(builder.nowFn),
	)
	if err != nil {
		return nil, err
	}

	unauthorized := make(map[int]struct{}, len(resolved.Auth.UnauthorizedStatuses))
	for _, status := range resolved.Auth.UnauthorizedStatuses {
		unauthorized[status] = struct{}{}
	}

	return &Client{
		config:         resolved,
		logger:         builder.logger,
		loggerProvider: builder.loggerProvider,
		telemetry:      telemetry{logger: builder.logger, metricsRecorder: builder.metricsRecorder},
		transport:      builder.transport,
		store:          builder.credentialStore,
		signer:         builder.signer,
		coordinator:    coordinator,
		unauthorized:   unauthorized,
		requestIDFn:    builder.requestIDFn,
		nowFn:          builder.nowFn,
	}, nil
}

// Send performs an authenticated request. Errors are always *NormalizedError.
func (c *Client) Send(ctx context.Context, req Request) (Response, error) {
	if c == nil {
		return Response{}, NormalizeError(newReauthError("core: client is nil", goerrors.CategoryInternal, http.StatusInternalServerError, ReauthErrorInternal), DefaultErrorMessage)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now()
	fields := map[string]any{
		"request_id": c.requestIDFn(),
		"method":     req.Method,
		"path":       req.Path,
	}

	resp, err := c.send(ctx, req, fields)
	if err != nil {
		if normalized, ok := AsNormalizedError(err); ok {
			fields["status_code"] = normalized.Status
		}
	} else {
		fields["status_code"] = resp.StatusCode
	}
	c.telemetry.observeOperation(ctx, startedAt, "send", err, fields)
	return resp, err
}

func (c *Client) send(ctx context.Context, req Request, fields map[string]any) (Response, error) {
	credential, err := c.store.Get(ctx)
	if err != nil {
		fields["outcome"] = "credential_unavailable"
		return Response{}, c.normalize(err)
	}

	resp, err := c.attempt(ctx, req, credential)
	if err == nil {
		fields["outcome"] = "ok"
		return resp, nil
	}
	if req.SkipRenewal || !c.isUnauthorized(err) {
		fields["outcome"] = "failed"
		return Response{}, c.normalize(err)
	}

	fresh, renewErr := c.coordinator.ObtainFreshCredential(ctx)
	if renewErr != nil {
		fields["outcome"] = "renewal_failed"
		return Response{}, c.normalize(renewErr)
	}

	// The retried request is never renewed again.
	resp, err = c.attempt(ctx, req, fresh)
	if err != nil {
		fields["outcome"] = "retry_failed"
		return Response{}, c.normalize(err)
	}
	fields["outcome"] = "retried"
	return resp, nil
}

func (c *Client) attempt(ctx context.Context, req Request, credential Credential) (Response, error) {
	signed, err := c.signer.Sign(ctx, req, credential)
	if err != nil {
		return Response{}, wrapReauthError(err, goerrors.CategoryInternal, "core: sign request", http.StatusInternalServerError, ReauthErrorInternal)
	}
	resp, err := c.transport.Do(ctx, signed)
	if err != nil {
		return Response{}, err
	}
	if !isSuccessStatus(resp.StatusCode) {
		return Response{}, &ResponseError{StatusCode: resp.StatusCode, Headers: resp.Headers, Body: resp.Body}
	}
	return resp, nil
}

func (c *Client) isUnauthorized(err error) bool {
	var responseErr *ResponseError
	if !errors.As(err, &responseErr) || responseErr == nil {
		return false
	}
	_, ok := c.unauthorized[responseErr.StatusCode]
	return ok
}

func (c *Client) normalize(err error) error {
	return NormalizeError(err, c.config.Errors.DefaultMessage)
}

// Login stores a credential obtained out of band and starts the session.
func (c *Client) Login(ctx context.Context, credential Credential) error {
	if c == nil {
		return NormalizeError(newReauthError("core: client is nil", goerrors.CategoryInternal, http.StatusInternalServerError, ReauthErrorInternal), DefaultErrorMessage)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now()
	err := c.coordinator.Establish(ctx, credential)
	if err != nil {
		err = c.normalize(err)
	}
	c.telemetry.observeOperation(ctx, startedAt, "login", err, map[string]any{})
	return err
}

// Logout clears the credential and ends the session.
func (c *Client) Logout(ctx context.Context, reason string) error {
	if c == nil {
		return NormalizeError(newReauthError("core: client is nil", goerrors.CategoryInternal, http.StatusInternalServerError, ReauthErrorInternal), DefaultErrorMessage)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now()
	err := c.coordinator.EndSession(ctx, reason)
	if err != nil {
		err = c.normalize(err)
	}
	c.telemetry.observeOperation(ctx, startedAt, "logout", err, map[string]any{"reason": strings.TrimSpace(reason)})
	return err
}

// Renew forces a renewal. It joins a renewal already in flight.
func (c *Client) Renew(ctx context.Context) (Credential, error) {
	if c == nil {
		return "", NormalizeError(newReauthError("core: client is nil", goerrors.CategoryInternal, http.StatusInternalServerError, ReauthErrorInternal), DefaultErrorMessage)
	}
	credential, err := c.coordinator.ObtainFreshCredential(ctx)
	if err != nil {
		return "", c.normalize(err)
	}
	return credential, nil
}

func (c *Client) Status(ctx context.Context) (SessionStatus, error) {
	if c == nil {
		return SessionStatus{}, NormalizeError(newReauthError("core: client is nil", goerrors.CategoryInternal, http.StatusInternalServerError, ReauthErrorInternal), DefaultErrorMessage)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	status, err := c.coordinator.Status(ctx)
	if err != nil {
		return SessionStatus{}, c.normalize(err)
	}
	return status, nil
}

// Credential returns the credential currently held by the store.
func (c *Client) Credential(ctx context.Context) (Credential, error) {
	if c == nil {
		return "", nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	credential, err := c.store.Get(ctx)
	if err != nil {
		return "", c.normalize(err)
	}
	return credential, nil
}

func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.config
}

func (c *Client) Coordinator() *RenewalCoordinator {
	if c == nil {
		return nil
	}
	return c.coordinator
}

func (c *Client) Logger() Logger {
	if c == nil {
		return nil
	}
	return c.logger
}

func (c *Client) LoggerProvider() LoggerProvider {
	if c == nil {
		return nil
	}
	return c.loggerProvider
}
