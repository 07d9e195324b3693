package core

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	renewalClearReason = "renewal failed"
	logoutClearReason  = "logout"
)

// RenewalConfig describes the session-refresh endpoint.
type RenewalConfig struct {
	Method     string
	Path       string
	TokenField string
	Timeout    time.Duration
}

func renewalConfigFrom(cfg Config) RenewalConfig {
	cfg = cfg.normalized()
	return RenewalConfig{
		Method:     cfg.Auth.RefreshMethod,
		Path:       cfg.Auth.RefreshPath,
		TokenField: cfg.Auth.TokenField,
		Timeout:    cfg.Auth.RenewalTimeout,
	}
}

func (c RenewalConfig) normalized() RenewalConfig {
	defaults := renewalConfigFrom(DefaultConfig())
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method == "" {
		c.Method = defaults.Method
	}
	c.Path = strings.TrimSpace(c.Path)
	if c.Path == "" {
		c.Path = defaults.Path
	}
	c.TokenField = strings.TrimSpace(c.TokenField)
	if c.TokenField == "" {
		c.TokenField = defaults.TokenField
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	return c
}

type RenewalOption func(*RenewalCoordinator)

func WithRenewalHooks(hooks *SessionHookCoordinator) RenewalOption {
	return func(c *RenewalCoordinator) {
		if hooks != nil {
			c.hooks = hooks
		}
	}
}

func WithRenewalLogger(logger Logger) RenewalOption {
	return func(c *RenewalCoordinator) {
		if logger != nil {
			c.telemetry.logger = logger
		}
	}
}

func WithRenewalMetricsRecorder(recorder MetricsRecorder) RenewalOption {
	return func(c *RenewalCoordinator) {
		if recorder != nil {
			c.telemetry.metricsRecorder = recorder
		}
	}
}

func WithRenewalClock(nowFn func() time.Time) RenewalOption {
	return func(c *RenewalCoordinator) {
		if nowFn != nil {
			c.nowFn = nowFn
		}
	}
}

// RenewalCoordinator single-flights credential renewal. While one renewal
// call is outstanding every other caller is queued and settled, in arrival
// order, with that call's outcome. All state and queue mutations, as well as
// credential writes, happen while holding mu.
type RenewalCoordinator struct {
	mu            sync.Mutex
	state         RenewalState
	queue         []*renewalWaiter
	cycles        int64
	lastRenewedAt *time.Time
	lastFailure   string

	transport Transport
	store     CredentialStore
	hooks     *SessionHookCoordinator
	config    RenewalConfig
	telemetry telemetry
	nowFn     func() time.Time
	// onSettle observes each waiter as it is settled; tests only.
	onSettle func(*renewalWaiter)
}

func NewRenewalCoordinator(
	transport Transport,
	store CredentialStore,
	cfg RenewalConfig,
	opts ...RenewalOption,
) (*RenewalCoordinator, error) {
	if transport == nil {
		return nil, newReauthError("core: renewal coordinator requires a transport", goerrors.CategoryInternal, http.StatusInternalServerError, ReauthErrorInternal)
	}
	if store == nil {
		return nil, newReauthError("core: renewal coordinator requires a credential store", goerrors.CategoryInternal, http.StatusInternalServerError, ReauthErrorInternal)
	}
	coordinator := &RenewalCoordinator{
		state:     RenewalStateIdle,
		transport: transport,
		store:     store,
		hooks:     NewSessionHookCoordinator(),
		config:    cfg.normalized(),
		telemetry: telemetry{logger: glog.Nop(), metricsRecorder: NopMetricsRecorder{}},
		nowFn:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(coordinator)
	}
	return coordinator, nil
}

// ObtainFreshCredential returns a renewed credential. The first caller in an
// idle coordinator issues the renewal call; callers arriving while it is in
// flight wait for its outcome. A failed renewal clears the credential and
// ends the session once per cycle.
func (c *RenewalCoordinator) ObtainFreshCredential(ctx context.Context) (Credential, error) {
	if c == nil {
		return "", newReauthError("core: renewal coordinator is nil", goerrors.CategoryInternal, http.StatusInternalServerError, ReauthErrorInternal)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.state == RenewalStateRenewing {
		waiter := newRenewalWaiter()
		c.queue = append(c.queue, waiter)
		position := len(c.queue)
		cycle := c.cycles
		c.mu.Unlock()

		c.telemetry.logDebug(ctx, "renewal in flight, waiting", map[string]any{
			"cycle":          cycle,
			"queue_position": position,
		})
		return waiter.wait(ctx)
	}
	c.state = RenewalStateRenewing
	c.cycles++
	cycle := c.cycles
	c.mu.Unlock()

	startedAt := time.Now()
	credential, err := c.renewSafely(ctx)
	credential, settled, err := c.settle(ctx, credential, err)

	c.telemetry.recordHistogram(ctx, "reauth.renewal.waiters", float64(settled), map[string]string{})
	fields := map[string]any{
		"cycle":   cycle,
		"waiters": settled,
	}
	if err != nil {
		fields["outcome"] = "session_ended"
		c.notify(ctx, SessionEvent{
			Type:       SessionEventEnded,
			Reason:     renewalClearReason,
			Cycle:      cycle,
			OccurredAt: c.nowFn(),
			Err:        err,
		})
	} else {
		fields["outcome"] = "renewed"
		c.notify(ctx, SessionEvent{
			Type:       SessionEventRenewed,
			Cycle:      cycle,
			OccurredAt: c.nowFn(),
		})
	}
	c.telemetry.observeOperation(ctx, startedAt, "renewal", err, fields)
	return credential, err
}

// settle stores the outcome, settles every queued waiter in FIFO order and
// returns the coordinator to idle.
func (c *RenewalCoordinator) settle(ctx context.Context, credential Credential, err error) (Credential, int, error) {
	storeCtx := context.WithoutCancel(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err == nil {
		if storeErr := c.writeCredential(storeCtx, credential); storeErr != nil {
			credential = ""
			err = wrapReauthError(storeErr, goerrors.CategoryInternal, "core: store renewed credential", http.StatusInternalServerError, ReauthErrorRenewalFailed)
		}
	}
	if err != nil {
		credential = ""
		if clearErr := c.clearCredential(storeCtx, renewalClearReason); clearErr != nil {
			c.telemetry.logWarn(ctx, "clear credential after failed renewal", map[string]any{"error": clearErr.Error()})
		}
		c.lastFailure = err.Error()
	} else {
		now := c.nowFn()
		c.lastRenewedAt = &now
		c.lastFailure = ""
	}

	waiters := c.queue
	c.queue = nil
	outcome := renewalOutcome{credential: credential, err: err}
	for _, waiter := range waiters {
		waiter.settle(outcome)
		if c.onSettle != nil {
			c.onSettle(waiter)
		}
	}
	c.state = RenewalStateIdle
	return credential, len(waiters), err
}

// renewSafely converts panics into errors so the cycle always settles.
func (c *RenewalCoordinator) renewSafely(ctx context.Context) (credential Credential, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			credential = ""
			err = newReauthError(
				fmt.Sprintf("core: renewal aborted: %v", recovered),
				goerrors.CategoryInternal,
				http.StatusInternalServerError,
				ReauthErrorRenewalFailed,
			)
		}
	}()

	renewCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.Timeout)
	defer cancel()

	req := NewRequest(c.config.Method, c.config.Path)
	req.Headers["Accept"] = "application/json"
	req.SkipRenewal = true

	resp, err := c.transport.Do(renewCtx, req)
	if err != nil {
		return "", err
	}
	if !isSuccessStatus(resp.StatusCode) {
		return "", &ResponseError{StatusCode: resp.StatusCode, Headers: resp.Headers, Body: resp.Body}
	}
	return extractCredential(resp.Body, c.config.TokenField)
}

func extractCredential(body []byte, field string) (Credential, error) {
	var payload map[string]any
	if len(body) == 0 {
		return "", newReauthError("core: renewal response body is empty", goerrors.CategoryAuth, http.StatusUnauthorized, ReauthErrorRenewalFailed)
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", wrapReauthError(err, goerrors.CategoryAuth, "core: decode renewal response", http.StatusUnauthorized, ReauthErrorRenewalFailed)
	}
	token, _ := payload[field].(string)
	credential := Credential(strings.TrimSpace(token))
	if credential.IsZero() {
		return "", newReauthError(
			fmt.Sprintf("core: renewal response is missing %q", field),
			goerrors.CategoryAuth,
			http.StatusUnauthorized,
			ReauthErrorRenewalFailed,
		)
	}
	return credential, nil
}

// Establish stores the credential issued at login.
func (c *RenewalCoordinator) Establish(ctx context.Context, credential Credential) error {
	if c == nil {
		return newReauthError("core: renewal coordinator is nil", goerrors.CategoryInternal, http.StatusInternalServerError, ReauthErrorInternal)
	}
	credential = Credential(strings.TrimSpace(credential.String()))
	if credential.IsZero() {
		return newReauthError("core: credential is required", goerrors.CategoryBadInput, http.StatusBadRequest, ReauthErrorBadInput)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	err := c.writeCredential(ctx, credential)
	if err == nil {
		c.lastFailure = ""
	}
	cycle := c.cycles
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.notify(ctx, SessionEvent{Type: SessionEventStarted, Cycle: cycle, OccurredAt: c.nowFn()})
	return nil
}

// EndSession clears the credential and notifies hooks with SessionEventEnded.
func (c *RenewalCoordinator) EndSession(ctx context.Context, reason string) error {
	if c == nil {
		return newReauthError("core: renewal coordinator is nil", goerrors.CategoryInternal, http.StatusInternalServerError, ReauthErrorInternal)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = logoutClearReason
	}

	c.mu.Lock()
	err := c.clearCredential(ctx, reason)
	cycle := c.cycles
	c.mu.Unlock()
	if err != nil {
		return err
	}

	c.notify(ctx, SessionEvent{Type: SessionEventEnded, Reason: reason, Cycle: cycle, OccurredAt: c.nowFn()})
	return nil
}

func (c *RenewalCoordinator) Status(ctx context.Context) (SessionStatus, error) {
	if c == nil {
		return SessionStatus{}, newReauthError("core: renewal coordinator is nil", goerrors.CategoryInternal, http.StatusInternalServerError, ReauthErrorInternal)
	}
	credential, err := c.store.Get(ctx)
	if err != nil {
		return SessionStatus{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	status := SessionStatus{
		Authenticated: !credential.IsZero(),
		State:         c.state,
		Cycles:        c.cycles,
		LastFailure:   c.lastFailure,
	}
	if c.lastRenewedAt != nil {
		renewedAt := *c.lastRenewedAt
		status.LastRenewedAt = &renewedAt
	}
	return status, nil
}

func (c *RenewalCoordinator) State() RenewalState {
	if c == nil {
		return RenewalStateIdle
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PendingWaiters reports how many callers are queued behind the in-flight renewal.
func (c *RenewalCoordinator) PendingWaiters() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *RenewalCoordinator) Hooks() *SessionHookCoordinator {
	if c == nil {
		return nil
	}
	return c.hooks
}

// writeCredential and clearCredential must be called with mu held.
func (c *RenewalCoordinator) writeCredential(ctx context.Context, credential Credential) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("core: credential store panicked: %v", recovered)
		}
	}()
	return c.store.Set(ctx, credential)
}

func (c *RenewalCoordinator) clearCredential(ctx context.Context, reason string) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("core: credential store panicked: %v", recovered)
		}
	}()
	return c.store.Clear(ctx, reason)
}

func (c *RenewalCoordinator) notify(ctx context.Context, event SessionEvent) {
	if c.hooks == nil {
		return
	}
	if err := c.hooks.Notify(context.WithoutCancel(ctx), event); err != nil {
		c.telemetry.logWarn(ctx, "session hook failed", map[string]any{
			"event": string(event.Type),
			"cycle": event.Cycle,
			"error": err.Error(),
		})
	}
}

type renewalOutcome struct {
	credential Credential
	err        error
}

type renewalWaiter struct {
	done    chan renewalOutcome
	settled atomic.Bool
}

func newRenewalWaiter() *renewalWaiter {
	return &renewalWaiter{done: make(chan renewalOutcome, 1)}
}

// settle delivers the outcome at most once. The channel is buffered so a
// waiter that stopped listening never blocks the coordinator.
func (w *renewalWaiter) settle(outcome renewalOutcome) bool {
	if !w.settled.CompareAndSwap(false, true) {
		return false
	}
	w.done <- outcome
	return true
}

func (w *renewalWaiter) wait(ctx context.Context) (Credential, error) {
	select {
	case outcome := <-w.done:
		return outcome.credential, outcome.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
