package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
	"github.com/google/uuid"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type clientBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	transport       Transport
	transportFn     TransportFactory
	credentialStore CredentialStore
	signer          Signer
	sessionHooks    []SessionHook
	requestIDFn     func() string
	nowFn           func() time.Time
}

type Option func(*clientBuilder)

func WithLogger(logger Logger) Option {
	return func(b *clientBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *clientBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *clientBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *clientBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *clientBuilder) {
		b.optionsResolver = resolver
	}
}

func WithTransport(transport Transport) Option {
	return func(b *clientBuilder) {
		b.transport = transport
	}
}

// TransportFactory builds a transport from the resolved config. It is only
// consulted when no transport was set with WithTransport.
type TransportFactory func(cfg Config) (Transport, error)

func WithTransportFactory(factory TransportFactory) Option {
	return func(b *clientBuilder) {
		b.transportFn = factory
	}
}

func WithCredentialStore(store CredentialStore) Option {
	return func(b *clientBuilder) {
		b.credentialStore = store
	}
}

func WithSigner(signer Signer) Option {
	return func(b *clientBuilder) {
		b.signer = signer
	}
}

// WithSessionHook subscribes a hook to session lifecycle events, including
// the session.ended event fired when renewal fails.
func WithSessionHook(hook SessionHook) Option {
	return func(b *clientBuilder) {
		if hook != nil {
			b.sessionHooks = append(b.sessionHooks, hook)
		}
	}
}

func WithRequestIDGenerator(fn func() string) Option {
	return func(b *clientBuilder) {
		b.requestIDFn = fn
	}
}

func WithClock(nowFn func() time.Time) Option {
	return func(b *clientBuilder) {
		b.nowFn = nowFn
	}
}

func defaultClientBuilder(runtime Config) clientBuilder {
	return clientBuilder{
		runtimeConfig:   runtime,
		metricsRecorder: NopMetricsRecorder{},
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		requestIDFn:     uuid.NewString,
		nowFn:           func() time.Time { return time.Now().UTC() },
	}
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// StaticConfigLoader serves a fixed raw config map, typically decoded from a
// file by the host application.
func StaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults < loaded config < runtime config.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.BaseURL) != "" {
		layer["base_url"] = cfg.BaseURL
	}

	auth := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Auth.RefreshPath) != "" {
		auth["refresh_path"] = cfg.Auth.RefreshPath
	}
	if includeZero || strings.TrimSpace(cfg.Auth.RefreshMethod) != "" {
		auth["refresh_method"] = cfg.Auth.RefreshMethod
	}
	if includeZero || strings.TrimSpace(cfg.Auth.TokenField) != "" {
		auth["token_field"] = cfg.Auth.TokenField
	}
	if includeZero || strings.TrimSpace(cfg.Auth.HeaderName) != "" {
		auth["header_name"] = cfg.Auth.HeaderName
	}
	if includeZero || strings.TrimSpace(cfg.Auth.Scheme) != "" {
		auth["scheme"] = cfg.Auth.Scheme
	}
	if includeZero || len(cfg.Auth.UnauthorizedStatuses) > 0 {
		auth["unauthorized_statuses"] = append([]int(nil), cfg.Auth.UnauthorizedStatuses...)
	}
	if includeZero || cfg.Auth.RenewalTimeout > 0 {
		auth["renewal_timeout"] = cfg.Auth.RenewalTimeout
	}
	if len(auth) > 0 {
		layer["auth"] = auth
	}

	transport := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Transport.Kind) != "" {
		transport["kind"] = cfg.Transport.Kind
	}
	if includeZero || cfg.Transport.Timeout > 0 {
		transport["timeout"] = cfg.Transport.Timeout
	}
	if includeZero || cfg.Transport.MaxResponseBodyBytes > 0 {
		transport["max_response_body_bytes"] = cfg.Transport.MaxResponseBodyBytes
	}
	if includeZero || cfg.Transport.RetryMax > 0 {
		transport["retry_max"] = cfg.Transport.RetryMax
	}
	if includeZero || cfg.Transport.RetryWaitMin > 0 {
		transport["retry_wait_min"] = cfg.Transport.RetryWaitMin
	}
	if includeZero || cfg.Transport.RetryWaitMax > 0 {
		transport["retry_wait_max"] = cfg.Transport.RetryWaitMax
	}
	if includeZero || cfg.Transport.DisableCookieJar {
		transport["disable_cookie_jar"] = cfg.Transport.DisableCookieJar
	}
	if includeZero || cfg.Transport.RateLimit > 0 {
		transport["rate_limit"] = cfg.Transport.RateLimit
	}
	if includeZero || cfg.Transport.RateBurst > 0 {
		transport["rate_burst"] = cfg.Transport.RateBurst
	}
	if len(transport) > 0 {
		layer["transport"] = transport
	}

	if includeZero || strings.TrimSpace(cfg.Errors.DefaultMessage) != "" {
		layer["errors"] = map[string]any{
			"default_message": cfg.Errors.DefaultMessage,
		}
	}
	return layer
}

// ResolveConfig runs the same load and merge steps NewClient performs, for
// hosts that need the effective config before building a transport.
func ResolveConfig(ctx context.Context, runtime Config, provider ConfigProvider, resolver OptionsResolver) (Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	resolved, err := resolver.Resolve(defaults, loaded, runtime)
	if err != nil {
		return Config{}, err
	}
	return resolved.normalized(), nil
}
