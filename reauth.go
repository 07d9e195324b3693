package reauth

import (
	"github.com/goliatone/go-reauth/core"
	"github.com/goliatone/go-reauth/transport"
)

type Config = core.Config

type Option = core.Option

type Client = core.Client

type Credential = core.Credential
type CredentialStore = core.CredentialStore
type Request = core.Request
type Response = core.Response
type ResponseError = core.ResponseError
type NormalizedError = core.NormalizedError
type Transport = core.Transport
type Signer = core.Signer
type SessionHook = core.SessionHook
type SessionEvent = core.SessionEvent
type SessionStatus = core.SessionStatus

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithTransport          = core.WithTransport
	WithTransportFactory   = core.WithTransportFactory
	WithCredentialStore    = core.WithCredentialStore
	WithSigner             = core.WithSigner
	WithSessionHook        = core.WithSessionHook
	WithRequestIDGenerator = core.WithRequestIDGenerator
	WithClock              = core.WithClock

	NewRequest     = core.NewRequest
	NewJSONRequest = core.NewJSONRequest
	NormalizeError = core.NormalizeError
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// New builds a Client. Unless WithTransport is given, the transport named by
// transport.kind is built from the default registry.
func New(cfg Config, opts ...Option) (*Client, error) {
	return NewWithRegistry(cfg, transport.NewDefaultRegistry(), opts...)
}

func NewWithRegistry(cfg Config, registry *transport.Registry, opts ...Option) (*Client, error) {
	if registry == nil {
		registry = transport.NewDefaultRegistry()
	}
	base := []Option{
		core.WithTransportFactory(func(resolved core.Config) (core.Transport, error) {
			adapter, err := registry.Build(resolved)
			if err != nil {
				return nil, err
			}
			return adapter, nil
		}),
	}
	return core.NewClient(cfg, append(base, opts...)...)
}
