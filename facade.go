package reauth

import (
	"fmt"

	"github.com/goliatone/go-command/runner"
	"github.com/goliatone/go-reauth/adapters/gocommand"
	reauthcommand "github.com/goliatone/go-reauth/command"
	reauthquery "github.com/goliatone/go-reauth/query"
)

type SessionService interface {
	reauthcommand.SessionService
	reauthquery.SessionStatusReader
}

type Commands struct {
	Login  *reauthcommand.LoginCommand
	Logout *reauthcommand.LogoutCommand
	Renew  *reauthcommand.RenewCommand
}

type Queries struct {
	SessionStatus *reauthquery.SessionStatusQuery
	// SessionEvents is nil unless an event reader was configured.
	SessionEvents *reauthquery.SessionEventsQuery
}

type Facade struct {
	service  SessionService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	eventReader reauthquery.SessionEventReader
}

// WithSessionEventReader exposes recorded session events, for example from
// sqlstore.SessionEventStore.
func WithSessionEventReader(reader reauthquery.SessionEventReader) FacadeOption {
	return func(options *facadeOptions) {
		options.eventReader = reader
	}
}

func NewFacade(service SessionService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("reauth: session service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.eventReader == nil {
		if reader, ok := service.(reauthquery.SessionEventReader); ok {
			cfg.eventReader = reader
		}
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Login:  reauthcommand.NewLoginCommand(service),
		Logout: reauthcommand.NewLogoutCommand(service),
		Renew:  reauthcommand.NewRenewCommand(service),
	}
	facade.queries = Queries{
		SessionStatus: reauthquery.NewSessionStatusQuery(service),
	}
	if cfg.eventReader != nil {
		facade.queries.SessionEvents = reauthquery.NewSessionEventsQuery(cfg.eventReader)
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() SessionService {
	if f == nil {
		return nil
	}
	return f.service
}

// Register subscribes every handler on the go-command dispatcher. Call
// Unsubscribe on the result when the client is torn down.
func (f *Facade) Register(adapter *gocommand.RegistryAdapter, runnerOpts ...runner.Option) (gocommand.Subscriptions, error) {
	if f == nil {
		return nil, fmt.Errorf("reauth: facade is nil")
	}
	return gocommand.RegisterSessionHandlers(adapter, gocommand.SessionHandlers{
		Login:         f.commands.Login,
		Logout:        f.commands.Logout,
		Renew:         f.commands.Renew,
		SessionStatus: f.queries.SessionStatus,
		SessionEvents: f.queries.SessionEvents,
	}, runnerOpts...)
}
