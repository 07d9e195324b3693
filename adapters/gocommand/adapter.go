package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	"github.com/goliatone/go-reauth/core"
	reauthcommand "github.com/goliatone/go-reauth/command"
	reauthquery "github.com/goliatone/go-reauth/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) register(handler any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(handler)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.register(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	if err := adapter.register(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// SessionHandlers groups the reauth commands and queries a host exposes on
// its dispatcher. Nil entries are skipped.
type SessionHandlers struct {
	Login         *reauthcommand.LoginCommand
	Logout        *reauthcommand.LogoutCommand
	Renew         *reauthcommand.RenewCommand
	SessionStatus *reauthquery.SessionStatusQuery
	SessionEvents *reauthquery.SessionEventsQuery
}

// Subscriptions unsubscribes every handler it holds at once.
type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, subscription := range s {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}

// RegisterSessionHandlers subscribes the handlers on the global dispatcher and
// records them in the adapter registry. On failure nothing stays subscribed.
func RegisterSessionHandlers(adapter *RegistryAdapter, handlers SessionHandlers, runnerOpts ...runner.Option) (Subscriptions, error) {
	subscriptions := Subscriptions{}
	track := func(subscription commanddispatcher.Subscription, err error) error {
		if err != nil {
			subscriptions.Unsubscribe()
			return err
		}
		subscriptions = append(subscriptions, subscription)
		return nil
	}

	if handlers.Login != nil {
		if err := track(RegisterAndSubscribe[reauthcommand.LoginMessage](adapter, handlers.Login, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.Logout != nil {
		if err := track(RegisterAndSubscribe[reauthcommand.LogoutMessage](adapter, handlers.Logout, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.Renew != nil {
		if err := track(RegisterAndSubscribe[reauthcommand.RenewMessage](adapter, handlers.Renew, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.SessionStatus != nil {
		if err := track(RegisterAndSubscribeQuery[reauthquery.SessionStatusMessage, core.SessionStatus](adapter, handlers.SessionStatus, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	if handlers.SessionEvents != nil {
		if err := track(RegisterAndSubscribeQuery[reauthquery.SessionEventsMessage, []core.SessionEvent](adapter, handlers.SessionEvents, runnerOpts...)); err != nil {
			return nil, err
		}
	}
	return subscriptions, nil
}
