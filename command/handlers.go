package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-reauth/core"
)

type SessionService interface {
	Login(ctx context.Context, credential core.Credential) error
	Logout(ctx context.Context, reason string) error
	Renew(ctx context.Context) (core.Credential, error)
}

type LoginCommand struct {
	service SessionService
}

func NewLoginCommand(service SessionService) *LoginCommand {
	return &LoginCommand{service: service}
}

func (c *LoginCommand) Execute(ctx context.Context, msg LoginMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.service.Login(ctx, msg.Credential)
}

type LogoutCommand struct {
	service SessionService
}

func NewLogoutCommand(service SessionService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

func (c *LogoutCommand) Execute(ctx context.Context, msg LogoutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: logout service is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.service.Logout(ctx, msg.Reason)
}

// RenewCommand stores the fresh credential in the context result collector
// when one is attached.
type RenewCommand struct {
	service SessionService
}

func NewRenewCommand(service SessionService) *RenewCommand {
	return &RenewCommand{service: service}
}

func (c *RenewCommand) Execute(ctx context.Context, msg RenewMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: renew service is required")
	}
	credential, err := c.service.Renew(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, credential)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
