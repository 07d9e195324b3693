package command

import (
	"strings"

	"github.com/goliatone/go-reauth/core"
)

const (
	TypeLogin  = "reauth.command.login"
	TypeLogout = "reauth.command.logout"
	TypeRenew  = "reauth.command.renew"
)

// LoginMessage starts a session with a credential obtained by the host,
// typically from a login call sent with SkipRenewal.
type LoginMessage struct {
	Credential core.Credential
}

func (LoginMessage) Type() string { return TypeLogin }

func (m LoginMessage) Validate() error {
	if m.Credential.IsZero() {
		return commandValidationError("credential", "credential is required")
	}
	return nil
}

type LogoutMessage struct {
	Reason string
}

func (LogoutMessage) Type() string { return TypeLogout }

func (m LogoutMessage) Validate() error {
	if len(strings.TrimSpace(m.Reason)) > maxReasonLength {
		return commandValidationError("reason", "reason is too long")
	}
	return nil
}

// RenewMessage forces a renewal through the single-flight coordinator.
type RenewMessage struct{}

func (RenewMessage) Type() string { return TypeRenew }

func (RenewMessage) Validate() error { return nil }

const maxReasonLength = 255
