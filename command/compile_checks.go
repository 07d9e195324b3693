package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[LoginMessage]  = (*LoginCommand)(nil)
	_ gocmd.Commander[LogoutMessage] = (*LogoutCommand)(nil)
	_ gocmd.Commander[RenewMessage]  = (*RenewCommand)(nil)
)
