package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-reauth/core"
)

var (
	_ gocmd.Querier[SessionStatusMessage, core.SessionStatus]  = (*SessionStatusQuery)(nil)
	_ gocmd.Querier[SessionEventsMessage, []core.SessionEvent] = (*SessionEventsQuery)(nil)
)
