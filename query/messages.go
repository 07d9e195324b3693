package query

const (
	TypeSessionStatus = "reauth.query.session.status"
	TypeSessionEvents = "reauth.query.session.events"
)

type SessionStatusMessage struct{}

func (SessionStatusMessage) Type() string { return TypeSessionStatus }

func (SessionStatusMessage) Validate() error { return nil }

// SessionEventsMessage lists recorded session events, newest first. Limit
// defaults to the reader's page size when zero.
type SessionEventsMessage struct {
	Limit int
}

func (SessionEventsMessage) Type() string { return TypeSessionEvents }

func (m SessionEventsMessage) Validate() error {
	if m.Limit < 0 {
		return queryValidationError("limit", "limit must not be negative")
	}
	if m.Limit > maxEventsLimit {
		return queryValidationError("limit", "limit is too large")
	}
	return nil
}

const maxEventsLimit = 500
