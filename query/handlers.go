package query

import (
	"context"

	"github.com/goliatone/go-reauth/core"
)

type SessionStatusReader interface {
	Status(ctx context.Context) (core.SessionStatus, error)
}

type SessionEventReader interface {
	Recent(ctx context.Context, limit int) ([]core.SessionEvent, error)
}

type SessionStatusQuery struct {
	reader SessionStatusReader
}

func NewSessionStatusQuery(reader SessionStatusReader) *SessionStatusQuery {
	return &SessionStatusQuery{reader: reader}
}

func (q *SessionStatusQuery) Query(ctx context.Context, _ SessionStatusMessage) (core.SessionStatus, error) {
	if q == nil || q.reader == nil {
		return core.SessionStatus{}, queryDependencyError("query: session status reader is required")
	}
	return q.reader.Status(ctx)
}

type SessionEventsQuery struct {
	reader SessionEventReader
}

func NewSessionEventsQuery(reader SessionEventReader) *SessionEventsQuery {
	return &SessionEventsQuery{reader: reader}
}

func (q *SessionEventsQuery) Query(ctx context.Context, msg SessionEventsMessage) ([]core.SessionEvent, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: session event reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return q.reader.Recent(ctx, msg.Limit)
}
