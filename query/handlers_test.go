package query

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-reauth/core"
)

type stubStatusReader struct {
	status core.SessionStatus
	err    error
}

func (s stubStatusReader) Status(context.Context) (core.SessionStatus, error) {
	return s.status, s.err
}

type stubEventReader struct {
	limit  int
	events []core.SessionEvent
}

func (s *stubEventReader) Recent(_ context.Context, limit int) ([]core.SessionEvent, error) {
	s.limit = limit
	return s.events, nil
}

func TestSessionStatusQuery_DelegatesToReader(t *testing.T) {
	renewedAt := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	q := NewSessionStatusQuery(stubStatusReader{status: core.SessionStatus{
		Authenticated: true,
		State:         core.RenewalStateIdle,
		Cycles:        2,
		LastRenewedAt: &renewedAt,
	}})

	status, err := q.Query(context.Background(), SessionStatusMessage{})
	if err != nil {
		t.Fatalf("query status: %v", err)
	}
	if !status.Authenticated || status.Cycles != 2 || !status.LastRenewedAt.Equal(renewedAt) {
		t.Fatalf("unexpected status: %#v", status)
	}
}

func TestSessionStatusQuery_PropagatesReaderError(t *testing.T) {
	failure := errors.New("store offline")
	q := NewSessionStatusQuery(stubStatusReader{err: failure})
	if _, err := q.Query(context.Background(), SessionStatusMessage{}); !errors.Is(err, failure) {
		t.Fatalf("expected reader error, got %v", err)
	}
}

func TestSessionEventsQuery_ValidatesLimit(t *testing.T) {
	reader := &stubEventReader{events: []core.SessionEvent{{Type: core.SessionEventEnded}}}
	q := NewSessionEventsQuery(reader)

	events, err := q.Query(context.Background(), SessionEventsMessage{Limit: 5})
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	if reader.limit != 5 || len(events) != 1 || events[0].Type != core.SessionEventEnded {
		t.Fatalf("unexpected events %#v (limit %d)", events, reader.limit)
	}

	_, err = q.Query(context.Background(), SessionEventsMessage{Limit: -1})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.ReauthErrorBadInput {
		t.Fatalf("expected bad input envelope, got %v", err)
	}
}

func TestQueries_NilReaderReturnsRichError(t *testing.T) {
	var statusQuery *SessionStatusQuery
	_, err := statusQuery.Query(context.Background(), SessionStatusMessage{})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal envelope, got %v", err)
	}

	_, err = NewSessionEventsQuery(nil).Query(context.Background(), SessionEventsMessage{})
	if !goerrors.As(err, &rich) || rich.TextCode != core.ReauthErrorInternal {
		t.Fatalf("expected internal envelope, got %v", err)
	}
}
