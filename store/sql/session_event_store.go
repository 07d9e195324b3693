package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-reauth/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionEventStore records session lifecycle events. Register it on the
// client with core.WithSessionHook to keep an audit trail of logins,
// renewals and forced logouts.
type SessionEventStore struct {
	repo       repository.Repository[*sessionEventRecord]
	sessionKey string
}

func NewSessionEventStore(db *bun.DB, sessionKey string) (*SessionEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*sessionEventRecord](db, sessionEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid session event repository wiring: %w", err)
		}
	}
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		sessionKey = DefaultSessionKey
	}
	return &SessionEventStore{repo: repo, sessionKey: sessionKey}, nil
}

func (s *SessionEventStore) Name() string {
	return "sqlstore.session_events"
}

func (s *SessionEventStore) OnSessionEvent(ctx context.Context, event core.SessionEvent) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: session event store is not configured")
	}
	if strings.TrimSpace(string(event.Type)) == "" {
		return fmt.Errorf("sqlstore: session event type is required")
	}
	occurredAt := event.OccurredAt.UTC()
	if event.OccurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	record := &sessionEventRecord{
		ID:         uuid.NewString(),
		SessionKey: s.sessionKey,
		EventType:  string(event.Type),
		Reason:     strings.TrimSpace(event.Reason),
		Cycle:      event.Cycle,
		OccurredAt: occurredAt,
	}
	if event.Err != nil {
		record.Error = event.Err.Error()
	}
	_, err := s.repo.Create(ctx, record)
	return err
}

// Recent returns up to limit events for the session, newest first.
func (s *SessionEventStore) Recent(ctx context.Context, limit int) ([]core.SessionEvent, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: session event store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("session_key", "=", s.sessionKey),
		repository.OrderBy("occurred_at DESC"),
		repository.SelectPaginate(limit, 0),
	)
	if err != nil {
		return nil, err
	}
	events := make([]core.SessionEvent, 0, len(records))
	for _, record := range records {
		event := core.SessionEvent{
			Type:       core.SessionEventType(record.EventType),
			Reason:     record.Reason,
			Cycle:      record.Cycle,
			OccurredAt: record.OccurredAt.UTC(),
		}
		if record.Error != "" {
			event.Err = errors.New(record.Error)
		}
		events = append(events, event)
	}
	return events, nil
}
