package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	credentialStatusActive  = "active"
	credentialStatusCleared = "cleared"
)

type credentialRecord struct {
	bun.BaseModel `bun:"table:reauth_credentials,alias:rcr"`

	ID            string    `bun:"id,pk"`
	SessionKey    string    `bun:"session_key,notnull"`
	Token         string    `bun:"token,notnull"`
	Status        string    `bun:"status,notnull"`
	ClearedReason string    `bun:"cleared_reason,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type sessionEventRecord struct {
	bun.BaseModel `bun:"table:reauth_session_events,alias:rse"`

	ID         string    `bun:"id,pk"`
	SessionKey string    `bun:"session_key,notnull"`
	EventType  string    `bun:"event_type,notnull"`
	Reason     string    `bun:"reason,notnull"`
	Cycle      int64     `bun:"cycle,notnull"`
	Error      string    `bun:"error,notnull"`
	OccurredAt time.Time `bun:"occurred_at,nullzero,notnull,default:current_timestamp"`
}
