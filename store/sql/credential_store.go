package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-reauth/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const DefaultSessionKey = "default"

// CredentialStore persists one credential per session key. A cleared row is
// kept with its reason so the last logout stays inspectable.
type CredentialStore struct {
	db         *bun.DB
	repo       repository.Repository[*credentialRecord]
	sessionKey string
	secrets    core.SecretProvider
	now        func() time.Time
}

type CredentialStoreOption func(*CredentialStore)

func WithSessionKey(key string) CredentialStoreOption {
	return func(s *CredentialStore) {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			s.sessionKey = trimmed
		}
	}
}

// WithSecretProvider seals tokens before they reach the database.
func WithSecretProvider(provider core.SecretProvider) CredentialStoreOption {
	return func(s *CredentialStore) {
		s.secrets = provider
	}
}

func WithStoreClock(now func() time.Time) CredentialStoreOption {
	return func(s *CredentialStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewCredentialStore(db *bun.DB, opts ...CredentialStoreOption) (*CredentialStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*credentialRecord](db, credentialHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid credential repository wiring: %w", err)
		}
	}
	store := &CredentialStore{
		db:         db,
		repo:       repo,
		sessionKey: DefaultSessionKey,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

// ForSession returns a store bound to another session key sharing the same
// database and secret provider.
func (s *CredentialStore) ForSession(key string) *CredentialStore {
	if s == nil {
		return nil
	}
	cloned := *s
	cloned.sessionKey = DefaultSessionKey
	if trimmed := strings.TrimSpace(key); trimmed != "" {
		cloned.sessionKey = trimmed
	}
	return &cloned
}

func (s *CredentialStore) SessionKey() string {
	if s == nil {
		return ""
	}
	return s.sessionKey
}

func (s *CredentialStore) Get(ctx context.Context) (core.Credential, error) {
	if s == nil || s.repo == nil {
		return "", fmt.Errorf("sqlstore: credential store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("session_key", "=", s.sessionKey),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", nil
	}
	record := records[0]
	if record.Status != credentialStatusActive || record.Token == "" {
		return "", nil
	}
	return s.openToken(ctx, record.Token)
}

func (s *CredentialStore) Set(ctx context.Context, credential core.Credential) error {
	if s == nil || s.repo == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	if credential.IsZero() {
		return fmt.Errorf("sqlstore: credential is required")
	}
	token, err := s.sealToken(ctx, credential)
	if err != nil {
		return err
	}
	now := s.now()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &credentialRecord{}
		selectErr := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.session_key = ?", s.sessionKey).
			Limit(1).
			Scan(ctx)
		if errors.Is(selectErr, sql.ErrNoRows) {
			_, createErr := s.repo.CreateTx(ctx, tx, &credentialRecord{
				ID:         uuid.NewString(),
				SessionKey: s.sessionKey,
				Token:      token,
				Status:     credentialStatusActive,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
			return createErr
		}
		if selectErr != nil {
			return selectErr
		}
		_, updateErr := tx.NewUpdate().
			Model((*credentialRecord)(nil)).
			Set("token = ?", token).
			Set("status = ?", credentialStatusActive).
			Set("cleared_reason = ?", "").
			Set("updated_at = ?", now).
			Where("session_key = ?", s.sessionKey).
			Exec(ctx)
		return updateErr
	})
}

func (s *CredentialStore) Clear(ctx context.Context, reason string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	_, err := s.db.NewUpdate().
		Model((*credentialRecord)(nil)).
		Set("token = ?", "").
		Set("status = ?", credentialStatusCleared).
		Set("cleared_reason = ?", strings.TrimSpace(reason)).
		Set("updated_at = ?", s.now()).
		Where("session_key = ?", s.sessionKey).
		Exec(ctx)
	return err
}

// LastClearReason returns the reason recorded by the latest Clear, or "" while
// the session is active or was never stored.
func (s *CredentialStore) LastClearReason(ctx context.Context) (string, error) {
	if s == nil || s.repo == nil {
		return "", fmt.Errorf("sqlstore: credential store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("session_key", "=", s.sessionKey),
		repository.SelectBy("status", "=", credentialStatusCleared),
		repository.SelectPaginate(1, 0),
	)
	if err != nil || len(records) == 0 {
		return "", err
	}
	return records[0].ClearedReason, nil
}

func (s *CredentialStore) sealToken(ctx context.Context, credential core.Credential) (string, error) {
	plain := strings.TrimSpace(credential.String())
	if s.secrets == nil {
		return plain, nil
	}
	sealed, err := s.secrets.Encrypt(ctx, []byte(plain))
	if err != nil {
		return "", fmt.Errorf("sqlstore: seal credential: %w", err)
	}
	return string(sealed), nil
}

func (s *CredentialStore) openToken(ctx context.Context, stored string) (core.Credential, error) {
	if s.secrets == nil {
		return core.Credential(stored), nil
	}
	opened, err := s.secrets.Decrypt(ctx, []byte(stored))
	if err != nil {
		return "", fmt.Errorf("sqlstore: open credential: %w", err)
	}
	return core.Credential(opened), nil
}
