package core

import (
	"context"
	"net/http"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// MemoryCredentialStore keeps the credential in process memory.
type MemoryCredentialStore struct {
	mu         sync.RWMutex
	credential Credential
	reason     string
}

func NewMemoryCredentialStore(initial Credential) *MemoryCredentialStore {
	return &MemoryCredentialStore{credential: Credential(strings.TrimSpace(string(initial)))}
}

func (s *MemoryCredentialStore) Get(context.Context) (Credential, error) {
	if s == nil {
		return "", nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential, nil
}

func (s *MemoryCredentialStore) Set(_ context.Context, credential Credential) error {
	if s == nil {
		return newReauthError("core: credential store is not configured", goerrors.CategoryInternal, http.StatusInternalServerError, ReauthErrorInternal)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = Credential(strings.TrimSpace(string(credential)))
	s.reason = ""
	return nil
}

func (s *MemoryCredentialStore) Clear(_ context.Context, reason string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = ""
	s.reason = strings.TrimSpace(reason)
	return nil
}

// LastClearReason returns the reason passed to the most recent Clear.
func (s *MemoryCredentialStore) LastClearReason() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}
