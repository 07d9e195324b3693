package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-reauth/core"
)

const credentialCacheKeyPrefix = "go-reauth::credential::v1"

// CachedCredentialStore serves credential reads from cache and invalidates
// on every write, so a renewal is visible to the next Get.
//
// Entries are keyed by a write generation. A read that fetched from the base
// store before a write can only fill the previous generation's key, which no
// later Get consults.
type CachedCredentialStore struct {
	base     core.CredentialStore
	cache    repositorycache.CacheService
	cacheKey string

	mu         sync.Mutex
	generation uint64
}

func NewCachedCredentialStore(
	base core.CredentialStore,
	cacheService repositorycache.CacheService,
	sessionKey string,
) (*CachedCredentialStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base credential store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: credential cache service is required")
	}
	return &CachedCredentialStore{
		base:     base,
		cache:    cacheService,
		cacheKey: CredentialCacheKey(sessionKey),
	}, nil
}

// CredentialCacheKey returns go-reauth::credential::v1::<session_key> with the
// session key URL-path escaped.
func CredentialCacheKey(sessionKey string) string {
	sessionKey = strings.TrimSpace(sessionKey)
	if sessionKey == "" {
		sessionKey = DefaultSessionKey
	}
	return credentialCacheKeyPrefix + "::" + url.PathEscape(sessionKey)
}

func (s *CachedCredentialStore) Get(ctx context.Context) (core.Credential, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return "", fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, s.currentKey(), func(ctx context.Context) (core.Credential, error) {
		return s.base.Get(ctx)
	})
}

func (s *CachedCredentialStore) Set(ctx context.Context, credential core.Credential) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	if err := s.base.Set(ctx, credential); err != nil {
		return err
	}
	return s.invalidate(ctx)
}

func (s *CachedCredentialStore) Clear(ctx context.Context, reason string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	if err := s.base.Clear(ctx, reason); err != nil {
		return err
	}
	return s.invalidate(ctx)
}

func (s *CachedCredentialStore) currentKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generationKey(s.generation)
}

// invalidate must run after the base write so the next generation only ever
// fetches the written value.
func (s *CachedCredentialStore) invalidate(ctx context.Context) error {
	s.mu.Lock()
	stale := s.generationKey(s.generation)
	s.generation++
	s.mu.Unlock()
	return s.cache.Delete(ctx, stale)
}

func (s *CachedCredentialStore) generationKey(generation uint64) string {
	return s.cacheKey + "::g" + strconv.FormatUint(generation, 10)
}
