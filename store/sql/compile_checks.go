package sqlstore

import "github.com/goliatone/go-reauth/core"

var (
	_ core.CredentialStore = (*CredentialStore)(nil)
	_ core.CredentialStore = (*CachedCredentialStore)(nil)
	_ core.SessionHook     = (*SessionEventStore)(nil)
)
