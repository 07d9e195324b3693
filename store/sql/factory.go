package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
)

// RepositoryFactory builds the SQL backed stores for one session key.
type RepositoryFactory struct {
	db      *bun.DB
	options []CredentialStoreOption

	credentialStore   *CredentialStore
	sessionEventStore *SessionEventStore
}

func NewRepositoryFactory(opts ...CredentialStoreOption) *RepositoryFactory {
	return &RepositoryFactory{options: opts}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...CredentialStoreOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...CredentialStoreOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// BuildStores accepts a *bun.DB or anything exposing DB() *bun.DB, such as a
// go-persistence-bun client.
func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.credentialStore != nil && f.sessionEventStore != nil {
		return nil
	}

	credentialStore, err := NewCredentialStore(f.db, f.options...)
	if err != nil {
		return err
	}
	sessionEventStore, err := NewSessionEventStore(f.db, credentialStore.SessionKey())
	if err != nil {
		return err
	}
	f.credentialStore = credentialStore
	f.sessionEventStore = sessionEventStore
	return nil
}

func (f *RepositoryFactory) CredentialStore() *CredentialStore {
	if f == nil {
		return nil
	}
	return f.credentialStore
}

func (f *RepositoryFactory) SessionEventStore() *SessionEventStore {
	if f == nil {
		return nil
	}
	return f.sessionEventStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
