package core

import (
	"context"
	"testing"
)

func TestMemoryCredentialStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore("  seed  ")
	if got, _ := store.Get(ctx); got != "seed" {
		t.Fatalf("expected trimmed seed, got %q", got)
	}
	if err := store.Set(ctx, "next"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := store.Get(ctx); got != "next" {
		t.Fatalf("expected next, got %q", got)
	}
	if err := store.Clear(ctx, "expired"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	got, err := store.Get(ctx)
	if err != nil || !got.IsZero() {
		t.Fatalf("expected empty credential, got %q, %v", got, err)
	}
	if store.LastClearReason() != "expired" {
		t.Fatalf("expected clear reason, got %q", store.LastClearReason())
	}
}

func TestMemoryCredentialStore_NilReceiver(t *testing.T) {
	var store *MemoryCredentialStore
	if got, err := store.Get(context.Background()); err != nil || !got.IsZero() {
		t.Fatalf("expected empty credential from nil store")
	}
	if err := store.Set(context.Background(), "x"); err == nil {
		t.Fatalf("expected set on nil store to fail")
	}
}
