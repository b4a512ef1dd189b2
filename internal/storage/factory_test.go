package storage

import "testing"

func TestNewStoreKinds(t *testing.T) {
	store, err := NewStore("", "")
	if err != nil {
		t.Fatalf("default store: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("default store must be the memory backend, got %T", store)
	}

	if _, err := NewStore("redis", ""); err == nil {
		t.Fatal("expected error for unsupported backend")
	}

	if DefaultStoreKind() != "memory" {
		t.Fatalf("unexpected default store kind: %s", DefaultStoreKind())
	}
}

func TestCloseIfSupported(t *testing.T) {
	// The memory backend has no Close; the helper must treat it as a no-op.
	if err := CloseIfSupported(NewMemoryStore()); err != nil {
		t.Fatalf("close memory store: %v", err)
	}
}
