package credential

import (
	"context"
	"errors"
	"sync"
)

// ErrNoCredential is returned by Store.Read when no credential is stored.
var ErrNoCredential = errors.New("credential: no credential stored")

// Store persists the opaque bearer credential. Implementations must be safe
// for concurrent use. Persistent backends (keychain, preferences) live
// outside this module; MemoryStore covers tests and hosts that manage
// persistence themselves.
type Store interface {
	// Read returns the stored credential, or ErrNoCredential if absent.
	Read(ctx context.Context) (string, error)
	// Write replaces the stored credential.
	Write(ctx context.Context, token string) error
	// Clear removes the stored credential.
	Clear(ctx context.Context) error
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
	set   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith creates an in-memory store seeded with a credential.
func NewMemoryStoreWith(token string) *MemoryStore {
	return &MemoryStore{token: token, set: true}
}

// Read implements Store.
func (s *MemoryStore) Read(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.set {
		return "", ErrNoCredential
	}
	return s.token, nil
}

// Write implements Store.
func (s *MemoryStore) Write(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.set = true
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.set = false
	return nil
}
