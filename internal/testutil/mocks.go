// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the smartcapi client shell.
package testutil

import (
	"context"
	"errors"
	"sync"

	"smartcapi-client/internal/domain"
)

// Common test errors
var (
	ErrMockStoreWrite = errors.New("mock: quota exceeded")
	ErrMockStoreRead  = errors.New("mock: storage read failed")
	ErrMockNetwork    = errors.New("mock: connection refused")
)

// MockCredentialStore implements domain.CredentialStore for testing
type MockCredentialStore struct {
	mu sync.RWMutex

	// Function overrides - set these to customize behavior
	GetFunc    func(ctx context.Context, key string) (string, bool, error)
	SetFunc    func(ctx context.Context, key, value string) error
	RemoveFunc func(ctx context.Context, key string) error
	PingFunc   func(ctx context.Context) error

	// In-memory storage for simple tests
	Entries map[string]string

	// Call tracking
	SetCalls    []string
	RemoveCalls []string
}

// NewMockCredentialStore creates a new MockCredentialStore with initialized maps
func NewMockCredentialStore() *MockCredentialStore {
	return &MockCredentialStore{
		Entries: make(map[string]string),
	}
}

func (m *MockCredentialStore) Get(ctx context.Context, key string) (string, bool, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.Entries[key]
	return v, ok, nil
}

func (m *MockCredentialStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	m.SetCalls = append(m.SetCalls, key)
	m.mu.Unlock()

	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Entries == nil {
		m.Entries = make(map[string]string)
	}
	m.Entries[key] = value
	return nil
}

func (m *MockCredentialStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	m.RemoveCalls = append(m.RemoveCalls, key)
	m.mu.Unlock()

	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Entries, key)
	return nil
}

func (m *MockCredentialStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Snapshot returns a copy of the stored entries
func (m *MockCredentialStore) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.Entries))
	for k, v := range m.Entries {
		out[k] = v
	}
	return out
}

// FailWrites makes every Set and Remove return ErrMockStoreWrite
func (m *MockCredentialStore) FailWrites() {
	m.SetFunc = func(ctx context.Context, key, value string) error { return ErrMockStoreWrite }
	m.RemoveFunc = func(ctx context.Context, key string) error { return ErrMockStoreWrite }
}

// MockAuthenticator implements domain.Authenticator for testing
type MockAuthenticator struct {
	mu sync.Mutex

	AuthenticateFunc func(ctx context.Context, username, password string) (*domain.AuthResponse, error)

	// Response/Err are used when AuthenticateFunc is nil
	Response *domain.AuthResponse
	Err      error

	Calls int
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, username, password string) (*domain.AuthResponse, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()

	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, username, password)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

// MockDetailedError implements domain.DetailedError
type MockDetailedError struct {
	Detail string
}

func (e *MockDetailedError) Error() string      { return "mock login rejected: " + e.Detail }
func (e *MockDetailedError) UserDetail() string { return e.Detail }

// StaticSession implements guard.SessionSource with a fixed session
type StaticSession struct {
	Session domain.Session
}

func (s StaticSession) Current() domain.Session {
	return s.Session
}
