// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/wbru/vibematch/internal/auth"
)

// MemoryStore is an in-memory test double for [auth.Store].
type MemoryStore struct {
	mu      sync.Mutex
	cred    *auth.Credential
	saves   int
	loadErr error
	saveErr error
}

// NewMemoryStore creates a [MemoryStore] seeded with an optional credential.
func NewMemoryStore(cred *auth.Credential) *MemoryStore {
	return &MemoryStore{cred: cred}
}

// FailSaves makes every subsequent Save return err.
func (s *MemoryStore) FailSaves(err error) { s.saveErr = err }

// FailLoads makes every subsequent Load return err.
func (s *MemoryStore) FailLoads(err error) { s.loadErr = err }

func (s *MemoryStore) Load(ctx context.Context) (*auth.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.cred == nil {
		return nil, nil
	}
	c := *s.cred
	return &c, nil
}

func (s *MemoryStore) Save(ctx context.Context, cred *auth.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	c := *cred
	s.cred = &c
	return nil
}

// Saves returns how many times Save has been called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Credential returns the currently stored credential.
func (s *MemoryStore) Credential() *auth.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred
}

// StaticTokens is a test double for [spotify.TokenSource] returning a fixed
// token and counting invalidations.
type StaticTokens struct {
	mu           sync.Mutex
	token        string
	err          error
	invalidations int
}

// NewStaticTokens creates a [StaticTokens] returning token from every call.
func NewStaticTokens(token string) *StaticTokens {
	return &StaticTokens{token: token}
}

// NewFailingTokens creates a [StaticTokens] that fails every call with err.
func NewFailingTokens(err error) *StaticTokens {
	return &StaticTokens{err: err}
}

func (s *StaticTokens) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.token, nil
}

func (s *StaticTokens) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidations++
}

// Invalidations returns how many times Invalidate has been called.
func (s *StaticTokens) Invalidations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidations
}

// MockRoundTripper allows custom HTTP responses for testing.
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FWriter always returns an error on Write.
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}
