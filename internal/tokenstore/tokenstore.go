// Package tokenstore keeps the exam client's bearer token in a private file.
package tokenstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken      = errors.New("not logged in")
	ErrTokenExpired = errors.New("login expired")
)

// Store is a file-backed token. The signature is never verified here; the
// server does that. Expiry is read only to fail fast before a request.
type Store struct {
	path string
	now  func() time.Time

	mu     sync.Mutex
	cached string
}

// New creates a Store at path. The file is created on Save.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Save writes the token with 0600 permissions.
func (s *Store) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNoToken
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create token dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	s.mu.Lock()
	s.cached = token
	s.mu.Unlock()
	return nil
}

// Load reads the stored token without checking expiry.
func (s *Store) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached != "" {
		return s.cached, nil
	}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrNoToken
	}
	s.cached = token
	return token, nil
}

// Clear removes the stored token.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.cached = ""
	s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// Token returns the stored token, or ErrTokenExpired when its exp claim has passed.
func (s *Store) Token() (string, error) {
	token, err := s.Load()
	if err != nil {
		return "", err
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt != nil && !s.now().Before(claims.ExpiresAt.Time) {
		return "", ErrTokenExpired
	}
	return token, nil
}
