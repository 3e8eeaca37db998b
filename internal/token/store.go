// Package token persists short-lived authorization tokens.
//
// A token pre-authorizes one risky intent until it expires. The store
// is a single JSON array rewritten atomically on every mutation. The
// mutex covers in-process callers only; there is no cross-process file
// locking, an accepted limitation for a single-user local tool.
package token

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RazorglintLabs/command-guardian/internal/canonical"
	"github.com/RazorglintLabs/command-guardian/internal/classify"
)

// DefaultTTL is used when the caller does not specify a lifetime.
const DefaultTTL = 60 * time.Second

// Token is one stored authorization. DecisionHash detects accidental
// corruption of the token file, not adversarial tampering.
type Token struct {
	TokenID      string `json:"token_id"`
	Intent       string `json:"intent"`
	IssuedAt     string `json:"issued_at"`
	ExpiresAt    string `json:"expires_at"`
	TTL          int    `json:"ttl"`
	DecisionHash string `json:"decision_hash,omitempty"`
}

// Store manages the token file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a Store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the default token file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "command-guardian-tokens.json")
	}
	return filepath.Join(home, ".command-guardian", "tokens.json")
}

// Issue creates, persists, and returns a new token for intent.
// Multiple live tokens per intent may coexist; there is no
// de-duplication. ttl is truncated to whole seconds.
func (s *Store) Issue(intent classify.Intent, ttl time.Duration) (*Token, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	t := Token{
		TokenID:   newTokenID(),
		Intent:    string(intent),
		IssuedAt:  now.Format(time.RFC3339Nano),
		ExpiresAt: now.Add(ttl).Format(time.RFC3339Nano),
		TTL:       int(ttl / time.Second),
	}
	hash, err := canonical.Hash(t)
	if err != nil {
		return nil, fmt.Errorf("token: hash: %w", err)
	}
	t.DecisionHash = hash

	tokens, err := s.load()
	if err != nil {
		return nil, err
	}
	tokens = append(tokens, t)
	if err := s.save(tokens); err != nil {
		return nil, err
	}
	return &t, nil
}

// FindValid returns the first stored token for intent whose expiry is
// strictly in the future, or nil if none. Lookup never mutates the
// store.
func (s *Store) FindValid(intent classify.Intent) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	for i := range tokens {
		if tokens[i].Intent != string(intent) {
			continue
		}
		exp, err := time.Parse(time.RFC3339Nano, tokens[i].ExpiresAt)
		if err != nil {
			continue
		}
		if exp.After(now) {
			return &tokens[i], nil
		}
	}
	return nil, nil
}

// PruneExpired removes every token whose expiry has passed and returns
// how many were removed. Tokens with unparseable expiries are pruned.
func (s *Store) PruneExpired() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens, err := s.load()
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	kept := tokens[:0]
	removed := 0
	for _, t := range tokens {
		exp, err := time.Parse(time.RFC3339Nano, t.ExpiresAt)
		if err == nil && exp.After(now) {
			kept = append(kept, t)
		} else {
			removed++
		}
	}
	if removed > 0 {
		if err := s.save(kept); err != nil {
			return 0, err
		}
	}
	return removed, nil
}

func (s *Store) load() ([]Token, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("token: read store: %w", err)
	}
	var tokens []Token
	if err := json.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("token: parse store: %w", err)
	}
	return tokens, nil
}

func (s *Store) save(tokens []Token) error {
	if tokens == nil {
		tokens = []Token{}
	}
	data, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("token: marshal store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("token: create directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("token: write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("token: replace store: %w", err)
	}
	return nil
}

// newTokenID returns 16 hex characters derived from a random UUID.
func newTokenID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
