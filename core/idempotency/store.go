// Package idempotency deduplicates retried state-mutating requests. Every
// mutating operation accepts a caller-supplied opaque key scoped as
// "<action>:<uuid>"; a retry with the same key and body replays the cached
// response, a retry with a different body is a conflict.
package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/rosterd/core/model"
)

// DefaultTTL bounds how long cached responses are replayed.
const DefaultTTL = 24 * time.Hour

// Status describes how a key was resolved.
type Status string

const (
	StatusNew Status = "NEW"
	StatusHit Status = "HIT"
)

// Key builds a scoped idempotency key from a logical action name and a
// caller-supplied UUID.
func Key(action string, id uuid.UUID) string {
	return fmt.Sprintf("%s:%s", action, id)
}

type entry struct {
	bodyHash  string
	response  []byte
	expiresAt time.Time
}

// Store holds (key, body hash, response) with a bounded TTL.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// NewStore returns a store with the given TTL; ttl <= 0 uses DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{ttl: ttl, now: time.Now, entries: make(map[string]entry)}
}

// Check resolves key against the stored entries. An unseen key returns
// StatusNew; a matching body replays the cached response with StatusHit; a
// differing body fails with IDEMPOTENCY_MISMATCH.
func (s *Store) Check(key string, body []byte) (Status, []byte, error) {
	h := hashBody(body)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(now)

	e, ok := s.entries[key]
	if !ok {
		return StatusNew, nil, nil
	}
	if e.bodyHash != h {
		return "", nil, model.E(model.CodeIdempotencyMismatch, "idempotency key %q reused with a different request body", key).
			WithDetail("key", key)
	}
	return StatusHit, e.response, nil
}

// Save caches the response for key. It overwrites any previous entry.
func (s *Store) Save(key string, body, response []byte) {
	s.mu.Lock()
	s.entries[key] = entry{
		bodyHash:  hashBody(body),
		response:  append([]byte(nil), response...),
		expiresAt: s.now().Add(s.ttl),
	}
	s.mu.Unlock()
}

func (s *Store) purgeLocked(now time.Time) {
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}

func hashBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
