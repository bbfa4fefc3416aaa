package connectors

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"
)

// oauthStateTTL is how long a generated authorization URL's state token
// remains redeemable before it is considered expired.
const oauthStateTTL = 10 * time.Minute

// oauthStateStore is the in-memory {put, takeIfValid, sweep} pending-state
// store described in spec.md §9: a generated state token is single-use and
// expires after oauthStateTTL, guarded by a mutex rather than backed by the
// storage adapter (it is short-lived, in-process data, not a tenant record).
type oauthStateStore struct {
	mu     sync.Mutex
	states map[string]PendingOAuthState
}

func newOAuthStateStore() *oauthStateStore {
	return &oauthStateStore{states: make(map[string]PendingOAuthState)}
}

// put stores pending under a freshly generated state token and returns it.
func (s *oauthStateStore) put(pending PendingOAuthState) (string, error) {
	token, err := generateStateToken()
	if err != nil {
		return "", err
	}
	pending.CreatedAt = now()

	s.mu.Lock()
	s.states[token] = pending
	s.mu.Unlock()

	return token, nil
}

// takeIfValid removes and returns the pending state for token if it exists
// and has not expired. Redemption is single-use: a second call with the
// same token always misses, whether or not the first call succeeded.
func (s *oauthStateStore) takeIfValid(token string) (PendingOAuthState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.states[token]
	delete(s.states, token)
	if !ok {
		return PendingOAuthState{}, false
	}
	if now().Sub(pending.CreatedAt) > oauthStateTTL {
		return PendingOAuthState{}, false
	}
	return pending, true
}

// sweep drops any states older than oauthStateTTL, returning how many were
// removed. Intended to be called periodically (see registry.go's cron
// wiring) so abandoned flows don't accumulate in memory indefinitely.
func (s *oauthStateStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	cutoff := now()
	for token, pending := range s.states {
		if cutoff.Sub(pending.CreatedAt) > oauthStateTTL {
			delete(s.states, token)
			removed++
		}
	}
	return removed
}

const stateTokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// generateStateToken returns a 32-character alphanumeric CSRF state token.
func generateStateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("connectors: generate oauth state: %w", err)
	}
	for i, b := range buf {
		buf[i] = stateTokenAlphabet[int(b)%len(stateTokenAlphabet)]
	}
	return string(buf), nil
}

// now is indirected so tests can deterministically control TTL expiry.
var now = time.Now
