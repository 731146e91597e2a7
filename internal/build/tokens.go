package build

import (
	"sync"

	"github.com/pageforge-ai/pageforge/pkg/types"
)

// TokenTracker maintains the remaining/limit counters surfaced by the
// backend. It is fed from both the request-time token info and stream
// events, and is independent of session success or failure: a failed
// generation still consumed tokens.
type TokenTracker struct {
	mu   sync.RWMutex
	info types.TokenInfo
}

// NewTokenTracker creates an empty tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Set replaces the counters wholesale.
func (t *TokenTracker) Set(info types.TokenInfo) {
	t.mu.Lock()
	t.info = info
	t.mu.Unlock()
}

// Observe applies a token-bearing stream event, if it is one. Events are
// handed to Observe in applied order, which preserves last-write-wins.
func (t *TokenTracker) Observe(ev types.Event) {
	switch e := ev.(type) {
	case *types.TokensUpdateEvent:
		t.Set(types.TokenInfo{Remaining: e.RemainingTokens, Limit: e.TokenLimit})
	case *types.CompleteEvent:
		t.Set(types.TokenInfo{Remaining: e.RemainingTokens, Limit: e.TokenLimit, Used: e.TokensUsed})
	}
}

// Info returns the current counters.
func (t *TokenTracker) Info() types.TokenInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.info
}
