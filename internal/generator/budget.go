package generator

import (
	"sync"

	"github.com/pageforge-ai/pageforge/pkg/types"
)

// DefaultTokenLimit is used when no limit is configured.
const DefaultTokenLimit = 30000

// Budget is the server-side token ledger. Generation steps consume from
// it; the remaining count is reported on the stream and via the tokens
// endpoint.
type Budget struct {
	mu    sync.Mutex
	limit int
	used  int
}

// NewBudget creates a budget with the given limit. A non-positive limit
// falls back to DefaultTokenLimit.
func NewBudget(limit int) *Budget {
	if limit <= 0 {
		limit = DefaultTokenLimit
	}
	return &Budget{limit: limit}
}

// Consume records n tokens as used.
func (b *Budget) Consume(n int) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	b.used += n
	b.mu.Unlock()
}

// Info returns the current counters. Remaining never goes below zero.
func (b *Budget) Info() types.TokenInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	remaining := b.limit - b.used
	if remaining < 0 {
		remaining = 0
	}
	return types.TokenInfo{Remaining: remaining, Limit: b.limit, Used: b.used}
}

// estimateTokens approximates the token count of text. Four characters
// per token is the rough heuristic the budget runs on.
func estimateTokens(text string) int {
	return len(text)/4 + 1
}
