package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates query ids "<prefix>-1", "<prefix>-2", ... so that
// log output is deterministic in tests.
//
// Thread-safety: all methods are safe for concurrent use.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int
}

// NewSequentialIDs creates a generator. An empty prefix means "query".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "query"
	}
	return &SequentialIDs{prefix: prefix}
}

// Next returns the next id.
func (g *SequentialIDs) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Reset starts the sequence over.
func (g *SequentialIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
