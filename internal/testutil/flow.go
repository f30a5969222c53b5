package testutil

import (
	"fmt"
	"sync"
)

// SequentialFlowGenerator issues prefix-1, prefix-2, ... so traces are
// deterministic without declaring every token up front.
//
// Safe for concurrent use.
type SequentialFlowGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialFlowGenerator defaults the prefix to "flow".
func NewSequentialFlowGenerator(prefix string) *SequentialFlowGenerator {
	if prefix == "" {
		prefix = "flow"
	}
	return &SequentialFlowGenerator{prefix: prefix}
}

// Generate implements engine.FlowTokenGenerator.
func (g *SequentialFlowGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
