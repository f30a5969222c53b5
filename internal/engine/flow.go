package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// FlowTokenGenerator generates tokens correlating a top-level dispatch with
// the operations it chains.
type FlowTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 flow tokens.
type UUIDv7Generator struct{}

// Generate panics only if the system random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined tokens in order, for tests.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate panics once the tokens are exhausted so a test that dispatches
// more flows than it declared fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}

type flowKey struct{}

// WithFlow returns ctx carrying flow. Operations begun with the returned
// context inherit the token instead of generating one.
func WithFlow(ctx context.Context, flow string) context.Context {
	return context.WithValue(ctx, flowKey{}, flow)
}

// FlowFrom returns the flow token carried by ctx, if any.
func FlowFrom(ctx context.Context) (string, bool) {
	flow, ok := ctx.Value(flowKey{}).(string)
	return flow, ok && flow != ""
}
