package engine

import (
	"context"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// Runtime is shared by every slice of one client: a single clock orders all
// dispatches, a single generator issues flow tokens.
type Runtime struct {
	clock    *Clock
	flows    FlowTokenGenerator
	recorder Recorder
	logger   *zap.SugaredLogger
	now      func() time.Time
}

// Option configures a Runtime.
type Option func(*Runtime)

func WithClock(c *Clock) Option {
	return func(r *Runtime) { r.clock = c }
}

func WithFlowGenerator(g FlowTokenGenerator) Option {
	return func(r *Runtime) { r.flows = g }
}

func WithRecorder(rec Recorder) Option {
	return func(r *Runtime) { r.recorder = rec }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithNow overrides the wall clock used for dispatch timestamps.
func WithNow(now func() time.Time) Option {
	return func(r *Runtime) { r.now = now }
}

// New creates a Runtime. Defaults: fresh clock, UUIDv7 flow tokens, no
// recording, no-op logger.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		clock:    NewClock(),
		flows:    UUIDv7Generator{},
		recorder: NopRecorder{},
		logger:   zap.NewNop().Sugar(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clock returns the runtime's logical clock.
func (r *Runtime) Clock() *Clock {
	return r.clock
}

// Logger returns the runtime's logger.
func (r *Runtime) Logger() *zap.SugaredLogger {
	return r.logger
}

// Op is one in-flight dispatch.
type Op struct {
	rt   *Runtime
	ctx  context.Context
	inv  Invocation
	done bool
}

// Begin dispatches op. The returned context carries the flow token; pass it
// to chained operations so they join the same flow. args must not contain
// secrets, they are journaled verbatim.
func (r *Runtime) Begin(ctx context.Context, op string, args map[string]any) (context.Context, *Op) {
	flow, ok := FlowFrom(ctx)
	if !ok {
		flow = r.flows.Generate()
		ctx = WithFlow(ctx, flow)
	}

	inv := Invocation{
		ID:        ksuid.New().String(),
		FlowToken: flow,
		Op:        op,
		Args:      args,
		Seq:       r.clock.Next(),
		At:        r.now().UTC(),
	}

	r.logger.Debugw("operation dispatched",
		"op", op,
		"flow", flow,
		"seq", inv.Seq,
	)
	if err := r.recorder.Dispatched(ctx, inv); err != nil {
		r.logger.Warnw("journal dispatch failed", "op", op, "flow", flow, "error", err)
	}

	return ctx, &Op{rt: r, ctx: ctx, inv: inv}
}

// Name returns the operation name.
func (o *Op) Name() string {
	return o.inv.Op
}

// Gen returns the generation the operation was dispatched with.
func (o *Op) Gen() int64 {
	return o.inv.Seq
}

// Flow returns the operation's flow token.
func (o *Op) Flow() string {
	return o.inv.FlowToken
}

// Finish records the completion; err == nil means success. Only the first
// Finish or Supersede call has an effect.
func (o *Op) Finish(err error) {
	if err != nil {
		o.complete(OutcomeError, err.Error())
		return
	}
	o.complete(OutcomeOK, "")
}

// Supersede records that the result arrived after a newer dispatch of the
// same kind and was not applied.
func (o *Op) Supersede() {
	o.complete(OutcomeSuperseded, "")
}

func (o *Op) complete(outcome Outcome, msg string) {
	if o.done {
		return
	}
	o.done = true

	comp := Completion{
		InvocationID: o.inv.ID,
		Op:           o.inv.Op,
		Outcome:      outcome,
		Message:      msg,
		Seq:          o.rt.clock.Next(),
	}

	log := o.rt.logger.Debugw
	if outcome == OutcomeError {
		log = o.rt.logger.Infow
	}
	log("operation completed",
		"op", o.inv.Op,
		"flow", o.inv.FlowToken,
		"outcome", outcome,
		"message", msg,
		"seq", comp.Seq,
	)

	if err := o.rt.recorder.Completed(o.ctx, comp); err != nil {
		o.rt.logger.Warnw("journal completion failed", "op", o.inv.Op, "error", err)
	}
}

// Generations tracks the latest dispatched generation per fetch kind so a
// slice can discard completions that lost the race to a newer fetch. Callers
// guard it with the slice mutex.
type Generations map[string]int64

// Mark records gen as the latest dispatch of kind.
func (g Generations) Mark(kind string, gen int64) {
	if gen > g[kind] {
		g[kind] = gen
	}
}

// Current reports whether gen is still the latest dispatch of kind.
func (g Generations) Current(kind string, gen int64) bool {
	return g[kind] == gen
}
