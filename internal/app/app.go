// Package app wires one storefront client: the gateway, the runtime every
// slice shares, and the session and stores slices. The CLI and the scenario
// harness both drive it through Dispatch.
package app

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/storefront/internal/engine"
	"github.com/roach88/storefront/internal/gateway"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/stores"
)

// Options configures New. Zero values take the gateway and runtime
// defaults.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	EntryRoute string
	Location   func() string
	Jar        http.CookieJar
	HTTPClient *http.Client

	Recorder engine.Recorder
	Clock    *engine.Clock
	Flows    engine.FlowTokenGenerator
	Now      func() time.Time
	Logger   *zap.SugaredLogger
}

// App is a wired client.
type App struct {
	Gateway *gateway.Client
	Runtime *engine.Runtime
	Session *session.Slice
	Stores  *stores.Slice

	unsubscribe func()
}

// New builds the gateway, runtime and slices, and routes the gateway's
// unauthenticated events into the session slice.
func New(opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	client, err := gateway.New(gateway.Options{
		BaseURL:    opts.BaseURL,
		Timeout:    opts.Timeout,
		Jar:        opts.Jar,
		HTTPClient: opts.HTTPClient,
		Logger:     logger.Named("gateway"),
		EntryRoute: opts.EntryRoute,
		Location:   opts.Location,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	rtOpts := []engine.Option{engine.WithLogger(logger.Named("engine"))}
	if opts.Recorder != nil {
		rtOpts = append(rtOpts, engine.WithRecorder(opts.Recorder))
	}
	if opts.Clock != nil {
		rtOpts = append(rtOpts, engine.WithClock(opts.Clock))
	}
	if opts.Flows != nil {
		rtOpts = append(rtOpts, engine.WithFlowGenerator(opts.Flows))
	}
	if opts.Now != nil {
		rtOpts = append(rtOpts, engine.WithNow(opts.Now))
	}
	rt := engine.New(rtOpts...)

	a := &App{
		Gateway: client,
		Runtime: rt,
		Session: session.New(client, rt),
		Stores:  stores.New(client, client.Admin(), rt),
	}
	a.unsubscribe = client.OnUnauthenticated(a.Session.HandleUnauthenticated)
	return a, nil
}

// Close detaches the session slice from the gateway's events.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}
