package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/roach88/storefront/internal/domain"
)

const (
	DefaultBaseURL    = "http://localhost:3000/api/v1"
	DefaultTimeout    = 10 * time.Second
	DefaultEntryRoute = "/login"

	maxBodyBytes = 4 << 20
)

// Options configures a Client. Zero values take the defaults above.
type Options struct {
	BaseURL string
	Timeout time.Duration

	// Jar holds the session cookie. Defaults to an in-memory jar.
	Jar http.CookieJar

	// HTTPClient overrides the transport entirely; Jar and Timeout are
	// ignored when it is set.
	HTTPClient *http.Client

	Logger *zap.SugaredLogger

	// EntryRoute is where an unauthenticated shell is sent.
	EntryRoute string

	// Location reports the hosting shell's current route. Used only for the
	// redirect loop guard; nil means "not at the entry route".
	Location func() string
}

// UnauthenticatedEvent asks the hosting shell to navigate to the entry
// route after the server rejected the session.
type UnauthenticatedEvent struct {
	From string // shell location when the 401 arrived
	To   string // entry route
	Path string // API path that returned 401
}

// Client is the API gateway. Safe for concurrent use.
type Client struct {
	base       *url.URL
	http       *http.Client
	logger     *zap.SugaredLogger
	entryRoute string
	location   func() string
	timeout    time.Duration

	mu        sync.Mutex
	nextSub   int
	listeners map[int]func(UnauthenticatedEvent)
}

// New builds a Client.
func New(opts Options) (*Client, error) {
	raw := opts.BaseURL
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", raw)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	hc := opts.HTTPClient
	if hc == nil {
		jar := opts.Jar
		if jar == nil {
			jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
			if err != nil {
				return nil, fmt.Errorf("cookie jar: %w", err)
			}
		}
		hc = &http.Client{Jar: jar, Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	entry := opts.EntryRoute
	if entry == "" {
		entry = DefaultEntryRoute
	}
	location := opts.Location
	if location == nil {
		location = func() string { return "" }
	}

	return &Client{
		base:       base,
		http:       hc,
		logger:     logger,
		entryRoute: entry,
		location:   location,
		timeout:    timeout,
		listeners:  make(map[int]func(UnauthenticatedEvent)),
	}, nil
}

// BaseURL returns the API root every path is resolved against.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// OnUnauthenticated subscribes fn to unauthenticated events and returns a
// function removing the subscription.
func (c *Client) OnUnauthenticated(fn func(UnauthenticatedEvent)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.listeners[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) emitUnauthenticated(path string) {
	from := c.location()
	if strings.Contains(from, c.entryRoute) {
		c.logger.Debugw("unauthenticated at entry route, redirect suppressed", "path", path, "location", from)
		return
	}

	c.mu.Lock()
	fns := make([]func(UnauthenticatedEvent), 0, len(c.listeners))
	for i := 0; i < c.nextSub; i++ {
		if fn, ok := c.listeners[i]; ok {
			fns = append(fns, fn)
		}
	}
	c.mu.Unlock()

	ev := UnauthenticatedEvent{From: from, To: c.entryRoute, Path: path}
	c.logger.Infow("session rejected, redirecting", "path", path, "to", c.entryRoute)
	for _, fn := range fns {
		fn(ev)
	}
}

// call performs one request and decodes the envelope into T.
func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (*domain.Envelope[T], error) {
	raw, err := c.do(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}

	env := &domain.Envelope[T]{}
	if len(bytes.TrimSpace(raw)) == 0 {
		// 204 and friends: acknowledged without a body
		env.Success = true
		return env, nil
	}
	if err := json.Unmarshal(raw, env); err != nil {
		c.logger.Warnw("undecodable response body", "method", method, "path", path, "error", err)
		return nil, &APIError{Message: "Unexpected response from server", Code: CodeBadResponse}
	}
	return env, nil
}

// do sends the request and returns the raw 2xx body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	u.RawQuery = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &APIError{Message: fmt.Sprintf("encode request: %v", err)}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, &APIError{Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		apiErr := c.transportError(ctx, err)
		c.logger.Debugw("http request failed",
			"method", method,
			"path", path,
			"code", apiErr.Code,
			"error", err,
		)
		return nil, apiErr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.transportError(ctx, err)
	}

	c.logger.Debugw("http request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
		"size", len(raw),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.emitUnauthenticated(path)
	}
	return nil, statusError(resp.StatusCode, serverMessage(raw))
}

func (c *Client) transportError(ctx context.Context, err error) *APIError {
	if errors.Is(ctx.Err(), context.Canceled) {
		return &APIError{Message: "canceled", Code: CodeCanceled}
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &APIError{
			Message: fmt.Sprintf("timeout of %dms exceeded", c.timeout.Milliseconds()),
			Code:    CodeTimeout,
		}
	}
	return &APIError{Message: "Network Error", Code: CodeNetwork}
}

// serverMessage extracts the "message" field (or "error" as a fallback)
// from an error body.
func serverMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
