package harness

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// APIRoot is the path prefix the canned backend serves under.
const APIRoot = "/api/v1"

// backend serves a scenario's routes and records every request.
type backend struct {
	mu       sync.Mutex
	routes   map[string][]Route
	served   map[string]int
	requests []Request
}

func newBackend(routes []Route) *backend {
	b := &backend{
		routes: make(map[string][]Route),
		served: make(map[string]int),
	}
	for _, r := range routes {
		key := routeKey(r.Method, r.Path)
		b.routes[key] = append(b.routes[key], r)
	}
	return b
}

func routeKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

func (b *backend) start() *httptest.Server {
	return httptest.NewServer(b)
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, APIRoot)

	b.mu.Lock()
	b.requests = append(b.requests, Request{Method: r.Method, Path: path, Query: r.URL.RawQuery})
	key := routeKey(r.Method, path)
	queue := b.routes[key]
	var route Route
	found := len(queue) > 0
	if found {
		i := b.served[key]
		if i >= len(queue) {
			i = len(queue) - 1
		}
		route = queue[i]
		b.served[key]++
	}
	b.mu.Unlock()

	if !found {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"Route not found"}`))
		return
	}

	if route.SetCookie != "" {
		w.Header().Add("Set-Cookie", route.SetCookie)
	}
	status := route.Status
	if status == 0 {
		status = http.StatusOK
	}
	if route.Body == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(route.Body)
}

func (b *backend) seen() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}
