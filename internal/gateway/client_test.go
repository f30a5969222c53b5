package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storefront/internal/domain"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
	Cookie string
}

// fakeAPI serves canned responses keyed by "METHOD /path" and records every
// request it sees.
type fakeAPI struct {
	t      *testing.T
	mu     sync.Mutex
	routes map[string]func(w http.ResponseWriter, r *http.Request)
	seen   []recordedRequest
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{t: t, routes: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeAPI) handle(method, path string, status int, body any) {
	f.routes[method+" "+path] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
	if c, err := r.Cookie("session"); err == nil {
		rec.Cookie = c.Value
	}
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		assert.NoError(f.t, json.Unmarshal(raw, &rec.Body))
	}
	f.mu.Lock()
	f.seen = append(f.seen, rec)
	h, ok := f.routes[r.Method+" "+trimAPI(r.URL.Path)]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"message":"no route"}`))
		return
	}
	h(w, r)
}

func (f *fakeAPI) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.seen)
	return f.seen[len(f.seen)-1]
}

func trimAPI(p string) string {
	const prefix = "/api/v1"
	if len(p) >= len(prefix) && p[:len(prefix)] == prefix {
		return p[len(prefix):]
	}
	return p
}

func newTestClient(t *testing.T, srv *httptest.Server, opts Options) *Client {
	t.Helper()
	opts.BaseURL = srv.URL + "/api/v1"
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultEntryRoute, c.entryRoute)
	assert.Equal(t, DefaultTimeout, c.timeout)
}

func TestNew_RejectsBadScheme(t *testing.T) {
	_, err := New(Options{BaseURL: "ftp://example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme")
}

func TestLogin_SendsJSONAndDecodesEnvelope(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle(http.MethodPost, "/auth/login", 200, map[string]any{
		"success": true,
		"message": "Logged in",
		"data":    map[string]any{"message": "welcome"},
	})
	c := newTestClient(t, srv, Options{})

	env, err := c.Login(context.Background(), domain.LoginPayload{Email: "a@b.com", Password: "secret"})
	require.NoError(t, err)
	assert.True(t, env.Success)
	assert.Equal(t, "Logged in", env.Message)
	require.NotNil(t, env.Data)
	assert.Equal(t, "welcome", env.Data.Message)

	req := f.last()
	assert.Equal(t, "/api/v1/auth/login", req.Path)
	assert.Equal(t, map[string]any{"email": "a@b.com", "password": "secret"}, req.Body)
}

func TestCookieIsCarriedAcrossCalls(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.routes["POST /auth/login"] = func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "opaque", Path: "/", HttpOnly: true})
		_, _ = w.Write([]byte(`{"success":true,"message":"ok"}`))
	}
	f.handle(http.MethodGet, "/auth/me", 200, map[string]any{
		"success": true, "message": "ok", "data": map[string]any{"id": 1, "email": "a@b.com", "role": "user"},
	})
	c := newTestClient(t, srv, Options{})

	_, err := c.Login(context.Background(), domain.LoginPayload{Email: "a@b.com", Password: "x"})
	require.NoError(t, err)
	assert.True(t, c.CheckAuthStatus(context.Background()))
	assert.Equal(t, "opaque", f.last().Cookie)
}

func TestCheckAuthStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		want   bool
	}{
		{name: "user returned", status: 200, body: map[string]any{"success": true, "data": map[string]any{"id": 1}}, want: true},
		{name: "2xx without user", status: 200, body: map[string]any{"success": false}, want: true},
		{name: "no content", status: 204, want: true},
		{name: "unauthorized", status: 401, body: map[string]any{"success": false, "message": "Unauthorized"}},
		{name: "server error", status: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, srv := newFakeAPI(t)
			f.handle(http.MethodGet, "/auth/me", tt.status, tt.body)
			c := newTestClient(t, srv, Options{})

			assert.Equal(t, tt.want, c.CheckAuthStatus(context.Background()))
		})
	}
}

func TestErrors_ServerMessage(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle(http.MethodPost, "/auth/signup", 409, map[string]any{"success": false, "message": "Email already registered"})
	c := newTestClient(t, srv, Options{})

	_, err := c.Register(context.Background(), domain.RegisterPayload{Name: "A", Email: "a@b.com"})
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Email already registered", ae.Message)
	assert.Equal(t, 409, ae.Status)
	assert.Equal(t, CodeBadRequest, ae.Code)
	assert.Equal(t, 409, StatusOf(err))
}

func TestErrors_FallbackToStatusText(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle(http.MethodGet, "/store/9", 500, nil)
	c := newTestClient(t, srv, Options{})

	_, err := c.GetStore(context.Background(), 9)
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "Request failed with status code 500", ae.Message)
	assert.Equal(t, CodeBadResponse, ae.Code)
}

func TestErrors_ErrorFieldFallback(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle(http.MethodDelete, "/store/3", 403, map[string]any{"error": "Forbidden"})
	c := newTestClient(t, srv, Options{})

	_, err := c.DeleteStore(context.Background(), 3)
	require.Error(t, err)
	assert.Equal(t, "Forbidden", err.Error())
}

func TestErrors_NetworkFailure(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := newTestClient(t, srv, Options{})
	srv.Close()

	_, err := c.CurrentUser(context.Background())
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, CodeNetwork, ae.Code)
	assert.Equal(t, "Network Error", ae.Message)
	assert.Zero(t, ae.Status)
}

func TestErrors_Timeout(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.routes["GET /auth/me"] = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}
	c := newTestClient(t, srv, Options{Timeout: 50 * time.Millisecond})

	_, err := c.CurrentUser(context.Background())
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, CodeTimeout, ae.Code)
	assert.Equal(t, "timeout of 50ms exceeded", ae.Message)
}

func TestErrors_Canceled(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := newTestClient(t, srv, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.CurrentUser(ctx)
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, CodeCanceled, ae.Code)
}

func TestErrors_UndecodableBody(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.routes["GET /store/1"] = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	}
	c := newTestClient(t, srv, Options{})

	_, err := c.GetStore(context.Background(), 1)
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, CodeBadResponse, ae.Code)
}

func TestEmptyBodyIsAcknowledged(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle(http.MethodDelete, "/store/4", http.StatusNoContent, nil)
	c := newTestClient(t, srv, Options{})

	env, err := c.DeleteStore(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, env.Success)
	assert.Nil(t, env.Data)
}

func TestUnauthorized_EmitsEventOnce(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle(http.MethodGet, "/auth/me", 401, map[string]any{"success": false, "message": "Session expired"})
	c := newTestClient(t, srv, Options{Location: func() string { return "/dashboard" }})

	var events []UnauthenticatedEvent
	c.OnUnauthenticated(func(ev UnauthenticatedEvent) { events = append(events, ev) })

	_, err := c.CurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Session expired", err.Error())
	require.Len(t, events, 1)
	assert.Equal(t, UnauthenticatedEvent{From: "/dashboard", To: "/login", Path: "/auth/me"}, events[0])
}

func TestUnauthorized_LoopGuardAtEntryRoute(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle(http.MethodPost, "/auth/login", 401, map[string]any{"success": false, "message": "Invalid credentials"})
	c := newTestClient(t, srv, Options{Location: func() string { return "/login?next=/stores" }})

	fired := 0
	c.OnUnauthenticated(func(UnauthenticatedEvent) { fired++ })

	_, err := c.Login(context.Background(), domain.LoginPayload{Email: "a@b.com", Password: "bad"})
	require.Error(t, err)
	assert.Equal(t, 0, fired)
}

func TestUnauthorized_Unsubscribe(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle(http.MethodGet, "/auth/me", 401, nil)
	c := newTestClient(t, srv, Options{})

	fired := 0
	unsubscribe := c.OnUnauthenticated(func(UnauthenticatedEvent) { fired++ })
	unsubscribe()

	_, _ = c.CurrentUser(context.Background())
	assert.Equal(t, 0, fired)
}

func TestListStores_OmitsUnsetFilters(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle(http.MethodGet, "/store", 200, map[string]any{
		"success": true,
		"message": "ok",
		"data": map[string]any{
			"data":       []map[string]any{{"id": 1, "name": "A", "status": "APPROVED"}},
			"pagination": map[string]any{"page": 1, "limit": 10, "total": 10, "totalPages": 2},
		},
	})
	c := newTestClient(t, srv, Options{})

	page := 1
	env, err := c.ListStores(context.Background(), domain.StoreFilters{Status: "APPROVED", Page: &page})
	require.NoError(t, err)
	require.NotNil(t, env.Data)
	assert.Len(t, env.Data.Data, 1)
	assert.True(t, env.Data.Pagination.HasNext())
	assert.Equal(t, "page=1&status=APPROVED", f.last().Query)
}

func TestListStores_NoQueryWhenEmpty(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle(http.MethodGet, "/store", 200, map[string]any{"success": true, "message": "ok"})
	c := newTestClient(t, srv, Options{})

	_, err := c.ListStores(context.Background(), domain.StoreFilters{})
	require.NoError(t, err)
	assert.Empty(t, f.last().Query)
}

func TestListMyStores_DropsOwnerID(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle(http.MethodGet, "/store/my-stores", 200, map[string]any{"success": true, "message": "ok"})
	c := newTestClient(t, srv, Options{})

	owner := int64(7)
	_, err := c.ListMyStores(context.Background(), domain.StoreFilters{OwnerID: &owner, Search: "tea"})
	require.NoError(t, err)
	assert.Equal(t, "search=tea", f.last().Query)
}

func TestStoreAndAdminPaths(t *testing.T) {
	f, srv := newFakeAPI(t)
	store := map[string]any{"success": true, "message": "ok", "data": map[string]any{"id": 5, "status": "APPROVED"}}
	f.handle(http.MethodPut, "/store/5", 200, store)
	f.handle(http.MethodPatch, "/store/admin/5/approve", 200, store)
	f.handle(http.MethodPatch, "/store/admin/5/reject", 200, store)
	f.handle(http.MethodPatch, "/store/admin/5/status", 200, store)
	f.handle(http.MethodGet, "/store/admin/pending", 200, map[string]any{"success": true, "message": "ok", "data": []any{}})
	c := newTestClient(t, srv, Options{})
	ctx := context.Background()

	name := "Renamed"
	_, err := c.UpdateStore(ctx, 5, domain.UpdateStorePayload{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Renamed"}, f.last().Body)

	_, err = c.Admin().Approve(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/store/admin/5/approve", f.last().Path)

	_, err = c.Admin().Reject(ctx, 5, "")
	require.NoError(t, err)
	assert.Nil(t, f.last().Body["reason"])

	_, err = c.Admin().Reject(ctx, 5, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, "duplicate", f.last().Body["reason"])

	_, err = c.Admin().SetStatus(ctx, 5, domain.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, "REJECTED", f.last().Body["status"])

	pending, err := c.Admin().ListPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, pending.Data)
	assert.Empty(t, *pending.Data)
}

func TestResetPassword_TokenInPath(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle(http.MethodPost, "/auth/reset-password/abc123", 200, map[string]any{"success": true, "message": "done"})
	c := newTestClient(t, srv, Options{})

	_, err := c.ResetPassword(context.Background(), domain.ResetPasswordPayload{Token: "abc123", NewPassword: "newpass1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"newPassword": "newpass1"}, f.last().Body)
}

func TestResetPassword_BlankTokenSendsNothing(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle(http.MethodPost, "/auth/reset-password/", 200, map[string]any{"success": true, "message": "reset email sent"})
	f.handle(http.MethodPost, "/auth/reset-password", 200, map[string]any{"success": true, "message": "reset email sent"})
	c := newTestClient(t, srv, Options{})

	for _, token := range []string{"", "  "} {
		env, err := c.ResetPassword(context.Background(), domain.ResetPasswordPayload{Token: token, NewPassword: "newpass1"})
		assert.Nil(t, env)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "Reset token is required", apiErr.Message)
		assert.Equal(t, CodeBadRequest, apiErr.Code)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Empty(t, f.seen)
}

func TestReviews(t *testing.T) {
	f, srv := newFakeAPI(t)
	f.handle(http.MethodGet, "/reviews", 200, map[string]any{
		"success": true, "message": "ok",
		"data": []map[string]any{{"id": 1, "title": "Great", "rating": 5, "reviewer": "sam"}},
	})
	f.handle(http.MethodPut, "/reviews/1", 200, map[string]any{"success": true, "message": "ok", "data": map[string]any{"id": 1}})
	c := newTestClient(t, srv, Options{})
	ctx := context.Background()

	env, err := c.ListReviews(ctx)
	require.NoError(t, err)
	require.NotNil(t, env.Data)
	assert.Equal(t, "Great", (*env.Data)[0].Title)

	_, err = c.UpdateReview(ctx, 1, domain.ReviewPayload{Title: "Ok", Rating: 3, Reviewer: "sam", ProductID: 9})
	require.NoError(t, err)
	_, sent := f.last().Body["productId"]
	assert.False(t, sent)
}
