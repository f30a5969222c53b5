package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/engine"
	"github.com/roach88/storefront/internal/testutil"
	"github.com/roach88/storefront/internal/validate"
)

type backend struct {
	mu     sync.Mutex
	routes map[string]string
	status map[string]int
	hits   []string
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{routes: map[string]string{}, status: map[string]int{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.hits = append(b.hits, key)
		body, ok := b.routes[key]
		status := b.status[key]
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) on(method, path string, status int, body string) {
	key := method + " /api/v1" + path
	b.routes[key] = body
	b.status[key] = status
}

func (b *backend) requests() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.hits...)
}

func newApp(t *testing.T, srv *httptest.Server, rec engine.Recorder) *App {
	t.Helper()
	a, err := New(Options{
		BaseURL:  srv.URL + "/api/v1",
		Recorder: rec,
		Flows:    testutil.NewSequentialFlowGenerator("flow"),
	})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

const adaJSON = `{"success":true,"data":{"id":7,"name":"Ada","email":"ada@example.com","role":"storeOwner","isEmailVerified":true}}`

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestDispatch_LoginChainsIdentityFetch(t *testing.T) {
	b, srv := newBackend(t)
	b.on("POST", "/auth/login", 200, `{"success":true,"data":{"message":"Logged in"}}`)
	b.on("GET", "/auth/me", 200, adaJSON)

	rec := testutil.NewRecorder()
	a := newApp(t, srv, rec)

	out, err := a.Dispatch(context.Background(), "auth/login", map[string]any{
		"email": "ada@example.com", "password": "secret1",
	})
	require.NoError(t, err)
	user, ok := out.(*domain.User)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, "Ada", user.Name)

	st := a.Session.State()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, []string{">auth/login", ">auth/getCurrentUser", "<auth/getCurrentUser", "<auth/login"}, rec.Ops())
	assert.Equal(t, []string{"POST /api/v1/auth/login", "GET /api/v1/auth/me"}, b.requests())
}

func TestDispatch_ValidationStopsBeforeRequest(t *testing.T) {
	b, srv := newBackend(t)
	rec := testutil.NewRecorder()
	a := newApp(t, srv, rec)

	_, err := a.Dispatch(context.Background(), "auth/login", map[string]any{"email": "ada", "password": "x"})
	var fe validate.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.NotEmpty(t, fe.Field("email"))
	assert.Empty(t, b.requests())
	assert.Empty(t, rec.Events())
}

func TestDispatch_ResetPasswordRequiresToken(t *testing.T) {
	b, srv := newBackend(t)
	b.on("POST", "/auth/reset-password/", 200, `{"success":true,"message":"reset email sent"}`)
	b.on("POST", "/auth/reset-password", 200, `{"success":true,"message":"reset email sent"}`)
	a := newApp(t, srv, nil)

	_, err := a.Dispatch(context.Background(), "auth/resetPassword", map[string]any{
		"token": "", "newPassword": "secret12",
	})
	var fe validate.FieldErrors
	require.True(t, errors.As(err, &fe), "got %T: %v", err, err)
	assert.Equal(t, "Reset token is required", fe.Field("token"))
	assert.Empty(t, b.requests())
	assert.Empty(t, a.Session.State().Message)
}

func TestDispatch_RegisterConfirmDefaultsToPassword(t *testing.T) {
	b, srv := newBackend(t)
	b.on("POST", "/auth/signup", 201, `{"success":true,"data":{"message":"Check your inbox"}}`)
	a := newApp(t, srv, nil)

	args := map[string]any{"name": "Ada", "email": "ada@example.com", "address": "1 Main St", "password": "secret1"}
	out, err := a.Dispatch(context.Background(), "auth/register", args)
	require.NoError(t, err)
	assert.Equal(t, "Check your inbox", out)

	args["confirmPassword"] = "secret2"
	_, err = a.Dispatch(context.Background(), "auth/register", args)
	var fe validate.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "Passwords do not match", fe.Field("confirmPassword"))
}

func TestDispatch_UnknownOpAndArgs(t *testing.T) {
	_, srv := newBackend(t)
	a := newApp(t, srv, nil)

	_, err := a.Dispatch(context.Background(), "stores/explode", nil)
	assert.ErrorIs(t, err, ErrUnknownOp)

	_, err = a.Dispatch(context.Background(), "stores/fetchStoreById", map[string]any{"id": 1, "colour": "red"})
	var ae *ArgsError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "stores/fetchStoreById", ae.Op)
}

func TestDispatch_UnauthenticatedReachesSession(t *testing.T) {
	b, srv := newBackend(t)
	b.on("GET", "/store/my-stores", 401, `{"success":false,"message":"Not authenticated"}`)
	a := newApp(t, srv, nil)

	_, err := a.Dispatch(context.Background(), "stores/fetchMyStores", nil)
	require.Error(t, err)
	assert.Equal(t, "Not authenticated", err.Error())
	assert.Equal(t, "/login", a.Session.State().RedirectTo)
	assert.Equal(t, "Not authenticated", a.Stores.State().Error)
}

func TestDispatch_CloseDetachesSession(t *testing.T) {
	b, srv := newBackend(t)
	b.on("GET", "/store/my-stores", 401, `{"success":false,"message":"Not authenticated"}`)
	a := newApp(t, srv, nil)
	a.Close()

	_, err := a.Dispatch(context.Background(), "stores/fetchMyStores", nil)
	require.Error(t, err)
	assert.Empty(t, a.Session.State().RedirectTo)
}

func TestDispatch_Reducers(t *testing.T) {
	_, srv := newBackend(t)
	a := newApp(t, srv, nil)
	ctx := context.Background()

	_, err := a.Dispatch(ctx, "stores/setFilters", map[string]any{"status": "APPROVED", "page": 2})
	require.NoError(t, err)
	f := a.Stores.State().Filters
	assert.Equal(t, domain.StatusApproved, f.Status)
	require.NotNil(t, f.Page)
	assert.Equal(t, 2, *f.Page)

	_, err = a.Dispatch(ctx, "stores/clearFilters", nil)
	require.NoError(t, err)
	assert.True(t, a.Stores.State().Filters.IsZero())

	_, err = a.Dispatch(ctx, "auth/markSessionExpired", map[string]any{"route": "/login"})
	require.NoError(t, err)
	assert.Equal(t, "/login", a.Session.State().RedirectTo)
}

func TestReviews_Journaled(t *testing.T) {
	b, srv := newBackend(t)
	b.on("GET", "/reviews", 200, `{"success":true,"data":[{"id":1,"title":"Great","rating":5,"reviewer":"ada"}]}`)
	b.on("POST", "/reviews", 201, `{"success":true,"data":{"id":2,"title":"Fine","rating":3,"reviewer":"bob"}}`)
	b.on("DELETE", "/reviews/2", 204, ``)
	b.on("PUT", "/reviews/2", 400, `{"success":false,"message":"Rating locked"}`)

	rec := testutil.NewRecorder()
	a := newApp(t, srv, rec)
	ctx := context.Background()

	list, err := a.FetchReviews(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Great", list[0].Title)

	out, err := a.Dispatch(ctx, "reviews/createReview", map[string]any{"title": "Fine", "rating": 3, "reviewer": "bob"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.(domain.Review).ID)

	_, err = a.Dispatch(ctx, "reviews/createReview", map[string]any{"title": "Bad", "rating": 9, "reviewer": "bob"})
	require.Error(t, err)

	_, err = a.UpdateReview(ctx, 2, domain.ReviewPayload{Title: "Fine", Rating: 4, Reviewer: "bob"})
	require.Error(t, err)
	assert.Equal(t, "Rating locked", err.Error())

	require.NoError(t, a.DeleteReview(ctx, 2))

	assert.Equal(t, []string{
		">reviews/fetchReviews", "<reviews/fetchReviews",
		">reviews/createReview", "<reviews/createReview",
		">reviews/updateReview", "<reviews/updateReview",
		">reviews/deleteReview", "<reviews/deleteReview",
	}, rec.Ops())
}

func TestOps(t *testing.T) {
	ops := Ops()
	assert.IsIncreasing(t, ops)
	assert.Contains(t, ops, "auth/login")
	assert.Contains(t, ops, "stores/updateStoreStatus")
	assert.Contains(t, ops, "reviews/deleteReview")
}
