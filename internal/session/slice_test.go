package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/engine"
	"github.com/roach88/storefront/internal/gateway"
	"github.com/roach88/storefront/internal/testutil"
)

type fakeAuth struct {
	login       func() (*domain.Envelope[domain.MessageData], error)
	register    func() (*domain.Envelope[domain.MessageData], error)
	verify      func() (*domain.Envelope[domain.VerificationData], error)
	currentUser func() (*domain.Envelope[domain.User], error)
	logout      func() (*domain.Envelope[domain.MessageData], error)
	ack         func() (*domain.Envelope[domain.MessageData], error)

	mu    sync.Mutex
	calls []string
}

func (f *fakeAuth) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeAuth) Login(context.Context, domain.LoginPayload) (*domain.Envelope[domain.MessageData], error) {
	f.record("login")
	return f.login()
}

func (f *fakeAuth) Register(context.Context, domain.RegisterPayload) (*domain.Envelope[domain.MessageData], error) {
	f.record("register")
	return f.register()
}

func (f *fakeAuth) VerifyEmail(context.Context, domain.EmailVerificationPayload) (*domain.Envelope[domain.VerificationData], error) {
	f.record("verify")
	return f.verify()
}

func (f *fakeAuth) CurrentUser(context.Context) (*domain.Envelope[domain.User], error) {
	f.record("me")
	return f.currentUser()
}

func (f *fakeAuth) Logout(context.Context) (*domain.Envelope[domain.MessageData], error) {
	f.record("logout")
	return f.logout()
}

func (f *fakeAuth) ChangePassword(context.Context, domain.ChangePasswordPayload) (*domain.Envelope[domain.MessageData], error) {
	f.record("change-password")
	return f.ack()
}

func (f *fakeAuth) RequestPasswordReset(context.Context, domain.ResetPasswordRequestPayload) (*domain.Envelope[domain.MessageData], error) {
	f.record("forgot-password")
	return f.ack()
}

func (f *fakeAuth) ResetPassword(context.Context, domain.ResetPasswordPayload) (*domain.Envelope[domain.MessageData], error) {
	f.record("reset-password")
	return f.ack()
}

func okMessage(msg string) func() (*domain.Envelope[domain.MessageData], error) {
	return func() (*domain.Envelope[domain.MessageData], error) {
		return &domain.Envelope[domain.MessageData]{Success: true, Message: msg, Data: &domain.MessageData{Message: msg}}, nil
	}
}

func failWith(msg string) func() (*domain.Envelope[domain.MessageData], error) {
	return func() (*domain.Envelope[domain.MessageData], error) {
		return nil, &gateway.APIError{Message: msg, Status: 400, Code: gateway.CodeBadRequest}
	}
}

func userOK(u domain.User) func() (*domain.Envelope[domain.User], error) {
	return func() (*domain.Envelope[domain.User], error) {
		return &domain.Envelope[domain.User]{Success: true, Message: "ok", Data: &u}, nil
	}
}

func userFails(msg string) func() (*domain.Envelope[domain.User], error) {
	return func() (*domain.Envelope[domain.User], error) {
		return nil, &gateway.APIError{Message: msg, Code: gateway.CodeNetwork}
	}
}

const (
	testTimeout = 2 * time.Second
	testTick    = 5 * time.Millisecond
)

var alice = domain.User{ID: 1, Email: "a@b.com", Role: domain.RoleUser, IsEmailVerified: true}

// newSlice returns a slice whose every transition is checked for the
// IsAuthenticated/User invariant.
func newSlice(t *testing.T, api AuthAPI) (*Slice, *testutil.Recorder) {
	t.Helper()
	rec := testutil.NewRecorder()
	rt := engine.New(
		engine.WithFlowGenerator(testutil.NewSequentialFlowGenerator("flow")),
		engine.WithRecorder(rec),
	)
	s := New(api, rt)
	s.Subscribe(func(st State) {
		assert.True(t, st.Consistent(), "isAuthenticated=%v user=%v", st.IsAuthenticated, st.User)
	})
	return s, rec
}

func TestLogin_ChainsIdentityFetch(t *testing.T) {
	api := &fakeAuth{login: okMessage("Logged in"), currentUser: userOK(alice)}
	s, rec := newSlice(t, api)

	user, err := s.Login(context.Background(), domain.LoginPayload{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(1), user.ID)

	st := s.State()
	assert.True(t, st.IsAuthenticated)
	require.NotNil(t, st.User)
	assert.Equal(t, int64(1), st.User.ID)
	assert.Empty(t, st.Error)
	assert.False(t, st.LoginLoading)
	assert.Equal(t, engine.Succeeded, st.Loading)
	assert.Equal(t, []string{"login", "me"}, api.calls)

	assert.Equal(t, []string{">auth/login", ">auth/getCurrentUser", "<auth/getCurrentUser", "<auth/login"}, rec.Ops())
	for _, ev := range rec.Events() {
		assert.Equal(t, "flow-1", ev.Flow)
	}
}

func TestLogin_IdentityFetchFails(t *testing.T) {
	api := &fakeAuth{login: okMessage("Logged in"), currentUser: userFails("network error")}
	s, _ := newSlice(t, api)

	_, err := s.Login(context.Background(), domain.LoginPayload{Email: "a@b.com", Password: "pw"})
	require.Error(t, err)
	assert.Equal(t, "network error", err.Error())
	assert.True(t, engine.IsOpError(err, OpLogin))

	st := s.State()
	assert.False(t, st.LoginLoading)
	assert.Equal(t, "network error", st.Error)
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)
}

func TestLogin_RejectedCredentials(t *testing.T) {
	api := &fakeAuth{login: failWith("Invalid credentials")}
	s, _ := newSlice(t, api)

	_, err := s.Login(context.Background(), domain.LoginPayload{Email: "a@b.com", Password: "bad"})
	require.Error(t, err)

	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.Equal(t, "Invalid credentials", s.State().Error)
	assert.Equal(t, []string{"login"}, api.calls)
}

func TestLogin_UnsuccessfulEnvelopeUsesFallback(t *testing.T) {
	api := &fakeAuth{login: func() (*domain.Envelope[domain.MessageData], error) {
		return &domain.Envelope[domain.MessageData]{Success: false}, nil
	}}
	s, _ := newSlice(t, api)

	_, err := s.Login(context.Background(), domain.LoginPayload{})
	require.Error(t, err)
	assert.Equal(t, "Login failed", s.State().Error)
}

func TestLogin_ClearsSessionExpiredIntent(t *testing.T) {
	api := &fakeAuth{login: okMessage("ok"), currentUser: userOK(alice)}
	s, _ := newSlice(t, api)

	s.MarkSessionExpired("/login")
	assert.Equal(t, "/login", s.State().RedirectTo)

	_, err := s.Login(context.Background(), domain.LoginPayload{Email: "a@b.com", Password: "pw"})
	require.NoError(t, err)
	assert.Empty(t, s.State().RedirectTo)
}

func TestLogin_ClearsPreviousErrorOnStart(t *testing.T) {
	release := make(chan struct{})
	var pending State
	api := &fakeAuth{
		login: func() (*domain.Envelope[domain.MessageData], error) {
			<-release
			return okMessage("ok")()
		},
		currentUser: userOK(alice),
	}
	s, _ := newSlice(t, api)
	s.update(func(st *State) bool { st.Error = "old failure"; return true })

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Login(context.Background(), domain.LoginPayload{})
	}()

	require.Eventually(t, func() bool {
		pending = s.State()
		return pending.LoginLoading
	}, testTimeout, testTick)
	assert.Empty(t, pending.Error)
	close(release)
	<-done
}

func TestRegister_DoesNotAuthenticate(t *testing.T) {
	api := &fakeAuth{register: okMessage("Check your email")}
	s, rec := newSlice(t, api)

	msg, err := s.Register(context.Background(), domain.RegisterPayload{Name: "A", Email: "a@b.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Check your email", msg)

	st := s.State()
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)
	assert.False(t, st.RegisterLoading)
	assert.Equal(t, "Check your email", st.Message)

	events := rec.Events()
	require.NotEmpty(t, events)
	assert.NotContains(t, events[0].Args, "password")
}

func TestVerifyEmail_ChainsIdentityFetch(t *testing.T) {
	api := &fakeAuth{
		verify: func() (*domain.Envelope[domain.VerificationData], error) {
			return &domain.Envelope[domain.VerificationData]{Success: true, Data: &domain.VerificationData{Valid: true, Message: "Verified"}}, nil
		},
		currentUser: userOK(alice),
	}
	s, _ := newSlice(t, api)
	s.MarkSessionExpired("/login")

	user, err := s.VerifyEmail(context.Background(), domain.EmailVerificationPayload{Email: "a@b.com", Token: "123456"})
	require.NoError(t, err)
	assert.Equal(t, alice.Email, user.Email)

	st := s.State()
	assert.True(t, st.IsAuthenticated)
	assert.False(t, st.VerifyEmailLoading)
	assert.Equal(t, "Verified", st.Message)
	assert.Empty(t, st.RedirectTo)
}

func TestVerifyEmail_InvalidToken(t *testing.T) {
	api := &fakeAuth{verify: func() (*domain.Envelope[domain.VerificationData], error) {
		return &domain.Envelope[domain.VerificationData]{Success: true, Message: "Token expired", Data: &domain.VerificationData{Valid: false}}, nil
	}}
	s, _ := newSlice(t, api)

	_, err := s.VerifyEmail(context.Background(), domain.EmailVerificationPayload{})
	require.Error(t, err)
	assert.Equal(t, "Token expired", s.State().Error)
	assert.Equal(t, []string{"verify"}, api.calls)
}

func TestVerifyEmail_IdentityFetchFails(t *testing.T) {
	api := &fakeAuth{
		verify: func() (*domain.Envelope[domain.VerificationData], error) {
			return &domain.Envelope[domain.VerificationData]{Success: true, Data: &domain.VerificationData{Valid: true}}, nil
		},
		currentUser: userFails("Request failed with status code 500"),
	}
	s, _ := newSlice(t, api)

	_, err := s.VerifyEmail(context.Background(), domain.EmailVerificationPayload{})
	require.Error(t, err)
	st := s.State()
	assert.Equal(t, "Request failed with status code 500", st.Error)
	assert.False(t, st.IsAuthenticated)
}

func TestGetCurrentUser_FailureClearsIdentity(t *testing.T) {
	api := &fakeAuth{currentUser: userOK(alice)}
	s, _ := newSlice(t, api)

	_, err := s.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.True(t, s.State().IsAuthenticated)

	api.currentUser = userFails("Session expired")
	_, err = s.GetCurrentUser(context.Background())
	require.Error(t, err)

	st := s.State()
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)
	assert.Equal(t, engine.Failed, st.Loading)
	assert.Equal(t, "Session expired", st.Error)
}

func TestGetCurrentUser_StaleResultDiscarded(t *testing.T) {
	entered := make(chan struct{})
	slow := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	api := &fakeAuth{currentUser: func() (*domain.Envelope[domain.User], error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(entered)
			<-slow
			return userFails("stale failure")()
		}
		return userOK(alice)()
	}}
	s, rec := newSlice(t, api)

	done := make(chan error, 1)
	go func() {
		_, err := s.GetCurrentUser(context.Background())
		done <- err
	}()
	<-entered

	_, err := s.GetCurrentUser(context.Background())
	require.NoError(t, err)
	close(slow)
	require.Error(t, <-done)

	st := s.State()
	assert.True(t, st.IsAuthenticated)
	assert.Empty(t, st.Error)
	assert.Equal(t, engine.Succeeded, st.Loading)

	var outcomes []string
	for _, ev := range rec.Events() {
		if ev.Type == "completion" {
			outcomes = append(outcomes, ev.Outcome)
		}
	}
	assert.Equal(t, []string{"ok", "superseded"}, outcomes)
}

func TestLogout_AlwaysClears(t *testing.T) {
	tests := []struct {
		name    string
		logout  func() (*domain.Envelope[domain.MessageData], error)
		wantErr bool
	}{
		{name: "server accepts", logout: okMessage("Logged out")},
		{name: "server fails", logout: failWith("Request failed with status code 500"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAuth{currentUser: userOK(alice), logout: tt.logout}
			s, _ := newSlice(t, api)
			_, err := s.GetCurrentUser(context.Background())
			require.NoError(t, err)

			err = s.Logout(context.Background())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			st := s.State()
			assert.Nil(t, st.User)
			assert.False(t, st.IsAuthenticated)
			assert.False(t, st.LogoutLoading)
		})
	}
}

func TestLogout_DiscardsInFlightIdentityFetch(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAuth{
		currentUser: func() (*domain.Envelope[domain.User], error) {
			<-release
			return userOK(alice)()
		},
		logout: okMessage("bye"),
	}
	s, _ := newSlice(t, api)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.GetCurrentUser(context.Background())
	}()
	require.Eventually(t, func() bool { return s.State().Loading == engine.Pending }, testTimeout, testTick)

	require.NoError(t, s.Logout(context.Background()))
	close(release)
	<-done

	st := s.State()
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)
}

func TestLogin_FailsWhenLogoutDiscardsIdentity(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAuth{
		login: okMessage("Logged in"),
		currentUser: func() (*domain.Envelope[domain.User], error) {
			<-release
			return userOK(alice)()
		},
		logout: okMessage("bye"),
	}
	s, rec := newSlice(t, api)
	s.MarkSessionExpired("/login")

	type result struct {
		user *domain.User
		err  error
	}
	done := make(chan result, 1)
	go func() {
		user, err := s.Login(context.Background(), domain.LoginPayload{Email: "a@b.com", Password: "pw"})
		done <- result{user, err}
	}()
	require.Eventually(t, func() bool { return s.State().Loading == engine.Pending }, testTimeout, testTick)

	require.NoError(t, s.Logout(context.Background()))
	close(release)
	res := <-done

	assert.Nil(t, res.user)
	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, engine.ErrSuperseded)
	assert.True(t, engine.IsOpError(res.err, OpLogin))

	st := s.State()
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)
	assert.False(t, st.LoginLoading)
	assert.Equal(t, res.err.Error(), st.Error)
	assert.Equal(t, "/login", st.RedirectTo)

	outcomes := map[string]string{}
	for _, ev := range rec.Events() {
		if ev.Type == "completion" {
			outcomes[ev.Op] = ev.Outcome
		}
	}
	assert.Equal(t, "superseded", outcomes[OpGetCurrentUser])
	assert.Equal(t, "error", outcomes[OpLogin])
}

func TestFireAndReportOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("change password", func(t *testing.T) {
		api := &fakeAuth{ack: okMessage("Password changed")}
		s, _ := newSlice(t, api)
		msg, err := s.ChangePassword(ctx, domain.ChangePasswordPayload{CurrentPassword: "a", NewPassword: "bbbbbb"})
		require.NoError(t, err)
		assert.Equal(t, "Password changed", msg)
		assert.False(t, s.State().ChangePasswordLoading)
	})

	t.Run("request reset fails", func(t *testing.T) {
		api := &fakeAuth{ack: failWith("No such account")}
		s, _ := newSlice(t, api)
		_, err := s.RequestPasswordReset(ctx, domain.ResetPasswordRequestPayload{Email: "x@y.z"})
		require.Error(t, err)
		st := s.State()
		assert.Equal(t, "No such account", st.Error)
		assert.False(t, st.ResetPasswordLoading)
	})

	t.Run("reset keeps identity untouched", func(t *testing.T) {
		api := &fakeAuth{ack: okMessage("Password reset"), currentUser: userOK(alice)}
		s, _ := newSlice(t, api)
		_, err := s.GetCurrentUser(ctx)
		require.NoError(t, err)
		_, err = s.ResetPassword(ctx, domain.ResetPasswordPayload{Token: "t", NewPassword: "newpass"})
		require.NoError(t, err)
		assert.True(t, s.State().IsAuthenticated)
	})
}

func TestReducers(t *testing.T) {
	api := &fakeAuth{currentUser: userOK(alice)}
	s, _ := newSlice(t, api)
	_, err := s.GetCurrentUser(context.Background())
	require.NoError(t, err)

	s.update(func(st *State) bool { st.Error = "boom"; return true })
	s.ClearError()
	assert.Empty(t, s.State().Error)

	s.HandleUnauthenticated(gateway.UnauthenticatedEvent{From: "/stores", To: "/login", Path: "/auth/me"})
	st := s.State()
	assert.False(t, st.IsAuthenticated)
	assert.Equal(t, "/login", st.RedirectTo)

	_, err = s.GetCurrentUser(context.Background())
	require.NoError(t, err)
	s.ClearAuth()
	assert.Nil(t, s.State().User)
}

func TestSnapshotsAreIsolated(t *testing.T) {
	api := &fakeAuth{currentUser: userOK(alice)}
	s, _ := newSlice(t, api)
	_, err := s.GetCurrentUser(context.Background())
	require.NoError(t, err)

	snap := s.State()
	snap.User.Name = "mallory"
	assert.Empty(t, s.State().User.Name)
}

func TestSelectors(t *testing.T) {
	owner := domain.User{ID: 2, Role: domain.RoleStoreOwner}
	admin := domain.User{ID: 3, Role: domain.RoleAdmin, IsEmailVerified: true}

	tests := []struct {
		name         string
		user         *domain.User
		admin        bool
		owner        bool
		verified     bool
		canManage    bool
		authVerified bool
	}{
		{name: "logged out"},
		{name: "user", user: &alice, verified: true, authVerified: true},
		{name: "store owner", user: &owner, owner: true, canManage: true},
		{name: "admin", user: &admin, admin: true, verified: true, canManage: true, authVerified: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var st State
			if tt.user != nil {
				st.setUser(*tt.user)
			}
			assert.Equal(t, tt.admin, st.IsAdmin())
			assert.Equal(t, tt.owner, st.IsStoreOwner())
			assert.Equal(t, tt.verified, st.IsEmailVerified())
			assert.Equal(t, tt.canManage, st.CanManageStores())
			assert.Equal(t, tt.authVerified, st.IsAuthenticatedAndVerified())
		})
	}
}

func TestSubscribersSeeEveryTransition(t *testing.T) {
	api := &fakeAuth{login: okMessage("ok"), currentUser: userOK(alice)}
	s, _ := newSlice(t, api)

	var seen []State
	unsubscribe := s.Subscribe(func(st State) { seen = append(seen, st) })
	_, err := s.Login(context.Background(), domain.LoginPayload{})
	require.NoError(t, err)
	unsubscribe()

	require.Len(t, seen, 4)
	assert.True(t, seen[0].LoginLoading)
	assert.Equal(t, engine.Pending, seen[1].Loading)
	assert.True(t, seen[2].IsAuthenticated)
	assert.True(t, seen[2].LoginLoading)
	assert.False(t, seen[3].LoginLoading)
}

func TestSubscribersEndOnLatestState(t *testing.T) {
	s, _ := newSlice(t, &fakeAuth{})

	var (
		mu   sync.Mutex
		last State
	)
	s.Subscribe(func(st State) {
		mu.Lock()
		last = st
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.MarkSessionExpired(fmt.Sprintf("/route-%d", i))
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, s.State(), last)
}

func TestErrorsCarryCause(t *testing.T) {
	api := &fakeAuth{login: failWith("nope")}
	s, _ := newSlice(t, api)
	_, err := s.Login(context.Background(), domain.LoginPayload{})

	var opErr *engine.OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, OpLogin, opErr.Op)
}
