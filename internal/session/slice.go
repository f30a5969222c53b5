package session

import (
	"context"
	"sync"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/engine"
	"github.com/roach88/storefront/internal/gateway"
)

// Operation names, as they appear in logs and the journal.
const (
	OpLogin                = "auth/login"
	OpRegister             = "auth/register"
	OpVerifyEmail          = "auth/verifyEmail"
	OpGetCurrentUser       = "auth/getCurrentUser"
	OpLogout               = "auth/logout"
	OpChangePassword       = "auth/changePassword"
	OpRequestPasswordReset = "auth/requestPasswordReset"
	OpResetPassword        = "auth/resetPassword"
)

const identityFetch = "identity"

// AuthAPI is the part of the gateway the session slice calls.
type AuthAPI interface {
	Login(ctx context.Context, p domain.LoginPayload) (*domain.Envelope[domain.MessageData], error)
	Register(ctx context.Context, p domain.RegisterPayload) (*domain.Envelope[domain.MessageData], error)
	VerifyEmail(ctx context.Context, p domain.EmailVerificationPayload) (*domain.Envelope[domain.VerificationData], error)
	CurrentUser(ctx context.Context) (*domain.Envelope[domain.User], error)
	Logout(ctx context.Context) (*domain.Envelope[domain.MessageData], error)
	ChangePassword(ctx context.Context, p domain.ChangePasswordPayload) (*domain.Envelope[domain.MessageData], error)
	RequestPasswordReset(ctx context.Context, p domain.ResetPasswordRequestPayload) (*domain.Envelope[domain.MessageData], error)
	ResetPassword(ctx context.Context, p domain.ResetPasswordPayload) (*domain.Envelope[domain.MessageData], error)
}

var _ AuthAPI = (*gateway.Client)(nil)

// Slice is the session state container. Safe for concurrent use.
type Slice struct {
	api AuthAPI
	rt  *engine.Runtime

	mu    sync.Mutex
	state State
	gens  engine.Generations

	version uint64
	hub     engine.Hub[State]
}

// New creates a logged-out session slice.
func New(api AuthAPI, rt *engine.Runtime) *Slice {
	if rt == nil {
		rt = engine.New()
	}
	return &Slice{
		api:   api,
		rt:    rt,
		state: initialState(),
		gens:  engine.Generations{},
	}
}

// State returns a snapshot of the current state.
func (s *Slice) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive a snapshot after every transition.
func (s *Slice) Subscribe(fn func(State)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

// update applies fn under the lock and notifies subscribers after
// unlocking. fn returns false to leave state untouched.
func (s *Slice) update(fn func(st *State) bool) bool {
	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return false
	}
	if !s.state.Consistent() {
		s.rt.Logger().Errorw("session state inconsistent",
			"isAuthenticated", s.state.IsAuthenticated,
			"hasUser", s.state.User != nil,
		)
	}
	s.version++
	snap, version := s.state.clone(), s.version
	s.mu.Unlock()

	s.hub.Publish(version, snap)
	return true
}

// Login authenticates, then fetches the identity within the same flow. It
// succeeds only when the identity fetch does and its user is applied. It
// fails with the fetch's error, or with engine.ErrSuperseded when a logout
// or newer fetch discarded the result.
func (s *Slice) Login(ctx context.Context, p domain.LoginPayload) (*domain.User, error) {
	ctx, op := s.rt.Begin(ctx, OpLogin, map[string]any{"email": p.Email})
	s.update(func(st *State) bool {
		st.LoginLoading = true
		st.Error = ""
		return true
	})

	var callErr error
	env, err := s.api.Login(ctx, p)
	switch {
	case err != nil:
		callErr = engine.Fail(OpLogin, err, "Login failed")
	case !env.Success:
		callErr = rejected(OpLogin, env.Message, "Login failed")
	}

	var user *domain.User
	err = callErr
	if err == nil {
		user, err = s.chainIdentity(ctx, OpLogin, "Login")
	}
	op.Finish(err)

	s.update(func(st *State) bool {
		st.LoginLoading = false
		if err != nil {
			st.Error = err.Error()
			if callErr != nil {
				st.clearUser()
			}
			return true
		}
		st.Error = ""
		st.RedirectTo = ""
		return true
	})
	return user, err
}

// Register creates an account. The account is not signed in until the email
// address is verified; only the server's message is kept.
func (s *Slice) Register(ctx context.Context, p domain.RegisterPayload) (string, error) {
	args := map[string]any{"email": p.Email, "name": p.Name}
	if p.Role != "" {
		args["role"] = string(p.Role)
	}
	return s.report(ctx, OpRegister, args, func(st *State) *bool { return &st.RegisterLoading }, "Registration failed",
		func(ctx context.Context) (*domain.Envelope[domain.MessageData], error) {
			return s.api.Register(ctx, p)
		})
}

// VerifyEmail confirms the emailed token, then fetches the identity exactly
// like Login.
func (s *Slice) VerifyEmail(ctx context.Context, p domain.EmailVerificationPayload) (*domain.User, error) {
	ctx, op := s.rt.Begin(ctx, OpVerifyEmail, map[string]any{"email": p.Email})
	s.update(func(st *State) bool {
		st.VerifyEmailLoading = true
		st.Error = ""
		return true
	})

	var err error
	env, callErr := s.api.VerifyEmail(ctx, p)
	switch {
	case callErr != nil:
		err = engine.Fail(OpVerifyEmail, callErr, "Email verification failed")
	case !env.Success || env.Data == nil || !env.Data.Valid:
		err = rejected(OpVerifyEmail, env.Message, "Email verification failed")
	}

	var user *domain.User
	if err == nil {
		user, err = s.chainIdentity(ctx, OpVerifyEmail, "Email verification")
	}
	op.Finish(err)

	s.update(func(st *State) bool {
		st.VerifyEmailLoading = false
		if err != nil {
			st.Error = err.Error()
			return true
		}
		st.Error = ""
		st.Message = env.Data.Message
		st.RedirectTo = ""
		return true
	})
	return user, err
}

// GetCurrentUser fetches the identity behind the session cookie. It is the
// only operation that sets the user; any failure clears it. A result that
// arrives after a newer identity fetch (or a logout) was dispatched is
// discarded and leaves state alone.
func (s *Slice) GetCurrentUser(ctx context.Context) (*domain.User, error) {
	user, _, err := s.fetchIdentity(ctx)
	return user, err
}

// chainIdentity runs the identity fetch that completes a sign-in. The
// sign-in fails when the fetch fails, and also when the fetch lost to a
// newer identity fetch or a logout, since its user was never applied.
func (s *Slice) chainIdentity(ctx context.Context, op, label string) (*domain.User, error) {
	user, applied, err := s.fetchIdentity(ctx)
	switch {
	case err != nil:
		return nil, chained(op, err)
	case !applied:
		return nil, &engine.OpError{Op: op, Message: label + " superseded by a newer session change", Err: engine.ErrSuperseded}
	}
	return user, nil
}

// fetchIdentity is GetCurrentUser that also reports whether its result was
// applied to state.
func (s *Slice) fetchIdentity(ctx context.Context) (*domain.User, bool, error) {
	ctx, op := s.rt.Begin(ctx, OpGetCurrentUser, nil)
	s.update(func(st *State) bool {
		s.gens.Mark(identityFetch, op.Gen())
		st.Loading = engine.Pending
		st.Error = ""
		return true
	})

	var user *domain.User
	env, err := s.api.CurrentUser(ctx)
	switch {
	case err != nil:
		err = engine.Fail(OpGetCurrentUser, err, "Failed to get user")
	case !env.Success || env.Data == nil:
		err = rejected(OpGetCurrentUser, env.Message, "Failed to get user")
	default:
		user = env.Data
	}

	applied := s.update(func(st *State) bool {
		if !s.gens.Current(identityFetch, op.Gen()) {
			return false
		}
		if err != nil {
			st.Loading = engine.Failed
			st.Error = err.Error()
			st.clearUser()
			return true
		}
		st.Loading = engine.Succeeded
		st.Error = ""
		st.setUser(*user)
		return true
	})
	if !applied {
		op.Supersede()
		return user, false, err
	}
	op.Finish(err)
	return user, true, err
}

// Logout ends the session. Whatever the server answers, the slice ends up
// logged out, and identity fetches still in flight are discarded.
func (s *Slice) Logout(ctx context.Context) error {
	ctx, op := s.rt.Begin(ctx, OpLogout, nil)
	s.update(func(st *State) bool {
		s.gens.Mark(identityFetch, op.Gen())
		st.LogoutLoading = true
		st.Error = ""
		return true
	})

	env, err := s.api.Logout(ctx)
	if err != nil {
		err = engine.Fail(OpLogout, err, "Logout failed")
	}
	op.Finish(err)

	s.update(func(st *State) bool {
		st.LogoutLoading = false
		st.clearUser()
		st.Loading = engine.Idle
		if err != nil {
			st.Error = err.Error()
			return true
		}
		st.Message = messageOf(env)
		return true
	})
	return err
}

func (s *Slice) ChangePassword(ctx context.Context, p domain.ChangePasswordPayload) (string, error) {
	return s.report(ctx, OpChangePassword, nil, func(st *State) *bool { return &st.ChangePasswordLoading }, "Password change failed",
		func(ctx context.Context) (*domain.Envelope[domain.MessageData], error) {
			return s.api.ChangePassword(ctx, p)
		})
}

// RequestPasswordReset asks the server to email a reset token. It shares the
// reset busy flag with ResetPassword.
func (s *Slice) RequestPasswordReset(ctx context.Context, p domain.ResetPasswordRequestPayload) (string, error) {
	return s.report(ctx, OpRequestPasswordReset, map[string]any{"email": p.Email}, func(st *State) *bool { return &st.ResetPasswordLoading }, "Password reset request failed",
		func(ctx context.Context) (*domain.Envelope[domain.MessageData], error) {
			return s.api.RequestPasswordReset(ctx, p)
		})
}

func (s *Slice) ResetPassword(ctx context.Context, p domain.ResetPasswordPayload) (string, error) {
	return s.report(ctx, OpResetPassword, nil, func(st *State) *bool { return &st.ResetPasswordLoading }, "Password reset failed",
		func(ctx context.Context) (*domain.Envelope[domain.MessageData], error) {
			return s.api.ResetPassword(ctx, p)
		})
}

// report runs a fire-and-report operation: only its busy flag, the error
// and the message change.
func (s *Slice) report(
	ctx context.Context,
	name string,
	args map[string]any,
	busy func(*State) *bool,
	fallback string,
	call func(context.Context) (*domain.Envelope[domain.MessageData], error),
) (string, error) {
	ctx, op := s.rt.Begin(ctx, name, args)
	s.update(func(st *State) bool {
		*busy(st) = true
		st.Error = ""
		return true
	})

	env, err := call(ctx)
	switch {
	case err != nil:
		err = engine.Fail(name, err, fallback)
	case !env.Success:
		err = rejected(name, env.Message, fallback)
	}
	op.Finish(err)

	var msg string
	if err == nil {
		msg = messageOf(env)
	}
	s.update(func(st *State) bool {
		*busy(st) = false
		if err != nil {
			st.Error = err.Error()
			return true
		}
		st.Error = ""
		st.Message = msg
		return true
	})
	return msg, err
}

// ClearError drops the outstanding error message.
func (s *Slice) ClearError() {
	s.update(func(st *State) bool {
		st.Error = ""
		return true
	})
}

// ClearAuth forgets the signed-in user without calling the server.
func (s *Slice) ClearAuth() {
	s.update(func(st *State) bool {
		st.clearUser()
		st.Error = ""
		return true
	})
}

// MarkSessionExpired records that the server rejected the session: the user
// is dropped and the shell is asked to show route.
func (s *Slice) MarkSessionExpired(route string) {
	s.update(func(st *State) bool {
		st.clearUser()
		st.RedirectTo = route
		return true
	})
}

// HandleUnauthenticated adapts MarkSessionExpired to the gateway's event.
func (s *Slice) HandleUnauthenticated(ev gateway.UnauthenticatedEvent) {
	s.rt.Logger().Debugw("session expired", "from", ev.From, "to", ev.To, "path", ev.Path)
	s.MarkSessionExpired(ev.To)
}

func rejected(op, serverMsg, fallback string) error {
	if serverMsg == "" {
		serverMsg = fallback
	}
	return &engine.OpError{Op: op, Message: serverMsg}
}

// chained re-labels the inner failure of a chained fetch as the outer
// operation's failure, keeping the inner message.
func chained(op string, inner error) error {
	return &engine.OpError{Op: op, Message: inner.Error(), Err: inner}
}

func messageOf(env *domain.Envelope[domain.MessageData]) string {
	if env == nil {
		return ""
	}
	if env.Data != nil && env.Data.Message != "" {
		return env.Data.Message
	}
	return env.Message
}
