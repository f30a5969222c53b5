package session

import (
	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/engine"
)

// State is a snapshot of the session slice. There is no token: the session
// cookie lives in the transport, and User == nil with IsAuthenticated ==
// false is the whole of "logged out".
type State struct {
	User            *domain.User        `json:"user"`
	IsAuthenticated bool                `json:"isAuthenticated"`
	Loading         engine.LoadingState `json:"loading"`
	Error           string              `json:"error"`
	Message         string              `json:"message"`

	// RedirectTo is set when the server rejected the session and holds the
	// entry route the shell should show. Cleared by a successful login or
	// verification.
	RedirectTo string `json:"redirectTo"`

	LoginLoading          bool `json:"loginLoading"`
	RegisterLoading       bool `json:"registerLoading"`
	LogoutLoading         bool `json:"logoutLoading"`
	VerifyEmailLoading    bool `json:"verifyEmailLoading"`
	ChangePasswordLoading bool `json:"changePasswordLoading"`
	ResetPasswordLoading  bool `json:"resetPasswordLoading"`
}

func initialState() State {
	return State{Loading: engine.Idle}
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Consistent reports whether IsAuthenticated agrees with User.
func (s State) Consistent() bool {
	return s.IsAuthenticated == (s.User != nil)
}

func (s *State) setUser(u domain.User) {
	s.User = &u
	s.IsAuthenticated = true
}

func (s *State) clearUser() {
	s.User = nil
	s.IsAuthenticated = false
}

// Role returns the signed-in user's role, or "" when logged out.
func (s State) Role() domain.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

func (s State) IsAdmin() bool {
	return s.Role() == domain.RoleAdmin
}

func (s State) IsStoreOwner() bool {
	return s.Role() == domain.RoleStoreOwner
}

func (s State) IsEmailVerified() bool {
	return s.User != nil && s.User.IsEmailVerified
}

func (s State) IsAuthenticatedAndVerified() bool {
	return s.IsAuthenticated && s.IsEmailVerified()
}

// CanManageStores reports whether the user may open the store management
// pages. The server still enforces ownership.
func (s State) CanManageStores() bool {
	return s.IsAdmin() || s.IsStoreOwner()
}
