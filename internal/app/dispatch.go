package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/session"
	"github.com/roach88/storefront/internal/stores"
	"github.com/roach88/storefront/internal/validate"
)

// Local reducers. They change slice state without a request and are not
// journaled.
const (
	OpClearAuthError     = "auth/clearError"
	OpClearAuth          = "auth/clearAuth"
	OpMarkSessionExpired = "auth/markSessionExpired"
	OpSetFilters         = "stores/setFilters"
	OpClearFilters       = "stores/clearFilters"
	OpClearSearchResults = "stores/clearSearchResults"
	OpClearCurrentStore  = "stores/clearCurrentStore"
	OpClearStoresError   = "stores/clearError"
)

// ErrUnknownOp is returned by Dispatch for names it has no handler for.
var ErrUnknownOp = errors.New("unknown operation")

// ArgsError reports arguments that could not be decoded for an operation.
type ArgsError struct {
	Op  string
	Err error
}

func (e *ArgsError) Error() string {
	return fmt.Sprintf("%s: invalid args: %v", e.Op, e.Err)
}

func (e *ArgsError) Unwrap() error {
	return e.Err
}

type handler func(ctx context.Context, a *App, raw json.RawMessage) (any, error)

var handlers = map[string]handler{
	session.OpLogin: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[domain.LoginPayload](session.OpLogin, raw)
		if err != nil {
			return nil, err
		}
		if err := validate.Login(p); err != nil {
			return nil, err
		}
		return a.Session.Login(ctx, p)
	},
	session.OpRegister: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[struct {
			domain.RegisterPayload
			ConfirmPassword *string `json:"confirmPassword"`
		}](session.OpRegister, raw)
		if err != nil {
			return nil, err
		}
		confirm := p.Password
		if p.ConfirmPassword != nil {
			confirm = *p.ConfirmPassword
		}
		if err := validate.Register(p.RegisterPayload, confirm); err != nil {
			return nil, err
		}
		return a.Session.Register(ctx, p.RegisterPayload)
	},
	session.OpVerifyEmail: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[domain.EmailVerificationPayload](session.OpVerifyEmail, raw)
		if err != nil {
			return nil, err
		}
		return a.Session.VerifyEmail(ctx, p)
	},
	session.OpGetCurrentUser: func(ctx context.Context, a *App, _ json.RawMessage) (any, error) {
		return a.Session.GetCurrentUser(ctx)
	},
	session.OpLogout: func(ctx context.Context, a *App, _ json.RawMessage) (any, error) {
		if err := a.Session.Logout(ctx); err != nil {
			return nil, err
		}
		return a.Session.State().Message, nil
	},
	session.OpChangePassword: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[domain.ChangePasswordPayload](session.OpChangePassword, raw)
		if err != nil {
			return nil, err
		}
		if err := validate.ChangePassword(p); err != nil {
			return nil, err
		}
		return a.Session.ChangePassword(ctx, p)
	},
	session.OpRequestPasswordReset: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[domain.ResetPasswordRequestPayload](session.OpRequestPasswordReset, raw)
		if err != nil {
			return nil, err
		}
		if err := validate.ResetRequest(p); err != nil {
			return nil, err
		}
		return a.Session.RequestPasswordReset(ctx, p)
	},
	session.OpResetPassword: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[struct {
			Token       string `json:"token"`
			NewPassword string `json:"newPassword"`
		}](session.OpResetPassword, raw)
		if err != nil {
			return nil, err
		}
		payload := domain.ResetPasswordPayload{Token: p.Token, NewPassword: p.NewPassword}
		if err := validate.ResetPassword(payload); err != nil {
			return nil, err
		}
		return a.Session.ResetPassword(ctx, payload)
	},

	stores.OpFetchStores: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		f, err := decode[domain.StoreFilters](stores.OpFetchStores, raw)
		if err != nil {
			return nil, err
		}
		return a.Stores.FetchStores(ctx, f)
	},
	stores.OpFetchStoreByID: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[idArgs](stores.OpFetchStoreByID, raw)
		if err != nil {
			return nil, err
		}
		return a.Stores.FetchStoreByID(ctx, p.ID)
	},
	stores.OpCreateStore: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[domain.CreateStorePayload](stores.OpCreateStore, raw)
		if err != nil {
			return nil, err
		}
		if err := validate.CreateStore(p); err != nil {
			return nil, err
		}
		return a.Stores.CreateStore(ctx, p)
	},
	stores.OpUpdateStore: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[struct {
			ID int64 `json:"id"`
			domain.UpdateStorePayload
		}](stores.OpUpdateStore, raw)
		if err != nil {
			return nil, err
		}
		return a.Stores.UpdateStore(ctx, p.ID, p.UpdateStorePayload)
	},
	stores.OpDeleteStore: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[idArgs](stores.OpDeleteStore, raw)
		if err != nil {
			return nil, err
		}
		return nil, a.Stores.DeleteStore(ctx, p.ID)
	},
	stores.OpFetchMyStores: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		f, err := decode[domain.StoreFilters](stores.OpFetchMyStores, raw)
		if err != nil {
			return nil, err
		}
		return a.Stores.FetchMyStores(ctx, f)
	},
	stores.OpFetchPendingStores: func(ctx context.Context, a *App, _ json.RawMessage) (any, error) {
		return a.Stores.FetchPendingStores(ctx)
	},
	stores.OpApproveStore: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[idArgs](stores.OpApproveStore, raw)
		if err != nil {
			return nil, err
		}
		return a.Stores.ApproveStore(ctx, p.ID)
	},
	stores.OpRejectStore: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[struct {
			ID     int64  `json:"id"`
			Reason string `json:"reason"`
		}](stores.OpRejectStore, raw)
		if err != nil {
			return nil, err
		}
		return a.Stores.RejectStore(ctx, p.ID, p.Reason)
	},
	stores.OpUpdateStoreStatus: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		}](stores.OpUpdateStoreStatus, raw)
		if err != nil {
			return nil, err
		}
		return a.Stores.UpdateStoreStatus(ctx, p.ID, domain.StoreStatus(p.Status))
	},
	stores.OpSearchStores: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[struct {
			Term string `json:"term"`
		}](stores.OpSearchStores, raw)
		if err != nil {
			return nil, err
		}
		return a.Stores.SearchStores(ctx, p.Term)
	},

	OpFetchReviews: func(ctx context.Context, a *App, _ json.RawMessage) (any, error) {
		return a.FetchReviews(ctx)
	},
	OpCreateReview: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[domain.ReviewPayload](OpCreateReview, raw)
		if err != nil {
			return nil, err
		}
		if err := validate.ReviewPayload(p); err != nil {
			return nil, err
		}
		return a.CreateReview(ctx, p)
	},
	OpUpdateReview: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[struct {
			ID int64 `json:"id"`
			domain.ReviewPayload
		}](OpUpdateReview, raw)
		if err != nil {
			return nil, err
		}
		if err := validate.ReviewPayload(p.ReviewPayload); err != nil {
			return nil, err
		}
		return a.UpdateReview(ctx, p.ID, p.ReviewPayload)
	},
	OpDeleteReview: func(ctx context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[idArgs](OpDeleteReview, raw)
		if err != nil {
			return nil, err
		}
		return nil, a.DeleteReview(ctx, p.ID)
	},

	OpClearAuthError: func(_ context.Context, a *App, _ json.RawMessage) (any, error) {
		a.Session.ClearError()
		return nil, nil
	},
	OpClearAuth: func(_ context.Context, a *App, _ json.RawMessage) (any, error) {
		a.Session.ClearAuth()
		return nil, nil
	},
	OpMarkSessionExpired: func(_ context.Context, a *App, raw json.RawMessage) (any, error) {
		p, err := decode[struct {
			Route string `json:"route"`
		}](OpMarkSessionExpired, raw)
		if err != nil {
			return nil, err
		}
		a.Session.MarkSessionExpired(p.Route)
		return nil, nil
	},
	OpSetFilters: func(_ context.Context, a *App, raw json.RawMessage) (any, error) {
		f, err := decode[domain.StoreFilters](OpSetFilters, raw)
		if err != nil {
			return nil, err
		}
		a.Stores.SetFilters(f)
		return nil, nil
	},
	OpClearFilters: func(_ context.Context, a *App, _ json.RawMessage) (any, error) {
		a.Stores.ClearFilters()
		return nil, nil
	},
	OpClearSearchResults: func(_ context.Context, a *App, _ json.RawMessage) (any, error) {
		a.Stores.ClearSearchResults()
		return nil, nil
	},
	OpClearCurrentStore: func(_ context.Context, a *App, _ json.RawMessage) (any, error) {
		a.Stores.ClearCurrentStore()
		return nil, nil
	},
	OpClearStoresError: func(_ context.Context, a *App, _ json.RawMessage) (any, error) {
		a.Stores.ClearError()
		return nil, nil
	},
}

type idArgs struct {
	ID int64 `json:"id"`
}

// Ops lists every name Dispatch accepts, sorted.
func Ops() []string {
	out := make([]string, 0, len(handlers))
	for name := range handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the named operation with args decoded from their JSON form.
// Unknown fields in args are rejected. The result is whatever the slice
// method returns: a user, a store, a page, a message, or nil.
func (a *App) Dispatch(ctx context.Context, op string, args map[string]any) (any, error) {
	h, ok := handlers[op]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownOp, op)
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, &ArgsError{Op: op, Err: err}
	}
	return h(ctx, a, raw)
}

// DispatchJSON is Dispatch for args already in JSON form.
func (a *App) DispatchJSON(ctx context.Context, op string, raw json.RawMessage) (any, error) {
	h, ok := handlers[op]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownOp, op)
	}
	return h(ctx, a, raw)
}

func decode[T any](op string, raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return v, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, &ArgsError{Op: op, Err: err}
	}
	return v, nil
}
