package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/roach88/storefront/internal/domain"
)

func (c *Client) Login(ctx context.Context, p domain.LoginPayload) (*domain.Envelope[domain.MessageData], error) {
	return call[domain.MessageData](ctx, c, http.MethodPost, "/auth/login", nil, p)
}

func (c *Client) Register(ctx context.Context, p domain.RegisterPayload) (*domain.Envelope[domain.MessageData], error) {
	return call[domain.MessageData](ctx, c, http.MethodPost, "/auth/signup", nil, p)
}

func (c *Client) VerifyEmail(ctx context.Context, p domain.EmailVerificationPayload) (*domain.Envelope[domain.VerificationData], error) {
	return call[domain.VerificationData](ctx, c, http.MethodPost, "/auth/verify-token", nil, p)
}

func (c *Client) CurrentUser(ctx context.Context) (*domain.Envelope[domain.User], error) {
	return call[domain.User](ctx, c, http.MethodGet, "/auth/me", nil, nil)
}

func (c *Client) Logout(ctx context.Context) (*domain.Envelope[domain.MessageData], error) {
	return call[domain.MessageData](ctx, c, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) ChangePassword(ctx context.Context, p domain.ChangePasswordPayload) (*domain.Envelope[domain.MessageData], error) {
	return call[domain.MessageData](ctx, c, http.MethodPost, "/auth/change-password", nil, p)
}

func (c *Client) RequestPasswordReset(ctx context.Context, p domain.ResetPasswordRequestPayload) (*domain.Envelope[domain.MessageData], error) {
	return call[domain.MessageData](ctx, c, http.MethodPost, "/auth/reset-password", nil, p)
}

// ResetPassword completes a reset. The token goes in the path; without one
// the path would name the reset-request endpoint, so nothing is sent.
func (c *Client) ResetPassword(ctx context.Context, p domain.ResetPasswordPayload) (*domain.Envelope[domain.MessageData], error) {
	if strings.TrimSpace(p.Token) == "" {
		return nil, ErrMissingResetToken
	}
	return call[domain.MessageData](ctx, c, http.MethodPost, "/auth/reset-password/"+url.PathEscape(p.Token), nil, p)
}

// CheckAuthStatus reports whether the session cookie is currently accepted:
// any 2xx from /auth/me counts, whatever the body. Any failure counts as
// "not authenticated".
func (c *Client) CheckAuthStatus(ctx context.Context) bool {
	_, err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil)
	return err == nil
}
