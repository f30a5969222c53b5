package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/roach88/storefront/internal/domain"
)

// StorePage is the data block of the paginated store listings.
type StorePage = domain.Page[domain.Store]

func (c *Client) ListStores(ctx context.Context, f domain.StoreFilters) (*domain.Envelope[StorePage], error) {
	return call[StorePage](ctx, c, http.MethodGet, "/store", f.Values(), nil)
}

func (c *Client) GetStore(ctx context.Context, id int64) (*domain.Envelope[domain.Store], error) {
	return call[domain.Store](ctx, c, http.MethodGet, storePath(id), nil, nil)
}

func (c *Client) CreateStore(ctx context.Context, p domain.CreateStorePayload) (*domain.Envelope[domain.Store], error) {
	return call[domain.Store](ctx, c, http.MethodPost, "/store", nil, p)
}

func (c *Client) UpdateStore(ctx context.Context, id int64, p domain.UpdateStorePayload) (*domain.Envelope[domain.Store], error) {
	return call[domain.Store](ctx, c, http.MethodPut, storePath(id), nil, p)
}

func (c *Client) DeleteStore(ctx context.Context, id int64) (*domain.Envelope[domain.MessageData], error) {
	return call[domain.MessageData](ctx, c, http.MethodDelete, storePath(id), nil, nil)
}

// ListMyStores lists the caller's stores. OwnerID is implied by the session
// and is never sent.
func (c *Client) ListMyStores(ctx context.Context, f domain.StoreFilters) (*domain.Envelope[StorePage], error) {
	f.OwnerID = nil
	return call[StorePage](ctx, c, http.MethodGet, "/store/my-stores", f.Values(), nil)
}

// Admin returns the moderation endpoints.
func (c *Client) Admin() AdminAPI {
	return AdminAPI{c: c}
}

// AdminAPI groups the /store/admin endpoints.
type AdminAPI struct {
	c *Client
}

func (a AdminAPI) ListPending(ctx context.Context) (*domain.Envelope[[]domain.Store], error) {
	return call[[]domain.Store](ctx, a.c, http.MethodGet, "/store/admin/pending", nil, nil)
}

func (a AdminAPI) Approve(ctx context.Context, id int64) (*domain.Envelope[domain.Store], error) {
	return call[domain.Store](ctx, a.c, http.MethodPatch, adminPath(id, "approve"), nil, nil)
}

func (a AdminAPI) Reject(ctx context.Context, id int64, reason string) (*domain.Envelope[domain.Store], error) {
	return call[domain.Store](ctx, a.c, http.MethodPatch, adminPath(id, "reject"), nil, domain.RejectPayload{Reason: reason})
}

func (a AdminAPI) SetStatus(ctx context.Context, id int64, status domain.StoreStatus) (*domain.Envelope[domain.Store], error) {
	return call[domain.Store](ctx, a.c, http.MethodPatch, adminPath(id, "status"), nil, domain.StatusPayload{Status: status})
}

func storePath(id int64) string {
	return fmt.Sprintf("/store/%d", id)
}

func adminPath(id int64, action string) string {
	return fmt.Sprintf("/store/admin/%d/%s", id, action)
}
