package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/roach88/storefront/internal/domain"
)

func (c *Client) ListReviews(ctx context.Context) (*domain.Envelope[[]domain.Review], error) {
	return call[[]domain.Review](ctx, c, http.MethodGet, "/reviews", nil, nil)
}

func (c *Client) CreateReview(ctx context.Context, p domain.ReviewPayload) (*domain.Envelope[domain.Review], error) {
	return call[domain.Review](ctx, c, http.MethodPost, "/reviews", nil, p)
}

// UpdateReview replaces a review. The product link is immutable and is not
// sent.
func (c *Client) UpdateReview(ctx context.Context, id int64, p domain.ReviewPayload) (*domain.Envelope[domain.Review], error) {
	p.ProductID = 0
	return call[domain.Review](ctx, c, http.MethodPut, reviewPath(id), nil, p)
}

func (c *Client) DeleteReview(ctx context.Context, id int64) (*domain.Envelope[domain.MessageData], error) {
	return call[domain.MessageData](ctx, c, http.MethodDelete, reviewPath(id), nil, nil)
}

func reviewPath(id int64) string {
	return fmt.Sprintf("/reviews/%d", id)
}
