package app

import (
	"context"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/engine"
)

// Review operations have no slice; they go through the runtime so they are
// journaled like everything else.
const (
	OpFetchReviews = "reviews/fetchReviews"
	OpCreateReview = "reviews/createReview"
	OpUpdateReview = "reviews/updateReview"
	OpDeleteReview = "reviews/deleteReview"
)

func (a *App) FetchReviews(ctx context.Context) ([]domain.Review, error) {
	return journaled(ctx, a, OpFetchReviews, nil, "Failed to fetch reviews",
		func(ctx context.Context) (*domain.Envelope[[]domain.Review], error) {
			return a.Gateway.ListReviews(ctx)
		})
}

func (a *App) CreateReview(ctx context.Context, p domain.ReviewPayload) (domain.Review, error) {
	return journaled(ctx, a, OpCreateReview, map[string]any{"title": p.Title, "rating": p.Rating}, "Failed to create review",
		func(ctx context.Context) (*domain.Envelope[domain.Review], error) {
			return a.Gateway.CreateReview(ctx, p)
		})
}

func (a *App) UpdateReview(ctx context.Context, id int64, p domain.ReviewPayload) (domain.Review, error) {
	return journaled(ctx, a, OpUpdateReview, map[string]any{"id": id, "rating": p.Rating}, "Failed to update review",
		func(ctx context.Context) (*domain.Envelope[domain.Review], error) {
			return a.Gateway.UpdateReview(ctx, id, p)
		})
}

func (a *App) DeleteReview(ctx context.Context, id int64) error {
	_, err := journaled(ctx, a, OpDeleteReview, map[string]any{"id": id}, "Failed to delete review",
		func(ctx context.Context) (*domain.Envelope[domain.MessageData], error) {
			env, err := a.Gateway.DeleteReview(ctx, id)
			if err == nil && env.Data == nil && env.Success {
				env.Data = &domain.MessageData{Message: env.Message}
			}
			return env, err
		})
	return err
}

func journaled[T any](
	ctx context.Context,
	a *App,
	name string,
	args map[string]any,
	fallback string,
	call func(context.Context) (*domain.Envelope[T], error),
) (T, error) {
	var zero T
	ctx, op := a.Runtime.Begin(ctx, name, args)

	env, err := call(ctx)
	switch {
	case err != nil:
		err = engine.Fail(name, err, fallback)
	case !env.Success || env.Data == nil:
		msg := env.Message
		if msg == "" {
			msg = fallback
		}
		err = &engine.OpError{Op: name, Message: msg}
	}
	op.Finish(err)
	if err != nil {
		return zero, err
	}
	return *env.Data, nil
}
