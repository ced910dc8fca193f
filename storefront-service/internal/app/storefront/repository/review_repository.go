package repository

import (
	"context"
	"errors"
	"fmt"

	"pharmacart/storefront-service/internal/app/storefront/docstore"
	"pharmacart/storefront-service/internal/app/storefront/entity"
)

type reviewRepository struct {
	store docstore.Store
}

func NewReviewRepository(store docstore.Store) ReviewRepository {
	return &reviewRepository{store: store}
}

func (r *reviewRepository) Create(ctx context.Context, review *entity.Review) error {
	if err := r.store.Create(ctx, CollectionReviews, review.ID, review); err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

func (r *reviewRepository) GetByID(ctx context.Context, id string) (*entity.Review, error) {
	raw, err := r.store.Get(ctx, CollectionReviews, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return docstore.Decode[entity.Review](raw)
}

func (r *reviewRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, CollectionReviews, id); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}

func (r *reviewRepository) ListByProduct(ctx context.Context, productID string) ([]entity.Review, error) {
	raws, err := r.store.Find(ctx, docstore.Query{
		Collection: CollectionReviews,
		Where:      []docstore.Filter{docstore.Eq("product_id", productID)},
		OrderBy:    "timestamp",
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find reviews: %w", err)
	}
	return docstore.DecodeAll[entity.Review](raws)
}
