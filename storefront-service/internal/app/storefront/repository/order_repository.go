package repository

import (
	"context"
	"errors"
	"fmt"

	"pharmacart/storefront-service/internal/app/storefront/docstore"
	"pharmacart/storefront-service/internal/app/storefront/entity"
)

type orderRepository struct {
	store docstore.Store
}

func NewOrderRepository(store docstore.Store) OrderRepository {
	return &orderRepository{store: store}
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	if err := r.store.Create(ctx, CollectionOrders, order.ID, order); err != nil {
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return ErrOrderExists
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	raw, err := r.store.Get(ctx, CollectionOrders, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return docstore.Decode[entity.Order](raw)
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]entity.Order, error) {
	return r.list(ctx, docstore.Eq("user_id", userID))
}

func (r *orderRepository) ListByPharmacy(ctx context.Context, pharmacyID string) ([]entity.Order, error) {
	return r.list(ctx, docstore.Eq("pharmacy_id", pharmacyID))
}

func (r *orderRepository) list(ctx context.Context, filter docstore.Filter) ([]entity.Order, error) {
	raws, err := r.store.Find(ctx, docstore.Query{
		Collection: CollectionOrders,
		Where:      []docstore.Filter{filter},
		OrderBy:    "order_date",
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return docstore.DecodeAll[entity.Order](raws)
}
