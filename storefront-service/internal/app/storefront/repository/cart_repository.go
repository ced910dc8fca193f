package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pharmacart/pkg/logger"
	"pharmacart/storefront-service/internal/app/storefront/docstore"
	"pharmacart/storefront-service/internal/app/storefront/entity"

	"go.mongodb.org/mongo-driver/bson"
)

type cartRepository struct {
	store docstore.Store
}

func NewCartRepository(store docstore.Store) CartRepository {
	return &cartRepository{store: store}
}

func cartQuery(accountID string) docstore.Query {
	return docstore.Query{
		Collection: CollectionCartItems,
		Where:      []docstore.Filter{docstore.Eq("account_id", accountID)},
		OrderBy:    "added_at",
	}
}

// Increment создает строку с qty или прибавляет qty к существующей.
// Снапшот товара пишется только при создании строки.
func (r *cartRepository) Increment(ctx context.Context, accountID string, product entity.Product, qty int) error {
	m := docstore.Mutation{
		Inc: bson.M{"quantity": qty},
		SetOnInsert: bson.M{
			"account_id": accountID,
			"product_id": product.ID,
			"product":    product,
			"added_at":   time.Now().UTC(),
		},
		Upsert: true,
	}
	if err := r.store.Apply(ctx, CollectionCartItems, entity.CartItemID(accountID, product.ID), m); err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) SetQuantity(ctx context.Context, accountID, productID string, qty int) error {
	m := docstore.Mutation{Set: bson.M{"quantity": qty}}
	if err := r.store.Apply(ctx, CollectionCartItems, entity.CartItemID(accountID, productID), m); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("failed to set cart item quantity: %w", err)
	}
	return nil
}

func (r *cartRepository) Remove(ctx context.Context, accountID, productID string) error {
	if err := r.store.Delete(ctx, CollectionCartItems, entity.CartItemID(accountID, productID)); err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

func (r *cartRepository) Clear(ctx context.Context, accountID string) error {
	items, err := r.List(ctx, accountID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	ops := make([]docstore.Op, 0, len(items))
	for _, it := range items {
		ops = append(ops, docstore.DeleteOp(CollectionCartItems, it.ID))
	}
	if err := r.store.Batch(ctx, ops); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func (r *cartRepository) List(ctx context.Context, accountID string) ([]entity.CartItem, error) {
	raws, err := r.store.Find(ctx, cartQuery(accountID))
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	return docstore.DecodeAll[entity.CartItem](raws)
}

func (r *cartRepository) Watch(ctx context.Context, accountID string, fn func([]entity.CartItem)) (docstore.Subscription, error) {
	sub, err := r.store.Watch(ctx, cartQuery(accountID), func(docs []bson.Raw) {
		items, err := docstore.DecodeAll[entity.CartItem](docs)
		if err != nil {
			logger.Error().Err(err).Str("account_id", accountID).Msg("Failed to decode cart snapshot")
			return
		}
		fn(items)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to watch cart: %w", err)
	}
	return sub, nil
}
