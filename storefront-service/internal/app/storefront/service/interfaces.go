package service

import (
	"context"

	"pharmacart/storefront-service/internal/app/storefront/checkout"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/rating"
)

var _ DirectoryInvalidator = (*checkout.PharmacyDirectory)(nil)
var _ RatingRecomputer = (*rating.Aggregator)(nil)
var _ OrderAssembler = (*checkout.Assembler)(nil)

// DirectoryInvalidator сбрасывает кеш справочника аптек
type DirectoryInvalidator interface {
	Invalidate(ctx context.Context) error
}

type RatingRecomputer interface {
	Recompute(ctx context.Context, productID, trigger string) (rating.Summary, error)
}

type OrderAssembler interface {
	Assemble(ctx context.Context, userID string, intent checkout.Intent) (*entity.Order, error)
}

// Carts - доступ к корзине вошедшего аккаунта
type Carts interface {
	CartItems(ctx context.Context, uid string) ([]entity.CartItem, error)
	ClearCart(ctx context.Context, uid string) error
}
