package service

import (
	"context"

	"pharmacart/storefront-service/internal/app/storefront/checkout"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/rating"

	"github.com/stretchr/testify/mock"
)

type mockDirectory struct {
	mock.Mock
}

func (m *mockDirectory) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type mockRatings struct {
	mock.Mock
}

func (m *mockRatings) Recompute(ctx context.Context, productID, trigger string) (rating.Summary, error) {
	args := m.Called(ctx, productID, trigger)
	return args.Get(0).(rating.Summary), args.Error(1)
}

type mockAssembler struct {
	mock.Mock
}

func (m *mockAssembler) Assemble(ctx context.Context, userID string, intent checkout.Intent) (*entity.Order, error) {
	args := m.Called(ctx, userID, intent)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Order), args.Error(1)
}

type mockCarts struct {
	mock.Mock
}

func (m *mockCarts) CartItems(ctx context.Context, uid string) ([]entity.CartItem, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CartItem), args.Error(1)
}

func (m *mockCarts) ClearCart(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}
