package mocks

import (
	"context"
	"sync"

	"pharmacart/storefront-service/internal/app/storefront/docstore"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/repository"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository мок для AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, uid string) (*entity.Account, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *entity.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) Update(ctx context.Context, account *entity.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) ListByRole(ctx context.Context, role entity.Role) ([]entity.Account, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Account), args.Error(1)
}

// MockProductRepository мок для ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]entity.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *entity.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) SetRating(ctx context.Context, id string, rating float64, reviewCount int) error {
	args := m.Called(ctx, id, rating, reviewCount)
	return args.Error(0)
}

// MockReviewRepository мок для ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, review *entity.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *MockReviewRepository) GetByID(ctx context.Context, id string) (*entity.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Review), args.Error(1)
}

func (m *MockReviewRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockReviewRepository) ListByProduct(ctx context.Context, productID string) ([]entity.Review, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

// MockCartRepository мок для CartRepository
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) Increment(ctx context.Context, accountID string, product entity.Product, qty int) error {
	args := m.Called(ctx, accountID, product, qty)
	return args.Error(0)
}

func (m *MockCartRepository) SetQuantity(ctx context.Context, accountID, productID string, qty int) error {
	args := m.Called(ctx, accountID, productID, qty)
	return args.Error(0)
}

func (m *MockCartRepository) Remove(ctx context.Context, accountID, productID string) error {
	args := m.Called(ctx, accountID, productID)
	return args.Error(0)
}

func (m *MockCartRepository) Clear(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockCartRepository) List(ctx context.Context, accountID string) ([]entity.CartItem, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CartItem), args.Error(1)
}

func (m *MockCartRepository) Watch(ctx context.Context, accountID string, fn func([]entity.CartItem)) (docstore.Subscription, error) {
	args := m.Called(ctx, accountID, fn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(docstore.Subscription), args.Error(1)
}

// MockOrderRepository мок для OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *entity.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByUser(ctx context.Context, userID string) ([]entity.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByPharmacy(ctx context.Context, pharmacyID string) ([]entity.Order, error) {
	args := m.Called(ctx, pharmacyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Order), args.Error(1)
}

// MockMessagePublisher мок для Kafka MessagePublisher
type MockMessagePublisher struct {
	mock.Mock
	mu       sync.Mutex
	Keys     []string
	Messages [][]byte
}

func (m *MockMessagePublisher) PublishMessage(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.Keys = append(m.Keys, key)
	m.Messages = append(m.Messages, value)
	m.mu.Unlock()
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockDraftStore мок для хранилища черновиков заказов
type MockDraftStore struct {
	mock.Mock
}

func (m *MockDraftStore) SaveDraft(ctx context.Context, order *entity.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockDraftStore) GetDraft(ctx context.Context, id string) (*entity.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Order), args.Error(1)
}

func (m *MockDraftStore) DeleteDraft(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
