package repository

import (
	"context"
	"errors"

	"pharmacart/storefront-service/internal/app/storefront/docstore"
	"pharmacart/storefront-service/internal/app/storefront/entity"
)

// Коллекции документного хранилища
const (
	CollectionAccounts  = "accounts"
	CollectionProducts  = "products"
	CollectionReviews   = "reviews"
	CollectionOrders    = "orders"
	CollectionCartItems = "cart_items"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountExists    = errors.New("account already exists")
	ErrProductNotFound  = errors.New("product not found")
	ErrReviewNotFound   = errors.New("review not found")
	ErrOrderNotFound    = errors.New("order not found")
	ErrOrderExists      = errors.New("order already exists")
	ErrCartItemNotFound = errors.New("cart item not found")
)

type AccountRepository interface {
	GetByID(ctx context.Context, uid string) (*entity.Account, error)
	Create(ctx context.Context, account *entity.Account) error
	Update(ctx context.Context, account *entity.Account) error
	// ListByRole возвращает аккаунты роли в порядке uid
	ListByRole(ctx context.Context, role entity.Role) ([]entity.Account, error)
}

type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]entity.Product, error)
	// Save пишет все поля кроме rating/review_count
	Save(ctx context.Context, product *entity.Product) error
	// SetRating - единственная запись производных полей рейтинга
	SetRating(ctx context.Context, id string, rating float64, reviewCount int) error
}

type ProductFilter struct {
	Category     string
	PharmacyName string
	Limit        int
}

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	GetByID(ctx context.Context, id string) (*entity.Review, error)
	Delete(ctx context.Context, id string) error
	// ListByProduct - отзывы товара, новые первыми
	ListByProduct(ctx context.Context, productID string) ([]entity.Review, error)
}

// CartRepository - коллекция строк корзины, привязанная к аккаунту
type CartRepository interface {
	Increment(ctx context.Context, accountID string, product entity.Product, qty int) error
	SetQuantity(ctx context.Context, accountID, productID string, qty int) error
	Remove(ctx context.Context, accountID, productID string) error
	// Clear удаляет все строки одним атомарным батчем
	Clear(ctx context.Context, accountID string) error
	List(ctx context.Context, accountID string) ([]entity.CartItem, error)
	Watch(ctx context.Context, accountID string, fn func([]entity.CartItem)) (docstore.Subscription, error)
}

type OrderRepository interface {
	// Create пишет заказ один раз по заранее сгенерированному id
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id string) (*entity.Order, error)
	ListByUser(ctx context.Context, userID string) ([]entity.Order, error)
	ListByPharmacy(ctx context.Context, pharmacyID string) ([]entity.Order, error)
}
