package repository

import (
	"context"
	"testing"
	"time"

	"pharmacart/storefront-service/internal/app/storefront/docstore"
	"pharmacart/storefront-service/internal/app/storefront/entity"

	"github.com/stretchr/testify/suite"
)

// RepositoryTestSuite гоняет репозитории поверх MemoryStore
type RepositoryTestSuite struct {
	suite.Suite
	ctx      context.Context
	store    *docstore.MemoryStore
	accounts AccountRepository
	products ProductRepository
	reviews  ReviewRepository
	carts    CartRepository
	orders   OrderRepository
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = docstore.NewMemoryStore()
	s.accounts = NewAccountRepository(s.store)
	s.products = NewProductRepository(s.store)
	s.reviews = NewReviewRepository(s.store)
	s.carts = NewCartRepository(s.store)
	s.orders = NewOrderRepository(s.store)
}

func (s *RepositoryTestSuite) TearDownTest() {
	s.store.Close(s.ctx)
}

// ===================== Account Tests =====================

func (s *RepositoryTestSuite) TestAccount_CreateNormalizesRole() {
	acc := &entity.Account{UID: "u1", Role: entity.Role("pharmacy"), FullName: "Nile Pharmacy"}
	s.Require().NoError(s.accounts.Create(s.ctx, acc))

	got, err := s.accounts.GetByID(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal(entity.RolePharmacy, got.Role)
	s.False(got.CreatedAt.IsZero())
}

func (s *RepositoryTestSuite) TestAccount_CreateTwice() {
	s.Require().NoError(s.accounts.Create(s.ctx, &entity.Account{UID: "u1", Role: entity.RoleCustomer}))
	err := s.accounts.Create(s.ctx, &entity.Account{UID: "u1", Role: entity.RoleCustomer})
	s.ErrorIs(err, ErrAccountExists)
}

func (s *RepositoryTestSuite) TestAccount_RejectsUnknownRole() {
	err := s.accounts.Create(s.ctx, &entity.Account{UID: "u1", Role: entity.Role("admin")})
	s.ErrorIs(err, entity.ErrUnknownRole)
}

func (s *RepositoryTestSuite) TestAccount_NotFound() {
	_, err := s.accounts.GetByID(s.ctx, "nobody")
	s.ErrorIs(err, ErrAccountNotFound)
}

func (s *RepositoryTestSuite) TestAccount_ListByRole() {
	s.Require().NoError(s.accounts.Create(s.ctx, &entity.Account{UID: "p2", Role: entity.RolePharmacy}))
	s.Require().NoError(s.accounts.Create(s.ctx, &entity.Account{UID: "c1", Role: entity.RoleCustomer}))
	s.Require().NoError(s.accounts.Create(s.ctx, &entity.Account{UID: "p1", Role: entity.RolePharmacy}))

	got, err := s.accounts.ListByRole(s.ctx, entity.RolePharmacy)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("p1", got[0].UID)
	s.Equal("p2", got[1].UID)
}

func (s *RepositoryTestSuite) TestAccount_ListByRoleMatchesStoredSpellings() {
	s.Require().NoError(s.store.Put(s.ctx, CollectionAccounts, "p1", map[string]interface{}{"role": "pharmacy"}))
	s.Require().NoError(s.store.Put(s.ctx, CollectionAccounts, "p2", map[string]interface{}{"role": "PHARMACY"}))
	s.Require().NoError(s.store.Put(s.ctx, CollectionAccounts, "d1", map[string]interface{}{"role": "delivery"}))
	s.Require().NoError(s.accounts.Create(s.ctx, &entity.Account{UID: "p3", Role: entity.RolePharmacy}))

	got, err := s.accounts.ListByRole(s.ctx, entity.RolePharmacy)

	s.Require().NoError(err)
	s.Require().Len(got, 3)
	for _, acc := range got {
		s.Equal(entity.RolePharmacy, acc.Role)
	}
	s.Equal("p1", got[0].UID)
}

// ===================== Product Tests =====================

func (s *RepositoryTestSuite) TestProduct_SaveKeepsDerivedRating() {
	p := &entity.Product{ID: "p1", Name: "Panadol", Price: 25}
	s.Require().NoError(s.products.Save(s.ctx, p))
	s.Require().NoError(s.products.SetRating(s.ctx, "p1", 4.5, 2))

	p.Price = 30
	p.Rating = 1 // игнорируется
	s.Require().NoError(s.products.Save(s.ctx, p))

	got, err := s.products.GetByID(s.ctx, "p1")
	s.Require().NoError(err)
	s.Equal(30.0, got.Price)
	s.Equal(4.5, got.Rating)
	s.Equal(2, got.ReviewCount)
}

func (s *RepositoryTestSuite) TestProduct_SetRatingMissing() {
	err := s.products.SetRating(s.ctx, "missing", 1, 1)
	s.ErrorIs(err, ErrProductNotFound)
}

func (s *RepositoryTestSuite) TestProduct_ListFilters() {
	s.Require().NoError(s.products.Save(s.ctx, &entity.Product{ID: "a", Name: "B", Category: "vitamins"}))
	s.Require().NoError(s.products.Save(s.ctx, &entity.Product{ID: "b", Name: "A", Category: "vitamins"}))
	s.Require().NoError(s.products.Save(s.ctx, &entity.Product{ID: "c", Name: "C", Category: "skin"}))

	got, err := s.products.List(s.ctx, ProductFilter{Category: "vitamins"})
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("A", got[0].Name)
}

// ===================== Review Tests =====================

func (s *RepositoryTestSuite) TestReview_ListByProductNewestFirst() {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.reviews.Create(s.ctx, &entity.Review{ID: "r1", ProductID: "p1", Rating: 4, Timestamp: base}))
	s.Require().NoError(s.reviews.Create(s.ctx, &entity.Review{ID: "r2", ProductID: "p1", Rating: 5, Timestamp: base.Add(time.Hour)}))
	s.Require().NoError(s.reviews.Create(s.ctx, &entity.Review{ID: "r3", ProductID: "p2", Rating: 1, Timestamp: base}))

	got, err := s.reviews.ListByProduct(s.ctx, "p1")
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("r2", got[0].ID)
	s.Equal("r1", got[1].ID)
}

// ===================== Cart Tests =====================

func (s *RepositoryTestSuite) TestCart_IncrementAccumulates() {
	p := entity.Product{ID: "p1", Name: "Panadol", Price: 10}
	s.Require().NoError(s.carts.Increment(s.ctx, "u1", p, 2))
	s.Require().NoError(s.carts.Increment(s.ctx, "u1", p, 3))

	items, err := s.carts.List(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(5, items[0].Quantity)
	s.Equal("Panadol", items[0].Product.Name)
	s.Equal("u1:p1", items[0].ID)
}

func (s *RepositoryTestSuite) TestCart_SetQuantityMissing() {
	err := s.carts.SetQuantity(s.ctx, "u1", "p1", 3)
	s.ErrorIs(err, ErrCartItemNotFound)
}

func (s *RepositoryTestSuite) TestCart_ClearOnlyOwnItems() {
	p1 := entity.Product{ID: "p1", Price: 10}
	p2 := entity.Product{ID: "p2", Price: 5}
	s.Require().NoError(s.carts.Increment(s.ctx, "u1", p1, 1))
	s.Require().NoError(s.carts.Increment(s.ctx, "u1", p2, 1))
	s.Require().NoError(s.carts.Increment(s.ctx, "u2", p1, 1))

	s.Require().NoError(s.carts.Clear(s.ctx, "u1"))

	mine, _ := s.carts.List(s.ctx, "u1")
	other, _ := s.carts.List(s.ctx, "u2")
	s.Empty(mine)
	s.Len(other, 1)
}

func (s *RepositoryTestSuite) TestCart_WatchDecodesItems() {
	got := make(chan []entity.CartItem, 8)
	sub, err := s.carts.Watch(s.ctx, "u1", func(items []entity.CartItem) { got <- items })
	s.Require().NoError(err)
	defer sub.Close()

	s.Empty(<-got)
	s.Require().NoError(s.carts.Increment(s.ctx, "u1", entity.Product{ID: "p1", Price: 1}, 1))

	select {
	case items := <-got:
		s.Len(items, 1)
	case <-time.After(time.Second):
		s.Fail("snapshot not delivered")
	}
}

// ===================== Order Tests =====================

func (s *RepositoryTestSuite) TestOrder_WriteOnce() {
	order := &entity.Order{ID: "o1", UserID: "u1", Status: entity.OrderStatusPending, TotalPrice: 100}
	s.Require().NoError(s.orders.Create(s.ctx, order))

	err := s.orders.Create(s.ctx, order)
	s.ErrorIs(err, ErrOrderExists)
}

func (s *RepositoryTestSuite) TestOrder_ListByPharmacy() {
	now := time.Now().UTC()
	s.Require().NoError(s.orders.Create(s.ctx, &entity.Order{ID: "o1", UserID: "u1", PharmacyID: "ph1", OrderDate: now}))
	s.Require().NoError(s.orders.Create(s.ctx, &entity.Order{ID: "o2", UserID: "u1", OrderDate: now}))

	got, err := s.orders.ListByPharmacy(s.ctx, "ph1")
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("o1", got[0].ID)

	// pharmacy_id не пишется у заказа без аптеки
	raw, err := s.store.Get(s.ctx, CollectionOrders, "o2")
	s.Require().NoError(err)
	_, err = raw.LookupErr("pharmacy_id")
	s.Error(err)
}
