package cache

import (
	"context"
	"testing"
	"time"

	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/infrastructure"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RedisCacheTestSuite тестовый suite для кеша аптек и черновиков
type RedisCacheTestSuite struct {
	suite.Suite
	miniRedis *miniredis.Miniredis
	client    *redis.Client
	cache     *RedisClient
}

func TestRedisCacheSuite(t *testing.T) {
	suite.Run(t, new(RedisCacheTestSuite))
}

func (s *RedisCacheTestSuite) SetupSuite() {
	var err error
	s.miniRedis, err = miniredis.Run()
	require.NoError(s.T(), err)

	s.client = redis.NewClient(&redis.Options{Addr: s.miniRedis.Addr()})
	s.cache = NewFromClient(s.client, 15*time.Minute)
}

func (s *RedisCacheTestSuite) SetupTest() {
	s.miniRedis.FlushAll()
}

func (s *RedisCacheTestSuite) TearDownSuite() {
	s.client.Close()
	s.miniRedis.Close()
}

func (s *RedisCacheTestSuite) store(byName map[string]string) {
	ctx := context.Background()
	gen, err := s.cache.PharmacyGeneration(ctx)
	s.Require().NoError(err)
	stored, err := s.cache.StorePharmacies(ctx, byName, gen, time.Hour)
	s.Require().NoError(err)
	s.Require().True(stored)
}

// ===================== Pharmacy Directory Tests =====================

func (s *RedisCacheTestSuite) TestLookup_NotLoaded() {
	id, loaded, err := s.cache.LookupPharmacy(context.Background(), "Nile Pharmacy")

	s.NoError(err)
	s.False(loaded)
	s.Empty(id)
}

func (s *RedisCacheTestSuite) TestLookup_CaseInsensitive() {
	ctx := context.Background()

	// Arrange
	stored, err := s.cache.StorePharmacies(ctx, map[string]string{"Nile Pharmacy": "ph1"}, 0, time.Hour)
	s.Require().NoError(err)
	s.Require().True(stored)

	// Act
	id, loaded, err := s.cache.LookupPharmacy(ctx, "NILE pharmacy")

	// Assert
	s.NoError(err)
	s.True(loaded)
	s.Equal("ph1", id)
}

func (s *RedisCacheTestSuite) TestLookup_LoadedButUnknown() {
	ctx := context.Background()
	s.store(map[string]string{})

	id, loaded, err := s.cache.LookupPharmacy(ctx, "Ghost")

	s.NoError(err)
	s.True(loaded)
	s.Empty(id)
}

func (s *RedisCacheTestSuite) TestStore_ReplacesAndExpires() {
	ctx := context.Background()
	s.store(map[string]string{"old": "ph0"})
	s.store(map[string]string{"new": "ph1"})

	id, _, err := s.cache.LookupPharmacy(ctx, "old")
	s.NoError(err)
	s.Empty(id)

	s.miniRedis.FastForward(2 * time.Hour)
	_, loaded, err := s.cache.LookupPharmacy(ctx, "new")
	s.NoError(err)
	s.False(loaded)
}

func (s *RedisCacheTestSuite) TestInvalidate() {
	ctx := context.Background()
	s.store(map[string]string{"nile": "ph1"})

	s.Require().NoError(s.cache.InvalidatePharmacies(ctx))

	_, loaded, err := s.cache.LookupPharmacy(ctx, "nile")
	s.NoError(err)
	s.False(loaded)
}

func (s *RedisCacheTestSuite) TestInvalidate_AdvancesGeneration() {
	ctx := context.Background()

	before, err := s.cache.PharmacyGeneration(ctx)
	s.Require().NoError(err)
	s.Require().NoError(s.cache.InvalidatePharmacies(ctx))
	after, err := s.cache.PharmacyGeneration(ctx)
	s.Require().NoError(err)

	s.Equal(int64(0), before)
	s.Equal(int64(1), after)
}

func (s *RedisCacheTestSuite) TestStore_StaleScanIsDropped() {
	ctx := context.Background()

	// Arrange: скан начался до сброса
	gen, err := s.cache.PharmacyGeneration(ctx)
	s.Require().NoError(err)
	s.Require().NoError(s.cache.InvalidatePharmacies(ctx))

	// Act
	stored, err := s.cache.StorePharmacies(ctx, map[string]string{"old": "ph0"}, gen, time.Hour)

	// Assert
	s.NoError(err)
	s.False(stored)
	_, loaded, err := s.cache.LookupPharmacy(ctx, "old")
	s.NoError(err)
	s.False(loaded)
}

// ===================== Draft Tests =====================

func (s *RedisCacheTestSuite) TestDraft_RoundTripWithTTL() {
	ctx := context.Background()

	// Arrange
	order := &entity.Order{
		ID:         "o1",
		UserID:     "u1",
		OrderType:  entity.OrderTypeCart,
		TotalPrice: 125,
		Status:     entity.OrderStatusPending,
		Items:      []entity.OrderProduct{{ID: "p1", Name: "Panadol", Price: 45, Quantity: 2}},
	}

	// Act
	s.Require().NoError(s.cache.SaveDraft(ctx, order))
	got, err := s.cache.GetDraft(ctx, "o1")

	// Assert
	s.Require().NoError(err)
	s.Equal(order.TotalPrice, got.TotalPrice)
	s.Len(got.Items, 1)
	s.Equal(15*time.Minute, s.miniRedis.TTL("order_draft:o1"))
}

func (s *RedisCacheTestSuite) TestDraft_Expired() {
	ctx := context.Background()
	s.Require().NoError(s.cache.SaveDraft(ctx, &entity.Order{ID: "o1"}))

	s.miniRedis.FastForward(16 * time.Minute)

	_, err := s.cache.GetDraft(ctx, "o1")
	s.ErrorIs(err, infrastructure.ErrDraftNotFound)
}

func (s *RedisCacheTestSuite) TestDraft_Delete() {
	ctx := context.Background()
	s.Require().NoError(s.cache.SaveDraft(ctx, &entity.Order{ID: "o1"}))

	s.Require().NoError(s.cache.DeleteDraft(ctx, "o1"))
	s.Require().NoError(s.cache.DeleteDraft(ctx, "o1"))

	_, err := s.cache.GetDraft(ctx, "o1")
	s.ErrorIs(err, infrastructure.ErrDraftNotFound)
}
