package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pharmacart/storefront-service/internal/app/storefront/cart"
	"pharmacart/storefront-service/internal/app/storefront/checkout"
	"pharmacart/storefront-service/internal/app/storefront/docstore"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/gate"
	"pharmacart/storefront-service/internal/app/storefront/infrastructure/cache"
	"pharmacart/storefront-service/internal/app/storefront/rating"
	"pharmacart/storefront-service/internal/app/storefront/repository"
	"pharmacart/storefront-service/internal/app/storefront/repository/mocks"
	"pharmacart/storefront-service/internal/app/storefront/service"
	"pharmacart/storefront-service/internal/app/storefront/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const testSecret = "test-secret-key"

func init() {
	gin.SetMode(gin.TestMode)
}

// closeNotifyingRecorder нужен для c.Stream: httptest.ResponseRecorder не умеет CloseNotify
type closeNotifyingRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyingRecorder) CloseNotify() <-chan bool {
	return r.closed
}

// HandlerTestSuite - HTTP API поверх MemoryStore и miniredis
type HandlerTestSuite struct {
	suite.Suite
	miniRedis *miniredis.Miniredis
	client    *redis.Client
	store     *docstore.MemoryStore
	accounts  repository.AccountRepository
	products  repository.ProductRepository
	orders    repository.OrderRepository
	registry  *session.Registry
	publisher *mocks.MockMessagePublisher
	router    *gin.Engine
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) SetupTest() {
	var err error
	s.miniRedis, err = miniredis.Run()
	s.Require().NoError(err)
	s.client = redis.NewClient(&redis.Options{Addr: s.miniRedis.Addr()})
	redisClient := cache.NewFromClient(s.client, time.Minute)

	s.store = docstore.NewMemoryStore()
	s.accounts = repository.NewAccountRepository(s.store)
	s.products = repository.NewProductRepository(s.store)
	s.orders = repository.NewOrderRepository(s.store)
	reviews := repository.NewReviewRepository(s.store)
	carts := cart.NewManager(repository.NewCartRepository(s.store), time.Second)

	directory := checkout.NewPharmacyDirectory(s.accounts, redisClient, time.Hour)
	accountSvc := service.NewAccountService(s.accounts, directory)
	s.registry = session.NewRegistry(accountSvc, time.Second)
	s.registry.OnSignIn(carts.Attach)

	s.publisher = new(mocks.MockMessagePublisher)
	s.publisher.On("PublishMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	catalogSvc := service.NewCatalogService(s.products)
	reviewSvc := service.NewReviewService(reviews, s.products, rating.NewAggregator(reviews, s.products), s.publisher)
	assembler := checkout.NewAssembler(directory, checkout.Defaults{DeliveryFee: 30, Tax: 5})
	orderSvc := service.NewOrderService(assembler, s.orders, s.products, redisClient, carts, s.publisher)

	table := gate.DefaultTable()
	s.router = SetupRoutes(Handlers{
		Auth:     NewAuthMiddleware(testSecret, s.registry),
		Gate:     NewGateMiddleware(table, time.Second),
		Accounts: NewAccountHandler(accountSvc, s.registry, table),
		Carts:    NewCartHandler(carts, catalogSvc, time.Second),
		Catalog:  NewCatalogHandler(catalogSvc, reviewSvc),
		Orders:   NewOrderHandler(orderSvc),
		Health: []HealthCheck{
			{Name: "store", Check: s.store.Ping},
			{Name: "redis", Check: redisClient.Ping},
		},
	}, nil)

	s.seed()
}

func (s *HandlerTestSuite) TearDownTest() {
	s.registry.Close()
	s.client.Close()
	s.miniRedis.Close()
}

func (s *HandlerTestSuite) seed() {
	ctx := context.Background()
	for _, acc := range []*entity.Account{
		{UID: "cust-1", Role: entity.RoleCustomer, FullName: "Mona Adel"},
		{UID: "ph-1", Role: entity.RolePharmacy, IsPharmacyVerified: true, PharmacyInfo: &entity.PharmacyInfo{Name: "Nile Pharmacy"}},
		{UID: "ph-new", Role: entity.RolePharmacy},
		{UID: "courier-1", Role: entity.RoleDelivery},
	} {
		s.Require().NoError(s.accounts.Create(ctx, acc))
	}
	s.Require().NoError(s.products.Save(ctx, &entity.Product{
		ID: "p1", Name: "Panadol", Price: 25, Category: "Pain Relief", PharmacyName: "Nile Pharmacy", InStock: true,
	}))
}

func (s *HandlerTestSuite) token(uid string) string {
	claims := JWTClaims{
		UserID: uid,
		Email:  uid + "@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	s.Require().NoError(err)
	return signed
}

func (s *HandlerTestSuite) do(method, path, uid string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(uid))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](s *HandlerTestSuite, rec *httptest.ResponseRecorder) T {
	var v T
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

type envelope[T any] struct {
	Message      string               `json:"message"`
	Data         T                    `json:"data"`
	Notification *entity.Notification `json:"notification"`
}

func (s *HandlerTestSuite) waitCart(uid string, totalItems int) entity.CartResponse {
	var resp entity.CartResponse
	s.Require().Eventually(func() bool {
		rec := s.do(http.MethodGet, "/cart", uid, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		resp = decode[entity.CartResponse](s, rec)
		return resp.TotalItems == totalItems
	}, 2*time.Second, 20*time.Millisecond)
	return resp
}

// ===================== Health Tests =====================

func (s *HandlerTestSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", "", nil)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/health/ready", "", nil)
	s.Equal(http.StatusOK, rec.Code)

	s.miniRedis.SetError("LOADING redis is loading the dataset")
	rec = s.do(http.MethodGet, "/health/ready", "", nil)
	s.miniRedis.SetError("")
	s.Equal(http.StatusServiceUnavailable, rec.Code)
}

// ===================== Auth & Gate Tests =====================

func (s *HandlerTestSuite) TestAnonymous_RedirectedToLogin() {
	rec := s.do(http.MethodGet, "/accounts/me", "", nil)

	s.Equal(http.StatusUnauthorized, rec.Code)
	resp := decode[entity.ErrorResponse](s, rec)
	s.Equal("/login", resp.Redirect)
}

func (s *HandlerTestSuite) TestInvalidToken() {
	req := httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)

	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerTestSuite) TestPublicCatalog() {
	rec := s.do(http.MethodGet, "/products?category=Pain%20Relief", "", nil)

	s.Equal(http.StatusOK, rec.Code)
	resp := decode[entity.ProductListResponse](s, rec)
	s.Equal(1, resp.Total)

	rec = s.do(http.MethodGet, "/products/ghost", "", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerTestSuite) TestFirstSignInCreatesCustomer() {
	rec := s.do(http.MethodGet, "/accounts/me", "newcomer", nil)

	s.Require().Equal(http.StatusOK, rec.Code)
	resp := decode[struct {
		Account   entity.Account `json:"account"`
		Dashboard string         `json:"dashboard"`
	}](s, rec)
	s.Equal(entity.RoleCustomer, resp.Account.Role)
	s.Equal("newcomer", resp.Account.Username)
	s.Equal("/account", resp.Dashboard)
}

func (s *HandlerTestSuite) TestGateEvaluate() {
	tests := []struct {
		name     string
		uid      string
		path     string
		outcome  gate.Outcome
		location string
	}{
		{"anonymous cart", "", "/cart", gate.OutcomeRedirect, "/login"},
		{"anonymous public", "", "/products/p1", gate.OutcomeAdmit, ""},
		{"customer cart", "cust-1", "/cart", gate.OutcomeAdmit, ""},
		{"customer pharmacy verify", "cust-1", "/pharmacy/verify", gate.OutcomeRedirect, "/account"},
		{"verified pharmacy verify", "ph-1", "/pharmacy/verify", gate.OutcomeRedirect, "/pharmacy/dashboard"},
		{"new pharmacy verify", "ph-new", "/pharmacy/verify", gate.OutcomeAdmit, ""},
		{"courier pharmacy dashboard", "courier-1", "/pharmacy/dashboard", gate.OutcomeRedirect, "/account"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.do(http.MethodGet, "/gate/evaluate?path="+tt.path, tt.uid, nil)

			s.Require().Equal(http.StatusOK, rec.Code)
			resp := decode[struct {
				Decision gate.Decision `json:"decision"`
			}](s, rec)
			s.Equal(tt.outcome, resp.Decision.Outcome)
			s.Equal(tt.location, resp.Decision.Location)
		})
	}
}

func (s *HandlerTestSuite) TestRoleGatedRoutes() {
	rec := s.do(http.MethodGet, "/pharmacy/orders", "cust-1", nil)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("/account", decode[entity.ErrorResponse](s, rec).Redirect)

	rec = s.do(http.MethodPost, "/accounts/me/delivery-info", "cust-1", entity.DeliveryInfo{
		VehicleType: "bike", NationalID: "29801011234567", ServiceArea: "Giza",
	})
	s.Equal(http.StatusForbidden, rec.Code)
}

// ===================== Verification Tests =====================

func (s *HandlerTestSuite) TestPharmacyVerification_ClosesVerifyPage() {
	info := entity.PharmacyInfo{
		Name:          "Delta Drugs",
		VodafoneCash:  "01012345678",
		Address:       "12 Tahrir St",
		LicenseNumber: "LIC-42",
	}

	rec := s.do(http.MethodPost, "/accounts/me/pharmacy-verification", "ph-new", info)
	s.Require().Equal(http.StatusOK, rec.Code)

	// сессия видит новый флаг без повторного входа
	rec = s.do(http.MethodPost, "/accounts/me/pharmacy-verification", "ph-new", info)
	s.Equal(http.StatusForbidden, rec.Code)
	s.Equal("/pharmacy/dashboard", decode[entity.ErrorResponse](s, rec).Redirect)

	stored, err := s.accounts.GetByID(context.Background(), "ph-new")
	s.Require().NoError(err)
	s.True(stored.IsPharmacyVerified)
	s.False(stored.IsDeliveryInfoComplete)
}

func (s *HandlerTestSuite) TestPharmacyVerification_Validation() {
	rec := s.do(http.MethodPost, "/accounts/me/pharmacy-verification", "ph-new", entity.PharmacyInfo{Name: "X"})

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerTestSuite) TestSelectRole() {
	rec := s.do(http.MethodPost, "/accounts/me/role", "cust-1", entity.SelectRoleRequest{Role: "delivery"})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/gate/evaluate?path=/delivery/verify", "cust-1", nil)
	resp := decode[struct {
		Decision gate.Decision `json:"decision"`
	}](s, rec)
	s.Equal(gate.OutcomeAdmit, resp.Decision.Outcome)

	rec = s.do(http.MethodPost, "/accounts/me/role", "ph-1", entity.SelectRoleRequest{Role: "Customer"})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/accounts/me/role", "cust-1", entity.SelectRoleRequest{Role: "admin"})
	s.Equal(http.StatusBadRequest, rec.Code)
}

// ===================== Cart Tests =====================

func (s *HandlerTestSuite) TestCart_AddSetRemove() {
	rec := s.do(http.MethodPost, "/cart/items", "cust-1", entity.AddCartItemRequest{ProductID: "p1", Quantity: 2})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.waitCart("cust-1", 2)

	rec = s.do(http.MethodPost, "/cart/items", "cust-1", entity.AddCartItemRequest{ProductID: "p1"})
	s.Require().Equal(http.StatusOK, rec.Code)
	resp := s.waitCart("cust-1", 3)
	s.InDelta(75.0, resp.TotalPrice, 0.001)

	qty := 1
	rec = s.do(http.MethodPut, "/cart/items/p1", "cust-1", entity.SetQuantityRequest{Quantity: &qty})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.waitCart("cust-1", 1)

	rec = s.do(http.MethodDelete, "/cart/items/p1", "cust-1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	s.waitCart("cust-1", 0)
}

func (s *HandlerTestSuite) TestCart_Errors() {
	rec := s.do(http.MethodPost, "/cart/items", "cust-1", entity.AddCartItemRequest{ProductID: "ghost", Quantity: 1})
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/cart/items", "cust-1", entity.AddCartItemRequest{ProductID: "p1", Quantity: -1})
	s.Equal(http.StatusBadRequest, rec.Code)

	qty := 3
	rec = s.do(http.MethodPut, "/cart/items/ghost", "cust-1", entity.SetQuantityRequest{Quantity: &qty})
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/cart", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *HandlerTestSuite) TestCart_SignOutDropsCart() {
	rec := s.do(http.MethodPost, "/cart/items", "cust-1", entity.AddCartItemRequest{ProductID: "p1", Quantity: 1})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/accounts/signout", "cust-1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	_, ok := s.registry.Get("cust-1")
	s.False(ok)

	// новый вход поднимает корзину заново из хранилища
	s.waitCart("cust-1", 1)
}

func (s *HandlerTestSuite) TestCart_Stream() {
	rec := s.do(http.MethodPost, "/cart/items", "cust-1", entity.AddCartItemRequest{ProductID: "p1", Quantity: 1})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.waitCart("cust-1", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/cart/stream", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+s.token("cust-1"))
	stream := &closeNotifyingRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

	s.router.ServeHTTP(stream, req)

	body := stream.Body.String()
	s.Contains(body, "event:cart")
	s.Contains(body, `"total_items":1`)
}

// ===================== Checkout Tests =====================

func (s *HandlerTestSuite) TestCheckout_CartOrderLifecycle() {
	// Arrange
	rec := s.do(http.MethodPost, "/cart/items", "cust-1", entity.AddCartItemRequest{ProductID: "p1", Quantity: 2})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.waitCart("cust-1", 2)

	// Act: сборка
	rec = s.do(http.MethodPost, "/checkout/assemble", "cust-1", entity.AssembleOrderRequest{DeliveryAddress: "Cairo"})
	s.Require().Equal(http.StatusOK, rec.Code)
	draft := decode[entity.Order](s, rec)

	// Assert
	s.Equal(entity.OrderTypeCart, draft.OrderType)
	s.Equal("ph-1", draft.PharmacyID)
	s.InDelta(85.0, draft.TotalPrice, 0.001)
	s.Equal(entity.PaymentCashOnDelivery, draft.PaymentMethod.Type)

	_, err := s.orders.GetByID(context.Background(), draft.ID)
	s.ErrorIs(err, repository.ErrOrderNotFound)

	// Act: подтверждение
	rec = s.do(http.MethodPost, "/orders/"+draft.ID+"/confirm", "cust-1", nil)
	s.Require().Equal(http.StatusCreated, rec.Code)
	s.waitCart("cust-1", 0)

	rec = s.do(http.MethodPost, "/orders/"+draft.ID+"/confirm", "cust-1", nil)
	s.Equal(http.StatusCreated, rec.Code)
	confirmed := decode[envelope[entity.Order]](s, rec)
	s.Equal(draft.ID, confirmed.Data.ID)

	mine := decode[entity.OrderListResponse](s, s.do(http.MethodGet, "/orders", "cust-1", nil))
	s.Equal(1, mine.Total)

	forPharmacy := decode[entity.OrderListResponse](s, s.do(http.MethodGet, "/pharmacy/orders", "ph-1", nil))
	s.Equal(1, forPharmacy.Total)

	rec = s.do(http.MethodGet, "/orders/"+draft.ID, "courier-1", nil)
	s.Equal(http.StatusForbidden, rec.Code)

	s.publisher.AssertCalled(s.T(), "PublishMessage", mock.Anything, draft.ID, mock.Anything)
}

func (s *HandlerTestSuite) TestCheckout_FirstRequestOfSessionSeesStoredCart() {
	// Arrange: корзина уже в хранилище, сессии еще нет
	carts := repository.NewCartRepository(s.store)
	product, err := s.products.GetByID(context.Background(), "p1")
	s.Require().NoError(err)
	s.Require().NoError(carts.Increment(context.Background(), "cust-1", *product, 2))

	// Act: первый же запрос новой сессии
	rec := s.do(http.MethodPost, "/checkout/assemble", "cust-1", entity.AssembleOrderRequest{DeliveryAddress: "Cairo"})

	// Assert
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	draft := decode[entity.Order](s, rec)
	s.Equal(entity.OrderTypeCart, draft.OrderType)
	s.InDelta(85.0, draft.TotalPrice, 0.001)
}

func (s *HandlerTestSuite) TestGetCart_FirstRequestOfSessionSeesStoredCart() {
	carts := repository.NewCartRepository(s.store)
	product, err := s.products.GetByID(context.Background(), "p1")
	s.Require().NoError(err)
	s.Require().NoError(carts.Increment(context.Background(), "cust-1", *product, 3))

	rec := s.do(http.MethodGet, "/cart", "cust-1", nil)

	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(3, decode[entity.CartResponse](s, rec).TotalItems)
}

func (s *HandlerTestSuite) TestCheckout_DirectBuyKeepsCart() {
	rec := s.do(http.MethodPost, "/cart/items", "cust-1", entity.AddCartItemRequest{ProductID: "p1", Quantity: 1})
	s.Require().Equal(http.StatusOK, rec.Code)
	s.waitCart("cust-1", 1)

	rec = s.do(http.MethodPost, "/checkout/assemble", "cust-1", entity.AssembleOrderRequest{
		DirectBuy:       &entity.DirectBuyRequest{ProductID: "p1", Quantity: 3},
		PaymentMethod:   "VodafoneCash",
		DeliveryAddress: "Cairo",
	})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/checkout/assemble", "cust-1", entity.AssembleOrderRequest{
		DirectBuy:        &entity.DirectBuyRequest{ProductID: "p1", Quantity: 3},
		PaymentMethod:    "VodafoneCash",
		PaymentReference: "TX-1001",
		DeliveryAddress:  "Cairo",
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	draft := decode[entity.Order](s, rec)
	s.Equal(entity.OrderTypeDirectBuy, draft.OrderType)
	s.InDelta(110.0, draft.TotalPrice, 0.001)

	rec = s.do(http.MethodPost, "/orders/"+draft.ID+"/confirm", "cust-1", nil)
	s.Require().Equal(http.StatusCreated, rec.Code)
	s.Equal(1, decode[entity.CartResponse](s, s.do(http.MethodGet, "/cart", "cust-1", nil)).TotalItems)
}

func (s *HandlerTestSuite) TestCheckout_EmptyCart() {
	rec := s.do(http.MethodPost, "/checkout/assemble", "cust-1", entity.AssembleOrderRequest{DeliveryAddress: "Cairo"})

	s.Equal(http.StatusBadRequest, rec.Code)
	resp := decode[entity.ErrorResponse](s, rec)
	s.Require().NotNil(resp.Notification)
	s.Equal("error", resp.Notification.Kind)
}

func (s *HandlerTestSuite) TestConfirm_ForeignDraft() {
	rec := s.do(http.MethodPost, "/checkout/assemble", "cust-1", entity.AssembleOrderRequest{
		DirectBuy:       &entity.DirectBuyRequest{ProductID: "p1"},
		DeliveryAddress: "Cairo",
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	draft := decode[entity.Order](s, rec)

	rec = s.do(http.MethodPost, "/orders/"+draft.ID+"/confirm", "courier-1", nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/orders/unknown/confirm", "cust-1", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

// ===================== Review Tests =====================

func (s *HandlerTestSuite) TestReviews_UpdateRating() {
	rec := s.do(http.MethodPost, "/reviews", "cust-1", entity.CreateReviewRequest{ProductID: "p1", Rating: 4, Text: "works"})
	s.Require().Equal(http.StatusCreated, rec.Code)
	first := decode[envelope[entity.Review]](s, rec)

	rec = s.do(http.MethodPost, "/reviews", "courier-1", entity.CreateReviewRequest{ProductID: "p1", Rating: 5, Text: "fast"})
	s.Require().Equal(http.StatusCreated, rec.Code)

	product := decode[entity.Product](s, s.do(http.MethodGet, "/products/p1", "", nil))
	s.Equal(2, product.ReviewCount)
	s.InDelta(4.5, product.Rating, 0.0001)

	rec = s.do(http.MethodDelete, "/reviews/"+first.Data.ID, "courier-1", nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodDelete, "/reviews/"+first.Data.ID, "cust-1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	list := decode[entity.ReviewListResponse](s, s.do(http.MethodGet, "/products/p1/reviews", "", nil))
	s.Equal(1, list.Total)
	s.InDelta(5.0, list.Rating, 0.0001)
}

func (s *HandlerTestSuite) TestReviews_Validation() {
	rec := s.do(http.MethodPost, "/reviews", "cust-1", entity.CreateReviewRequest{ProductID: "p1", Rating: 6, Text: "x"})

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(decode[entity.ErrorResponse](s, rec).Error, "Rating")
}

// ===================== Pharmacy Catalog Tests =====================

func (s *HandlerTestSuite) TestPharmacyProducts() {
	req := entity.UpsertProductRequest{Name: "Vitamin C", Price: 40, Category: "Vitamins", InStock: true}

	rec := s.do(http.MethodPost, "/pharmacy/products", "ph-1", req)
	s.Require().Equal(http.StatusOK, rec.Code)
	saved := decode[envelope[entity.Product]](s, rec)
	s.Equal("Nile Pharmacy", saved.Data.PharmacyName)

	rec = s.do(http.MethodPost, "/pharmacy/products", "ph-new", req)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/pharmacy/products", "cust-1", req)
	s.Equal(http.StatusForbidden, rec.Code)

	list := decode[entity.ProductListResponse](s, s.do(http.MethodGet, "/products?pharmacy=Nile%20Pharmacy", "", nil))
	s.Equal(2, list.Total)
}
