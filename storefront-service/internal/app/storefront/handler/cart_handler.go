package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"pharmacart/storefront-service/internal/app/storefront/cart"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/service"
	"pharmacart/storefront-service/internal/app/storefront/session"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// CartHandler - корзина вошедшего аккаунта.
// Ответ на мутацию несет снапшот после доставки изменения, если оно успело прийти.
type CartHandler struct {
	carts       *cart.Manager
	catalog     *service.CatalogService
	validator   *validator.Validate
	settleAfter time.Duration
}

func NewCartHandler(carts *cart.Manager, catalog *service.CatalogService, settleAfter time.Duration) *CartHandler {
	return &CartHandler{
		carts:       carts,
		catalog:     catalog,
		validator:   validator.New(),
		settleAfter: settleAfter,
	}
}

func toCartResponse(s cart.Snapshot) entity.CartResponse {
	items := s.Items
	if items == nil {
		items = []entity.CartItem{}
	}
	return entity.CartResponse{
		Items:      items,
		TotalItems: s.TotalItems,
		TotalPrice: s.TotalPrice,
		Version:    s.Version,
	}
}

func (h *CartHandler) aggregator(c *gin.Context) (*cart.Aggregator, bool) {
	sess := currentSession(c)
	if sess == nil {
		respondError(c, session.ErrNotAuthenticated, "load cart")
		return nil, false
	}
	agg, err := h.carts.For(sess.UID())
	if err != nil {
		respondError(c, err, "load cart")
		return nil, false
	}
	return agg, true
}

// GetCart обрабатывает GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		respondError(c, session.ErrNotAuthenticated, "load cart")
		return
	}
	snap, err := h.carts.Current(c.Request.Context(), sess.UID())
	if err != nil {
		respondError(c, err, "load cart")
		return
	}
	c.JSON(http.StatusOK, toCartResponse(snap))
}

// AddItem обрабатывает POST /cart/items.
// Снапшот товара читается из каталога, цена клиента не принимается.
func (h *CartHandler) AddItem(c *gin.Context) {
	agg, ok := h.aggregator(c)
	if !ok {
		return
	}

	var req entity.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondValidation(c, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := h.catalog.Get(c.Request.Context(), req.ProductID)
	if err != nil {
		respondError(c, err, "add item to cart")
		return
	}

	h.mutate(c, agg, "add item to cart", "Added to cart", func(ctx context.Context) error {
		return agg.Add(ctx, *product, req.Quantity)
	})
}

// SetQuantity обрабатывает PUT /cart/items/:productId
func (h *CartHandler) SetQuantity(c *gin.Context) {
	agg, ok := h.aggregator(c)
	if !ok {
		return
	}

	var req entity.SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondValidation(c, err)
		return
	}

	productID := c.Param("productId")
	h.mutate(c, agg, "update cart", "Cart updated", func(ctx context.Context) error {
		return agg.SetQuantity(ctx, productID, *req.Quantity)
	})
}

// RemoveItem обрабатывает DELETE /cart/items/:productId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	agg, ok := h.aggregator(c)
	if !ok {
		return
	}

	productID := c.Param("productId")
	h.mutate(c, agg, "remove item from cart", "Removed from cart", func(ctx context.Context) error {
		return agg.Remove(ctx, productID)
	})
}

// Clear обрабатывает DELETE /cart
func (h *CartHandler) Clear(c *gin.Context) {
	agg, ok := h.aggregator(c)
	if !ok {
		return
	}

	h.mutate(c, agg, "clear cart", "Cart cleared", agg.Clear)
}

func (h *CartHandler) mutate(c *gin.Context, agg *cart.Aggregator, action, message string, op func(ctx context.Context) error) {
	ctx := c.Request.Context()
	before := agg.Snapshot().Version
	if before == 0 {
		// первая запись новой сессии: версия считается от загруженной корзины
		if snap, err := agg.Loaded(ctx, h.settleAfter); err == nil {
			before = snap.Version
		}
	}

	if err := op(ctx); err != nil {
		respondError(c, err, action)
		return
	}

	snap := agg.Snapshot()
	if h.settleAfter > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, h.settleAfter)
		snap, _ = agg.WaitForVersion(waitCtx, before+1)
		cancel()
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message:      message,
		Data:         toCartResponse(snap),
		Notification: entity.NotifySuccess(message),
	})
}

// Stream обрабатывает GET /cart/stream: SSE со снапшотами корзины до выхода из сессии
func (h *CartHandler) Stream(c *gin.Context) {
	agg, ok := h.aggregator(c)
	if !ok {
		return
	}

	snapshots, cancel := agg.Stream()
	defer cancel()
	release := currentSession(c).Hold()
	defer release()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case snap, ok := <-snapshots:
			if !ok {
				c.SSEvent("signed_out", gin.H{"redirect": "/login"})
				return false
			}
			if snap.Version == 0 {
				// подписка еще не доставила корзину
				return true
			}
			c.SSEvent("cart", toCartResponse(snap))
			return true
		}
	})
}
