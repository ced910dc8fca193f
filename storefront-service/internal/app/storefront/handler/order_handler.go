package handler

import (
	"net/http"

	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// OrderHandler - оформление и просмотр заказов
type OrderHandler struct {
	orders    *service.OrderService
	validator *validator.Validate
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		validator: validator.New(),
	}
}

// Assemble обрабатывает POST /checkout/assemble.
// Возвращает черновик заказа, который подтверждается по id.
func (h *OrderHandler) Assemble(c *gin.Context) {
	account, err := currentAccount(c)
	if err != nil {
		respondError(c, err, "assemble order")
		return
	}

	var req entity.AssembleOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondValidation(c, err)
		return
	}

	order, err := h.orders.Assemble(c.Request.Context(), account.UID, &req)
	if err != nil {
		respondError(c, err, "assemble order")
		return
	}

	c.JSON(http.StatusOK, order)
}

// Confirm обрабатывает POST /orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	account, err := currentAccount(c)
	if err != nil {
		respondError(c, err, "place order")
		return
	}

	order, err := h.orders.Confirm(c.Request.Context(), account.UID, c.Param("id"))
	if err != nil {
		respondError(c, err, "place order")
		return
	}

	c.JSON(http.StatusCreated, entity.SuccessResponse{
		Message:      "Order placed",
		Data:         order,
		Notification: entity.NotifySuccess("Your order has been placed"),
	})
}

// GetOrder обрабатывает GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	account, err := currentAccount(c)
	if err != nil {
		respondError(c, err, "get order")
		return
	}

	order, err := h.orders.Get(c.Request.Context(), account.UID, c.Param("id"))
	if err != nil {
		respondError(c, err, "get order")
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListMine обрабатывает GET /orders
func (h *OrderHandler) ListMine(c *gin.Context) {
	account, err := currentAccount(c)
	if err != nil {
		respondError(c, err, "list orders")
		return
	}

	orders, err := h.orders.ListMine(c.Request.Context(), account.UID)
	if err != nil {
		respondError(c, err, "list orders")
		return
	}
	respondOrders(c, orders)
}

// ListForPharmacy обрабатывает GET /pharmacy/orders
func (h *OrderHandler) ListForPharmacy(c *gin.Context) {
	account, err := currentAccount(c)
	if err != nil {
		respondError(c, err, "list pharmacy orders")
		return
	}

	orders, err := h.orders.ListForPharmacy(c.Request.Context(), account.UID)
	if err != nil {
		respondError(c, err, "list pharmacy orders")
		return
	}
	respondOrders(c, orders)
}

func respondOrders(c *gin.Context, orders []entity.Order) {
	if orders == nil {
		orders = []entity.Order{}
	}
	c.JSON(http.StatusOK, entity.OrderListResponse{Orders: orders, Total: len(orders)})
}
