package handler

import (
	"context"
	"errors"
	"net/http"

	"pharmacart/pkg/logger"
	"pharmacart/storefront-service/internal/app/storefront/cart"
	"pharmacart/storefront-service/internal/app/storefront/checkout"
	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/infrastructure"
	"pharmacart/storefront-service/internal/app/storefront/repository"
	"pharmacart/storefront-service/internal/app/storefront/service"
	"pharmacart/storefront-service/internal/app/storefront/session"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

var errorMappings = []errorMapping{
	{session.ErrNotAuthenticated, http.StatusUnauthorized, "Please sign in to continue"},
	{service.ErrForbidden, http.StatusForbidden, "Access denied"},
	{service.ErrRoleMismatch, http.StatusForbidden, "This action is not available for your role"},
	{service.ErrRoleLocked, http.StatusConflict, "Role cannot be changed after verification"},
	{service.ErrNotVerified, http.StatusForbidden, "Complete verification first"},
	{service.ErrAccountNotFound, http.StatusNotFound, "Account not found"},
	{service.ErrProductNotFound, http.StatusNotFound, "Product not found"},
	{service.ErrReviewNotFound, http.StatusNotFound, "Review not found"},
	{service.ErrOrderNotFound, http.StatusNotFound, "Order not found"},
	{repository.ErrCartItemNotFound, http.StatusNotFound, "Item is not in your cart"},
	{infrastructure.ErrDraftNotFound, http.StatusNotFound, "Order draft expired, please check out again"},
	{cart.ErrInvalidQuantity, http.StatusBadRequest, "Quantity must be at least 1"},
	{cart.ErrCartNotLoaded, http.StatusServiceUnavailable, "Your cart is still loading, please retry"},
	{checkout.ErrEmptyOrder, http.StatusBadRequest, "Nothing to order"},
	{checkout.ErrInvalidPayment, http.StatusBadRequest, "Unsupported payment method"},
	{checkout.ErrPaymentReferenceRequired, http.StatusBadRequest, "Payment reference is required"},
	{entity.ErrUnknownRole, http.StatusBadRequest, "Unknown role"},
}

// respondError переводит доменную ошибку в HTTP ответ с уведомлением для UI.
// Неизвестные ошибки логируются и отдаются как 500 без деталей.
func respondError(c *gin.Context, err error, action string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			resp := entity.ErrorResponse{
				Error:        m.message,
				Notification: entity.NotifyError(m.message),
			}
			if m.status == http.StatusUnauthorized {
				resp.Redirect = "/login"
			}
			c.JSON(m.status, resp)
			return
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		c.JSON(http.StatusGatewayTimeout, entity.ErrorResponse{
			Error:        "Request timed out",
			Notification: entity.NotifyError("The request took too long, please retry"),
		})
		return
	}

	logger.Error().Err(err).Str("action", action).Str("path", c.FullPath()).Msg("Request failed")
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, entity.ErrorResponse{
		Error:        "Failed to " + action,
		Notification: entity.NotifyError("Something went wrong, please try again"),
	})
}

func respondValidation(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: formatValidationError(err)})
}

// formatValidationError форматирует первую ошибку валидации
func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			return fieldError.Field() + " is " + fieldError.Tag()
		}
	}
	return "Validation failed"
}
