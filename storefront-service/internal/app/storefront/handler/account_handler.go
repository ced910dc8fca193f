package handler

import (
	"net/http"

	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/gate"
	"pharmacart/storefront-service/internal/app/storefront/service"
	"pharmacart/storefront-service/internal/app/storefront/session"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// AccountHandler - профиль, выбор роли и верификация
type AccountHandler struct {
	accounts  *service.AccountService
	registry  *session.Registry
	table     *gate.Table
	validator *validator.Validate
}

func NewAccountHandler(accounts *service.AccountService, registry *session.Registry, table *gate.Table) *AccountHandler {
	return &AccountHandler{
		accounts:  accounts,
		registry:  registry,
		table:     table,
		validator: validator.New(),
	}
}

// GetMe обрабатывает GET /accounts/me
func (h *AccountHandler) GetMe(c *gin.Context) {
	account, err := currentAccount(c)
	if err != nil {
		respondError(c, err, "load account")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account":   account,
		"dashboard": h.table.Dashboard(account.Role),
	})
}

// SelectRole обрабатывает POST /accounts/me/role
func (h *AccountHandler) SelectRole(c *gin.Context) {
	account, err := currentAccount(c)
	if err != nil {
		respondError(c, err, "select role")
		return
	}

	var req entity.SelectRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondValidation(c, err)
		return
	}

	updated, err := h.accounts.SelectRole(c.Request.Context(), account.UID, req.Role)
	if err != nil {
		respondError(c, err, "select role")
		return
	}
	h.registry.Update(updated)

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message:      "Role selected",
		Data:         updated,
		Notification: entity.NotifySuccess("Role updated"),
	})
}

// UpdateProfile обрабатывает PUT /accounts/me
func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	account, err := currentAccount(c)
	if err != nil {
		respondError(c, err, "update profile")
		return
	}

	var req entity.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondValidation(c, err)
		return
	}

	updated, err := h.accounts.UpdateProfile(c.Request.Context(), account.UID, &req)
	if err != nil {
		respondError(c, err, "update profile")
		return
	}
	h.registry.Update(updated)

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message:      "Profile updated",
		Data:         updated,
		Notification: entity.NotifySuccess("Profile saved"),
	})
}

// SubmitPharmacyVerification обрабатывает POST /accounts/me/pharmacy-verification
func (h *AccountHandler) SubmitPharmacyVerification(c *gin.Context) {
	account, err := currentAccount(c)
	if err != nil {
		respondError(c, err, "verify pharmacy")
		return
	}

	var req entity.PharmacyInfo
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondValidation(c, err)
		return
	}

	updated, err := h.accounts.SubmitPharmacyVerification(c.Request.Context(), account.UID, req)
	if err != nil {
		respondError(c, err, "verify pharmacy")
		return
	}
	h.registry.Update(updated)

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message:      "Pharmacy verified",
		Data:         gin.H{"account": updated, "redirect": h.table.Dashboard(updated.Role)},
		Notification: entity.NotifySuccess("Your pharmacy is verified"),
	})
}

// SubmitDeliveryInfo обрабатывает POST /accounts/me/delivery-info
func (h *AccountHandler) SubmitDeliveryInfo(c *gin.Context) {
	account, err := currentAccount(c)
	if err != nil {
		respondError(c, err, "save delivery info")
		return
	}

	var req entity.DeliveryInfo
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondValidation(c, err)
		return
	}

	updated, err := h.accounts.SubmitDeliveryInfo(c.Request.Context(), account.UID, req)
	if err != nil {
		respondError(c, err, "save delivery info")
		return
	}
	h.registry.Update(updated)

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message:      "Delivery info saved",
		Data:         gin.H{"account": updated, "redirect": h.table.Dashboard(updated.Role)},
		Notification: entity.NotifySuccess("Delivery profile completed"),
	})
}

// SignOut обрабатывает POST /accounts/signout: закрывает сессию и подписку корзины
func (h *AccountHandler) SignOut(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		respondError(c, session.ErrNotAuthenticated, "sign out")
		return
	}
	h.registry.SignOut(sess.UID())

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message:      "Signed out",
		Notification: entity.NotifySuccess("You have been signed out"),
	})
}
