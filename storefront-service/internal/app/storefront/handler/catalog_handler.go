package handler

import (
	"net/http"
	"strconv"

	"pharmacart/storefront-service/internal/app/storefront/entity"
	"pharmacart/storefront-service/internal/app/storefront/repository"
	"pharmacart/storefront-service/internal/app/storefront/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// CatalogHandler - товары и отзывы
type CatalogHandler struct {
	catalog   *service.CatalogService
	reviews   *service.ReviewService
	validator *validator.Validate
}

func NewCatalogHandler(catalog *service.CatalogService, reviews *service.ReviewService) *CatalogHandler {
	return &CatalogHandler{
		catalog:   catalog,
		reviews:   reviews,
		validator: validator.New(),
	}
}

// ListProducts обрабатывает GET /products?category=&pharmacy=&limit=
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	filter := repository.ProductFilter{
		Category:     c.Query("category"),
		PharmacyName: c.Query("pharmacy"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid limit"})
			return
		}
		filter.Limit = limit
	}

	products, err := h.catalog.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "list products")
		return
	}
	if products == nil {
		products = []entity.Product{}
	}

	c.JSON(http.StatusOK, entity.ProductListResponse{Products: products, Total: len(products)})
}

// GetProduct обрабатывает GET /products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "get product")
		return
	}
	c.JSON(http.StatusOK, product)
}

// UpsertProduct обрабатывает POST /pharmacy/products
func (h *CatalogHandler) UpsertProduct(c *gin.Context) {
	account, err := currentAccount(c)
	if err != nil {
		respondError(c, err, "save product")
		return
	}

	var req entity.UpsertProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondValidation(c, err)
		return
	}

	product, err := h.catalog.Upsert(c.Request.Context(), account, &req)
	if err != nil {
		respondError(c, err, "save product")
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message:      "Product saved",
		Data:         product,
		Notification: entity.NotifySuccess("Product published"),
	})
}

// ListReviews обрабатывает GET /products/:id/reviews
func (h *CatalogHandler) ListReviews(c *gin.Context) {
	resp, err := h.reviews.ListByProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "list reviews")
		return
	}
	if resp.Reviews == nil {
		resp.Reviews = []entity.Review{}
	}
	c.JSON(http.StatusOK, resp)
}

// CreateReview обрабатывает POST /reviews
func (h *CatalogHandler) CreateReview(c *gin.Context) {
	account, err := currentAccount(c)
	if err != nil {
		respondError(c, err, "create review")
		return
	}

	var req entity.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		respondValidation(c, err)
		return
	}

	review, err := h.reviews.Create(c.Request.Context(), account, &req)
	if err != nil {
		respondError(c, err, "create review")
		return
	}

	c.JSON(http.StatusCreated, entity.SuccessResponse{
		Message:      "Review created",
		Data:         review,
		Notification: entity.NotifySuccess("Thanks for your review"),
	})
}

// DeleteReview обрабатывает DELETE /reviews/:id
func (h *CatalogHandler) DeleteReview(c *gin.Context) {
	account, err := currentAccount(c)
	if err != nil {
		respondError(c, err, "delete review")
		return
	}

	if err := h.reviews.Delete(c.Request.Context(), c.Param("id"), account.UID); err != nil {
		respondError(c, err, "delete review")
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{
		Message:      "Review deleted",
		Notification: entity.NotifySuccess("Review removed"),
	})
}
