package handler

import (
	"context"
	"net/http"
	"time"

	"pharmacart/pkg/logger"
	"pharmacart/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "storefront-service"

// HealthCheck - зависимость, без которой сервис не готов
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handlers struct {
	Auth     *AuthMiddleware
	Gate     *GateMiddleware
	Accounts *AccountHandler
	Carts    *CartHandler
	Catalog  *CatalogHandler
	Orders   *OrderHandler
	Health   []HealthCheck
}

// SetupRoutes настраивает маршруты витрины.
// Доступ к группам решает гейт по таблице назначений, а не роль из токена.
func SetupRoutes(h Handlers, allowOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(logger.GinLoggerMiddleware())
	router.Use(metrics.GinPrometheusMiddleware(serviceName))

	if len(allowOrigins) == 0 {
		allowOrigins = []string{"https://*", "http://*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowWildcard:    true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": serviceName,
		})
	})
	router.GET("/health/ready", readiness(h.Health))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("")
	api.Use(h.Auth.Identify())

	api.GET("/gate/evaluate", h.Gate.Evaluate)

	products := api.Group("/products", h.Gate.Guard("/products"))
	{
		products.GET("", h.Catalog.ListProducts)
		products.GET("/:id", h.Catalog.GetProduct)
		products.GET("/:id/reviews", h.Catalog.ListReviews)
	}

	accounts := api.Group("/accounts", h.Gate.Guard("/account"))
	{
		accounts.GET("/me", h.Accounts.GetMe)
		accounts.PUT("/me", h.Accounts.UpdateProfile)
		accounts.POST("/me/role", h.Accounts.SelectRole)
		accounts.POST("/signout", h.Accounts.SignOut)
	}
	// верификация закрывается гейтом, как только флаг роли выставлен
	api.POST("/accounts/me/pharmacy-verification", h.Gate.Guard("/pharmacy/verify"), h.Accounts.SubmitPharmacyVerification)
	api.POST("/accounts/me/delivery-info", h.Gate.Guard("/delivery/verify"), h.Accounts.SubmitDeliveryInfo)

	carts := api.Group("/cart", h.Gate.Guard("/cart"))
	{
		carts.GET("", h.Carts.GetCart)
		carts.GET("/stream", h.Carts.Stream)
		carts.POST("/items", h.Carts.AddItem)
		carts.PUT("/items/:productId", h.Carts.SetQuantity)
		carts.DELETE("/items/:productId", h.Carts.RemoveItem)
		carts.DELETE("", h.Carts.Clear)
	}

	api.POST("/checkout/assemble", h.Gate.Guard("/checkout"), h.Orders.Assemble)

	orders := api.Group("/orders", h.Gate.Guard("/orders"))
	{
		orders.GET("", h.Orders.ListMine)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.POST("/:id/confirm", h.Orders.Confirm)
	}

	reviews := api.Group("/reviews", h.Gate.Guard("/reviews"))
	{
		reviews.POST("", h.Catalog.CreateReview)
		reviews.DELETE("/:id", h.Catalog.DeleteReview)
	}

	pharmacy := api.Group("/pharmacy")
	{
		pharmacy.GET("/orders", h.Gate.Guard("/pharmacy/orders"), h.Orders.ListForPharmacy)
		pharmacy.POST("/products", h.Gate.Guard("/pharmacy/dashboard"), h.Catalog.UpsertProduct)
	}

	return router
}

func readiness(checks []HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := gin.H{}
		for _, hc := range checks {
			if err := hc.Check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[hc.Name] = err.Error()
				continue
			}
			results[hc.Name] = "ok"
		}

		c.JSON(status, gin.H{
			"service": serviceName,
			"checks":  results,
		})
	}
}
