package handler

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/internal/app/storefront/entity"
	"storefront/pkg/logger"
	"storefront/pkg/metrics"
)

// SetupRoutes настраивает все маршруты приложения с использованием Gin
func SetupRoutes(
	authHandler *AuthHandler,
	catalogHandler *CatalogHandler,
	cartHandler *CartHandler,
	orderHandler *OrderHandler,
	reviewHandler *ReviewHandler,
	authMiddleware *AuthMiddleware,
) *gin.Engine {
	router := gin.New()

	// Recovery middleware для обработки panic
	router.Use(gin.Recovery())

	// JSON logging middleware для HTTP-запросов
	router.Use(logger.GinLoggerMiddleware())

	// Prometheus metrics middleware
	router.Use(metrics.GinPrometheusMiddleware("storefront"))

	// CORS настройки
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposeHeaders:    []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "storefront",
		})
	})

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Публичные эндпоинты идентичности
	auth := router.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		protected := auth.Group("")
		protected.Use(authMiddleware.Authenticate())
		{
			protected.GET("/me", authHandler.Me)
		}
	}

	// Категории: чтение публичное, изменения только admin
	categories := router.Group("/categories")
	{
		categories.GET("", catalogHandler.GetCategories)
		categories.GET("/:id/products", catalogHandler.GetCategoryProducts)

		adminOnly := categories.Group("")
		adminOnly.Use(authMiddleware.Authenticate(), authMiddleware.RequireRole(entity.RoleAdmin))
		{
			adminOnly.POST("", catalogHandler.CreateCategory)
			adminOnly.PATCH("/:id", catalogHandler.UpdateCategory)
			adminOnly.DELETE("/:id", catalogHandler.DeleteCategory)
		}
	}

	// Товары: карточка и отзывы публичные, изменения для seller и admin
	products := router.Group("/products")
	{
		products.GET("", catalogHandler.GetProducts)
		products.GET("/:id", catalogHandler.GetProduct)
		products.GET("/:id/reviews", reviewHandler.GetProductReviews)

		sellers := products.Group("")
		sellers.Use(authMiddleware.Authenticate(), authMiddleware.RequireRole(entity.RoleSeller, entity.RoleAdmin))
		{
			sellers.POST("", catalogHandler.CreateProduct)
			sellers.PATCH("/:id", catalogHandler.UpdateProduct)
			sellers.DELETE("/:id", catalogHandler.DeleteProduct)
		}
	}

	// Корзина: только покупатели
	cart := router.Group("/cart")
	cart.Use(authMiddleware.Authenticate(), authMiddleware.RequireRole(entity.RoleBuyer))
	{
		cart.GET("", cartHandler.GetCart)
		cart.DELETE("", cartHandler.ClearCart)
		cart.POST("/items", cartHandler.AddItem)
		cart.PATCH("/items/:productId", cartHandler.UpdateItem)
		cart.DELETE("/items/:productId", cartHandler.RemoveItem)
	}

	// Заказы: оформление для покупателей, отмена и просмотр владельцу и admin
	orders := router.Group("/orders")
	orders.Use(authMiddleware.Authenticate())
	{
		orders.POST("", authMiddleware.RequireRole(entity.RoleBuyer), orderHandler.Checkout)
		orders.GET("", orderHandler.GetUserOrders)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.POST("/:id/payment", authMiddleware.RequireRole(entity.RoleBuyer), orderHandler.InitiatePayment)
		orders.POST("/:id/cancel", orderHandler.CancelOrder)
	}

	// Отзывы: список публичный, создание для покупателей,
	// удаление для admin и владеющего seller
	reviews := router.Group("/reviews")
	{
		reviews.GET("", reviewHandler.GetReviews)

		protected := reviews.Group("")
		protected.Use(authMiddleware.Authenticate())
		{
			protected.POST("", authMiddleware.RequireRole(entity.RoleBuyer), reviewHandler.CreateReview)
			protected.DELETE("/:id", authMiddleware.RequireRole(entity.RoleAdmin, entity.RoleSeller), reviewHandler.DeleteReview)
		}
	}

	// Webhook платёжного шлюза: вызывается внешней системой
	router.POST("/payments/webhook", orderHandler.PaymentWebhook)

	return router
}
