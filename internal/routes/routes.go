package routes

import (
	"net/http"

	"github.com/01moynul/modelshop/internal/handlers"
	"github.com/01moynul/modelshop/internal/metrics"
	"github.com/01moynul/modelshop/internal/middleware"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware answers browser preflights. The API is token based, so
// any origin may call it.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, Idempotency-Key, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// Preflight requests get "204 No Content".
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SetupRouter wires every route. m and limiter may be nil.
func SetupRouter(h *handlers.Handlers, m *metrics.Metrics, limiter *middleware.LoginRateLimiter) *gin.Engine {
	router := gin.Default()

	// --- APPLY THE CORS GUARD ---
	router.Use(CORSMiddleware())
	if m != nil {
		router.Use(middleware.MetricsMiddleware(m))
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	throttle := func(c *gin.Context) { c.Next() }
	if limiter != nil {
		throttle = limiter.Middleware()
	}

	v1 := router.Group("/v1")
	{
		// --- Ping Route (Public) ---
		v1.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "pong!"})
		})

		// --- Auth Routes (Public) ---
		v1.POST("/register", throttle, h.Register)
		v1.POST("/login", throttle, h.Login)
		v1.POST("/admin/login", throttle, h.AdminLogin)

		// --- Public Product Routes ---
		v1.GET("/products", h.GetAllProducts)
		v1.GET("/products/:id", h.GetProduct)
		v1.GET("/products/:id/model-url", h.GetModelURL)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(h.Issuer))
		{
			auth.GET("/users/me", h.GetMe)
			auth.PUT("/users/me/address", h.UpdateMyAddress)

			auth.POST("/orders", h.CreateOrder)
			auth.GET("/orders", h.GetMyOrders)
			auth.GET("/orders/:id", h.GetOrder)
		}

		// --- Admin-Only Routes ---
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminMiddleware(h.Admin, h.Issuer))
		{
			admin.GET("/users", h.ListUsers)
			admin.GET("/dashboard-stats", h.GetAdminStats)

			admin.POST("/products", h.CreateProduct)
			admin.PUT("/products/:id", h.UpdateProduct)
			admin.DELETE("/products/:id", h.DeleteProduct)
			admin.PATCH("/products/:id/stock", h.UpdateStock)
			admin.POST("/products/:id/model", h.UploadProductModel)

			admin.GET("/orders", h.ListAllOrders)
			admin.GET("/orders/:id", h.GetOrderByID)
			admin.GET("/orders/:id/status", h.GetOrderStatus)
			admin.PUT("/orders/:id/status", h.UpdateOrderStatus)
			admin.DELETE("/orders/:id", h.DeleteOrder)
		}
	}

	return router
}
