package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	custommiddleware "nextvault/internal/middleware"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	AuthHandler   *AuthHandler
	UserHandler   *UserHandler
	VaultHandler  *VaultHandler
	PointsHandler *PointsHandler
	AdminHandler  *AdminHandler
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	// Middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging for health checks to reduce noise
			return c.Request().URL.Path == "/health"
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return SuccessResponse(c, map[string]interface{}{
			"status":  "healthy",
			"service": "nextvault-api",
		})
	})

	// API group
	api := e.Group("/api")

	// Auth routes (public)
	auth := api.Group("/auth")
	{
		auth.POST("/register", config.AuthHandler.Register)
		auth.POST("/login", config.AuthHandler.Login)
		auth.POST("/logout", config.AuthHandler.Logout)
		auth.POST("/wallet/nonce", config.AuthHandler.WalletNonce)
		auth.POST("/wallet/verify", config.AuthHandler.WalletVerify)
	}

	// Public vault catalogue
	api.GET("/strategies", config.VaultHandler.GetStrategies)

	// User routes (protected with AuthMiddleware)
	user := api.Group("/user", custommiddleware.AuthMiddleware)
	{
		user.GET("/me", config.UserHandler.GetMe)
		user.GET("/positions", config.UserHandler.GetPositions)
		user.GET("/portfolio", config.UserHandler.GetPortfolio)
		user.GET("/activity", config.UserHandler.GetActivity)
		user.POST("/wallet/link", config.AuthHandler.WalletLink)
	}

	// Vault routes (protected)
	vault := api.Group("/vault", custommiddleware.AuthMiddleware)
	{
		vault.POST("/deposit", config.VaultHandler.Deposit)
		vault.GET("/positions/:id/preview", config.VaultHandler.PreviewWithdrawal)
		vault.POST("/positions/:id/withdraw", config.VaultHandler.Withdraw)
		vault.POST("/positions/:id/autocompound", config.VaultHandler.SetAutoCompound)
	}

	// Points routes (protected)
	points := api.Group("/points", custommiddleware.AuthMiddleware)
	{
		points.GET("/me", config.PointsHandler.GetMyPoints)
		points.GET("/leaderboard", config.PointsHandler.GetLeaderboard)
	}

	// Admin routes (protected with Auth + Admin middleware)
	admin := api.Group("/admin", custommiddleware.AuthMiddleware, custommiddleware.AdminMiddleware)
	{
		admin.GET("/strategies", config.AdminHandler.GetStrategies)
		admin.POST("/strategies", config.AdminHandler.CreateStrategy)
		admin.PUT("/strategies/:id", config.AdminHandler.UpdateStrategy)
		admin.POST("/compound/trigger", config.AdminHandler.TriggerCompoundSweep)
		admin.GET("/stats", config.AdminHandler.GetStats)
	}
}
