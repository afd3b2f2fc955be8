// api/router.go
package api

import (
	"database/sql"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/promptvault/promptvault-backend/api/handlers"
	"github.com/promptvault/promptvault-backend/api/middleware"
	"github.com/promptvault/promptvault-backend/config"
)

// SetupRouter initializes the Gin router and sets up all routes.
func SetupRouter(db *sql.DB, cfg *config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler(cfg))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.ClientURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Initialize Handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	categoryHandler := handlers.NewCategoryHandler(db, cfg)
	tagHandler := handlers.NewTagHandler(db, cfg)
	promptHandler := handlers.NewPromptHandler(db, cfg)

	// --- Public Routes ---
	router.GET("/health", handlers.Health)
	router.GET("/api", handlers.APIIndex)

	authRoutes := router.Group("/api/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	// --- Protected Routes ---
	authed := middleware.AuthMiddleware(db, cfg)

	profileRoutes := router.Group("/api/auth")
	profileRoutes.Use(authed)
	{
		profileRoutes.GET("/profile", authHandler.GetProfile)
		profileRoutes.PUT("/profile", authHandler.UpdateProfile)
		profileRoutes.GET("/verify", authHandler.Verify)
		profileRoutes.POST("/logout", authHandler.Logout)
	}

	categoryRoutes := router.Group("/api/categories")
	categoryRoutes.Use(authed)
	{
		categoryRoutes.GET("", categoryHandler.List)
		categoryRoutes.POST("", categoryHandler.Create)
		// Registered before /:id so "reorder" never parses as an ID
		categoryRoutes.POST("/reorder", categoryHandler.Reorder)
		categoryRoutes.GET("/:id", categoryHandler.GetByID)
		categoryRoutes.PUT("/:id", categoryHandler.Update)
		categoryRoutes.DELETE("/:id", categoryHandler.Delete)
	}

	tagRoutes := router.Group("/api/tags")
	tagRoutes.Use(authed)
	{
		tagRoutes.GET("", tagHandler.List)
		tagRoutes.POST("", tagHandler.Create)
		tagRoutes.GET("/stats", tagHandler.Stats)
		tagRoutes.POST("/batch", tagHandler.CreateBatch)
		tagRoutes.GET("/:id", tagHandler.GetByID)
		tagRoutes.PUT("/:id", tagHandler.Update)
		tagRoutes.DELETE("/:id", tagHandler.Delete)
	}

	promptRoutes := router.Group("/api/prompts")
	promptRoutes.Use(authed)
	{
		promptRoutes.GET("", promptHandler.List)
		promptRoutes.POST("", promptHandler.Create)
		promptRoutes.GET("/:id", promptHandler.GetByID)
		promptRoutes.PUT("/:id", promptHandler.Update)
		promptRoutes.DELETE("/:id", promptHandler.Delete)
		promptRoutes.POST("/:id/use", promptHandler.Use)
		promptRoutes.POST("/:id/copy", promptHandler.Copy)
	}

	return router
}
