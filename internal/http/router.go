package http

import (
	"github.com/gin-gonic/gin"

	"github.com/libraria-al/libraria/internal/auth"
	"github.com/libraria-al/libraria/internal/database"
)

// RouterConfig receives all router dependencies, improving testability and
// reducing parameter count.
type RouterConfig struct {
	Database       *database.Database
	Version        string
	AuthMiddleware *auth.Middleware

	Quota    QuotaService
	Catalog  CatalogStore
	Security SecurityService
	Rentals  RentalService
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	api := router.Group("/api")

	accessController := NewAccessController(cfg.Quota, cfg.Catalog)
	api.POST("/access/:bookId", accessController.HandleAction)
	api.GET("/access/:bookId", accessController.GetStatus)

	securityController := NewSecurityLogController(cfg.Security)
	api.POST("/security-log/:bookId", securityController.LogEvent)

	hardcopyController := NewHardcopyController(cfg.Rentals)
	api.POST("/hardcopy-rental/:bookId/checkout", hardcopyController.Checkout)
	api.POST("/hardcopy-rental/:bookId/reserve", hardcopyController.Reserve)
	api.POST("/hardcopy-rental/:bookId/activate", hardcopyController.Activate)
	api.POST("/hardcopy-rental/:bookId/return", hardcopyController.Return)
	api.POST("/hardcopy-rental/:bookId/close", hardcopyController.Close)

	return router
}
