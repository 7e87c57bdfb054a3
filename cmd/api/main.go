package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/catalogix/backend/internal/config"
	"github.com/catalogix/backend/internal/handlers"
	"github.com/catalogix/backend/internal/middleware"
	"github.com/catalogix/backend/internal/models"
	"github.com/catalogix/backend/internal/services"
	"github.com/catalogix/backend/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.New()

	// Initialize database
	db, err := models.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Run migrations
	if err := models.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis
	redisClient := models.InitRedis(cfg)
	defer redisClient.Close()

	// Initialize storage backend
	store, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	// Initialize services
	tenantService := services.NewTenantService(db)
	reuseService := services.NewReuseService(db, cfg)
	ingestService := services.NewIngestService(db, cfg, store, tenantService, reuseService)
	compareService := services.NewCompareService(cfg)
	purgeService := services.NewPurgeService(db, cfg, store)
	metricsService := services.NewMetricsService(db)

	// Setup Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg))
	router.Use(middleware.RateLimiter(redisClient, cfg))

	// Initialize handlers
	mediaHandler := handlers.NewMediaHandler(cfg, ingestService, compareService)
	adminHandler := handlers.NewAdminHandler(purgeService, metricsService)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Setup routes
	api := router.Group("/v1")
	{
		api.OPTIONS("/*path", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		api.POST("/images", middleware.UploadRateLimit(redisClient, cfg), mediaHandler.UploadImage)
		api.GET("/images/:id", mediaHandler.GetAsset)
		api.POST("/compare", mediaHandler.CompareImage)

		api.POST("/purge", adminHandler.Purge)
		api.GET("/metrics", adminHandler.Metrics)
	}

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
