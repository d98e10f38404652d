package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"grabbi-loyalty/config"
	"grabbi-loyalty/database"
	"grabbi-loyalty/firebase"
	"grabbi-loyalty/loyalty"
	"grabbi-loyalty/middleware"
	"grabbi-loyalty/models"
	"grabbi-loyalty/notify"
	"grabbi-loyalty/routes"
	"grabbi-loyalty/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := config.LoadEnv(); err != nil {
		log.Fatal("Error loading .env file:", err)
	}

	logger, err := utils.InitLogger()
	if err != nil {
		log.Fatal("Failed to initialise logger:", err)
	}
	defer func() { _ = logger.Sync() }()

	// Validate critical environment variables
	if err := config.ValidateEnv(); err != nil {
		logger.Fatal("Environment validation failed", zap.Error(err))
	}

	rules, err := config.LoadLoyaltyConfig()
	if err != nil {
		logger.Fatal("Invalid loyalty configuration", zap.Error(err))
	}

	// Initialize database
	db, err := database.Connect()
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Create default admin user if not exists
	if err := database.CreateDefaultAdmin(db); err != nil {
		logger.Warn("Could not create default admin", zap.Error(err))
	}

	if v := os.Getenv("ORDER_NODE_ID"); v != "" {
		nodeID, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			err = models.SetOrderNumberNode(nodeID)
		}
		if err != nil {
			logger.Fatal("Invalid ORDER_NODE_ID", zap.String("value", v), zap.Error(err))
		}
	}

	sqlStore := database.NewStore(db)
	stores := loyalty.Stores{Ledger: sqlStore, Orders: sqlStore, Reservations: sqlStore}
	var notifications loyalty.NotificationStore = sqlStore

	var fsStore *firebase.LoyaltyStore
	if config.StoreBackend() == config.BackendFirestore {
		ctx := context.Background()
		if err := firebase.Init(ctx); err != nil {
			logger.Fatal("Failed to initialise Firebase", zap.Error(err))
		}
		client, err := firebase.Firestore(ctx)
		if err != nil {
			logger.Fatal("Failed to open Firestore", zap.Error(err))
		}
		fsStore = firebase.NewLoyaltyStore(client)
		stores = loyalty.Stores{Ledger: fsStore, Orders: fsStore, Reservations: fsStore}
		notifications = fsStore
	}
	logger.Info("Store backend selected", zap.String("backend", config.StoreBackend()))

	var channels []loyalty.Channel
	if emailCfg := notify.GetEmailConfig(); emailCfg.Configured() {
		channels = append(channels, notify.NewEmailChannel(emailCfg, sqlStore))
	}
	if os.Getenv("RABBITMQ_URL") != "" || os.Getenv("AMQP_URL") != "" {
		channels = append(channels, notify.NewQueueChannel())
	}

	engine := loyalty.NewEngine(
		stores,
		loyalty.NewNotifier(notifications, logger.Named("notify"), channels...),
		rules,
		logger.Named("loyalty"),
	)

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Info("Redis unavailable, using in-process rate limiting")
	}

	// Setup Gin router
	r := gin.Default()

	// CORS configuration - filter out empty strings from AllowOrigins
	origins := []string{os.Getenv("FRONTEND_URL"), os.Getenv("ADMIN_URL")}
	var filteredOrigins []string
	for _, o := range origins {
		if o != "" {
			filteredOrigins = append(filteredOrigins, o)
		}
	}
	if len(filteredOrigins) == 0 {
		filteredOrigins = []string{"http://localhost:3000"}
		logger.Warn("No CORS origins configured, defaulting to http://localhost:3000")
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     filteredOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
	}))
	r.Use(middleware.RateLimit(config.LoadRateLimitConfig(), rdb))

	// Setup routes
	routes.SetupRoutes(r, routes.Dependencies{
		DB:            db,
		Engine:        engine,
		Users:         sqlStore,
		Notifications: notifications,
		LoginLimiter:  middleware.NewRateLimiter(5, time.Minute).Middleware(),
	})

	// Start server with graceful shutdown
	port := config.GetEnv("PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// Run server in a goroutine
	go func() {
		logger.Info("Server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if fsStore != nil {
		if err := fsStore.Close(); err != nil {
			logger.Warn("Error closing Firestore client", zap.Error(err))
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	// Close database connection
	sqlDB, err := db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Warn("Error closing database connection", zap.Error(err))
		} else {
			logger.Info("Database connection closed")
		}
	}

	logger.Info("Server exited gracefully")
}
