package routes

import (
	"grabbi-loyalty/handlers"
	"grabbi-loyalty/loyalty"
	"grabbi-loyalty/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies are the collaborators the HTTP surface needs.
type Dependencies struct {
	DB            *gorm.DB
	Engine        *loyalty.Engine
	Users         handlers.UserDirectory
	Notifications loyalty.NotificationStore
	// LoginLimiter throttles credential attempts. Optional.
	LoginLimiter gin.HandlerFunc
}

func SetupRoutes(r *gin.Engine, deps Dependencies) {
	// Initialize handlers
	authHandler := &handlers.AuthHandler{DB: deps.DB, Engine: deps.Engine}
	loyaltyHandler := &handlers.LoyaltyHandler{Engine: deps.Engine, Users: deps.Users}
	orderHandler := &handlers.OrderHandler{Engine: deps.Engine}
	reservationHandler := &handlers.ReservationHandler{Engine: deps.Engine}
	notificationHandler := &handlers.NotificationHandler{Store: deps.Notifications}

	api := r.Group("/api")
	{
		if deps.LoginLimiter != nil {
			api.POST("/auth/login", deps.LoginLimiter, authHandler.Login)
		} else {
			api.POST("/auth/login", authHandler.Login)
		}
		api.POST("/auth/refresh", authHandler.Refresh)
	}

	// Protected routes (require authentication)
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/auth/profile", authHandler.GetProfile)

		// Loyalty
		protected.GET("/loyalty", loyaltyHandler.GetLoyalty)
		protected.POST("/loyalty/redemption-quote", loyaltyHandler.QuoteRedemption)
		protected.POST("/loyalty/reviews", loyaltyHandler.RewardReview)
		protected.POST("/loyalty/birthday", loyaltyHandler.RewardBirthday)

		// Orders
		protected.POST("/orders", orderHandler.CreateOrder)
		protected.GET("/orders", orderHandler.GetOrders)
		protected.GET("/orders/:id", orderHandler.GetOrder)
		protected.POST("/orders/:id/cancel", orderHandler.CancelOrder)

		// Reservations
		protected.POST("/reservations", reservationHandler.CreateReservation)
		protected.GET("/reservations", reservationHandler.GetReservations)
		protected.GET("/reservations/:id", reservationHandler.GetReservation)
		protected.POST("/reservations/:id/cancel", reservationHandler.CancelReservation)

		protected.GET("/notifications", notificationHandler.GetNotifications)
	}

	// Kitchen and front-of-house routes (staff or admin)
	staff := api.Group("/admin")
	staff.Use(middleware.AuthMiddleware())
	staff.Use(middleware.StaffMiddleware())
	{
		staff.GET("/orders/transitions", orderHandler.GetOrderTransitions)
		staff.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)
		staff.PUT("/reservations/:id/status", reservationHandler.UpdateReservationStatus)
	}

	// Admin only
	admin := staff.Group("")
	admin.Use(middleware.AdminMiddleware())
	{
		admin.POST("/loyalty/:customer_id/referrals", loyaltyHandler.RewardReferral)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
