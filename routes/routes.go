package routes

import (
	"campus-hub-api/controllers"
	"campus-hub-api/middleware"
	"campus-hub-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "CampusHub API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Auth management
			protected.POST("/refresh", controllers.RefreshToken)

			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Applications and the review workflow
			applications := protected.Group("/applications")
			{
				applications.GET("", controllers.GetApplications)
				applications.GET("/:id", controllers.GetApplication)
				applications.GET("/:id/reviewable", controllers.CanReviewApplication)

				// Only students submit applications
				applications.POST("", middleware.RequireRole(models.RoleStudent), controllers.SubmitApplication)

				// Reviewer worklist and decisions (the workflow service
				// re-checks the authorization gate per record)
				applications.GET("/pending-review",
					middleware.RequireRole(models.RoleFaculty, models.RoleHOD, models.RoleDean),
					controllers.GetPendingReviewApplications)
				applications.POST("/:id/review",
					middleware.RequireRole(models.RoleFaculty, models.RoleHOD, models.RoleDean),
					controllers.ReviewApplication)
			}

			// Notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetNotifications)
				notifications.GET("/counter", controllers.GetNotificationCounter)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
			}
		}
	}
}
