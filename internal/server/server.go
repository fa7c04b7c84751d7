package server

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/facehub/backend/internal/database"
	"github.com/facehub/backend/internal/handlers"
	"github.com/facehub/backend/internal/middleware"
	"github.com/facehub/backend/internal/votes"
	"github.com/facehub/backend/internal/webhooks"
)

type Server struct {
	db        database.Service
	handler   *handlers.Handler
	rateLimit *middleware.RateLimitMiddleware
}

// NewServer creates and configures a new server
func NewServer() *http.Server {
	// Initialize database
	db := database.New()
	gormDB := db.GetDB()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	ledger := votes.NewLedger(gormDB)
	dispatcher := webhooks.NewDispatcher(&webhooks.GormSubscriptionStore{DB: gormDB}, logger)

	// Create unified handler
	handler := handlers.NewHandler(gormDB, ledger, dispatcher)

	redisClient := database.NewRedisClient()

	// Create server instance
	newServer := &Server{
		db:        db,
		handler:   handler,
		rateLimit: middleware.NewRateLimitMiddleware(redisClient),
	}

	// Configure Gin router
	router := newServer.RegisterRoutes()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080" // local dev fallback
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         "0.0.0.0:" + port,
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("🚀 Server starting on port %s\n", port)
	fmt.Println("📝 Press Ctrl+C to stop the server")

	return server
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.db.Health())
	})

	hour := time.Hour

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", s.rateLimit.PerIP(10, hour), s.handler.Auth.Register)
		api.POST("/login", s.rateLimit.PerIP(30, hour), s.handler.Auth.Login)

		// Post routes (public reads)
		api.GET("/posts", s.handler.Post.GetPosts)
		api.GET("/posts/:id", s.handler.Post.GetPost)

		// Comment routes (public reads)
		api.GET("/posts/:id/comments", s.handler.Comment.GetComments)

		// User routes (public reads)
		api.GET("/users/:id", s.handler.User.GetUserProfile)
		api.GET("/users/:id/posts", s.handler.Post.GetUserPosts)
		api.GET("/users/:id/followers", s.handler.User.GetFollowers)
		api.GET("/users/:id/following", s.handler.User.GetFollowing)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Auth protected routes
			protected.GET("/me", s.handler.Auth.GetMe)

			// Post protected routes
			protected.POST("/posts", s.rateLimit.PerUser(50, hour), s.handler.Post.CreatePost)
			protected.PUT("/posts/:id", s.handler.Post.UpdatePost)
			protected.DELETE("/posts/:id", s.handler.Post.DeletePost)
			protected.POST("/posts/:id/vote", s.rateLimit.PerUser(200, hour), s.handler.Post.VotePost)

			// Comment protected routes
			protected.POST("/posts/:id/comments", s.rateLimit.PerUser(100, hour), s.handler.Comment.CreateComment)
			protected.POST("/comments/:commentId/upvote", s.rateLimit.PerUser(200, hour), s.handler.Comment.UpvoteComment)
			protected.POST("/comments/:commentId/downvote", s.rateLimit.PerUser(200, hour), s.handler.Comment.DownvoteComment)
			protected.PUT("/comments/:commentId", s.handler.Comment.UpdateComment)
			protected.DELETE("/comments/:commentId", s.handler.Comment.DeleteComment)

			// User protected routes
			protected.PUT("/users/:id", s.handler.User.UpdateUserProfile)
			protected.POST("/users/:id/follow", s.rateLimit.PerUser(100, hour), s.handler.User.FollowUser)
			protected.DELETE("/users/:id/follow", s.handler.User.UnfollowUser)

			// Webhook subscription management
			protected.POST("/webhooks", s.rateLimit.PerUser(10, hour), s.handler.Webhook.CreateWebhook)
			protected.GET("/webhooks", s.handler.Webhook.ListWebhooks)
			protected.DELETE("/webhooks/:id", s.handler.Webhook.DeleteWebhook)
		}

		// Operator routes (out-of-band credential, not user JWTs)
		admin := api.Group("/admin")
		admin.Use(middleware.AdminOnly())
		{
			admin.POST("/reconcile", s.handler.Admin.ReconcileVotes)
		}
	}

	return r
}
