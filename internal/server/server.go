package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelclub/moviehub/backend/internal/catalog"
	"github.com/reelclub/moviehub/backend/internal/config"
	"github.com/reelclub/moviehub/backend/internal/forum"
	"github.com/reelclub/moviehub/backend/internal/handlers"
	"github.com/reelclub/moviehub/backend/internal/middleware"
	"github.com/reelclub/moviehub/backend/internal/recommend"
	"github.com/reelclub/moviehub/backend/internal/store"
	"github.com/reelclub/moviehub/backend/internal/users"
)

type Server struct {
	cfg     config.Config
	store   store.Store
	hub     *forum.Hub
	handler *handlers.Handler
}

// New wires the application around one store backend.
func New(cfg config.Config, st store.Store) *Server {
	us := users.NewService(st)
	hub := forum.NewHub(st, us)
	cat := catalog.NewService(st)
	rec := recommend.NewClient(cfg.RecommendURL, cfg.RecommendTimeout)

	return &Server{
		cfg:     cfg,
		store:   st,
		hub:     hub,
		handler: handlers.NewHandler(st, hub, us, cat, rec, cfg.JWTSecret),
	}
}

// HTTPServer returns the configured HTTP server, ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Close tears down the live forum sessions.
func (s *Server) Close() {
	s.hub.Close()
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Metrics())

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
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Movie routes (public reads)
		api.GET("/movies", s.handler.Movie.GetMovies)
		api.GET("/movies/search", s.handler.Movie.SearchMovies)
		api.GET("/movies/:id", s.handler.Movie.GetMovie)
		api.GET("/movies/:id/recommendations", s.handler.Movie.GetRecommendations)

		// Forum routes (public reads)
		api.GET("/movies/:id/forum", s.handler.Forum.GetPosts)
		api.GET("/movies/:id/forum/live", s.handler.Forum.LivePosts)

		// User routes (public reads)
		api.GET("/users/:id", s.handler.User.GetUserProfile)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(s.cfg.JWTSecret))
		{
			// Auth protected routes
			protected.GET("/me", s.handler.Auth.GetMe)

			// Movie protected routes
			protected.POST("/movies", s.handler.Movie.AddMovie)

			// Forum protected routes
			protected.POST("/movies/:id/forum", s.handler.Forum.CreatePost)
			protected.PUT("/movies/:id/forum/:postId", s.handler.Forum.UpdatePost)
			protected.DELETE("/movies/:id/forum/:postId", s.handler.Forum.DeletePost)
			protected.POST("/movies/:id/forum/:postId/replies", s.handler.Forum.CreateReply)
			protected.PUT("/movies/:id/forum/:postId/replies/:replyId", s.handler.Forum.UpdateReply)
			protected.DELETE("/movies/:id/forum/:postId/replies/:replyId", s.handler.Forum.DeleteReply)

			// User protected routes
			protected.PUT("/users/:id", s.handler.User.UpdateUserProfile)
		}
	}

	return r
}
