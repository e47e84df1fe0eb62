package routes

import (
	"log"
	"net/http"
	"os"
	"time"

	"survey-backend/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Server wraps the HTTP server
type Server struct {
	*http.Server
}

// SetupRouter configures the Gin router with all API routes
func SetupRouter() *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost", "http://127.0.0.1"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "X-Admin-Token"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handlers.InitRateLimiters()
	router.Use(handlers.RateLimitMiddleware())

	// uploaded avatars
	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "static"
	}
	router.Static("/static", staticDir)

	router.GET("/health", handlers.HealthCheck)

	auth := router.Group("/auth")
	{
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
	}

	router.GET("/me", handlers.GetProfile)
	router.PUT("/me", handlers.UpdateProfile)
	router.POST("/me/avatar", handlers.UploadAvatar)

	users := router.Group("/users")
	{
		users.POST("", handlers.CreateUser)
		users.GET("", handlers.ListUsers)
		users.GET("/:id", handlers.GetUser)
	}

	polls := router.Group("/polls")
	{
		polls.POST("", handlers.CreatePoll)
		polls.GET("", handlers.GetPolls)
		polls.GET("/:id", handlers.GetPoll)
		polls.DELETE("/:id", handlers.DeletePoll)
		polls.POST("/:id/vote", handlers.SubmitVote)
		polls.GET("/:id/results", handlers.GetResults)
	}

	return router
}

// StartServer starts the HTTP server on the configured port
func StartServer(router *gin.Engine) *Server {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8090"
	}

	addr := ":" + port
	srv := &Server{
		&http.Server{
			Addr:    addr,
			Handler: router,
		},
	}

	go func() {
		log.Printf("Server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	return srv
}
