package handlers

import (
	"log"
	"testing"

	"survey-backend/database"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestEnvironment sets up the Gin router and in-memory SQLite database for testing.
func SetupTestEnvironment(t *testing.T) (*gin.Engine, *gorm.DB) {
	testing.Init()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	database.DB = db

	if err := database.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	t.Cleanup(func() {
		sqlDB, _ := database.DB.DB()
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	})

	router := gin.Default()
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-User-ID", "X-Admin-Token"}
	router.Use(cors.New(config))

	// Same routes as routes.SetupRouter
	router.POST("/auth/register", Register)
	router.POST("/auth/login", Login)
	router.GET("/me", GetProfile)
	router.PUT("/me", UpdateProfile)
	router.POST("/users", CreateUser)
	router.GET("/users", ListUsers)
	router.GET("/users/:id", GetUser)
	router.POST("/polls", CreatePoll)
	router.GET("/polls", GetPolls)
	router.GET("/polls/:id", GetPoll)
	router.DELETE("/polls/:id", DeletePoll)
	router.POST("/polls/:id/vote", SubmitVote)
	router.GET("/polls/:id/results", GetResults)

	return router, db
}

// ClearTables empties all tables between tests. Order matters because of
// foreign key constraints.
func ClearTables(db *gorm.DB) {
	db.Exec("DELETE FROM votes")
	db.Exec("DELETE FROM poll_variants")
	db.Exec("DELETE FROM polls")
	db.Exec("DELETE FROM users")
}
