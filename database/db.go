package database

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"strings"
	"time"

	"survey-backend/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the global database handle
var DB *gorm.DB

// ErrUnavailable marks connectivity failures so callers can answer 503
// instead of a generic error.
var ErrUnavailable = errors.New("database unavailable")

// InitDB opens the database connection and migrates the schema
func InitDB() error {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	cfg := &gorm.Config{
		Logger:         newLogger,
		TranslateError: true, // surface duplicate keys as gorm.ErrDuplicatedKey
	}

	var err error
	switch getEnv("DB_DRIVER", "mysql") {
	case "sqlite":
		dbPath := getEnv("DB_PATH", "survey.db")
		log.Printf("Using SQLite database at %s", dbPath)
		DB, err = gorm.Open(sqlite.Open(dbPath), cfg)
	default:
		dbUser := getEnv("DB_USER", "surveyuser")
		dbPassword := getEnv("DB_PASSWORD", "surveypassword")
		dbHost := getEnv("DB_HOST", "mysql")
		dbPort := getEnv("DB_PORT", "3306")
		dbName := getEnv("DB_NAME", "surveydb")

		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			dbUser, dbPassword, dbHost, dbPort, dbName)

		log.Println("Using MySQL database")
		DB, err = gorm.Open(mysql.Open(dsn), cfg)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := AutoMigrate(DB); err != nil {
		return fmt.Errorf("failed to migrate models: %v", err)
	}

	log.Println("Database connection and migration successful")
	return nil
}

// AutoMigrate creates the current table shapes. Legacy repairs that
// AutoMigrate cannot express live in reconcile.go.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Poll{},
		&models.PollVariant{},
		&models.Vote{},
	)
}

// CloseDB closes the underlying connection pool
func CloseDB() {
	if DB == nil {
		return
	}
	sqlDB, err := DB.DB()
	if err != nil {
		log.Printf("Failed to get database connection: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("Failed to close database connection: %v", err)
		return
	}
	log.Println("Database connection closed")
}

// IsUnavailable reports whether err is a connectivity failure rather than a
// data or validation error.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "invalid connection")
}

// getEnv returns the environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
