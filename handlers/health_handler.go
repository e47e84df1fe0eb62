package handlers

import (
	"net/http"
	"time"

	"survey-backend/cache"
	"survey-backend/database"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports service liveness plus storage and cache reachability
func HealthCheck(c *gin.Context) {
	dbStatus := "ok"
	if database.DB == nil {
		dbStatus = "down"
	} else if sqlDB, err := database.DB.DB(); err != nil || sqlDB.Ping() != nil {
		dbStatus = "down"
	}

	cacheStatus := "ok"
	if _, err := cache.GetClient(); err != nil {
		cacheStatus = "disabled"
	}

	status := http.StatusOK
	if dbStatus != "ok" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   dbStatus,
		"database": dbStatus,
		"cache":    cacheStatus,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
