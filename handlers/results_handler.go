package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"survey-backend/cache"
	"survey-backend/database"
	"survey-backend/service"

	"github.com/gin-gonic/gin"
)

// GetResults returns the aggregated tally for a poll, as JSON or CSV when
// format=csv is requested. JSON responses go through the short-lived Redis
// cache; votes and deletions invalidate it.
func GetResults(c *gin.Context) {
	pollID := c.Param("id")
	wantCSV := c.Query("format") == "csv"

	if !wantCSV {
		if payload, ok := cache.GetCachedPollResult(pollID); ok {
			c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
			return
		}
	}

	result, err := service.BuildPollResult(database.DB, pollID)
	if err != nil {
		if errors.Is(err, service.ErrPollNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
			return
		}
		internalError(c, err)
		return
	}

	if wantCSV {
		body, err := service.RenderResultCSV(result)
		if err != nil {
			internalError(c, err)
			return
		}
		var title string
		if err := database.DB.Table("polls").Select("title").Where("id = ?", pollID).Scan(&title).Error; err != nil {
			internalError(c, err)
			return
		}
		filename := service.ResultCSVFilename(title)
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", body)
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		internalError(c, err)
		return
	}
	cache.CachePollResult(pollID, payload)
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}
