package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (a *API) LinkList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	username := c.Query("username")
	if username == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message":   "No username provided",
			"requestID": requestID,
		})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message":   "Invalid page",
			"requestID": requestID,
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit < 1 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message":   "Invalid limit",
			"requestID": requestID,
		})
		return
	}
	limit = min(limit, maxPageSize)

	records, err := a.Store.ListByUsername(c.Request.Context(), username, page, limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message":   "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list records", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"page":    page,
		"limit":   limit,
	})
}
