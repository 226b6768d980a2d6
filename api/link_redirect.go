package api

import (
	"errors"
	"net/http"

	"bitbnb/hosting-api/db"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LinkRedirect resolves a short link. Visits are not tracked.
func (a *API) LinkRedirect(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	rec, err := a.Store.FindByShortID(c.Request.Context(), c.Param("shortId"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"message":   "Link not found",
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message":   "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to resolve short link", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.Redirect(http.StatusFound, rec.RedirectURL)
}
