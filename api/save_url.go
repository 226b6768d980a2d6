package api

import (
	"net/http"
	"slices"

	"bitbnb/hosting-api/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type saveURLBody struct {
	Link        string `json:"link" binding:"required"`
	ProjectName string `json:"projectName" binding:"required"`
	FileType    string `json:"fileType" binding:"required"`
	Username    string `json:"username" binding:"required"`
}

func (a *API) SaveURL(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var body saveURLBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message":   "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	if !slices.Contains(model.FileTypes, body.FileType) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message":   "Unsupported file type.",
			"requestID": requestID,
		})
		return
	}

	rec, err := a.Uploader.SaveLink(c.Request.Context(), body.Link, body.ProjectName, body.FileType, body.Username)
	if err != nil {
		zap.L().Error("Failed to save URL", zap.Error(err), zap.String("requestID", requestID))

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"message":   "Failed to save URL",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Data saved successfully",
		"shortId": rec.ShortID,
	})
}
