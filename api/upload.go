package api

import (
	"errors"
	"net/http"

	"bitbnb/hosting-api/model"
	"bitbnb/hosting-api/service"
	"bitbnb/hosting-api/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) Upload(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.Error(err)
			return
		}

		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message":   "No file uploaded.",
			"requestID": requestID,
		})
		return
	}

	code, f, err := validators.FileValidator(fh)
	if err != nil {
		msg := err.Error()
		switch {
		case errors.Is(err, validators.ErrNoFile), errors.Is(err, validators.ErrEmptyFile):
			msg = "No file uploaded."
		case code == http.StatusInternalServerError:
			zap.L().Error("Failed to open uploaded file", zap.Error(err))
			msg = "File upload failed"
		}

		c.AbortWithStatusJSON(code, gin.H{
			"message":   msg,
			"requestID": requestID,
		})
		return
	}
	defer f.Close()

	res, err := a.Uploader.Do(c.Request.Context(), &service.UploadRequest{
		FileName:    fh.Filename,
		ProjectName: c.PostForm("projectName"),
		Username:    c.PostForm("username"),
		Body:        f,
	})
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTypeUnsupported):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"message":   "Unsupported file type.",
				"requestID": requestID,
			})
		case errors.Is(err, model.ErrMissingField):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"message":   "projectName and username are required",
				"requestID": requestID,
			})
		default:
			zap.L().Error("File upload failed", zap.Error(err), zap.String("requestID", requestID))

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"message":   "File upload failed",
				"requestID": requestID,
			})
		}
		return
	}

	c.JSON(http.StatusOK, res)
}
