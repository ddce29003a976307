package storage

import (
	"net/http"

	"ticketry/internal/shared/middleware"
	"ticketry/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	uploader Uploader
}

func NewController(uploader Uploader) *Controller {
	return &Controller{uploader: uploader}
}

// POST /uploads
func (ctl *Controller) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, "file form field is required", err.Error())
		return
	}

	url, err := ctl.uploader.Upload(c.Request.Context(), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, http.StatusCreated, "File uploaded successfully", gin.H{"url": url})
}

// RegisterRoutes mounts the admin-only upload endpoint.
func RegisterRoutes(rg *gin.RouterGroup, controller *Controller) {
	uploads := rg.Group("/uploads")
	uploads.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	{
		uploads.POST("", controller.Upload)
	}
}
