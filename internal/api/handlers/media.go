package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/eventstats-backend-go/internal/core/media"
	"github.com/frostdev-ops/eventstats-backend-go/pkg/utils"
)

// InferAspectRatio inspects an uploaded image and suggests the supported
// aspect ratio closest to it
func (h *Handlers) InferAspectRatio(c *gin.Context) {
	body := c.Request.Body
	filename := ""
	if file, header, err := c.Request.FormFile("file"); err == nil {
		defer file.Close()
		body = file
		filename = header.Filename
	}

	info, err := h.inspector.Inspect(body)
	switch {
	case errors.Is(err, media.ErrTooLarge):
		utils.SendError(c, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, media.ErrNotImage):
		utils.SendError(c, http.StatusUnsupportedMediaType, err.Error())
		return
	case err != nil:
		h.log.WithError(err).WithField("filename", filename).Error("Failed to inspect image")
		utils.SendError(c, http.StatusBadRequest, "Failed to read image")
		return
	}

	utils.SendSuccess(c, info)
}
