package handle

import (
	"net/http"

	apperrors "allergen-scan/api/internal/errors"
	"allergen-scan/api/internal/sharpness"
	"allergen-scan/api/internal/util"

	"github.com/gin-gonic/gin"
)

type blurRequest struct {
	Image string `json:"image"`
}

// CheckBlur handles POST /check-blur, which the capture screen calls before
// submitting a photo for extraction.
func (h *Handle) CheckBlur(c *gin.Context) {
	var req blurRequest
	if status, ok := bindJSON(c, &req); !ok {
		c.JSON(status, gin.H{"error": "invalid request body"})
		return
	}

	img, err := util.DecodeImage(req.Image)
	if err != nil {
		msg := "invalid image payload"
		if appErr, ok := apperrors.As(err); ok {
			msg = appErr.Message
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	rep, err := sharpness.AssessBytes(img.Data, h.cfg.BlurThreshold)
	if err != nil {
		reqLog(c).WithError(err).WithField("mime", img.MIMEType).Warn("Could not decode image for blur check")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unsupported image"})
		return
	}
	reqLog(c).WithField("score", rep.Score).Debug("Blur check")
	c.JSON(http.StatusOK, rep)
}
