package handle

import (
	"errors"
	"net/http"
	"strings"

	apperrors "allergen-scan/api/internal/errors"
	"allergen-scan/api/internal/menu"

	"github.com/gin-gonic/gin"
)

type captureResponse struct {
	Success        bool           `json:"success"`
	Message        string         `json:"message"`
	RestaurantName string         `json:"restaurantName"`
	Location       *menu.Location `json:"location"`
	Menu           []menu.Item    `json:"menu"`
	Source         string         `json:"source"`
}

type basicResponse struct {
	Message string      `json:"message"`
	Body    []menu.Item `json:"body"`
}

// Capture handles POST /api/getallergen: image plus restaurant metadata in,
// certainty-scored menu out.
func (h *Handle) Capture(c *gin.Context) {
	var req menu.ScanRequest
	if status, ok := bindJSON(c, &req); !ok {
		c.JSON(status, gin.H{"success": false, "error": "invalid request body"})
		return
	}

	res, err := h.scanner.Scan(c.Request.Context(), menu.VariantCapture, req)
	if err != nil {
		if appErr, ok := apperrors.As(err); ok && appErr.Kind == apperrors.KindValidation {
			reqLog(c).WithField("fields", appErr.Fields).Warn(appErr.Message)
			body := gin.H{"success": false, "error": appErr.Message}
			if errors.Is(err, menu.ErrMissingFields) {
				body["missing"] = appErr.Fields
			} else if len(appErr.Fields) > 0 {
				body["fields"] = appErr.Fields
			}
			c.JSON(apperrors.GetStatusCode(err), body)
			return
		}
		reqLog(c).WithError(err).WithField("kind", apperrors.KindOf(err)).Error("Menu capture failed")
		c.JSON(apperrors.GetStatusCode(err), gin.H{"success": false, "message": "error"})
		return
	}

	c.JSON(http.StatusOK, captureResponse{
		Success:        true,
		Message:        "Menu captured successfully",
		RestaurantName: req.RestaurantName,
		Location:       req.Location(),
		Menu:           res.Items,
		Source:         req.Source,
	})
}

// Basic handles POST /api/allergens: image in, name + allergens out.
func (h *Handle) Basic(c *gin.Context) {
	var req menu.ScanRequest
	if status, ok := bindJSON(c, &req); !ok {
		c.JSON(status, gin.H{"message": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		reqLog(c).Warn("no image provided")
		c.JSON(http.StatusBadRequest, gin.H{"message": "no image provided"})
		return
	}

	res, err := h.scanner.Scan(c.Request.Context(), menu.VariantBasic, req)
	if err != nil {
		if appErr, ok := apperrors.As(err); ok && appErr.Kind == apperrors.KindValidation {
			reqLog(c).WithField("fields", appErr.Fields).Warn(appErr.Message)
			body := gin.H{"message": appErr.Message}
			if errors.Is(err, menu.ErrMissingFields) {
				body["missing"] = appErr.Fields
			}
			c.JSON(apperrors.GetStatusCode(err), body)
			return
		}
		reqLog(c).WithError(err).WithField("kind", apperrors.KindOf(err)).Error("Allergen scan failed")
		c.JSON(apperrors.GetStatusCode(err), gin.H{"message": "error"})
		return
	}

	c.JSON(http.StatusOK, basicResponse{Message: "success", Body: res.Items})
}

// bindJSON decodes the JSON body. An oversize body is 413, anything else
// malformed is 400.
func bindJSON(c *gin.Context, obj any) (int, bool) {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return http.StatusOK, true
	}
	reqLog(c).WithError(err).Warn("Could not decode request body")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, false
	}
	return http.StatusBadRequest, false
}
