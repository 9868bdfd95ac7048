package handle

import (
	"net/http"
	"strconv"
	"time"

	"allergen-scan/api/internal/menu"

	"github.com/gin-gonic/gin"
)

const (
	defaultScanLimit = 20
	maxScanLimit     = 100
)

type scanView struct {
	ID             string         `json:"id"`
	CreatedAt      time.Time      `json:"createdAt"`
	Variant        string         `json:"variant"`
	PromptVersion  string         `json:"promptVersion"`
	RestaurantName string         `json:"restaurantName,omitempty"`
	Location       *menu.Location `json:"location,omitempty"`
	Source         string         `json:"source,omitempty"`
	Menu           []menu.Item    `json:"menu"`
}

// ListScans handles GET /api/scans?restaurant=&limit=.
func (h *Handle) ListScans(c *gin.Context) {
	limit := defaultScanLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxScanLimit)
	}

	rows, err := h.store.Recent(c.Request.Context(), c.Query("restaurant"), limit)
	if err != nil {
		reqLog(c).WithError(err).Error("Could not list scans")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "error"})
		return
	}

	out := make([]scanView, 0, len(rows))
	for _, r := range rows {
		out = append(out, scanView{
			ID:             r.ID.String(),
			CreatedAt:      r.CreatedAt,
			Variant:        r.Variant,
			PromptVersion:  r.PromptVersion,
			RestaurantName: r.RestaurantName,
			Location:       r.Location,
			Source:         r.Source,
			Menu:           r.Items,
		})
	}
	c.JSON(http.StatusOK, gin.H{"scans": out})
}
