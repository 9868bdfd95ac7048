package handle

import (
	"context"
	"net/http"
	"time"

	"allergen-scan/api/internal/config"
	"allergen-scan/api/internal/menu"
	"allergen-scan/api/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// ScanStore is the read side of the optional persistence collaborator.
type ScanStore interface {
	Recent(ctx context.Context, restaurant string, limit int) ([]store.ScanRow, error)
	Ping(ctx context.Context) error
}

type Handle struct {
	scanner *menu.Scanner
	cfg     *config.Config
	store   ScanStore
}

// New wires the handlers. st may be nil when no database is configured.
func New(scanner *menu.Scanner, cfg *config.Config, st ScanStore) *Handle {
	return &Handle{
		scanner: scanner,
		cfg:     cfg,
		store:   st,
	}
}

// Router builds the gin engine with middleware and routes.
func (h *Handle) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestID(),
		accessLog(),
		corsMiddleware(h.cfg.CORSAllowOrigins),
		requestSizeLimiter(h.cfg.MaxRequestBodySize),
	)

	r.GET("/healthz", h.Health)
	r.POST("/check-blur", h.CheckBlur)

	api := r.Group("/api")
	{
		api.POST("/getallergen", h.Capture)
		api.POST("/allergens", h.Basic)
		if h.store != nil {
			api.GET("/scans", h.ListScans)
		}
	}
	return r
}

func (h *Handle) Health(c *gin.Context) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": "not ok"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "engine": h.scanner.EngineName()})
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cc := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = origins
	}
	return cors.New(cc)
}
