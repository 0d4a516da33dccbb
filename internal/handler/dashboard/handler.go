package dashboard

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bp-admin-api/internal/service/analytics"
	"github.com/jwalitptl/bp-admin-api/pkg/httputil"
)

type Handler struct {
	analytics analytics.AnalyticsService
}

func NewHandler(analytics analytics.AnalyticsService) *Handler {
	return &Handler{analytics: analytics}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard/stats", h.Stats)
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.analytics.Dashboard(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, stats)
}
