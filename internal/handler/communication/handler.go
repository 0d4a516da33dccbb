package communication

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bp-admin-api/internal/handler"
	"github.com/jwalitptl/bp-admin-api/internal/middleware"
	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/service/analytics"
	"github.com/jwalitptl/bp-admin-api/internal/service/communication"
	"github.com/jwalitptl/bp-admin-api/pkg/httputil"
)

type Handler struct {
	service   communication.CommunicationService
	analytics analytics.AnalyticsService
}

func NewHandler(service communication.CommunicationService, analytics analytics.AnalyticsService) *Handler {
	return &Handler{
		service:   service,
		analytics: analytics,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	comms := r.Group("/communications")
	{
		comms.POST("", h.CreateCommunication)
		comms.GET("", h.ListCommunications)
		comms.GET("/analytics", h.Analytics)
		comms.GET("/follow-up-queue", h.FollowUpQueue)
		comms.GET("/:id", h.GetCommunication)
		comms.PUT("/:id", h.UpdateCommunication)
		comms.PATCH("/:id", h.UpdateCommunication)
		comms.PATCH("/:id/resolve", h.Resolve)
		comms.DELETE("/:id", h.DeleteCommunication)
	}
}

func (h *Handler) CreateCommunication(c *gin.Context) {
	var req model.CreateCommunicationRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	log, err := h.service.CreateCommunication(c.Request.Context(), middleware.ActorID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, log)
}

func (h *Handler) GetCommunication(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	log, err := h.service.GetCommunication(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, log)
}

func (h *Handler) UpdateCommunication(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateCommunicationRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	log, err := h.service.UpdateCommunication(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, log)
}

func (h *Handler) DeleteCommunication(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteCommunication(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListCommunications(c *gin.Context) {
	var filter model.CommunicationFilter
	if !handler.BindQuery(c, &filter) {
		return
	}

	logs, total, err := h.service.ListCommunications(c.Request.Context(), &filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, logs, filter.Page, filter.PageSize, total)
}

func (h *Handler) FollowUpQueue(c *gin.Context) {
	logs, err := h.service.FollowUpQueue(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, logs)
}

// Resolve accepts an empty body.
func (h *Handler) Resolve(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.ResolveCommunicationRequest
	if c.Request.ContentLength != 0 && !handler.BindJSON(c, &req) {
		return
	}

	log, err := h.service.Resolve(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, log)
}

func (h *Handler) Analytics(c *gin.Context) {
	report, err := h.analytics.CommunicationAnalytics(c.Request.Context(), c.Query("period"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, report)
}
