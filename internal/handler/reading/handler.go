package reading

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bp-admin-api/internal/handler"
	"github.com/jwalitptl/bp-admin-api/internal/middleware"
	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/service/reading"
	"github.com/jwalitptl/bp-admin-api/pkg/httputil"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service reading.ReadingService
}

func NewHandler(service reading.ReadingService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	readings := r.Group("/readings")
	{
		readings.POST("", h.CreateReading)
		readings.GET("", h.ListReadings)
		readings.GET("/recent", h.RecentReadings)
		readings.GET("/abnormal", h.AbnormalReadings)
		readings.GET("/export", h.ExportReadings)
		readings.GET("/:id", h.GetReading)
		readings.PUT("/:id", h.UpdateReading)
		readings.PATCH("/:id", h.UpdateReading)
		readings.DELETE("/:id", h.DeleteReading)
	}
}

func (h *Handler) CreateReading(c *gin.Context) {
	var req model.CreateReadingRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	r, err := h.service.CreateReading(c.Request.Context(), middleware.ActorID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, r)
}

func (h *Handler) GetReading(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	r, err := h.service.GetReading(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, r)
}

func (h *Handler) UpdateReading(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateReadingRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	r, err := h.service.UpdateReading(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, r)
}

func (h *Handler) DeleteReading(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteReading(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListReadings(c *gin.Context) {
	var filter model.ReadingFilter
	if !handler.BindQuery(c, &filter) {
		return
	}
	h.list(c, &filter)
}

func (h *Handler) AbnormalReadings(c *gin.Context) {
	var filter model.ReadingFilter
	if !handler.BindQuery(c, &filter) {
		return
	}
	filter.AbnormalOnly = true
	h.list(c, &filter)
}

func (h *Handler) list(c *gin.Context, filter *model.ReadingFilter) {
	readings, total, err := h.service.ListReadings(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, readings, filter.Page, filter.PageSize, total)
}

func (h *Handler) RecentReadings(c *gin.Context) {
	limit, ok := handler.QueryInt(c, "limit", reading.DefaultRecentLimit)
	if !ok {
		return
	}

	readings, err := h.service.RecentReadings(c.Request.Context(), limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, readings)
}

// ExportReadings streams the filtered readings as an XLSX workbook.
func (h *Handler) ExportReadings(c *gin.Context) {
	var filter model.ReadingFilter
	if !handler.BindQuery(c, &filter) {
		return
	}

	data, err := h.service.ExportReadings(c.Request.Context(), &filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	filename := fmt.Sprintf("bp_readings_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
