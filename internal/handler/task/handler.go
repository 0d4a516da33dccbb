package task

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bp-admin-api/internal/handler"
	"github.com/jwalitptl/bp-admin-api/internal/middleware"
	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/service/task"
	"github.com/jwalitptl/bp-admin-api/pkg/httputil"
)

type Handler struct {
	service task.TaskService
}

func NewHandler(service task.TaskService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	workflow := r.Group("/workflow")
	{
		workflow.POST("", h.CreateTask)
		workflow.GET("", h.ListTasks)
		workflow.GET("/:id", h.GetTask)
		workflow.PUT("/:id", h.UpdateTask)
		workflow.PATCH("/:id", h.UpdateTask)
		workflow.DELETE("/:id", h.DeleteTask)
	}
}

func (h *Handler) CreateTask(c *gin.Context) {
	var req model.CreateTaskRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	t, err := h.service.CreateTask(c.Request.Context(), middleware.ActorID(c), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, t)
}

func (h *Handler) GetTask(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	t, err := h.service.GetTask(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, t)
}

func (h *Handler) UpdateTask(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateTaskRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	t, err := h.service.UpdateTask(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, t)
}

func (h *Handler) DeleteTask(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteTask(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListTasks(c *gin.Context) {
	var filter model.TaskFilter
	if !handler.BindQuery(c, &filter) {
		return
	}

	tasks, total, err := h.service.ListTasks(c.Request.Context(), &filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, tasks, filter.Page, filter.PageSize, total)
}
