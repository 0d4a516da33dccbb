package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bp-admin-api/internal/handler"
	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/service/user"
	"github.com/jwalitptl/bp-admin-api/pkg/httputil"
)

type Handler struct {
	svc user.UserService
}

func NewHandler(svc user.UserService) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the user endpoints. Writes go through requireAdmin.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	users := r.Group("/users")
	{
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.POST("", requireAdmin, h.CreateUser)
		users.PUT("/:id", requireAdmin, h.UpdateUser)
		users.PATCH("/:id", requireAdmin, h.UpdateUser)
		users.DELETE("/:id", requireAdmin, h.DeleteUser)
	}
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	u, err := h.svc.CreateUser(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, u)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	u, err := h.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, u)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}
	var req model.UpdateUserRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	u, err := h.svc.UpdateUser(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, u)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := handler.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteUser(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListUsers(c *gin.Context) {
	var filter model.UserFilter
	if !handler.BindQuery(c, &filter) {
		return
	}

	users, total, err := h.svc.ListUsers(c.Request.Context(), &filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, users, filter.Page, filter.PageSize, total)
}
