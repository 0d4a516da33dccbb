package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bp-admin-api/internal/handler"
	"github.com/jwalitptl/bp-admin-api/internal/middleware"
	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/service/auth"
	"github.com/jwalitptl/bp-admin-api/pkg/errors"
	"github.com/jwalitptl/bp-admin-api/pkg/httputil"
)

type Handler struct {
	svc auth.AuthService
}

func NewHandler(svc auth.AuthService) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts login on the public group and the token-bound
// endpoints on the authenticated one.
func (h *Handler) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/auth/login", h.Login)

	authGroup := protected.Group("/auth")
	{
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/me", h.Me)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, resp)
}

func (h *Handler) Logout(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		httputil.RespondWithError(c, errors.Unauthorized("authentication required", nil))
		return
	}
	if err := h.svc.Logout(c.Request.Context(), claims); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"message": "Logout successful"})
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.svc.CurrentUser(c.Request.Context(), middleware.ActorID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, user)
}
