package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/bp-admin-api/config"
	authhandler "github.com/jwalitptl/bp-admin-api/internal/handler/auth"
	userhandler "github.com/jwalitptl/bp-admin-api/internal/handler/user"
	"github.com/jwalitptl/bp-admin-api/internal/middleware"
	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/pkg/errors"
	"github.com/jwalitptl/bp-admin-api/pkg/httputil"
	"github.com/jwalitptl/bp-admin-api/pkg/metrics"
)

const APIVersion = "1.0"

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine    *gin.Engine
	auth      *middleware.AuthMiddleware
	healthH   Handler
	authH     *authhandler.Handler
	userH     *userhandler.Handler
	resources []Handler
}

type RouterConfig struct {
	Mode           string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	RateLimit      config.RateLimitConfig
	CORS           config.CORSConfig
}

// NewRouter wires the global middleware chain. resources are mounted behind
// authentication.
func NewRouter(
	cfg RouterConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
	auth *middleware.AuthMiddleware,
	healthH Handler,
	authH *authhandler.Handler,
	userH *userhandler.Handler,
	resources ...Handler,
) *Router {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	engine.Use(
		middleware.RequestID(logger),
		middleware.Recovery(logger),
		middleware.Logger(logger),
		middleware.Metrics(m),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.CORS),
		middleware.BodyLimit(cfg.MaxBodyBytes),
		middleware.Timeout(cfg.RequestTimeout),
	)
	if cfg.RateLimit.Enabled {
		engine.Use(middleware.NewRateLimiter(cfg.RateLimit).RateLimit())
	}

	engine.NoRoute(func(c *gin.Context) {
		httputil.RespondWithError(c, errors.NotFound("route", nil))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, httputil.Response{
			Error: &httputil.Error{
				Code:    http.StatusMethodNotAllowed,
				Reason:  "method_not_allowed",
				Message: "method not allowed",
			},
		})
	})

	return &Router{
		engine:    engine,
		auth:      auth,
		healthH:   healthH,
		authH:     authH,
		userH:     userH,
		resources: resources,
	}
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")
	api.Use(middleware.Version(APIVersion))

	r.healthH.RegisterRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())

	r.authH.RegisterRoutes(api, protected)
	r.userH.RegisterRoutes(protected, r.auth.RequireRole(model.RoleAdmin))
	for _, h := range r.resources {
		h.RegisterRoutes(protected)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
