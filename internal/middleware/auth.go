package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/pkg/auth"
	"github.com/jwalitptl/bp-admin-api/pkg/errors"
	"github.com/jwalitptl/bp-admin-api/pkg/httputil"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
	ContextClaims   = "claims"
)

type AuthMiddleware struct {
	jwtService auth.JWTService
}

func NewAuthMiddleware(jwtService auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// Authenticate verifies the bearer token and sets the acting user in context
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httputil.RespondWithError(c, errors.Unauthorized("missing authorization header", nil))
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			httputil.RespondWithError(c, errors.Unauthorized("invalid authorization format", nil))
			return
		}

		claims, err := m.jwtService.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			httputil.RespondWithError(c, errors.Unauthorized("invalid token", err))
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// RequireRole lets through only users holding one of roles
func (m *AuthMiddleware) RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(ContextUserRole)
		if !ok {
			httputil.RespondWithError(c, errors.Unauthorized("authentication required", nil))
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		httputil.RespondWithError(c, errors.Forbidden("permission denied"))
	}
}

// ActorID returns the authenticated user's id, or 0 outside Authenticate.
func ActorID(c *gin.Context) int64 {
	return c.GetInt64(ContextUserID)
}

// Claims returns the validated token claims set by Authenticate.
func Claims(c *gin.Context) (*model.TokenClaims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*model.TokenClaims)
	return claims, ok
}
