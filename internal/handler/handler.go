// Package handler holds the request helpers shared by the resource handlers
// in its subpackages.
package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/bp-admin-api/pkg/errors"
	"github.com/jwalitptl/bp-admin-api/pkg/httputil"
)

// ParseID reads a positive integer path parameter. On failure it writes a
// validation error and returns false.
func ParseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondWithError(c, errors.Validation("invalid id", map[string]string{
			param: "must be a positive integer",
		}))
		return 0, false
	}
	return id, true
}

// BindJSON decodes and validates the request body into obj.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		httputil.RespondWithError(c, httputil.BindingError(err))
		return false
	}
	return true
}

// BindQuery decodes and validates query parameters into obj.
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		httputil.RespondWithError(c, httputil.BindingError(err))
		return false
	}
	return true
}

// QueryInt reads an optional integer query parameter.
func QueryInt(c *gin.Context, name string, def int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		httputil.RespondWithError(c, errors.Validation("invalid query parameter", map[string]string{
			name: "must be an integer",
		}))
		return 0, false
	}
	return n, true
}
