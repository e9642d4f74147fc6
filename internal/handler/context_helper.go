package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/conf-schedule-api/internal/middleware"
	appErrors "github.com/noah-isme/conf-schedule-api/pkg/errors"
	"github.com/noah-isme/conf-schedule-api/pkg/response"
)

// actorID returns the authenticated user id, or an empty string.
func actorID(c *gin.Context) string {
	if claims := middleware.Claims(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// requireParam writes a validation error and returns "" when the path parameter is blank.
func requireParam(c *gin.Context, name string) string {
	value := strings.TrimSpace(c.Param(name))
	if value == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" is required"))
		return ""
	}
	return value
}
