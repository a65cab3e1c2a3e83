// Package identity reads the caller from the headers set by the upstream gateway.
// Authentication happens before requests reach this service.
package identity

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aimd54/campus-rewards/internal/models"
	"github.com/aimd54/campus-rewards/internal/service/leaderboard"
)

// Gateway headers.
const (
	HeaderUserID  = "X-User-ID"
	HeaderCollege = "X-User-College"
	HeaderRole    = "X-User-Role"
)

const viewerKey = "campus-rewards.viewer"

// Middleware stores the caller in the gin context. A malformed user id is rejected.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := leaderboard.Viewer{
			College: strings.TrimSpace(c.GetHeader(HeaderCollege)),
			Role:    strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderRole))),
		}

		if raw := c.GetHeader(HeaderUserID); raw != "" {
			id, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || id == 0 {
				abort(c, http.StatusBadRequest, "invalid "+HeaderUserID+" header")
				return
			}
			viewer.UserID = uint(id)
		}

		c.Set(viewerKey, viewer)
		c.Next()
	}
}

// RequireUser rejects anonymous callers.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Viewer(c).UserID == 0 {
			abort(c, http.StatusUnauthorized, HeaderUserID+" header is required")
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Viewer(c).Role != models.RoleAdmin {
			abort(c, http.StatusForbidden, "admin role required")
			return
		}
		c.Next()
	}
}

// Viewer returns the caller stored by Middleware, or the zero viewer.
func Viewer(c *gin.Context) leaderboard.Viewer {
	if v, ok := c.Get(viewerKey); ok {
		if viewer, ok := v.(leaderboard.Viewer); ok {
			return viewer
		}
	}
	return leaderboard.Viewer{}
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
