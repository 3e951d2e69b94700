package middleware

import (
	"net/http"
	"strings"

	"watchlearn/internal/model"
	"watchlearn/internal/service"
	"watchlearn/internal/util"
	"watchlearn/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware accepts a bearer token or a token query parameter.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, secret)
		if err != nil {
			logger.Log.Debug("Rejected token", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

// RoleMiddleware lets through the given roles. Admins pass every role check.
func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := user.Role == model.Admin
		for _, role := range roles {
			if user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

type AccessChecker interface {
	AccessStatus(userID uint) (*service.AccessStatus, error)
}

// AccessMiddleware rejects banned users, reporting the reason, and
// lecturers still waiting for approval.
func AccessMiddleware(checker AccessChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		status, err := checker.AccessStatus(claims.UserID)
		if err != nil {
			if err == util.ErrUserNotFound {
				util.Unauthorized(c)
			} else {
				util.LogInternalError(c, err)
			}
			c.Abort()
			return
		}

		if status.Ban != nil {
			util.ErrorWithData(c, http.StatusForbidden, util.ErrUserBanned.Error(), gin.H{
				"reason":   status.Ban.Reason,
				"bannedAt": status.Ban.BannedAt,
			})
			c.Abort()
			return
		}
		if status.Role == model.Lecturer && !status.Approved {
			util.Error(c, http.StatusForbidden, util.ErrNotApproved.Error())
			c.Abort()
			return
		}

		c.Next()
	}
}

type UserActivityRepo interface {
	UpdateLastSeen(userID uint) error
}

func ActivityMiddleware(repo UserActivityRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := util.GetUserFromContext(c); claims != nil {
			userID := claims.UserID
			// off the request path
			go func() {
				if err := repo.UpdateLastSeen(userID); err != nil {
					logger.Log.Debug("Failed to record activity", zap.Uint("userId", userID), zap.Error(err))
				}
			}()
		}
		c.Next()
	}
}
