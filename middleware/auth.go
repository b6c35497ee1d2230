package middleware

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/DorartaSylaj/thesis-backend/config"
	"github.com/DorartaSylaj/thesis-backend/model"
	"github.com/DorartaSylaj/thesis-backend/util"
	"github.com/gin-gonic/gin"
)

// ValidateLoginToken authenticates the request from the session-token
// header. Redis is consulted first; on a miss (or without Redis) the
// sessions table is the source of truth. On success the actor's id and role
// are stored in the context.
func ValidateLoginToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken := c.GetHeader("session-token")
		if sessionToken == "" {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Session token not provided",
				Err: fmt.Errorf("session token not provided"),
			})
			c.Abort()
			return
		}

		if userID, role, ok := lookupSessionInRedis(sessionToken); ok {
			c.Set(UserIDKey, userID)
			c.Set(RoleKey, role)
			c.Next()
			return
		}

		db := GetDB(c)
		if db == nil {
			util.CallServerError(c, util.APIErrorParams{
				Msg: "Database connection not available",
				Err: fmt.Errorf("db is nil"),
			})
			c.Abort()
			return
		}

		var result struct {
			UserID uint
			Role   string
		}
		err := db.Table("sessions").
			Select("sessions.user_id, users.role").
			Joins("JOIN users ON sessions.user_id = users.id").
			Where("session_token = ? AND expires_at > ? AND sessions.deleted_at IS NULL", sessionToken, time.Now()).
			First(&result).Error
		if err != nil {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "Invalid or expired session token",
				Err: fmt.Errorf("session not found"),
			})
			c.Abort()
			return
		}

		c.Set(UserIDKey, result.UserID)
		c.Set(RoleKey, result.Role)
		c.Next()
	}
}

// lookupSessionInRedis resolves a session token from the Redis cache.
// Values are stored as "userID:role" at login time.
func lookupSessionInRedis(token string) (uint, string, bool) {
	rdb := config.GetRedisClient()
	if rdb == nil {
		return 0, "", false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	val, err := rdb.Get(ctx, fmt.Sprintf("session:%s", token)).Result()
	if err != nil {
		return 0, "", false
	}
	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 {
		return 0, "", false
	}
	id, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil || !model.ValidRole(parts[1]) {
		return 0, "", false
	}
	return uint(id), parts[1], true
}

// RequireRoles rejects authenticated requests whose actor role is not in the
// allowed set. Any combination outside the policy table yields 403, never a
// silent empty result.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			util.CallUserNotAuthorized(c, util.APIErrorParams{
				Msg: "User not authenticated",
				Err: fmt.Errorf("actor not found in context"),
			})
			c.Abort()
			return
		}
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		util.LogUnauthorizedAccess(actor.ID, c.ClientIP(), c.Request.Method+" "+c.Request.URL.Path)
		util.CallUserForbidden(c, util.APIErrorParams{
			Msg: "You do not have permission to perform this action",
			Err: fmt.Errorf("role %s not allowed", actor.Role),
		})
		c.Abort()
	}
}
