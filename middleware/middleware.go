package middleware

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Context keys set by DatabaseMiddleware and ValidateLoginToken.
const (
	DBKey     = "db"
	UserIDKey = "user_id"
	RoleKey   = "role"
)

// Actor is the authenticated user performing a request. Handlers read it
// once from the context and pass it explicitly into every core operation;
// nothing below the handler layer touches the request context.
type Actor struct {
	ID   uint
	Role string
}

// DatabaseMiddleware injects the gorm DB handle into the request context.
func DatabaseMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(DBKey, db)
		c.Next()
	}
}

// GetDB returns the request-scoped gorm DB handle, or nil when the
// middleware was not installed.
func GetDB(c *gin.Context) *gorm.DB {
	v, ok := c.Get(DBKey)
	if !ok {
		return nil
	}
	db, ok := v.(*gorm.DB)
	if !ok {
		return nil
	}
	return db
}

// GetUserID returns the authenticated user's ID from the context.
func GetUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// GetRole returns the authenticated user's role from the context.
func GetRole(c *gin.Context) (string, bool) {
	v, ok := c.Get(RoleKey)
	if !ok {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}

// GetActor returns the authenticated actor (id + role) from the context.
func GetActor(c *gin.Context) (Actor, bool) {
	id, ok := GetUserID(c)
	if !ok {
		return Actor{}, false
	}
	role, ok := GetRole(c)
	if !ok {
		return Actor{}, false
	}
	return Actor{ID: id, Role: role}, true
}
