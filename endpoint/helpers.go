package endpoint

import (
	"fmt"
	"strconv"

	"github.com/DorartaSylaj/thesis-backend/middleware"
	"github.com/DorartaSylaj/thesis-backend/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func bindJSONOrRespond(c *gin.Context, dst interface{}, msg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: msg, Err: err})
		return false
	}
	return true
}

func getDBOrRespond(c *gin.Context) (*gorm.DB, bool) {
	db := middleware.GetDB(c)
	if db == nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Database connection not available", Err: fmt.Errorf("db is nil")})
		return nil, false
	}
	return db, true
}

func getActorOrRespond(c *gin.Context) (middleware.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		util.CallUserNotAuthorized(c, util.APIErrorParams{Msg: "User not authenticated", Err: fmt.Errorf("actor not found in context")})
		return middleware.Actor{}, false
	}
	return actor, true
}

// parseIDParam parses the "id" path parameter into a uint and returns an error if invalid.
func parseIDParam(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("ID must be a valid integer")
	}
	if id <= 0 {
		return 0, fmt.Errorf("ID must be a positive integer")
	}
	return uint(id), nil
}
