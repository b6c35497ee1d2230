package endpoint

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/DorartaSylaj/thesis-backend/model"
	"github.com/DorartaSylaj/thesis-backend/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Sentinel errors for staff update operations
var ErrStaffEmailAlreadyExists = errors.New("email already exists")

type createStaffRequest struct {
	Name     string `json:"name" binding:"required" example:"Erza Hoxha"`
	Email    string `json:"email" binding:"required,email" example:"erza@clinic.example"`
	Password string `json:"password" binding:"required,min=6" example:"password123"`
	Role     string `json:"role" binding:"required" example:"nurse"`
}

type updateStaffRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// ListStaff godoc
// @Summary      List all staff (admin only)
// @Description  Get a paginated list of staff accounts using cursor-based pagination
// @Tags         Staff
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        limit query int false "Limit number of results (default 10, max 100)"
// @Param        cursor query int false "Cursor for pagination (user ID)"
// @Param        keyword query string false "Search keyword for name or email"
// @Success      200 {object} util.APIResponse{data=object} "Staff retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /admin/staff [get]
func ListStaff(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	limit := parsePositiveInt(c.Query("limit"), 10, 100)
	cursor := parseUintQuery(c, "cursor")
	keyword := c.Query("keyword")

	query := db.Model(&model.User{})
	if keyword != "" {
		kw := "%" + keyword + "%"
		query = query.Where("name LIKE ? OR email LIKE ?", kw, kw)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to count staff", Err: err})
		return
	}

	if cursor > 0 {
		query = query.Where("id > ?", cursor)
	}

	// Fetch one extra to detect whether more pages exist.
	var staff []model.User
	if err := query.Order("id ASC").Limit(limit + 1).Find(&staff).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve staff", Err: err})
		return
	}

	hasMore := len(staff) > limit
	if hasMore {
		staff = staff[:limit]
	}
	var nextCursor *uint
	if hasMore {
		lastID := staff[len(staff)-1].ID
		nextCursor = &lastID
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Staff retrieved",
		Data: map[string]interface{}{
			"staff":         staff,
			"total":         total,
			"total_fetched": len(staff),
			"has_more":      hasMore,
			"next_cursor":   nextCursor,
		},
	})
}

// CreateStaff godoc
// @Summary      Add a staff member (admin only)
// @Tags         Staff
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body createStaffRequest true "Staff details"
// @Success      201 {object} util.APIResponse{data=model.User} "Staff created"
// @Failure      400 {object} util.APIResponse "Invalid request or email already exists"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /admin/staff [post]
func CreateStaff(c *gin.Context) {
	var req createStaffRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if !model.ValidRole(req.Role) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "role must be one of admin, nurse, doctor",
			Err: fmt.Errorf("invalid role %q", req.Role),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	exists, err := staffEmailExists(db, req.Email, 0)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to validate email uniqueness", Err: err})
		return
	}
	if exists {
		util.CallUserError(c, util.APIErrorParams{Msg: "Email already exists", Err: ErrStaffEmailAlreadyExists})
		return
	}

	salt, err := util.GenerateSalt()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to generate password salt", Err: err})
		return
	}
	hashed, err := util.HashPasswordArgon2(req.Password, salt)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to hash password", Err: err})
		return
	}

	staff := model.User{
		Name:         req.Name,
		Email:        req.Email,
		Password:     hashed,
		PasswordSalt: salt,
		Role:         req.Role,
	}
	if err := db.Create(&staff).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create staff member", Err: err})
		return
	}

	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "Staff created successfully",
		Data: staff,
	})
}

// UpdateStaff godoc
// @Summary      Update a staff member (admin only)
// @Description  Update name, email, role and/or password. A password change revokes the member's active sessions
// @Tags         Staff
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "User ID"
// @Param        request body updateStaffRequest true "Fields to update"
// @Success      200 {object} util.APIResponse{data=model.User} "Staff updated"
// @Failure      400 {object} util.APIResponse "Invalid request or email already exists"
// @Failure      404 {object} util.APIResponse "Staff member not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /admin/staff/{id} [put]
func UpdateStaff(c *gin.Context) {
	uid, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	var req updateStaffRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if req.Name == "" && req.Email == "" && req.Password == "" && req.Role == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "At least one field (name, email, password, or role) must be provided",
			Err: fmt.Errorf("no fields to update"),
		})
		return
	}
	if req.Role != "" && !model.ValidRole(req.Role) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "role must be one of admin, nurse, doctor",
			Err: fmt.Errorf("invalid role %q", req.Role),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var staff model.User
	if err := db.First(&staff, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Staff member not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve staff member", Err: err})
		return
	}

	passwordChanged, err := applyStaffUpdate(db, &staff, &req)
	if err != nil {
		if errors.Is(err, ErrStaffEmailAlreadyExists) {
			util.CallUserError(c, util.APIErrorParams{Msg: "Email already exists", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update staff fields", Err: err})
		return
	}

	if err := db.Save(&staff).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update staff member", Err: err})
		return
	}

	util.UserEmailCacheDelete(staff.ID)
	if passwordChanged {
		invalidateStaffSessions(db, staff.ID)
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Staff updated successfully",
		Data: staff,
	})
}

// DeleteStaff godoc
// @Summary      Delete a staff member (admin only)
// @Tags         Staff
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "User ID"
// @Success      200 {object} util.APIResponse "Staff deleted"
// @Failure      404 {object} util.APIResponse "Staff member not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /admin/staff/{id} [delete]
func DeleteStaff(c *gin.Context) {
	uid, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var staff model.User
	if err := db.First(&staff, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Staff member not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve staff member", Err: err})
		return
	}

	if err := db.Delete(&staff).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete staff member", Err: err})
		return
	}

	invalidateStaffSessions(db, staff.ID)
	util.UserEmailCacheDelete(staff.ID)

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Staff deleted successfully",
	})
}

// applyStaffUpdate merges the requested changes into the user model,
// handling email uniqueness and password hashing. It reports whether the
// password changed so the caller can revoke sessions.
func applyStaffUpdate(db *gorm.DB, staff *model.User, req *updateStaffRequest) (passwordChanged bool, err error) {
	if req.Email != "" && req.Email != staff.Email {
		exists, err := staffEmailExists(db, req.Email, staff.ID)
		if err != nil {
			return false, fmt.Errorf("failed to validate email uniqueness: %w", err)
		}
		if exists {
			return false, ErrStaffEmailAlreadyExists
		}
		staff.Email = req.Email
	}
	if req.Name != "" {
		staff.Name = req.Name
	}
	if req.Role != "" {
		staff.Role = req.Role
	}
	if req.Password != "" {
		salt, err := util.GenerateSalt()
		if err != nil {
			return false, fmt.Errorf("failed to generate password salt: %w", err)
		}
		hashed, err := util.HashPasswordArgon2(req.Password, salt)
		if err != nil {
			return false, fmt.Errorf("failed to hash password: %w", err)
		}
		staff.Password = hashed
		staff.PasswordSalt = salt
		passwordChanged = true
	}
	return passwordChanged, nil
}

// invalidateStaffSessions removes session records from both DB and Redis for a given user.
func invalidateStaffSessions(db *gorm.DB, userID uint) {
	_ = db.Where("user_id = ?", userID).Delete(&model.Session{}).Error
	_ = util.InvalidateUserSessions(userID)
}

// staffEmailExists checks whether an email already exists in the users table excluding a given user ID.
func staffEmailExists(db *gorm.DB, email string, excludeID uint) (bool, error) {
	var count int64
	if err := db.Model(&model.User{}).Where("email = ? AND id != ?", email, excludeID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// parsePositiveInt parses a positive integer from a query value returning a default
// when the value is missing or invalid. If max > 0 it caps the returned value.
func parsePositiveInt(q string, defaultVal, max int) int {
	if q == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(q)
	if err != nil || v <= 0 {
		return defaultVal
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

// parseUintQuery parses an unsigned integer query parameter and returns 0 on error.
func parseUintQuery(c *gin.Context, name string) uint {
	s := c.Query(name)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil || v == 0 {
		return 0
	}
	return uint(v)
}
