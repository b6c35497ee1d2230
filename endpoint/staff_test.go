package endpoint

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/DorartaSylaj/thesis-backend/model"
	"github.com/DorartaSylaj/thesis-backend/util"
	"github.com/stretchr/testify/assert"
)

func TestCreateStaff_HashesPasswordWithArgon2(t *testing.T) {
	r, db := setupEndpointTest(t)
	r.POST("/admin/staff", asActor(1, model.RoleAdmin), CreateStaff)

	w := doRequest(t, r, requestParams{
		method: http.MethodPost,
		path:   "/admin/staff",
		body: map[string]interface{}{
			"name":     "Erza Hoxha",
			"email":    "erza@clinic.test",
			"password": "password123",
			"role":     model.RoleNurse,
		},
	})
	assertStatus(t, w, http.StatusCreated)

	var staff model.User
	assert.NoError(t, db.Where("email = ?", "erza@clinic.test").First(&staff).Error)
	assert.Equal(t, model.RoleNurse, staff.Role)
	assert.True(t, strings.HasPrefix(staff.Password, "argon2id$"))
	match, err := util.VerifyPassword("password123", staff.Password, staff.PasswordSalt)
	assert.NoError(t, err)
	assert.True(t, match)
}

func TestCreateStaff_InvalidRoleRejected(t *testing.T) {
	r, db := setupEndpointTest(t)
	r.POST("/admin/staff", asActor(1, model.RoleAdmin), CreateStaff)

	w := doRequest(t, r, requestParams{
		method: http.MethodPost,
		path:   "/admin/staff",
		body: map[string]interface{}{
			"name":     "Bad Role",
			"email":    "bad@clinic.test",
			"password": "password123",
			"role":     "receptionist",
		},
	})
	assertStatus(t, w, http.StatusBadRequest)
	assert.EqualValues(t, 0, countRows(t, db, &model.User{}))
}

func TestCreateStaff_DuplicateEmailRejected(t *testing.T) {
	r, db := setupEndpointTest(t)
	mustCreateStaff(t, db, "Existing", "dup@clinic.test", model.RoleNurse)
	r.POST("/admin/staff", asActor(1, model.RoleAdmin), CreateStaff)

	w := doRequest(t, r, requestParams{
		method: http.MethodPost,
		path:   "/admin/staff",
		body: map[string]interface{}{
			"name":     "Dup",
			"email":    "dup@clinic.test",
			"password": "password123",
			"role":     model.RoleNurse,
		},
	})
	assertStatus(t, w, http.StatusBadRequest)
	assert.EqualValues(t, 1, countRows(t, db, &model.User{}))
}

func TestListStaff_CursorPagination(t *testing.T) {
	r, db := setupEndpointTest(t)
	for i := 1; i <= 5; i++ {
		mustCreateStaff(t, db, fmt.Sprintf("Staff %d", i), fmt.Sprintf("s%d@clinic.test", i), model.RoleNurse)
	}
	r.GET("/admin/staff", asActor(1, model.RoleAdmin), ListStaff)

	w := doRequest(t, r, requestParams{method: http.MethodGet, path: "/admin/staff?limit=2"})
	assertStatus(t, w, http.StatusOK)

	body := decodeResponse(t, w)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 5, data["total"])
	assert.EqualValues(t, 2, data["total_fetched"])
	assert.Equal(t, true, data["has_more"])
	assert.NotNil(t, data["next_cursor"])

	cursor := data["next_cursor"].(float64)
	w = doRequest(t, r, requestParams{method: http.MethodGet, path: fmt.Sprintf("/admin/staff?limit=10&cursor=%.0f", cursor)})
	assertStatus(t, w, http.StatusOK)

	body = decodeResponse(t, w)
	data = body["data"].(map[string]interface{})
	assert.EqualValues(t, 3, data["total_fetched"])
	assert.Equal(t, false, data["has_more"])
	for _, raw := range data["staff"].([]interface{}) {
		row := raw.(map[string]interface{})
		assert.Greater(t, row["ID"].(float64), cursor)
	}
}

func TestUpdateStaff_PasswordChangeRevokesSessions(t *testing.T) {
	r, db := setupEndpointTest(t)
	staff := mustCreateStaff(t, db, "Nurse", "nurse@clinic.test", model.RoleNurse)
	assert.NoError(t, db.Create(&model.Session{UserID: staff.ID, SessionToken: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}).Error)
	assert.NoError(t, db.Create(&model.Session{UserID: staff.ID, SessionToken: "tok-2", ExpiresAt: time.Now().Add(time.Hour)}).Error)

	r.PUT("/admin/staff/:id", asActor(1, model.RoleAdmin), UpdateStaff)
	w := doRequest(t, r, requestParams{
		method: http.MethodPut,
		path:   fmt.Sprintf("/admin/staff/%d", staff.ID),
		body:   map[string]interface{}{"password": "newpassword456"},
	})
	assertStatus(t, w, http.StatusOK)

	assert.EqualValues(t, 0, countRows(t, db, &model.Session{}))
	var reloaded model.User
	assert.NoError(t, db.First(&reloaded, staff.ID).Error)
	match, err := util.VerifyPassword("newpassword456", reloaded.Password, reloaded.PasswordSalt)
	assert.NoError(t, err)
	assert.True(t, match)
}

func TestUpdateStaff_NameOnlyKeepsSessions(t *testing.T) {
	r, db := setupEndpointTest(t)
	staff := mustCreateStaff(t, db, "Nurse", "nurse@clinic.test", model.RoleNurse)
	assert.NoError(t, db.Create(&model.Session{UserID: staff.ID, SessionToken: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}).Error)

	r.PUT("/admin/staff/:id", asActor(1, model.RoleAdmin), UpdateStaff)
	w := doRequest(t, r, requestParams{
		method: http.MethodPut,
		path:   fmt.Sprintf("/admin/staff/%d", staff.ID),
		body:   map[string]interface{}{"name": "Renamed Nurse"},
	})
	assertStatus(t, w, http.StatusOK)

	assert.EqualValues(t, 1, countRows(t, db, &model.Session{}))
	var reloaded model.User
	assert.NoError(t, db.First(&reloaded, staff.ID).Error)
	assert.Equal(t, "Renamed Nurse", reloaded.Name)
}

func TestUpdateStaff_EmailTakenByOtherUser(t *testing.T) {
	r, db := setupEndpointTest(t)
	mustCreateStaff(t, db, "Other", "taken@clinic.test", model.RoleNurse)
	staff := mustCreateStaff(t, db, "Nurse", "nurse@clinic.test", model.RoleNurse)

	r.PUT("/admin/staff/:id", asActor(1, model.RoleAdmin), UpdateStaff)
	w := doRequest(t, r, requestParams{
		method: http.MethodPut,
		path:   fmt.Sprintf("/admin/staff/%d", staff.ID),
		body:   map[string]interface{}{"email": "taken@clinic.test"},
	})
	assertStatus(t, w, http.StatusBadRequest)
}

func TestUpdateStaff_NotFound(t *testing.T) {
	r, _ := setupEndpointTest(t)
	r.PUT("/admin/staff/:id", asActor(1, model.RoleAdmin), UpdateStaff)

	w := doRequest(t, r, requestParams{
		method: http.MethodPut,
		path:   "/admin/staff/999",
		body:   map[string]interface{}{"name": "Ghost"},
	})
	assertStatus(t, w, http.StatusNotFound)
}

func TestDeleteStaff_RemovesUserAndSessions(t *testing.T) {
	r, db := setupEndpointTest(t)
	staff := mustCreateStaff(t, db, "Nurse", "nurse@clinic.test", model.RoleNurse)
	assert.NoError(t, db.Create(&model.Session{UserID: staff.ID, SessionToken: "tok-1", ExpiresAt: time.Now().Add(time.Hour)}).Error)

	r.DELETE("/admin/staff/:id", asActor(1, model.RoleAdmin), DeleteStaff)
	w := doRequest(t, r, requestParams{method: http.MethodDelete, path: fmt.Sprintf("/admin/staff/%d", staff.ID)})
	assertStatus(t, w, http.StatusOK)

	assert.EqualValues(t, 0, countRows(t, db, &model.User{}))
	assert.EqualValues(t, 0, countRows(t, db, &model.Session{}))
}
