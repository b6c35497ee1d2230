package endpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DorartaSylaj/thesis-backend/middleware"
	"github.com/DorartaSylaj/thesis-backend/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// endpointTestModels is the standard set of models migrated for endpoint tests.
var endpointTestModels = []interface{}{
	&model.User{},
	&model.Session{},
	&model.Patient{},
	&model.Appointment{},
	&model.Report{},
	&model.AuditLog{},
}

// setupEndpointTestDB initializes an isolated in-memory sqlite database with
// all standard models migrated. TranslateError is enabled so duplicate-key
// handling behaves like the MySQL setup.
func setupEndpointTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:endpoint_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect test DB: %v", err)
	}
	if err := db.AutoMigrate(endpointTestModels...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

// setupEndpointTest returns a Gin engine and database connection configured
// for endpoint tests.
func setupEndpointTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupEndpointTestDB(t)
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))
	return r, db
}

// asActor injects an authenticated actor into the request context, standing
// in for ValidateLoginToken in handler tests.
func asActor(id uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, id)
		c.Set(middleware.RoleKey, role)
		c.Next()
	}
}

// requestParams groups HTTP request parameters to reduce function arguments
type requestParams struct {
	method  string
	path    string
	body    interface{}
	headers map[string]string
}

// doRequest executes an HTTP request with the given parameters and returns the response recorder
func doRequest(t *testing.T, r http.Handler, params requestParams) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if params.body != nil {
		var err error
		payload, err = json.Marshal(params.body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
	}
	req, err := http.NewRequest(params.method, params.path, bytes.NewBuffer(payload))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range params.headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

// decodeResponse unmarshals the APIResponse envelope from a recorder.
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func mustCreateStaff(t *testing.T, db *gorm.DB, name, email, role string) model.User {
	t.Helper()
	user := model.User{
		Name:     name,
		Email:    email,
		Password: "hash",
		Role:     role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create staff user: %v", err)
	}
	return user
}

func mustCreateAppointment(t *testing.T, db *gorm.DB, appointment model.Appointment) model.Appointment {
	t.Helper()
	if appointment.Status == "" {
		appointment.Status = model.StatusPending
	}
	if appointment.AppointmentDate.IsZero() {
		appointment.AppointmentDate = time.Now().Add(24 * time.Hour)
	}
	if appointment.Type == "" {
		appointment.Type = "checkup"
	}
	if err := db.Create(&appointment).Error; err != nil {
		t.Fatalf("failed to create appointment: %v", err)
	}
	return appointment
}

func countRows(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var count int64
	if err := db.Model(m).Count(&count).Error; err != nil {
		t.Fatalf("failed to count rows: %v", err)
	}
	return count
}

// assertStatus asserts that the response HTTP status code matches the expected value
func assertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, w.Code)
}
