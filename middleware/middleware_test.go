package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DorartaSylaj/thesis-backend/config"
	"github.com/DorartaSylaj/thesis-backend/model"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	os.Setenv("APPENV", "test")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func setupMiddlewareTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:middleware_%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect test DB: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Session{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func performRequest(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "192.0.2.10:52811"
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDatabaseMiddleware_InjectsHandle(t *testing.T) {
	db := setupMiddlewareTestDB(t)
	r := gin.New()
	r.Use(DatabaseMiddleware(db))
	r.GET("/probe", func(c *gin.Context) {
		assert.Same(t, db, GetDB(c))
		c.Status(http.StatusNoContent)
	})

	w := performRequest(r, http.MethodGet, "/probe", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestGetDB_MissingMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/probe", func(c *gin.Context) {
		assert.Nil(t, GetDB(c))
		c.Status(http.StatusNoContent)
	})
	performRequest(r, http.MethodGet, "/probe", nil)
}

func TestGetActor(t *testing.T) {
	r := gin.New()
	r.GET("/anon", func(c *gin.Context) {
		_, ok := GetActor(c)
		assert.False(t, ok)
		c.Status(http.StatusNoContent)
	})
	r.GET("/authed", func(c *gin.Context) {
		c.Set(UserIDKey, uint(7))
		c.Set(RoleKey, model.RoleDoctor)
		actor, ok := GetActor(c)
		assert.True(t, ok)
		assert.Equal(t, Actor{ID: 7, Role: model.RoleDoctor}, actor)
		c.Status(http.StatusNoContent)
	})
	performRequest(r, http.MethodGet, "/anon", nil)
	performRequest(r, http.MethodGet, "/authed", nil)
}

func TestValidateLoginToken_MissingHeader(t *testing.T) {
	r := gin.New()
	r.Use(ValidateLoginToken())
	r.GET("/secure", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := performRequest(r, http.MethodGet, "/secure", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateLoginToken_DatabaseFallback(t *testing.T) {
	db := setupMiddlewareTestDB(t)
	user := model.User{Name: "Doc", Email: "doc@clinic.test", Password: "hash", Role: model.RoleDoctor}
	assert.NoError(t, db.Create(&user).Error)
	assert.NoError(t, db.Create(&model.Session{
		UserID:       user.ID,
		SessionToken: "tok-db",
		ExpiresAt:    time.Now().Add(time.Hour),
	}).Error)

	r := gin.New()
	r.Use(DatabaseMiddleware(db), ValidateLoginToken())
	r.GET("/secure", func(c *gin.Context) {
		actor, ok := GetActor(c)
		assert.True(t, ok)
		assert.Equal(t, user.ID, actor.ID)
		assert.Equal(t, model.RoleDoctor, actor.Role)
		c.Status(http.StatusOK)
	})

	w := performRequest(r, http.MethodGet, "/secure", map[string]string{"session-token": "tok-db"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestValidateLoginToken_ExpiredSession(t *testing.T) {
	db := setupMiddlewareTestDB(t)
	user := model.User{Name: "Doc", Email: "doc@clinic.test", Password: "hash", Role: model.RoleDoctor}
	assert.NoError(t, db.Create(&user).Error)
	assert.NoError(t, db.Create(&model.Session{
		UserID:       user.ID,
		SessionToken: "tok-stale",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}).Error)

	r := gin.New()
	r.Use(DatabaseMiddleware(db), ValidateLoginToken())
	r.GET("/secure", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := performRequest(r, http.MethodGet, "/secure", map[string]string{"session-token": "tok-stale"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestValidateLoginToken_RedisFastPath(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	config.SetRedisClientForTest(rdb)
	defer config.ResetRedisClientForTest()

	mock.ExpectGet("session:tok-cached").SetVal("7:doctor")

	r := gin.New()
	// No database installed: a hit on the cache must be enough.
	r.Use(ValidateLoginToken())
	r.GET("/secure", func(c *gin.Context) {
		actor, ok := GetActor(c)
		assert.True(t, ok)
		assert.Equal(t, Actor{ID: 7, Role: model.RoleDoctor}, actor)
		c.Status(http.StatusOK)
	})

	w := performRequest(r, http.MethodGet, "/secure", map[string]string{"session-token": "tok-cached"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateLoginToken_RedisMalformedValueFallsThrough(t *testing.T) {
	db := setupMiddlewareTestDB(t)
	rdb, mock := redismock.NewClientMock()
	config.SetRedisClientForTest(rdb)
	defer config.ResetRedisClientForTest()

	// A value without the userID:role shape must not authenticate.
	mock.ExpectGet("session:tok-junk").SetVal("garbage")

	r := gin.New()
	r.Use(DatabaseMiddleware(db), ValidateLoginToken())
	r.GET("/secure", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := performRequest(r, http.MethodGet, "/secure", map[string]string{"session-token": "tok-junk"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles(t *testing.T) {
	r := gin.New()
	inject := func(role string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(UserIDKey, uint(1))
			c.Set(RoleKey, role)
		}
	}
	r.GET("/nurse-only", inject(model.RoleNurse), RequireRoles(model.RoleNurse), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/doctor-gate", inject(model.RoleNurse), RequireRoles(model.RoleDoctor), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/either", inject(model.RoleDoctor), RequireRoles(model.RoleNurse, model.RoleDoctor), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/anon", RequireRoles(model.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, performRequest(r, http.MethodGet, "/nurse-only", nil).Code)
	assert.Equal(t, http.StatusForbidden, performRequest(r, http.MethodGet, "/doctor-gate", nil).Code)
	assert.Equal(t, http.StatusOK, performRequest(r, http.MethodGet, "/either", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, performRequest(r, http.MethodGet, "/anon", nil).Code)
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	config.SetRedisClientForTest(rdb)
	defer config.ResetRedisClientForTest()

	key := "ratelimit:/login:192.0.2.10"
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Minute).SetVal(true)

	r := gin.New()
	r.POST("/login", RateLimiter(RateLimitConfig{Limit: 2, Window: time.Minute}), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := performRequest(r, http.MethodPost, "/login", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	config.SetRedisClientForTest(rdb)
	defer config.ResetRedisClientForTest()

	key := "ratelimit:/login:192.0.2.10"
	mock.ExpectIncr(key).SetVal(3)

	r := gin.New()
	r.POST("/login", RateLimiter(RateLimitConfig{Limit: 2, Window: time.Minute}), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := performRequest(r, http.MethodPost, "/login", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimiter_OpenWithoutRedis(t *testing.T) {
	config.ResetRedisClientForTest()

	r := gin.New()
	r.POST("/login", RateLimiter(RateLimitConfig{Limit: 1, Window: time.Minute}), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := performRequest(r, http.MethodPost, "/login", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
