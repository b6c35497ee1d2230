package endpoint

import (
	"os"
	"testing"

	"github.com/DorartaSylaj/thesis-backend/config"
	"github.com/DorartaSylaj/thesis-backend/util"
	"github.com/gin-gonic/gin"
)

// TestMain sets up consistent test configuration for all tests in the
// endpoint package. This prevents test order dependency issues caused by the
// singleton config pattern.
func TestMain(m *testing.M) {
	os.Setenv("APPENV", "test")
	os.Setenv("JWTSECRET", "test-secret-123")
	os.Setenv("GINMODE", "release")
	os.Setenv("FALLBACK_DOCTOR_ID", "3")

	util.SetJWTSecret("test-secret-123")
	util.InitUserEmailCache(0)

	cfg := config.LoadConfig()
	gin.SetMode(cfg.GinMode)

	os.Exit(m.Run())
}
