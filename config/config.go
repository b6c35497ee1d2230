package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`
	DBHost  string `json:"dbhost"`
	DBPort  uint16 `json:"dbport"`
	DBName  string `json:"dbname"`
	DBUser  string `json:"dbuser"`
	DBPass  string `json:"dbpass"`

	// FallbackDoctorID is assigned to appointments created without an
	// explicit doctor.
	FallbackDoctorID uint `json:"fallback_doctor_id"`
	// DoctorSeesAllPending switches doctor appointment listings from strict
	// per-doctor ownership to all non-done appointments system-wide.
	DoctorSeesAllPending bool `json:"doctor_sees_all_pending"`
	// SessionTTLMinutes controls how long a login session stays valid.
	SessionTTLMinutes int `json:"session_ttl_minutes"`

	// AdminEmail and AdminPassword seed the bootstrap admin account on an
	// empty users table so a fresh deployment can log in and create staff.
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"-"`
}

var config *Config
var once sync.Once

// LoadConfig loads the environment variables from a .env file, and returns a singleton Config instance.
func LoadConfig() *Config {
	once.Do(func() {
		// A missing .env file is fine when the environment is already set
		// (tests, containers).
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file loaded: %v", err)
		}

		appPort, _ := strconv.ParseUint(os.Getenv("APPPORT"), 10, 16)
		dbPort, _ := strconv.ParseUint(os.Getenv("DBPORT"), 10, 16)
		fallbackDoctor, _ := strconv.ParseUint(os.Getenv("FALLBACK_DOCTOR_ID"), 10, 32)
		doctorSeesAll, _ := strconv.ParseBool(os.Getenv("DOCTOR_SEES_ALL_PENDING"))
		sessionTTL, _ := strconv.Atoi(os.Getenv("SESSION_TTL_MINUTES"))
		if sessionTTL <= 0 {
			sessionTTL = 60
		}
		adminEmail := os.Getenv("ADMIN_EMAIL")
		if adminEmail == "" {
			adminEmail = "admin@clinic.local"
		}

		config = &Config{
			AppName:              os.Getenv("APPNAME"),
			AppEnv:               os.Getenv("APPENV"),
			AppPort:              uint16(appPort),
			GinMode:              os.Getenv("GINMODE"),
			DBHost:               os.Getenv("DBHOST"),
			DBPort:               uint16(dbPort),
			DBName:               os.Getenv("DBNAME"),
			DBUser:               os.Getenv("DBUSER"),
			DBPass:               os.Getenv("DBPASS"),
			FallbackDoctorID:     uint(fallbackDoctor),
			DoctorSeesAllPending: doctorSeesAll,
			SessionTTLMinutes:    sessionTTL,
			AdminEmail:           adminEmail,
			AdminPassword:        os.Getenv("ADMIN_PASSWORD"),
		}
	})
	return config
}

// ResetConfigForTest clears the singleton so tests can reload with different
// environment variables.
func ResetConfigForTest() {
	config = nil
	once = sync.Once{}
}

// ConnectMySQL establishes a connection to a MySQL database using the configuration values.
func ConnectMySQL() (*gorm.DB, error) {
	cfg := LoadConfig()
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)

	// TranslateError maps driver duplicate-key failures onto
	// gorm.ErrDuplicatedKey, which the patient resolver relies on.
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	return db, nil
}
