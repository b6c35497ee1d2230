// main.go
package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/DorartaSylaj/thesis-backend/config"
	"github.com/DorartaSylaj/thesis-backend/endpoint"
	"github.com/DorartaSylaj/thesis-backend/middleware"
	"github.com/DorartaSylaj/thesis-backend/model"
	"github.com/DorartaSylaj/thesis-backend/util"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// bootstrapAdmin seeds the configured admin account when the users table is
// empty, so the first login after a fresh deployment is possible.
func bootstrapAdmin(db *gorm.DB, cfg *config.Config) error {
	password := cfg.AdminPassword
	if password == "" {
		password = "admin123"
		log.Printf("ADMIN_PASSWORD not set, seeding %s with the default password; change it after first login", cfg.AdminEmail)
	}
	salt, err := util.GenerateSalt()
	if err != nil {
		return err
	}
	hashed, err := util.HashPasswordArgon2(password, salt)
	if err != nil {
		return err
	}
	return model.SeedDefaultAdmin(db, cfg.AdminEmail, hashed, salt)
}

func main() {
	cfg := config.LoadConfig()

	db, err := config.ConnectMySQL()
	if err != nil {
		log.Fatalf("Error connecting to MySQL: %v", err)
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Session{},
		&model.Patient{},
		&model.Appointment{},
		&model.Report{},
		&model.AuditLog{},
	); err != nil {
		log.Fatalf("Error running migrations: %v", err)
	}

	if _, err := config.ConnectRedis(); err != nil {
		log.Printf("Redis unavailable, continuing without session cache: %v", err)
	}

	if err := bootstrapAdmin(db, cfg); err != nil {
		log.Fatalf("Error seeding admin account: %v", err)
	}

	util.SetAuditLoggerDB(db)
	util.InitUserEmailCache(0)

	gin.SetMode(cfg.GinMode)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "session-token"},
		MaxAge:           24 * time.Hour,
		AllowCredentials: false,
	}))
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(middleware.Metrics())
	router.Use(middleware.EndpointCallLogger())

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/login", middleware.RateLimiter(middleware.RateLimitConfig{}), endpoint.Login)

	authed := router.Group("/", middleware.ValidateLoginToken())
	authed.POST("/logout", endpoint.Logout)
	// Older frontend builds call logout with DELETE; keep it answering.
	authed.DELETE("/logout", endpoint.Logout)
	authed.GET("/token/validate", endpoint.ValidateToken)

	admin := authed.Group("/admin", middleware.RequireRoles(model.RoleAdmin))
	admin.GET("/staff", endpoint.ListStaff)
	admin.POST("/staff", endpoint.CreateStaff)
	admin.PUT("/staff/:id", endpoint.UpdateStaff)
	admin.DELETE("/staff/:id", endpoint.DeleteStaff)

	patients := authed.Group("/patients", middleware.RequireRoles(model.RoleNurse, model.RoleDoctor))
	patients.GET("", endpoint.ListPatients)
	patients.POST("", endpoint.CreatePatient)
	patients.GET("/:id", endpoint.GetPatientInfo)
	patients.PUT("/:id", endpoint.UpdatePatient)
	patients.DELETE("/:id", endpoint.DeletePatient)

	appointments := authed.Group("/appointments", middleware.RequireRoles(model.RoleNurse, model.RoleDoctor))
	appointments.GET("", endpoint.ListAppointments)
	appointments.POST("", endpoint.CreateAppointment)
	appointments.GET("/done", endpoint.ListDoneAppointments)
	appointments.GET("/:id", endpoint.GetAppointment)
	appointments.PUT("/:id", endpoint.UpdateAppointment)

	nurseOnly := authed.Group("/appointments", middleware.RequireRoles(model.RoleNurse))
	nurseOnly.DELETE("/done/clear", endpoint.ClearDoneAppointments)
	nurseOnly.DELETE("/clear-non-pending", endpoint.ClearNonPendingAppointments)
	nurseOnly.DELETE("", endpoint.DeleteAllAppointments)

	reports := authed.Group("/reports", middleware.RequireRoles(model.RoleDoctor))
	reports.POST("", endpoint.CreateReport)

	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
