package util

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/DorartaSylaj/thesis-backend/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditEventType represents different types of audit events
type AuditEventType string

const (
	EventLoginSuccess       AuditEventType = "LOGIN_SUCCESS"
	EventLoginFailure       AuditEventType = "LOGIN_FAILURE"
	EventLogout             AuditEventType = "LOGOUT"
	EventAccountLocked      AuditEventType = "ACCOUNT_LOCKED"
	EventPasswordChanged    AuditEventType = "PASSWORD_CHANGED"
	EventUnauthorizedAccess AuditEventType = "UNAUTHORIZED_ACCESS"
	EventRateLimitExceeded  AuditEventType = "RATE_LIMIT_EXCEEDED"
	EventSuspiciousActivity AuditEventType = "SUSPICIOUS_ACTIVITY"
	EventEndpointCall       AuditEventType = "ENDPOINT_CALL"
	EventReportRecorded     AuditEventType = "REPORT_RECORDED"
	EventAppointmentsReset  AuditEventType = "APPOINTMENTS_RESET"
)

// AuditEvent represents an audit event to be logged
type AuditEvent struct {
	EventType AuditEventType
	UserID    string
	Email     string
	IP        string
	UserAgent string
	Message   string
	Details   map[string]interface{}
}

var auditLogger *log.Logger
var auditDB *gorm.DB

// SetAuditLoggerDB sets a gorm DB instance used by the audit logger.
// Call this during application startup after DB initialization.
func SetAuditLoggerDB(db *gorm.DB) {
	auditDB = db
}

func init() {
	auditLogger = log.New(os.Stdout, "[AUDIT] ", log.LstdFlags|log.Lmsgprefix)
}

// sanitizeLogValue removes newlines and other characters that could break log parsing
func sanitizeLogValue(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\t", " ")
	if len(value) > 200 {
		value = value[:200] + "..."
	}
	return value
}

// LogAuditEvent writes an audit event to stdout and, when a DB has been
// configured, persists it to the audit_logs table. Persistence is
// best-effort; a failed insert never fails the request.
func LogAuditEvent(event AuditEvent) {
	msg := fmt.Sprintf("Event=%s UserID=%s Email=%s IP=%s UserAgent=%s Message=%s",
		sanitizeLogValue(string(event.EventType)),
		sanitizeLogValue(event.UserID),
		sanitizeLogValue(event.Email),
		sanitizeLogValue(event.IP),
		sanitizeLogValue(event.UserAgent),
		sanitizeLogValue(event.Message),
	)
	auditLogger.Println(msg)

	if auditDB == nil {
		return
	}

	var details datatypes.JSON
	if event.Details != nil {
		if b, err := json.Marshal(event.Details); err == nil {
			details = datatypes.JSON(b)
		}
	}
	row := model.AuditLog{
		EventType: string(event.EventType),
		UserID:    event.UserID,
		Email:     event.Email,
		IP:        event.IP,
		UserAgent: event.UserAgent,
		Message:   event.Message,
		Details:   details,
	}
	if err := auditDB.Create(&row).Error; err != nil {
		auditLogger.Printf("failed to persist audit event: %v", err)
	}
}

// LogLoginSuccess logs a successful login.
func LogLoginSuccess(userID uint, email, ip, userAgent string) {
	LogAuditEvent(AuditEvent{
		EventType: EventLoginSuccess,
		UserID:    fmt.Sprintf("%d", userID),
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User logged in successfully",
	})
}

// LogLoginFailure logs a failed login attempt with the failure reason.
func LogLoginFailure(email, ip, userAgent, reason string) {
	LogAuditEvent(AuditEvent{
		EventType: EventLoginFailure,
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   fmt.Sprintf("Login failed: %s", reason),
	})
}

// LogLogout logs a logout.
func LogLogout(userID uint, email, ip, userAgent string) {
	LogAuditEvent(AuditEvent{
		EventType: EventLogout,
		UserID:    fmt.Sprintf("%d", userID),
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		Message:   "User logged out",
	})
}

// LogAccountLocked logs an account lockout.
func LogAccountLocked(userID uint, email, ip, reason string) {
	LogAuditEvent(AuditEvent{
		EventType: EventAccountLocked,
		UserID:    fmt.Sprintf("%d", userID),
		Email:     email,
		IP:        ip,
		Message:   fmt.Sprintf("Account locked: %s", reason),
	})
}

// LogUnauthorizedAccess logs a role or ownership rejection.
func LogUnauthorizedAccess(userID uint, ip, operation string) {
	LogAuditEvent(AuditEvent{
		EventType: EventUnauthorizedAccess,
		UserID:    fmt.Sprintf("%d", userID),
		Email:     LookupActorEmail(userID),
		IP:        ip,
		Message:   fmt.Sprintf("Forbidden: %s", operation),
	})
}

// LogRateLimitExceeded logs a rate-limit rejection.
func LogRateLimitExceeded(email, ip, endpoint string) {
	LogAuditEvent(AuditEvent{
		EventType: EventRateLimitExceeded,
		Email:     email,
		IP:        ip,
		Message:   fmt.Sprintf("Rate limit exceeded for %s", endpoint),
	})
}

// LookupActorEmail resolves a user's email for audit enrichment, going
// through the LRU cache first and falling back to the DB.
func LookupActorEmail(userID uint) string {
	if userID == 0 {
		return ""
	}
	if email, ok := UserEmailCacheGet(userID); ok {
		return email
	}
	if auditDB == nil {
		return ""
	}
	var user model.User
	if err := auditDB.Select("email").First(&user, userID).Error; err != nil {
		return ""
	}
	UserEmailCacheSet(userID, user.Email)
	return user.Email
}
