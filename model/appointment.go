package model

import (
	"time"

	"gorm.io/gorm"
)

// Appointment statuses. Pending is the initial state; done and cancelled are
// terminal.
const (
	StatusPending   = "pending"
	StatusDone      = "done"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether status is an accepted appointment status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// StatusLabel translates an appointment status for display, the way the
// nurse and doctor dashboards expect it.
func StatusLabel(status string) string {
	switch status {
	case StatusPending:
		return "Në pritje"
	case StatusDone:
		return "Përfunduar"
	case StatusCancelled:
		return "Anuluar"
	}
	return status
}

// Appointment may exist with only free-text patient fields; PatientID is set
// once the resolver links (or creates) a canonical Patient record.
type Appointment struct {
	gorm.Model
	NurseID         uint      `gorm:"not null;index" json:"nurse_id"`
	DoctorID        uint      `gorm:"index" json:"doctor_id"`
	PatientID       *uint     `gorm:"index" json:"patient_id"`
	PatientName     string    `gorm:"type:varchar(191)" json:"patient_name"`
	PatientEmail    string    `gorm:"type:varchar(191)" json:"patient_email"`
	AppointmentDate time.Time `gorm:"not null;index" json:"appointment_date"`
	Type            string    `gorm:"type:varchar(100);not null" json:"type"`
	Status          string    `gorm:"type:varchar(16);not null;default:pending" json:"status"`
	Notes           string    `gorm:"type:text" json:"notes"`
	Report          string    `gorm:"type:text" json:"report"`
	CreatedBy       uint      `json:"created_by"`
	UpdatedBy       *uint     `json:"updated_by"`

	Patient *Patient `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  *User    `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Nurse   *User    `gorm:"foreignKey:NurseID" json:"nurse,omitempty"`
}
