package model

import "gorm.io/gorm"

// Report is a doctor's visit note. Creating one against an appointment is
// the terminal event of that appointment's active lifecycle.
type Report struct {
	gorm.Model
	DoctorID      uint   `gorm:"not null;index" json:"doctor_id"`
	PatientID     uint   `gorm:"not null;index" json:"patient_id"`
	AppointmentID *uint  `gorm:"index" json:"appointment_id"`
	Content       string `gorm:"type:text;not null" json:"content"`
}
