package model

import "gorm.io/gorm"

// Patient is the canonical identity record appointments and reports link to.
// The composite unique index over (first_name, last_name, email) backs the
// resolver's atomic first-or-create: a concurrent duplicate insert fails with
// gorm.ErrDuplicatedKey instead of creating a second row.
type Patient struct {
	gorm.Model
	FirstName    string `gorm:"type:varchar(100);not null;uniqueIndex:idx_patient_identity" json:"first_name"`
	LastName     string `gorm:"type:varchar(100);uniqueIndex:idx_patient_identity" json:"last_name"`
	Email        string `gorm:"type:varchar(191);uniqueIndex:idx_patient_identity" json:"email"`
	BirthDate    string `gorm:"type:varchar(10)" json:"birth_date"`
	Symptoms     string `gorm:"type:text" json:"symptoms"`
	RecoveryDays int    `json:"recovery_days"`
	Prescription string `gorm:"type:text" json:"prescription"`

	Appointments []Appointment `gorm:"foreignKey:PatientID" json:"appointments,omitempty"`
	Reports      []Report      `gorm:"foreignKey:PatientID" json:"reports,omitempty"`
}

// FullName returns the display name stored on linked appointments.
func (p Patient) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
