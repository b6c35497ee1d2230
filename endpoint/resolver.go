package endpoint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/DorartaSylaj/thesis-backend/model"
	"github.com/DorartaSylaj/thesis-backend/util"
	"gorm.io/gorm"
)

// resolvePatient links free-text patient identity to a canonical Patient
// row. The identity key is the email when one is supplied, otherwise the
// exact (first_name, last_name) pair; email always takes precedence over a
// name match. First-or-create is idempotent: a concurrent duplicate insert
// trips the patient identity unique index and is settled by a re-read, so
// the same inputs always land on the same row.
//
// Call inside the surrounding write transaction so a failed appointment or
// report write does not leave a stray patient behind.
func resolvePatient(tx *gorm.DB, nameText, email string) (model.Patient, error) {
	email = strings.TrimSpace(email)
	firstName, lastName := util.SplitPatientName(nameText)
	if firstName == "" && email == "" {
		return model.Patient{}, fmt.Errorf("patient name or email is required")
	}

	patient, err := findPatientByIdentity(tx, firstName, lastName, email)
	if err == nil {
		return patient, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Patient{}, err
	}

	created := model.Patient{
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
	}
	if err := tx.Create(&created).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another request created the same identity between our lookup
			// and insert; settle on the winning row.
			return findPatientByIdentity(tx, firstName, lastName, email)
		}
		return model.Patient{}, err
	}
	return created, nil
}

// findPatientByIdentity looks a patient up by its identity key: email when
// present, the exact name pair otherwise.
func findPatientByIdentity(tx *gorm.DB, firstName, lastName, email string) (model.Patient, error) {
	var patient model.Patient
	if email != "" {
		err := tx.Where("email = ?", email).First(&patient).Error
		return patient, err
	}
	err := tx.Where("first_name = ? AND last_name = ?", firstName, lastName).First(&patient).Error
	return patient, err
}

// linkAppointmentPatient runs the resolver and copies the canonical patient
// identity back onto the appointment, so the appointment's display fields
// stay consistent with the Patient row even when the caller typed the name
// differently.
func linkAppointmentPatient(tx *gorm.DB, appointment *model.Appointment, nameText, email string) error {
	patient, err := resolvePatient(tx, nameText, email)
	if err != nil {
		return err
	}
	appointment.PatientID = &patient.ID
	appointment.PatientName = patient.FullName()
	appointment.PatientEmail = patient.Email
	return nil
}
