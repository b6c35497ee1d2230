package endpoint

import (
	"testing"

	"github.com/DorartaSylaj/thesis-backend/model"
	"github.com/stretchr/testify/assert"
)

func TestResolvePatient_CreatesFromNameAndEmail(t *testing.T) {
	_, db := setupEndpointTest(t)

	patient, err := resolvePatient(db, "Jane Doe", "jane@x.com")
	assert.NoError(t, err)
	assert.Equal(t, "Jane", patient.FirstName)
	assert.Equal(t, "Doe", patient.LastName)
	assert.Equal(t, "jane@x.com", patient.Email)
	assert.NotZero(t, patient.ID)
}

func TestResolvePatient_Idempotent(t *testing.T) {
	_, db := setupEndpointTest(t)

	first, err := resolvePatient(db, "Jane Doe", "jane@x.com")
	assert.NoError(t, err)
	second, err := resolvePatient(db, "Jane Doe", "jane@x.com")
	assert.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, countRows(t, db, &model.Patient{}))
}

func TestResolvePatient_EmailWinsOverNameMismatch(t *testing.T) {
	_, db := setupEndpointTest(t)

	existing := model.Patient{FirstName: "J", LastName: "Doe", Email: "jane@x.com"}
	assert.NoError(t, db.Create(&existing).Error)

	resolved, err := resolvePatient(db, "Jane Doe", "jane@x.com")
	assert.NoError(t, err)
	assert.Equal(t, existing.ID, resolved.ID)
	assert.Equal(t, "J", resolved.FirstName)
	assert.EqualValues(t, 1, countRows(t, db, &model.Patient{}))
}

func TestResolvePatient_SingleTokenName(t *testing.T) {
	_, db := setupEndpointTest(t)

	patient, err := resolvePatient(db, "Madonna", "")
	assert.NoError(t, err)
	assert.Equal(t, "Madonna", patient.FirstName)
	assert.Equal(t, "", patient.LastName)
}

func TestResolvePatient_NameMatchIgnoresWhitespace(t *testing.T) {
	_, db := setupEndpointTest(t)

	first, err := resolvePatient(db, "Jane Doe", "")
	assert.NoError(t, err)
	second, err := resolvePatient(db, "  Jane   Doe ", "")
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolvePatient_RequiresIdentity(t *testing.T) {
	_, db := setupEndpointTest(t)

	_, err := resolvePatient(db, "   ", "")
	assert.Error(t, err)
	assert.EqualValues(t, 0, countRows(t, db, &model.Patient{}))
}

func TestLinkAppointmentPatient_CopiesCanonicalIdentity(t *testing.T) {
	_, db := setupEndpointTest(t)

	existing := model.Patient{FirstName: "Jane", LastName: "Doe", Email: "jane@x.com"}
	assert.NoError(t, db.Create(&existing).Error)

	appointment := model.Appointment{NurseID: 1, PatientName: "jane  doe typo"}
	err := linkAppointmentPatient(db, &appointment, "Jane Doe", "jane@x.com")
	assert.NoError(t, err)

	assert.NotNil(t, appointment.PatientID)
	assert.Equal(t, existing.ID, *appointment.PatientID)
	assert.Equal(t, "Jane Doe", appointment.PatientName)
	assert.Equal(t, "jane@x.com", appointment.PatientEmail)
}
