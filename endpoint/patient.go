package endpoint

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/DorartaSylaj/thesis-backend/model"
	"github.com/DorartaSylaj/thesis-backend/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type patientListQuery struct {
	Limit   int
	Offset  int
	Keyword string
}

func parsePatientListQuery(c *gin.Context) patientListQuery {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return patientListQuery{
		Limit:   limit,
		Offset:  offset,
		Keyword: c.Query("keyword"),
	}
}

func fetchPatients(db *gorm.DB, query patientListQuery) ([]model.Patient, int64, error) {
	var patients []model.Patient
	var total int64

	q := db.Model(&model.Patient{}).Order("patients.created_at DESC")
	if query.Keyword != "" {
		kw := "%" + query.Keyword + "%"
		q = q.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ?", kw, kw, kw)
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	if query.Offset > 0 {
		q = q.Offset(query.Offset)
	}
	if err := q.Find(&patients).Error; err != nil {
		return nil, 0, err
	}

	db.Model(&model.Patient{}).Count(&total)
	return patients, total, nil
}

// ListPatients godoc
// @Summary      List all patients
// @Description  Get a paginated list of patients with optional keyword filtering
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        limit query int false "Limit number of results"
// @Param        offset query int false "Offset for pagination"
// @Param        keyword query string false "Search keyword for patient name or email"
// @Success      200 {object} util.APIResponse{data=object} "Patients retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patients [get]
func ListPatients(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patients, total, err := fetchPatients(db, parsePatientListQuery(c))
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve patients", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patients retrieved",
		Data: map[string]interface{}{"total": total, "total_fetched": len(patients), "patients": patients},
	})
}

type createPatientRequest struct {
	FirstName    string `json:"first_name" binding:"required" example:"Jane"`
	LastName     string `json:"last_name" binding:"required" example:"Doe"`
	BirthDate    string `json:"birth_date" binding:"required" example:"1990-04-21"`
	Symptoms     string `json:"symptoms" binding:"required" example:"Fever, cough"`
	RecoveryDays int    `json:"recovery_days" example:"7"`
	Prescription string `json:"prescription" example:"Paracetamol 500mg"`
	Email        string `json:"email" example:"jane@example.com"`
}

// CreatePatient godoc
// @Summary      Create a new patient
// @Description  Register a patient record directly (nurse or doctor)
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body createPatientRequest true "Patient information"
// @Success      201 {object} util.APIResponse{data=model.Patient} "Patient created"
// @Failure      400 {object} util.APIResponse "Invalid request or patient already exists"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patients [post]
func CreatePatient(c *gin.Context) {
	var req createPatientRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient := model.Patient{
		FirstName:    util.NormalizeName(req.FirstName),
		LastName:     util.NormalizeName(req.LastName),
		BirthDate:    req.BirthDate,
		Symptoms:     req.Symptoms,
		RecoveryDays: req.RecoveryDays,
		Prescription: req.Prescription,
		Email:        req.Email,
	}
	if err := db.Create(&patient).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			util.CallUserError(c, util.APIErrorParams{Msg: "Patient already exists with the same name and email", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create patient", Err: err})
		return
	}

	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "Patient created successfully",
		Data: patient,
	})
}

func getPatientByID(c *gin.Context, db *gorm.DB) (model.Patient, bool) {
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return model.Patient{}, false
	}

	var patient model.Patient
	if err := db.First(&patient, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Patient not found", Err: err})
			return model.Patient{}, false
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve patient", Err: err})
		return model.Patient{}, false
	}
	return patient, true
}

// GetPatientInfo godoc
// @Summary      Get patient information
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Patient ID"
// @Success      200 {object} util.APIResponse{data=model.Patient} "Patient retrieved"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patients/{id} [get]
func GetPatientInfo(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient, ok := getPatientByID(c, db)
	if !ok {
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patient retrieved",
		Data: patient,
	})
}

type updatePatientRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	BirthDate    string `json:"birth_date"`
	Symptoms     string `json:"symptoms"`
	RecoveryDays int    `json:"recovery_days"`
	Prescription string `json:"prescription"`
	Email        string `json:"email"`
}

// UpdatePatient godoc
// @Summary      Update patient information
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Patient ID"
// @Param        request body updatePatientRequest true "Updated patient information"
// @Success      200 {object} util.APIResponse{data=model.Patient} "Patient updated"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patients/{id} [put]
func UpdatePatient(c *gin.Context) {
	var req updatePatientRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient, ok := getPatientByID(c, db)
	if !ok {
		return
	}

	if req.FirstName != "" {
		patient.FirstName = util.NormalizeName(req.FirstName)
	}
	if req.LastName != "" {
		patient.LastName = util.NormalizeName(req.LastName)
	}
	if req.BirthDate != "" {
		patient.BirthDate = req.BirthDate
	}
	if req.Symptoms != "" {
		patient.Symptoms = req.Symptoms
	}
	if req.RecoveryDays != 0 {
		patient.RecoveryDays = req.RecoveryDays
	}
	if req.Prescription != "" {
		patient.Prescription = req.Prescription
	}
	if req.Email != "" {
		patient.Email = req.Email
	}

	if err := db.Save(&patient).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update patient", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Patient updated successfully",
		Data: patient,
	})
}

// DeletePatient godoc
// @Summary      Delete a patient
// @Description  Soft delete a patient. Blocked while any appointment still references the patient
// @Tags         Patient
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Patient ID"
// @Success      200 {object} util.APIResponse "Patient deleted"
// @Failure      400 {object} util.APIResponse "Patient has linked appointments"
// @Failure      404 {object} util.APIResponse "Patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /patients/{id} [delete]
func DeletePatient(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	patient, ok := getPatientByID(c, db)
	if !ok {
		return
	}

	var linked int64
	if err := db.Model(&model.Appointment{}).Where("patient_id = ?", patient.ID).Count(&linked).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to check linked appointments", Err: err})
		return
	}
	if linked > 0 {
		util.CallUserError(c, util.APIErrorParams{
			Msg: fmt.Sprintf("Cannot delete patient: %d appointment(s) still reference this patient", linked),
			Err: fmt.Errorf("patient %d has linked appointments", patient.ID),
		})
		return
	}

	if err := db.Delete(&patient).Error; err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete patient", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg: "Patient deleted successfully",
	})
}
