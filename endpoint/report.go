package endpoint

import (
	"errors"
	"fmt"

	"github.com/DorartaSylaj/thesis-backend/model"
	"github.com/DorartaSylaj/thesis-backend/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type createReportRequest struct {
	AppointmentID uint   `json:"appointment_id" example:"12"`
	PatientID     uint   `json:"patient_id" example:"7"`
	Content       string `json:"content" binding:"required" example:"Follow-up in two weeks."`
}

// CreateReport godoc
// @Summary      Record a visit report
// @Description  Doctor-only. Against an appointment this guarantees a linked patient, stores the report, and moves the appointment to done — all in one transaction
// @Tags         Report
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body createReportRequest true "Report details"
// @Success      201 {object} util.APIResponse{data=model.Report} "Report created"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      404 {object} util.APIResponse "Appointment or patient not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /reports [post]
func CreateReport(c *gin.Context) {
	actor, ok := getActorOrRespond(c)
	if !ok {
		return
	}

	var req createReportRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if req.AppointmentID == 0 && req.PatientID == 0 {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "appointment_id or patient_id is required",
			Err: fmt.Errorf("report target missing"),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var report model.Report
	var err error
	if req.AppointmentID != 0 {
		report, err = recordAppointmentReport(db, actor.ID, req.AppointmentID, req.Content)
	} else {
		report, err = recordStandaloneReport(db, actor.ID, req.PatientID, req.Content)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Referenced record not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create report", Err: err})
		return
	}

	util.LogAuditEvent(util.AuditEvent{
		EventType: util.EventReportRecorded,
		UserID:    fmt.Sprintf("%d", actor.ID),
		IP:        c.ClientIP(),
		Message:   fmt.Sprintf("Report %d recorded for patient %d", report.ID, report.PatientID),
	})

	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "Report created successfully",
		Data: report,
	})
}

// recordAppointmentReport runs the recorder's three steps as one
// transaction: ensure the appointment has a linked patient (deriving one
// from the stored free-text name when needed), insert the report, and move
// the appointment to done. A failure anywhere rolls everything back, so the
// appointment is never done without a persisted report and a retry cannot
// double-create the patient.
func recordAppointmentReport(db *gorm.DB, doctorID, appointmentID uint, content string) (model.Report, error) {
	var report model.Report
	err := db.Transaction(func(tx *gorm.DB) error {
		var appointment model.Appointment
		if err := tx.First(&appointment, appointmentID).Error; err != nil {
			return err
		}

		if appointment.PatientID == nil {
			if err := linkAppointmentPatient(tx, &appointment, appointment.PatientName, ""); err != nil {
				return err
			}
		}

		report = model.Report{
			DoctorID:      doctorID,
			PatientID:     *appointment.PatientID,
			AppointmentID: &appointment.ID,
			Content:       content,
		}
		if err := tx.Create(&report).Error; err != nil {
			return err
		}

		appointment.Status = model.StatusDone
		appointment.Report = content
		appointment.UpdatedBy = &doctorID
		return tx.Save(&appointment).Error
	})
	return report, err
}

// recordStandaloneReport attaches a report directly to a patient, with no
// appointment lifecycle involved.
func recordStandaloneReport(db *gorm.DB, doctorID, patientID uint, content string) (model.Report, error) {
	var patient model.Patient
	if err := db.First(&patient, patientID).Error; err != nil {
		return model.Report{}, err
	}
	report := model.Report{
		DoctorID:  doctorID,
		PatientID: patient.ID,
		Content:   content,
	}
	err := db.Create(&report).Error
	return report, err
}
