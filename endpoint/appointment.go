package endpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/DorartaSylaj/thesis-backend/config"
	"github.com/DorartaSylaj/thesis-backend/middleware"
	"github.com/DorartaSylaj/thesis-backend/model"
	"github.com/DorartaSylaj/thesis-backend/util"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// unnamedPatientLabel is shown when an appointment has neither a linked
// patient nor stored free-text name.
const unnamedPatientLabel = "Pa emër"

var appointmentDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseAppointmentDate(value string) (time.Time, error) {
	for _, layout := range appointmentDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid appointment_date: %q", value)
}

// appointmentView decorates an appointment with the canonical patient name
// and the translated status label the dashboards display.
type appointmentView struct {
	model.Appointment
	PatientName string `json:"patient_name"`
	StatusLabel string `json:"status_label"`
}

func newAppointmentView(appointment model.Appointment) appointmentView {
	return appointmentView{
		Appointment: appointment,
		PatientName: displayPatientName(appointment),
		StatusLabel: model.StatusLabel(appointment.Status),
	}
}

func displayPatientName(appointment model.Appointment) string {
	if appointment.Patient != nil {
		return appointment.Patient.FullName()
	}
	if appointment.PatientName != "" {
		return appointment.PatientName
	}
	return unnamedPatientLabel
}

func toAppointmentViews(appointments []model.Appointment) []appointmentView {
	views := make([]appointmentView, 0, len(appointments))
	for _, appointment := range appointments {
		views = append(views, newAppointmentView(appointment))
	}
	return views
}

// errRoleCannotList marks the scoping rejection so handlers can answer 403
// for it and 500 for genuine store failures.
var errRoleCannotList = errors.New("role may not list appointments")

// scopeAppointmentsForActor narrows an appointment query to what the actor
// may see. Nurses always see only their own rows. Doctors see their own
// rows under the strict-ownership policy, or every row when the
// DOCTOR_SEES_ALL_PENDING toggle is on (the done filter is applied by the
// caller).
func scopeAppointmentsForActor(query *gorm.DB, actor middleware.Actor) (*gorm.DB, error) {
	switch actor.Role {
	case model.RoleNurse:
		return query.Where("nurse_id = ?", actor.ID), nil
	case model.RoleDoctor:
		if config.LoadConfig().DoctorSeesAllPending {
			return query, nil
		}
		return query.Where("doctor_id = ?", actor.ID), nil
	}
	return nil, fmt.Errorf("%w: %s", errRoleCannotList, actor.Role)
}

func fetchAppointments(db *gorm.DB, actor middleware.Actor, statuses []string, excludeDone bool) ([]model.Appointment, error) {
	query := db.Model(&model.Appointment{}).
		Preload("Patient").Preload("Doctor").Preload("Nurse").
		Order("appointment_date ASC")

	query, err := scopeAppointmentsForActor(query, actor)
	if err != nil {
		return nil, err
	}
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	if excludeDone {
		query = query.Where("status <> ?", model.StatusDone)
	}

	var appointments []model.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		return nil, err
	}
	return appointments, nil
}

func respondAppointmentListError(c *gin.Context, err error) {
	if errors.Is(err, errRoleCannotList) {
		util.CallUserForbidden(c, util.APIErrorParams{Msg: "You do not have permission to list appointments", Err: err})
		return
	}
	util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve appointments", Err: err})
}

// ListAppointments godoc
// @Summary      List appointments for the authenticated actor
// @Description  Nurses see their own appointments; doctors see their own (or all non-done under the visibility toggle), ascending by appointment date
// @Tags         Appointment
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=object} "Appointments retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointments [get]
func ListAppointments(c *gin.Context) {
	actor, ok := getActorOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	// Under the all-pending visibility variant doctors browse the shared
	// queue, so done rows are excluded from the main listing.
	excludeDone := actor.Role == model.RoleDoctor && config.LoadConfig().DoctorSeesAllPending
	appointments, err := fetchAppointments(db, actor, nil, excludeDone)
	if err != nil {
		respondAppointmentListError(c, err)
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Appointments retrieved",
		Data: map[string]interface{}{"total": len(appointments), "appointments": toAppointmentViews(appointments)},
	})
}

// ListDoneAppointments godoc
// @Summary      List done appointments for the authenticated actor
// @Tags         Appointment
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse{data=object} "Done appointments retrieved"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointments/done [get]
func ListDoneAppointments(c *gin.Context) {
	actor, ok := getActorOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	appointments, err := fetchAppointments(db, actor, []string{model.StatusDone}, false)
	if err != nil {
		respondAppointmentListError(c, err)
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Done appointments retrieved",
		Data: map[string]interface{}{"total": len(appointments), "appointments": toAppointmentViews(appointments)},
	})
}

// GetAppointment reads a single appointment without ownership scoping:
// any authenticated nurse or doctor may look one up by id, mirroring how the
// dashboards open each other's rows for coordination. Ownership is enforced
// where it matters, on update.
//
// GetAppointment godoc
// @Summary      Show a single appointment
// @Tags         Appointment
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Appointment ID"
// @Success      200 {object} util.APIResponse{data=object} "Appointment retrieved"
// @Failure      404 {object} util.APIResponse "Appointment not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointments/{id} [get]
func GetAppointment(c *gin.Context) {
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var appointment model.Appointment
	if err := db.Preload("Patient").Preload("Doctor").Preload("Nurse").First(&appointment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Appointment not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve appointment", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Appointment retrieved",
		Data: newAppointmentView(appointment),
	})
}

type createAppointmentRequest struct {
	PatientName     string `json:"patient_name" example:"Jane Doe"`
	PatientEmail    string `json:"patient_email" example:"jane@example.com"`
	AppointmentDate string `json:"appointment_date" binding:"required" example:"2026-09-01 10:30:00"`
	Type            string `json:"type" binding:"required" example:"checkup"`
	DoctorID        uint   `json:"doctor_id" example:"3"`
	Notes           string `json:"notes"`
}

// CreateAppointment godoc
// @Summary      Create a new appointment
// @Description  Nurse-only. Links or creates the patient record from the free-text name/email before storing the appointment
// @Tags         Appointment
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        request body createAppointmentRequest true "Appointment details"
// @Success      201 {object} util.APIResponse{data=object} "Appointment created"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointments [post]
func CreateAppointment(c *gin.Context) {
	actor, ok := getActorOrRespond(c)
	if !ok {
		return
	}
	if actor.Role != model.RoleNurse {
		util.CallUserForbidden(c, util.APIErrorParams{
			Msg: "Only nurses may create appointments",
			Err: fmt.Errorf("role %s may not create appointments", actor.Role),
		})
		return
	}

	var req createAppointmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	req.PatientName = util.NormalizeName(req.PatientName)
	if req.PatientName == "" && req.PatientEmail == "" {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "patient_name or patient_email is required",
			Err: fmt.Errorf("missing patient identity"),
		})
		return
	}

	appointmentDate, err := parseAppointmentDate(req.AppointmentDate)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: "Invalid appointment_date", Err: err})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	doctorID := req.DoctorID
	if doctorID == 0 {
		doctorID = config.LoadConfig().FallbackDoctorID
	}

	appointment := model.Appointment{
		NurseID:         actor.ID,
		DoctorID:        doctorID,
		PatientName:     req.PatientName,
		PatientEmail:    req.PatientEmail,
		AppointmentDate: appointmentDate,
		Type:            req.Type,
		Status:          model.StatusPending,
		Notes:           req.Notes,
		CreatedBy:       actor.ID,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := linkAppointmentPatient(tx, &appointment, req.PatientName, req.PatientEmail); err != nil {
			return err
		}
		return tx.Create(&appointment).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to create appointment", Err: err})
		return
	}

	if appointment.PatientID != nil {
		db.Preload("Patient").First(&appointment, appointment.ID)
	}

	util.CallSuccessCreated(c, util.APISuccessParams{
		Msg:  "Termin u krijua me sukses",
		Data: newAppointmentView(appointment),
	})
}

type updateAppointmentRequest struct {
	Status          string `json:"status"`
	Notes           string `json:"notes"`
	AppointmentDate string `json:"appointment_date"`
	Type            string `json:"type"`
	PatientName     string `json:"patient_name"`
	PatientEmail    string `json:"patient_email"`
}

// actorOwnsAppointment reports whether the actor is the owning nurse or the
// assigned doctor.
func actorOwnsAppointment(actor middleware.Actor, appointment model.Appointment) bool {
	switch actor.Role {
	case model.RoleNurse:
		return appointment.NurseID == actor.ID
	case model.RoleDoctor:
		return appointment.DoctorID == actor.ID
	}
	return false
}

// UpdateAppointment godoc
// @Summary      Update an appointment
// @Description  Restricted to the owning nurse or the assigned doctor. Changing the patient fields re-runs the patient linking
// @Tags         Appointment
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Param        id path int true "Appointment ID"
// @Param        request body updateAppointmentRequest true "Fields to update"
// @Success      200 {object} util.APIResponse{data=object} "Appointment updated"
// @Failure      400 {object} util.APIResponse "Invalid request"
// @Failure      403 {object} util.APIResponse "Forbidden"
// @Failure      404 {object} util.APIResponse "Appointment not found"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointments/{id} [put]
func UpdateAppointment(c *gin.Context) {
	actor, ok := getActorOrRespond(c)
	if !ok {
		return
	}
	id, err := parseIDParam(c)
	if err != nil {
		util.CallUserError(c, util.APIErrorParams{Msg: err.Error(), Err: err})
		return
	}
	var req updateAppointmentRequest
	if !bindJSONOrRespond(c, &req, "Invalid request payload") {
		return
	}
	if req.Status != "" && !model.ValidStatus(req.Status) {
		util.CallUserError(c, util.APIErrorParams{
			Msg: "status must be one of pending, done, cancelled",
			Err: fmt.Errorf("invalid status %q", req.Status),
		})
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	var appointment model.Appointment
	if err := db.First(&appointment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.CallErrorNotFound(c, util.APIErrorParams{Msg: "Appointment not found", Err: err})
			return
		}
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to retrieve appointment", Err: err})
		return
	}

	if !actorOwnsAppointment(actor, appointment) {
		util.LogUnauthorizedAccess(actor.ID, c.ClientIP(), fmt.Sprintf("update appointment %d", appointment.ID))
		util.CallUserForbidden(c, util.APIErrorParams{
			Msg: "You may only update your own appointments",
			Err: fmt.Errorf("appointment %d does not belong to actor %d", appointment.ID, actor.ID),
		})
		return
	}

	if req.Status != "" {
		appointment.Status = req.Status
	}
	if req.Notes != "" {
		appointment.Notes = req.Notes
	}
	if req.Type != "" {
		appointment.Type = req.Type
	}
	if req.AppointmentDate != "" {
		appointmentDate, err := parseAppointmentDate(req.AppointmentDate)
		if err != nil {
			util.CallUserError(c, util.APIErrorParams{Msg: "Invalid appointment_date", Err: err})
			return
		}
		appointment.AppointmentDate = appointmentDate
	}
	appointment.UpdatedBy = &actor.ID

	err = db.Transaction(func(tx *gorm.DB) error {
		if req.PatientName != "" || req.PatientEmail != "" {
			if err := linkAppointmentPatient(tx, &appointment, req.PatientName, req.PatientEmail); err != nil {
				return err
			}
		}
		return tx.Save(&appointment).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to update appointment", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Appointment updated successfully",
		Data: newAppointmentView(appointment),
	})
}

// clearOwnAppointments soft-deletes the nurse's own appointments matching
// the status predicate. It never touches another nurse's rows.
func clearOwnAppointments(db *gorm.DB, actor middleware.Actor, predicate string, args ...interface{}) (int64, error) {
	result := db.Where("nurse_id = ?", actor.ID).Where(predicate, args...).Delete(&model.Appointment{})
	return result.RowsAffected, result.Error
}

// ClearDoneAppointments godoc
// @Summary      Delete the nurse's own done appointments
// @Tags         Appointment
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Done appointments cleared"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointments/done/clear [delete]
func ClearDoneAppointments(c *gin.Context) {
	actor, ok := getActorOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	cleared, err := clearOwnAppointments(db, actor, "status = ?", model.StatusDone)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to clear done appointments", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "All done appointments cleared",
		Data: map[string]interface{}{"cleared": cleared},
	})
}

// ClearNonPendingAppointments godoc
// @Summary      Delete the nurse's own non-pending appointments
// @Tags         Appointment
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "Non-pending appointments cleared"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointments/clear-non-pending [delete]
func ClearNonPendingAppointments(c *gin.Context) {
	actor, ok := getActorOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	cleared, err := clearOwnAppointments(db, actor, "status <> ?", model.StatusPending)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to clear non-pending appointments", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "All non-pending appointments cleared",
		Data: map[string]interface{}{"cleared": cleared},
	})
}

// DeleteAllAppointments godoc
// @Summary      Empty the appointment store
// @Description  Nurse-only shift rollover reset. Removes every appointment regardless of owner; patients and reports are untouched
// @Tags         Appointment
// @Accept       json
// @Produce      json
// @Security     SessionToken
// @Success      200 {object} util.APIResponse "All appointments deleted"
// @Failure      401 {object} util.APIResponse "Unauthorized"
// @Failure      500 {object} util.APIResponse "Server error"
// @Router       /appointments [delete]
func DeleteAllAppointments(c *gin.Context) {
	actor, ok := getActorOrRespond(c)
	if !ok {
		return
	}
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}

	result := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.Appointment{})
	if result.Error != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to delete appointments", Err: result.Error})
		return
	}

	util.LogAuditEvent(util.AuditEvent{
		EventType: util.EventAppointmentsReset,
		UserID:    fmt.Sprintf("%d", actor.ID),
		IP:        c.ClientIP(),
		Message:   fmt.Sprintf("Appointment store reset, %d rows removed", result.RowsAffected),
	})

	util.CallSuccessOK(c, util.APISuccessParams{
		Msg:  "Të gjitha terminet janë fshirë me sukses",
		Data: map[string]interface{}{"deleted": result.RowsAffected},
	})
}
