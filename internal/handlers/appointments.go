package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"medtrack-server/internal/models"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	tracking *services.TrackingService
	records  *services.RecordService
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(tracking *services.TrackingService, records *services.RecordService) *AppointmentHandler {
	return &AppointmentHandler{tracking: tracking, records: records}
}

// AppointmentRequest represents the request body for creating or editing an
// appointment. Which optional fields apply depends on the category.
type AppointmentRequest struct {
	Category        string    `json:"category" binding:"required,oneof=consultation exam activity"`
	Title           string    `json:"title" binding:"required,min=2,max=150"`
	ScheduledAt     time.Time `json:"scheduledAt" binding:"required"`
	Location        string    `json:"location" binding:"max=255"`
	Notes           string    `json:"notes"`
	Specialty       string    `json:"specialty" binding:"max=100"`
	Professional    string    `json:"professional" binding:"max=150"`
	ExamType        string    `json:"examType" binding:"max=100"`
	Preparation     string    `json:"preparation"`
	DurationMinutes int       `json:"durationMinutes" binding:"omitempty,gte=0,lte=1440"`
	Recurrence      string    `json:"recurrence" binding:"omitempty,oneof=none daily weekly"`
	Weekdays        []int     `json:"weekdays" binding:"omitempty,dive,weekday"`
}

func (r AppointmentRequest) input() services.AppointmentInput {
	return services.AppointmentInput{
		Category:        models.AppointmentCategory(r.Category),
		Title:           r.Title,
		ScheduledAt:     r.ScheduledAt,
		Location:        r.Location,
		Notes:           r.Notes,
		Specialty:       r.Specialty,
		Professional:    r.Professional,
		ExamType:        r.ExamType,
		Preparation:     r.Preparation,
		DurationMinutes: r.DurationMinutes,
		Recurrence:      r.Recurrence,
		Weekdays:        r.Weekdays,
	}
}

// CreateAppointment handles creating a new appointment for the current
// patient.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	var req AppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.records.CreateAppointment(c.Request.Context(), patientID, req.input())
	if err != nil {
		respondError(c, err, "Patient not found")
		return
	}

	utils.Created(c, "Appointment created successfully", appointment)
}

// GetAppointments lists the appointments of the current patient. Query
// parameters: tab (hoje, ativas, todas), q and category.
func (h *AppointmentHandler) GetAppointments(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	var q ListQuery
	if !utils.BindQuery(c, &q) {
		return
	}

	appointments, err := h.tracking.ListAppointments(c.Request.Context(), patientID, q.query())
	if err != nil {
		respondError(c, err, "Patient not found")
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	appointment, err := h.tracking.Appointment(c.Request.Context(), patientID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Appointment not found")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateAppointment replaces the editable fields of an appointment.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	var req AppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.records.UpdateAppointment(c.Request.Context(), patientID, c.Param("id"), req.input())
	if err != nil {
		respondError(c, err, "Appointment not found")
		return
	}

	utils.Success(c, "Appointment updated successfully", appointment)
}

// RescheduleAppointmentRequest represents the request body for rescheduling an appointment.
type RescheduleAppointmentRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
}

// RescheduleAppointment moves an appointment and makes it pending again.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.records.RescheduleAppointment(c.Request.Context(), patientID, c.Param("id"), req.ScheduledAt)
	if err != nil {
		respondError(c, err, "Appointment not found")
		return
	}

	utils.Success(c, "Appointment rescheduled successfully", appointment)
}

// DeleteAppointment removes an appointment.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	if err := h.records.DeleteAppointment(c.Request.Context(), patientID, c.Param("id")); err != nil {
		respondError(c, err, "Appointment not found")
		return
	}

	utils.Success(c, "Appointment deleted successfully", nil)
}

// CompleteAppointment marks an appointment as done.
func (h *AppointmentHandler) CompleteAppointment(c *gin.Context) {
	actor, patientID, ok := scope(c)
	if !ok {
		return
	}

	out, err := h.tracking.CompleteAppointment(c.Request.Context(), actor.AccountID, patientID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Appointment not found")
		return
	}

	utils.Success(c, "Appointment marked as done", out)
}

// CancelAppointment marks an appointment as cancelled.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	actor, patientID, ok := scope(c)
	if !ok {
		return
	}

	out, err := h.tracking.CancelAppointment(c.Request.Context(), actor.AccountID, patientID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Appointment not found")
		return
	}

	utils.Success(c, "Appointment cancelled", out)
}

// RestoreAppointment brings an appointment removed from today back.
func (h *AppointmentHandler) RestoreAppointment(c *gin.Context) {
	actor, patientID, ok := scope(c)
	if !ok {
		return
	}

	appointment, err := h.tracking.RestoreAppointment(c.Request.Context(), actor.AccountID, patientID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Appointment not found")
		return
	}

	utils.Success(c, "Appointment restored to today", appointment)
}

// AppointmentGesture replays a gesture made on an appointment card.
func (h *AppointmentHandler) AppointmentGesture(c *gin.Context) {
	actor, patientID, ok := scope(c)
	if !ok {
		return
	}

	var req GestureRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	out, err := h.tracking.AppointmentGesture(c.Request.Context(), actor.AccountID, patientID, c.Param("id"), req.Points)
	if err != nil {
		respondError(c, err, "Appointment not found")
		return
	}

	utils.Success(c, "Gesture applied", out)
}
