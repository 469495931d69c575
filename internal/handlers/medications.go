package handlers

import (
	"github.com/gin-gonic/gin"

	"medtrack-server/internal/gesture"
	"medtrack-server/internal/listing"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

// MedicationHandler handles the medications of the current patient and
// their doses.
type MedicationHandler struct {
	tracking *services.TrackingService
	records  *services.RecordService
}

// NewMedicationHandler creates a new MedicationHandler.
func NewMedicationHandler(tracking *services.TrackingService, records *services.RecordService) *MedicationHandler {
	return &MedicationHandler{tracking: tracking, records: records}
}

// ListQuery holds the list filters shared by medications and appointments.
type ListQuery struct {
	Tab      string `form:"tab" binding:"omitempty,oneof=hoje ativas todas"`
	Search   string `form:"q" binding:"omitempty,max=100"`
	Category string `form:"category" binding:"omitempty,max=50"`
}

func (q ListQuery) query() listing.Query {
	// The binding already limits the tab to known names.
	tab, _ := listing.ParseTab(q.Tab)
	return listing.Query{Tab: tab, Search: q.Search, Category: q.Category}
}

// MedicationRequest represents the request body for creating or editing a
// medication.
type MedicationRequest struct {
	Name      string   `json:"name" binding:"required,min=2,max=150"`
	Dosage    string   `json:"dosage" binding:"max=100"`
	Form      string   `json:"form" binding:"max=50"`
	Frequency string   `json:"frequency" binding:"max=100"`
	Horarios  []string `json:"horarios" binding:"omitempty,dive,hhmm"`
	Stock     *int     `json:"stock" binding:"omitempty,gte=0"`
	Active    *bool    `json:"active"`
	StartDate string   `json:"startDate" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string   `json:"endDate" binding:"omitempty,datetime=2006-01-02"`
	Notes     string   `json:"notes"`
}

func (r MedicationRequest) input() services.MedicationInput {
	return services.MedicationInput{
		Name:      r.Name,
		Dosage:    r.Dosage,
		Form:      r.Form,
		Frequency: r.Frequency,
		Horarios:  r.Horarios,
		Stock:     r.Stock,
		Active:    r.Active,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		Notes:     r.Notes,
	}
}

// GetMedications lists the medications of the current patient. Query
// parameters: tab (hoje, ativas, todas), q and category.
func (h *MedicationHandler) GetMedications(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	var q ListQuery
	if !utils.BindQuery(c, &q) {
		return
	}

	meds, err := h.tracking.ListMedications(c.Request.Context(), patientID, q.query())
	if err != nil {
		respondError(c, err, "Patient not found")
		return
	}

	utils.Success(c, "Medications fetched successfully", meds)
}

// GetMedicationByID fetches one medication of the current patient.
func (h *MedicationHandler) GetMedicationByID(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	med, err := h.tracking.Medication(c.Request.Context(), patientID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Medication not found")
		return
	}

	utils.Success(c, "Medication fetched successfully", med)
}

// CreateMedication adds a medication to the current patient.
func (h *MedicationHandler) CreateMedication(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	var req MedicationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	med, err := h.records.CreateMedication(c.Request.Context(), patientID, req.input())
	if err != nil {
		respondError(c, err, "Patient not found")
		return
	}

	utils.Created(c, "Medication created successfully", med)
}

// UpdateMedication replaces the editable fields of a medication.
func (h *MedicationHandler) UpdateMedication(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	var req MedicationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	med, err := h.records.UpdateMedication(c.Request.Context(), patientID, c.Param("id"), req.input())
	if err != nil {
		respondError(c, err, "Medication not found")
		return
	}

	utils.Success(c, "Medication updated successfully", med)
}

// SetActiveRequest switches a medication on or off.
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetMedicationActive switches a medication on or off.
func (h *MedicationHandler) SetMedicationActive(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	var req SetActiveRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	med, err := h.records.SetMedicationActive(c.Request.Context(), patientID, c.Param("id"), *req.Active)
	if err != nil {
		respondError(c, err, "Medication not found")
		return
	}

	utils.Success(c, "Medication updated successfully", med)
}

// DeleteMedication removes a medication and its dose history.
func (h *MedicationHandler) DeleteMedication(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	if err := h.records.DeleteMedication(c.Request.Context(), patientID, c.Param("id")); err != nil {
		respondError(c, err, "Medication not found")
		return
	}

	utils.Success(c, "Medication deleted successfully", nil)
}

// CompleteDose marks the dose at :hora as taken.
func (h *MedicationHandler) CompleteDose(c *gin.Context) {
	actor, patientID, ok := scope(c)
	if !ok {
		return
	}

	out, err := h.tracking.CompleteDose(c.Request.Context(), actor.AccountID, patientID, c.Param("id"), c.Param("hora"))
	if err != nil {
		respondError(c, err, "Dose not found")
		return
	}

	utils.Success(c, "Dose marked as taken", out)
}

// RemoveDose marks the dose at :hora as skipped.
func (h *MedicationHandler) RemoveDose(c *gin.Context) {
	actor, patientID, ok := scope(c)
	if !ok {
		return
	}

	out, err := h.tracking.RemoveDose(c.Request.Context(), actor.AccountID, patientID, c.Param("id"), c.Param("hora"))
	if err != nil {
		respondError(c, err, "Dose not found")
		return
	}

	utils.Success(c, "Dose removed from today", out)
}

// GestureRequest is a pointer trace recorded on a list card.
type GestureRequest struct {
	Points []gesture.Point `json:"points" binding:"required,min=1"`
}

// DoseGesture replays a gesture made on the card of the dose at :hora.
func (h *MedicationHandler) DoseGesture(c *gin.Context) {
	actor, patientID, ok := scope(c)
	if !ok {
		return
	}

	var req GestureRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	out, err := h.tracking.DoseGesture(c.Request.Context(), actor.AccountID, patientID, c.Param("id"), c.Param("hora"), req.Points)
	if err != nil {
		respondError(c, err, "Dose not found")
		return
	}

	utils.Success(c, "Gesture applied", out)
}

// RestoreMedication brings a medication removed from today back.
func (h *MedicationHandler) RestoreMedication(c *gin.Context) {
	actor, patientID, ok := scope(c)
	if !ok {
		return
	}

	med, err := h.tracking.RestoreMedication(c.Request.Context(), actor.AccountID, patientID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Medication not found")
		return
	}

	utils.Success(c, "Medication restored to today", med)
}
