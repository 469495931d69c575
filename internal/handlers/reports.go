package handlers

import (
	"github.com/gin-gonic/gin"

	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

// ReportHandler serves adherence reports and the dashboard.
type ReportHandler struct {
	reports *services.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// AdherenceQuery is the period of an adherence report. Both ends are
// optional.
type AdherenceQuery struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// GetAdherence reports completed over planned doses and appointments of the
// current patient.
func (h *ReportHandler) GetAdherence(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	var q AdherenceQuery
	if !utils.BindQuery(c, &q) {
		return
	}

	report, err := h.reports.Adherence(c.Request.Context(), patientID, q.From, q.To)
	if err != nil {
		respondError(c, err, "Patient not found")
		return
	}

	utils.Success(c, "Adherence report fetched successfully", report)
}

// GetDashboard counts today's doses and appointments of the current
// patient.
func (h *ReportHandler) GetDashboard(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	dashboard, err := h.reports.Dashboard(c.Request.Context(), patientID)
	if err != nil {
		respondError(c, err, "Patient not found")
		return
	}

	utils.Success(c, "Dashboard fetched successfully", dashboard)
}
