package handlers

import (
	"github.com/gin-gonic/gin"

	"medtrack-server/internal/middleware"
	"medtrack-server/internal/occurrence"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

// UndoHandler exposes the account's pending undo action.
type UndoHandler struct {
	tracking *services.TrackingService
}

// NewUndoHandler creates a new UndoHandler.
func NewUndoHandler(tracking *services.TrackingService) *UndoHandler {
	return &UndoHandler{tracking: tracking}
}

// GetUndo returns the live undo action, if any. Data is null when there is
// nothing left to undo.
func (h *UndoHandler) GetUndo(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	action, ok := h.tracking.PendingUndo(userID)
	if !ok {
		utils.Success(c, "Nothing to undo", nil)
		return
	}
	utils.Success(c, "Undo available", action)
}

// Undo reverses the account's last completion or removal while its window
// is open.
func (h *UndoHandler) Undo(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	out, err := h.tracking.Undo(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Item not found")
		return
	}

	msg := "Action undone"
	if out.Action.Action == occurrence.ActionComplete {
		msg = "Completion undone"
	}
	utils.Success(c, msg, out)
}
