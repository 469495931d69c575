package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"medtrack-server/internal/events"
)

// EventHandler streams completion, removal and restore events of the
// current patient over a websocket.
type EventHandler struct {
	hub    *events.Hub
	origin string
	logger zerolog.Logger
}

// NewEventHandler creates a new EventHandler. origin is the allowed Origin
// of the upgrade request.
func NewEventHandler(hub *events.Hub, origin string, logger zerolog.Logger) *EventHandler {
	return &EventHandler{hub: hub, origin: origin, logger: logger}
}

// Stream upgrades the connection and blocks until the client leaves.
func (h *EventHandler) Stream(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	// The upgrader writes its own error response.
	if err := h.hub.Serve(c.Writer, c.Request, patientID, h.origin); err != nil {
		h.logger.Warn().Err(err).Str("patient_id", patientID).Msg("websocket upgrade failed")
	}
}
