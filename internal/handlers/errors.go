package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medtrack-server/internal/converters"
	"medtrack-server/internal/middleware"
	"medtrack-server/internal/occurrence"
	"medtrack-server/internal/repository"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

// respondError maps a service error onto the response envelope. notFound
// is the toast shown when the record does not exist.
func respondError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, occurrence.ErrUnknownOccurrence):
		utils.NotFound(c, notFound)
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, converters.ErrMalformedHorario):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, occurrence.ErrNotPending),
		errors.Is(err, services.ErrNotRemoved),
		errors.Is(err, services.ErrAlreadyLinked),
		errors.Is(err, services.ErrManagerProfile),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, repository.ErrDuplicate),
		errors.Is(err, occurrence.ErrUndoMismatch):
		utils.Conflict(c, err.Error())
	case errors.Is(err, occurrence.ErrNoPendingUndo), errors.Is(err, services.ErrInvitationUnusable):
		utils.Gone(c, err.Error())
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrManagerRequired):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidRefreshToken):
		utils.Unauthorized(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		utils.GatewayTimeout(c, "Loading took too long, please try again")
	default:
		_ = c.Error(err)
		utils.Error(c, http.StatusInternalServerError, err.Error())
	}
}

// scope returns the authenticated account and the patient it works on.
// It writes the error response and returns false when either is missing.
func scope(c *gin.Context) (services.Actor, string, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return services.Actor{}, "", false
	}
	patientID, ok := middleware.GetPatientIDFromContext(c)
	if !ok {
		utils.InternalServerError(c, "Patient context not found. PatientContext middleware might be missing.")
		return services.Actor{}, "", false
	}
	return actor, patientID, true
}
