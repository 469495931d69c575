package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"medtrack-server/internal/repository"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

// ContextHeader selects the patient a request works on, overriding the
// context stored on the account.
const ContextHeader = "X-Context-Patient"

// ContextResolver resolves and checks the patient an actor works on.
type ContextResolver interface {
	CurrentContext(ctx context.Context, actor services.Actor, requested string) (string, error)
}

// PatientContext sets "patientID" to the current context of the
// authenticated account. It should be used *after* AuthMiddleware.
func PatientContext(resolver ContextResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			utils.Unauthorized(c, "User not authenticated")
			c.Abort()
			return
		}

		patientID, err := resolver.CurrentContext(c.Request.Context(), actor, c.GetHeader(ContextHeader))
		switch {
		case err == nil:
		case errors.Is(err, services.ErrForbidden):
			utils.Forbidden(c, "You do not have access to this patient.")
			c.Abort()
			return
		case errors.Is(err, repository.ErrNotFound):
			utils.Unauthorized(c, "Account not found")
			c.Abort()
			return
		default:
			utils.InternalServerError(c, "Failed to resolve patient context")
			c.Abort()
			return
		}

		c.Set("patientID", patientID)
		c.Next()
	}
}

// ActorFromContext returns the authenticated account set by AuthMiddleware.
func ActorFromContext(c *gin.Context) (services.Actor, bool) {
	userID, ok := GetUserIDFromContext(c)
	if !ok || userID == "" {
		return services.Actor{}, false
	}
	role, ok := GetUserRoleFromContext(c)
	if !ok {
		return services.Actor{}, false
	}
	return services.Actor{AccountID: userID, Role: role}, true
}

// GetPatientIDFromContext returns the patient set by PatientContext.
func GetPatientIDFromContext(c *gin.Context) (string, bool) {
	id := c.GetString("patientID")
	return id, id != ""
}
