package handlers

import (
	"github.com/gin-gonic/gin"

	"medtrack-server/internal/middleware"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

// InvitationHandler handles the admin invitation flow.
type InvitationHandler struct {
	auth *services.AuthService
}

// NewInvitationHandler creates a new InvitationHandler.
func NewInvitationHandler(auth *services.AuthService) *InvitationHandler {
	return &InvitationHandler{auth: auth}
}

// CreateInvitationRequest represents the request body for inviting an admin.
type CreateInvitationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// CreateInvitation invites another admin. Admin only.
func (h *InvitationHandler) CreateInvitation(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req CreateInvitationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	inv, err := h.auth.Invite(c.Request.Context(), userID, req.Email)
	if err != nil {
		respondError(c, err, "Invitation not found")
		return
	}

	utils.Created(c, "Invitation created successfully", inv)
}

// GetInvitation checks that an invitation can still be accepted.
func (h *InvitationHandler) GetInvitation(c *gin.Context) {
	inv, err := h.auth.Invitation(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err, "Invitation not found")
		return
	}

	utils.Success(c, "Invitation is valid", gin.H{"email": inv.Email, "role": inv.Role, "expiresAt": inv.ExpiresAt})
}

// AcceptInvitationRequest represents the request body for accepting an invitation.
type AcceptInvitationRequest struct {
	Name     string `json:"name" binding:"required,min=2"`
	Password string `json:"password" binding:"required,min=8"`
}

// AcceptInvitation creates the invited admin account and signs it in.
func (h *InvitationHandler) AcceptInvitation(c *gin.Context) {
	var req AcceptInvitationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	session, err := h.auth.AcceptInvitation(c.Request.Context(), c.Param("token"), req.Name, req.Password)
	if err != nil {
		respondError(c, err, "Invitation not found")
		return
	}

	utils.Created(c, "Invitation accepted", session)
}
