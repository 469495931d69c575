package handlers

import (
	"github.com/gin-gonic/gin"

	"medtrack-server/internal/middleware"
	"medtrack-server/internal/models"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

// ProfileHandler handles the profiles attached to the current patient.
type ProfileHandler struct {
	profiles *services.ProfileService
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// CreateProfileRequest represents the request body for adding a profile.
type CreateProfileRequest struct {
	Name  string `json:"name" binding:"required,min=2"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone" binding:"omitempty,phone"`
	Role  string `json:"role" binding:"required,oneof=companion caregiver admin"`
}

// CreateProfile adds a pending profile with a fresh code to the current
// patient.
func (h *ProfileHandler) CreateProfile(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	var req CreateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	profile, err := h.profiles.Create(c.Request.Context(), patientID, services.ProfileInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Role:  models.Role(req.Role),
	})
	if err != nil {
		respondError(c, err, "Patient not found")
		return
	}

	utils.Created(c, "Profile created successfully", profile)
}

// GetProfiles lists the profiles of the current patient.
func (h *ProfileHandler) GetProfiles(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	profiles, err := h.profiles.List(c.Request.Context(), patientID)
	if err != nil {
		respondError(c, err, "Patient not found")
		return
	}

	utils.Success(c, "Profiles fetched successfully", profiles)
}

// GetProfileByCode looks a profile up by its code.
func (h *ProfileHandler) GetProfileByCode(c *gin.Context) {
	var req struct {
		Code string `uri:"code" binding:"required,profilecode"`
	}
	if !utils.BindURI(c, &req) {
		return
	}

	profile, err := h.profiles.Lookup(c.Request.Context(), req.Code)
	if err != nil {
		respondError(c, err, "No profile found with this code")
		return
	}

	utils.Success(c, "Profile fetched successfully", profile)
}

// LinkProfileRequest represents the request body for linking by code.
type LinkProfileRequest struct {
	Code string `json:"code" binding:"required,profilecode"`
}

// LinkProfile attaches the authenticated account to the profile with the
// given code.
func (h *ProfileHandler) LinkProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req LinkProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	profile, err := h.profiles.Link(c.Request.Context(), userID, req.Code)
	if err != nil {
		respondError(c, err, "No profile found with this code")
		return
	}

	utils.Success(c, "Profile linked successfully", profile)
}

// UpdateProfileStatusRequest represents the request body for a status change.
type UpdateProfileStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive pending"`
}

// UpdateProfileStatus changes the status of a profile of the current
// patient.
func (h *ProfileHandler) UpdateProfileStatus(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	var req UpdateProfileStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	profile, err := h.profiles.UpdateStatus(c.Request.Context(), patientID, c.Param("id"), models.ProfileStatus(req.Status))
	if err != nil {
		respondError(c, err, "Profile not found")
		return
	}

	utils.Success(c, "Profile status updated successfully", profile)
}

// SetManager hands the manager role to a profile of the current patient.
func (h *ProfileHandler) SetManager(c *gin.Context) {
	actor, patientID, ok := scope(c)
	if !ok {
		return
	}

	profile, err := h.profiles.SetManager(c.Request.Context(), actor, patientID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Profile not found")
		return
	}

	utils.Success(c, "Manager updated successfully", profile)
}

// DeleteProfile removes a profile of the current patient.
func (h *ProfileHandler) DeleteProfile(c *gin.Context) {
	_, patientID, ok := scope(c)
	if !ok {
		return
	}

	if err := h.profiles.Delete(c.Request.Context(), patientID, c.Param("id")); err != nil {
		respondError(c, err, "Profile not found")
		return
	}

	utils.Success(c, "Profile deleted successfully", nil)
}
