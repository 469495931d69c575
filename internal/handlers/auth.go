package handlers

import (
	"github.com/gin-gonic/gin"

	"medtrack-server/internal/config"
	"medtrack-server/internal/middleware"
	"medtrack-server/internal/models"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	auth     *services.AuthService
	profiles *services.ProfileService
	cfg      *config.Config
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *services.AuthService, profiles *services.ProfileService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, profiles: profiles, cfg: cfg}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"omitempty,phone"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=patient companion caregiver"`
}

// Register handles user registration. A patient gets its own record.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return // Error response handled by BindAndValidate
	}

	user, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		respondError(c, err, "User not found")
		return
	}

	utils.Created(c, "User registered successfully", user.Sanitize())
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "User not found")
		return
	}

	h.setRefreshCookie(c, session.RefreshToken)
	utils.Success(c, "Login successful", session)
}

// setRefreshCookie stores the refresh token as an HTTP-only cookie. An
// empty token clears it.
func (h *AuthHandler) setRefreshCookie(c *gin.Context, token string) {
	maxAge := h.cfg.JWTRefreshExpirationHours * 60 * 60
	if token == "" {
		maxAge = -1
	}
	c.SetCookie(
		"refresh_token", // Name
		token,           // Value
		maxAge,          // Max age in seconds
		"/",             // Path
		"",              // Domain (empty means current domain)
		!h.cfg.IsDev(),  // Secure (true in prod, false in dev)
		true,            // HTTP only
	)
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// refreshTokenFrom reads the refresh token from the cookie, falling back to
// the request body.
func refreshTokenFrom(c *gin.Context) (string, bool) {
	if token, err := c.Cookie("refresh_token"); err == nil && token != "" {
		return token, true
	}
	var req RefreshTokenRequest
	if !utils.BindAndValidate(c, &req) {
		return "", false
	}
	return req.RefreshToken, true
}

// RefreshToken handles refreshing an access token using a refresh token.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, ok := refreshTokenFrom(c)
	if !ok {
		return
	}

	session, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		respondError(c, err, "User not found")
		return
	}

	h.setRefreshCookie(c, session.RefreshToken)
	utils.Success(c, "Access token refreshed successfully", session)
}

// Logout revokes the refresh token and drops the pending undo of the
// account.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, ok := refreshTokenFrom(c)
	if !ok {
		return
	}

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		respondError(c, err, "Refresh token not found")
		return
	}

	h.setRefreshCookie(c, "")
	utils.Success(c, "Logout successful. Refresh token has been invalidated.", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	user, err := h.auth.Account(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "User profile not found")
		return
	}

	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
type UpdateProfileRequest struct {
	Name  string `json:"name" binding:"omitempty,min=2"`
	Phone string `json:"phone" binding:"omitempty,phone"`
}

// UpdateProfile handles updating the currently authenticated user's profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.auth.UpdateAccount(c.Request.Context(), userID, req.Name, req.Phone)
	if err != nil {
		respondError(c, err, "User not found")
		return
	}

	utils.Success(c, "Profile updated successfully", user.Sanitize())
}

// SwitchContextRequest selects the patient the account works on.
type SwitchContextRequest struct {
	PatientID string `json:"patientId" binding:"required"`
}

// SwitchContext stores the current context of the account.
func (h *AuthHandler) SwitchContext(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req SwitchContextRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user, err := h.profiles.SwitchContext(c.Request.Context(), actor, req.PatientID)
	if err != nil {
		respondError(c, err, "User not found")
		return
	}

	utils.Success(c, "Context switched successfully", user.Sanitize())
}

// GetContexts lists the patients the account can switch to.
func (h *AuthHandler) GetContexts(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	contexts, err := h.profiles.Contexts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "User not found")
		return
	}

	utils.Success(c, "Contexts fetched successfully", contexts)
}
