package routes

import (
	"github.com/gin-gonic/gin"

	"medtrack-server/internal/config"
	"medtrack-server/internal/handlers"
	"medtrack-server/internal/middleware"
	"medtrack-server/internal/models"
)

// Handlers groups every handler the routes need.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Profiles     *handlers.ProfileHandler
	Medications  *handlers.MedicationHandler
	Appointments *handlers.AppointmentHandler
	Undo         *handlers.UndoHandler
	Reports      *handlers.ReportHandler
	Events       *handlers.EventHandler
	Invitations  *handlers.InvitationHandler
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, h Handlers, contexts middleware.ContextResolver, cfg *config.Config) {
	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", h.Auth.Register)
			authRoutes.POST("/login", h.Auth.Login)
			authRoutes.POST("/refresh-token", h.Auth.RefreshToken)
			authRoutes.POST("/logout", h.Auth.Logout)
		}

		public.GET("/invitations/:token", h.Invitations.GetInvitation)
		public.POST("/invitations/:token/accept", h.Invitations.AcceptInvitation)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		// Account level: no patient context needed
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.GET("/profile", h.Auth.GetProfile)
			authRoutesPrivate.PUT("/profile", h.Auth.UpdateProfile)
			authRoutesPrivate.GET("/contexts", h.Auth.GetContexts)
			authRoutesPrivate.PUT("/context", h.Auth.SwitchContext)
		}

		private.GET("/profiles/code/:code", h.Profiles.GetProfileByCode)
		private.POST("/profiles/link", h.Profiles.LinkProfile)

		private.GET("/undo", h.Undo.GetUndo)
		private.POST("/undo", h.Undo.Undo)

		private.POST("/invitations", middleware.RoleAuthMiddleware(models.RoleAdmin), h.Invitations.CreateInvitation)
	}

	// Routes working on the current patient
	patient := private.Group("")
	patient.Use(middleware.PatientContext(contexts))
	{
		profileRoutes := patient.Group("/profiles")
		{
			profileRoutes.GET("", h.Profiles.GetProfiles)
			profileRoutes.POST("", h.Profiles.CreateProfile)
			profileRoutes.PATCH("/:id/status", h.Profiles.UpdateProfileStatus)
			profileRoutes.PUT("/:id/manager", h.Profiles.SetManager)
			profileRoutes.DELETE("/:id", h.Profiles.DeleteProfile)
		}

		medicationRoutes := patient.Group("/medications")
		{
			medicationRoutes.GET("", h.Medications.GetMedications)
			medicationRoutes.POST("", h.Medications.CreateMedication)
			medicationRoutes.GET("/:id", h.Medications.GetMedicationByID)
			medicationRoutes.PUT("/:id", h.Medications.UpdateMedication)
			medicationRoutes.PATCH("/:id/active", h.Medications.SetMedicationActive)
			medicationRoutes.DELETE("/:id", h.Medications.DeleteMedication)
			medicationRoutes.POST("/:id/restore", h.Medications.RestoreMedication)

			medicationRoutes.POST("/:id/doses/:hora/complete", h.Medications.CompleteDose)
			medicationRoutes.POST("/:id/doses/:hora/remove", h.Medications.RemoveDose)
			medicationRoutes.POST("/:id/doses/:hora/gesture", h.Medications.DoseGesture)
		}

		appointmentRoutes := patient.Group("/appointments")
		{
			appointmentRoutes.GET("", h.Appointments.GetAppointments)
			appointmentRoutes.POST("", h.Appointments.CreateAppointment)
			appointmentRoutes.GET("/:id", h.Appointments.GetAppointmentByID)
			appointmentRoutes.PUT("/:id", h.Appointments.UpdateAppointment)
			appointmentRoutes.PATCH("/:id/reschedule", h.Appointments.RescheduleAppointment)
			appointmentRoutes.DELETE("/:id", h.Appointments.DeleteAppointment)

			appointmentRoutes.POST("/:id/complete", h.Appointments.CompleteAppointment)
			appointmentRoutes.POST("/:id/cancel", h.Appointments.CancelAppointment)
			appointmentRoutes.POST("/:id/restore", h.Appointments.RestoreAppointment)
			appointmentRoutes.POST("/:id/gesture", h.Appointments.AppointmentGesture)
		}

		patient.GET("/reports/adherence", h.Reports.GetAdherence)
		patient.GET("/dashboard", h.Reports.GetDashboard)
		patient.GET("/events/ws", h.Events.Stream)
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
