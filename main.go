package main

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm/logger"

	"medtrack-server/internal/config"
	"medtrack-server/internal/events"
	"medtrack-server/internal/handlers"
	"medtrack-server/internal/middleware"
	"medtrack-server/internal/models"
	"medtrack-server/internal/occurrence"
	"medtrack-server/internal/repository"
	"medtrack-server/internal/routes"
	"medtrack-server/internal/services"
	"medtrack-server/internal/utils"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var l zerolog.Logger
	if cfg.IsDev() {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	} else {
		l = zerolog.New(os.Stdout)
	}
	return l.Level(level).With().Timestamp().Str("service", "medtrack-server").Logger()
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded, using the environment")
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error loading config")
	}
	logg := newLogger(cfg)

	// Create a DatabaseConfig for models
	modelDbConfig := models.DatabaseConfig{
		DSN:      cfg.Database.DSN,
		LogLevel: logger.Warn,
	}
	if cfg.IsDev() {
		modelDbConfig.LogLevel = logger.Info
	}

	// Initialize database connection
	db, err := models.InitDB(modelDbConfig)
	if err != nil {
		logg.Fatal().Err(err).Msg("error connecting to database")
	}

	meds := repository.NewMedicationRepository(db)
	appts := repository.NewAppointmentRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	users := repository.NewUserRepository(db)
	invitations := repository.NewInvitationRepository(db)

	bus := events.NewBus()
	hub := events.NewHub(logg)
	detach := hub.Attach(bus)
	defer detach()

	registry := occurrence.NewRegistry(cfg.UndoWindow, bus)
	tracking := services.NewTrackingService(meds, appts, registry, cfg.Location, logg)
	records := services.NewRecordService(meds, appts, tracking)
	profiles := services.NewProfileService(profileRepo, users, logg)
	reports := services.NewReportService(meds, appts, tracking, logg)
	auth := services.NewAuthService(users, users, invitations, profiles, registry, cfg, logg)

	utils.RegisterValidators()
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.RequestLogger(logg), middleware.Recovery(logg))

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.ContextHeader, middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))
	router.Use(middleware.LoadingTimeout(cfg.LoadingTimeout))

	routes.SetupRoutes(router, routes.Handlers{
		Auth:         handlers.NewAuthHandler(auth, profiles, cfg),
		Profiles:     handlers.NewProfileHandler(profiles),
		Medications:  handlers.NewMedicationHandler(tracking, records),
		Appointments: handlers.NewAppointmentHandler(tracking, records),
		Undo:         handlers.NewUndoHandler(tracking),
		Reports:      handlers.NewReportHandler(reports),
		Events:       handlers.NewEventHandler(hub, cfg.Origin, logg),
		Invitations:  handlers.NewInvitationHandler(auth),
	}, profiles, cfg)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	logg.Info().Str("addr", serverAddr).Str("env", cfg.Environment).Msg("server running")
	if err := router.Run(serverAddr); err != nil {
		logg.Fatal().Err(err).Msg("failed to start server")
	}
}
