package main

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"github.com/uniroutine/schedule-backend/config"
	"github.com/uniroutine/schedule-backend/database"
	"github.com/uniroutine/schedule-backend/handlers"
	"github.com/uniroutine/schedule-backend/jobs"
	"github.com/uniroutine/schedule-backend/services"
)

func main() {
	// Load config
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Connect to database. A missing or unreachable database is not fatal:
	// the service keeps running in memory-only mode and routine responses
	// simply stop surviving restarts.
	var db *sql.DB
	if cfg.DatabaseURL == "" {
		logrus.Warn("DATABASE_URL not set, running in memory-only mode")
	} else if err := database.Connect(cfg.DatabaseURL); err != nil {
		logrus.Warnf("Database unavailable, continuing in memory-only mode: %v", err)
		db = database.DB
	} else {
		db = database.DB

		// Run migrations
		if err := database.Migrate("database/schema.sql"); err != nil {
			logrus.Warnf("Migration warning: %v", err)
		}
		if err := database.VerifySchema(); err != nil {
			logrus.Warnf("Schema verification warning: %v", err)
		}
	}
	defer database.Close()

	// Initialize the parsing pipeline and its supporting services
	parser := services.NewRoutineParser(services.RoutineParserConfig{
		AnchorToken:     cfg.ColumnAnchorToken,
		SharedLabMarker: cfg.SharedLabMarker,
		CourseTitles:    cfg.CourseTitles(),
	})
	documentService := services.NewDocumentService(cfg.GetBrowserRenderHosts())

	cacheService := services.NewCacheServiceWithConfig(
		db,
		cfg.GetCacheTTL(),
		cfg.GetCacheMaxSize(),
	)

	scheduleService := services.NewScheduleService(db, parser, documentService, cacheService, cfg.GetCacheTTL())
	facultyService := services.NewFacultyService(db, cfg.FacultyBaseURL)

	logrus.Info("Schedule backend services initialized:")
	logrus.Infof("  - Routine parser (anchor token: %q, shared lab marker: %q)",
		cfg.ColumnAnchorToken, cfg.SharedLabMarker)
	logrus.Infof("  - Routine cache (TTL: %v, max size: %d)", cfg.GetCacheTTL(), cfg.GetCacheMaxSize())
	logrus.Infof("  - Document fetcher (browser-rendered hosts: %v)", cfg.GetBrowserRenderHosts())
	logrus.Infof("  - Faculty directory scraper (%s)", cfg.FacultyBaseURL)

	// Initialize background jobs, each with its own internal ticker
	cleanupJob := jobs.NewCacheCleanupJob(cacheService)
	refreshJob := jobs.NewRoutineRefreshJob(scheduleService)
	facultySyncJob := jobs.NewFacultySyncJob(facultyService, scheduleService)

	cleanupJob.Start()
	refreshJob.Start()
	facultySyncJob.Start()

	// Initialize handlers
	scheduleHandler := handlers.NewScheduleHandler(scheduleService)
	cacheHandler := handlers.NewCacheHandler(scheduleService)
	facultyHandler := handlers.NewFacultyHandler(facultyService)
	adminHandler := handlers.NewAdminHandler(scheduleService, parser, facultySyncJob)

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"database":  database.HealthCheck() == nil,
			"timestamp": time.Now().Unix(),
		})
	})

	// Routes
	api := app.Group("/api/v1")

	// Routine Routes
	api.Get("/routine/:department/days", scheduleHandler.GetRoutineDays)
	api.Get("/routine/:department/faculty", scheduleHandler.GetRoutineWithFaculty)
	api.Get("/routine/:department", scheduleHandler.GetRoutine)
	api.Post("/routine/parse", scheduleHandler.ParseRoutine)

	// Faculty Routes
	api.Get("/faculty", facultyHandler.GetFaculty)
	api.Get("/faculty/:initials", facultyHandler.GetFacultyByInitials)

	// Cache Routes
	api.Get("/cache/stats", cacheHandler.GetCacheStats)
	api.Get("/cache/:department/status", cacheHandler.GetCacheStatus)
	api.Delete("/cache/:department", cacheHandler.InvalidateCache)

	// Admin Routes
	admin := api.Group("/admin")
	if cfg.AdminToken != "" {
		admin.Use(func(c *fiber.Ctx) error {
			if c.Get("X-Admin-Token") != cfg.AdminToken {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"success": false,
					"error":   "Invalid admin token",
				})
			}
			return c.Next()
		})
	}
	admin.Post("/sources", adminHandler.UpsertRoutineSource)
	admin.Get("/sources", adminHandler.ListRoutineSources)
	admin.Post("/refresh/:department", adminHandler.RefreshDepartment)
	admin.Post("/faculty/sync", adminHandler.TriggerFacultySync)
	admin.Get("/metrics", adminHandler.GetMetrics)

	// Start server
	logrus.Infof("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		logrus.Fatalf("Server failed to start: %v", err)
	}
}
