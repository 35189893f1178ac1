package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/uniroutine/schedule-backend/jobs"
	"github.com/uniroutine/schedule-backend/models"
	"github.com/uniroutine/schedule-backend/services"
	"github.com/uniroutine/schedule-backend/shared"
)

type AdminHandler struct {
	ScheduleService *services.ScheduleService
	Parser          *services.RoutineParser
	FacultySyncJob  *jobs.FacultySyncJob
}

func NewAdminHandler(scheduleService *services.ScheduleService, parser *services.RoutineParser, facultySyncJob *jobs.FacultySyncJob) *AdminHandler {
	return &AdminHandler{
		ScheduleService: scheduleService,
		Parser:          parser,
		FacultySyncJob:  facultySyncJob,
	}
}

// UpsertRoutineSource registers or updates the source document for a
// department. Subsequent routine requests for that department parse this URL.
func (h *AdminHandler) UpsertRoutineSource(c *fiber.Ctx) error {
	var source models.RoutineSource
	if err := c.BodyParser(&source); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	source.Department = strings.TrimSpace(source.Department)
	source.SourceURL = strings.TrimSpace(source.SourceURL)
	if source.Department == "" || source.SourceURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "department and source_url are required",
		})
	}

	if err := h.ScheduleService.UpsertRoutineSource(c.Context(), &source); err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    source,
	})
}

// ListRoutineSources returns every registered department source.
func (h *AdminHandler) ListRoutineSources(c *fiber.Ctx) error {
	sources, err := h.ScheduleService.ListRoutineSources(c.Context())
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    sources,
		"count":   len(sources),
	})
}

// RefreshDepartment drops the department's cached routines and re-parses its
// source immediately.
func (h *AdminHandler) RefreshDepartment(c *fiber.Ctx) error {
	department := c.Params("department")

	startTime := time.Now()
	entryCount, err := h.ScheduleService.RefreshDepartment(c.Context(), department)
	if err != nil && !shared.IsNoEntriesFound(err) {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"message":     "Routine refreshed for department " + department,
		"entry_count": entryCount,
		"duration":    time.Since(startTime).String(),
	})
}

// TriggerFacultySync manually runs the faculty directory sync job
func (h *AdminHandler) TriggerFacultySync(c *fiber.Ctx) error {
	logrus.Info("Manual faculty sync triggered via admin endpoint")

	startTime := time.Now()
	h.FacultySyncJob.Run()

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Faculty sync job completed",
		"duration":  time.Since(startTime).String(),
		"timestamp": time.Now(),
	})
}

// GetMetrics returns a snapshot of service, extraction, cache and database
// counters.
func (h *AdminHandler) GetMetrics(c *fiber.Ctx) error {
	data := fiber.Map{
		"service":    h.ScheduleService.Metrics().GetSnapshot(),
		"extraction": h.Parser.Metrics().GetSnapshot(),
		"cache":      h.ScheduleService.CacheStatistics(c.Context()),
	}

	if h.ScheduleService.DB != nil {
		dbMetrics := h.ScheduleService.DatabaseMetrics()
		dbMetrics.UpdateConnectionPoolStats(h.ScheduleService.DB.Stats())
		data["database"] = dbMetrics.GetSnapshot()
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}
