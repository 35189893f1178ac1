package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/uniroutine/schedule-backend/services"
	"github.com/uniroutine/schedule-backend/shared"
)

type ScheduleHandler struct {
	Service *services.ScheduleService
}

func NewScheduleHandler(service *services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{Service: service}
}

// errorResponse maps pipeline error kinds onto HTTP statuses: upstream fetch
// and extraction failures are bad-gateway conditions, an unreachable cache
// store is service-unavailable, a missing source registration is not-found.
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrSourceNotConfigured):
		status = fiber.StatusNotFound
	case shared.IsSourceFetchFailure(err), shared.IsExtractionFailure(err):
		status = fiber.StatusBadGateway
	case shared.IsCacheUnavailable(err):
		status = fiber.StatusServiceUnavailable
	}

	response := fiber.Map{
		"success": false,
		"error":   err.Error(),
	}
	var serviceErr *shared.ServiceError
	if errors.As(err, &serviceErr) {
		response["code"] = serviceErr.Code
	}
	return c.Status(status).JSON(response)
}

// GetRoutine returns the cached (or freshly parsed) schedule for a
// department. batchSection, teacher and room query parameters narrow the
// result; the stats summarize the returned entries.
func (h *ScheduleHandler) GetRoutine(c *fiber.Ctx) error {
	department := c.Params("department")

	entries, err := h.Service.GetOrParseDepartment(c.Context(), department)
	if err != nil && !shared.IsNoEntriesFound(err) {
		return errorResponse(c, err)
	}
	noEntries := err != nil

	if batchSection := c.Query("batchSection"); batchSection != "" {
		entries = services.FilterByBatchSection(entries, batchSection)
	}
	if teacher := c.Query("teacher"); teacher != "" {
		entries = services.FilterByTeacher(entries, teacher)
	}
	if room := c.Query("room"); room != "" {
		entries = services.FilterByRoom(entries, room)
	}

	response := fiber.Map{
		"success": true,
		"data":    entries,
		"stats":   services.AggregateScheduleStats(entries),
		"count":   len(entries),
	}
	if noEntries {
		response["message"] = "Routine document contained no class entries"
	}
	return c.JSON(response)
}

// GetRoutineDays returns the department schedule grouped by weekday, every
// weekday present.
func (h *ScheduleHandler) GetRoutineDays(c *fiber.Ctx) error {
	department := c.Params("department")

	entries, err := h.Service.GetOrParseDepartment(c.Context(), department)
	if err != nil && !shared.IsNoEntriesFound(err) {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    services.GroupByDay(entries),
	})
}

// GetRoutineWithFaculty returns the latest cached schedule joined with
// scraped instructor profiles.
func (h *ScheduleHandler) GetRoutineWithFaculty(c *fiber.Ctx) error {
	department := c.Params("department")

	entries, err := h.Service.GetScheduleWithFaculty(c.Context(), department)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
		"count":   len(entries),
	})
}

// ParseRoutine runs the pipeline against an arbitrary document URL without
// touching the cache. A document yielding zero entries still responds with
// success, carrying the empty result and a message.
func (h *ScheduleHandler) ParseRoutine(c *fiber.Ctx) error {
	var request struct {
		URL string `json:"url"`
	}
	if err := c.BodyParser(&request); err != nil || request.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Request body must include a url field",
		})
	}

	result, err := h.Service.ParseDocument(c.Context(), request.URL)
	if err != nil && !shared.IsNoEntriesFound(err) {
		return errorResponse(c, err)
	}

	response := fiber.Map{
		"success": true,
		"data":    result,
	}
	if err != nil {
		response["message"] = "Routine document contained no class entries"
	}
	return c.JSON(response)
}
