package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/uniroutine/schedule-backend/services"
)

type CacheHandler struct {
	Service *services.ScheduleService
}

func NewCacheHandler(service *services.ScheduleService) *CacheHandler {
	return &CacheHandler{Service: service}
}

// GetCacheStatus reports whether a valid cached routine exists for the
// department, without forcing a parse.
func (h *CacheHandler) GetCacheStatus(c *fiber.Ctx) error {
	department := c.Params("department")

	status, err := h.Service.Status(c.Context(), department)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    status,
	})
}

// InvalidateCache drops every cached routine for the department across all
// versions.
func (h *CacheHandler) InvalidateCache(c *fiber.Ctx) error {
	department := c.Params("department")

	if err := h.Service.Invalidate(c.Context(), department); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Cache invalidated for department " + department,
	})
}

// GetCacheStats returns counters for both cache layers.
func (h *CacheHandler) GetCacheStats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    h.Service.CacheStatistics(c.Context()),
	})
}
