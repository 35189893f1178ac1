package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/uniroutine/schedule-backend/services"
)

type FacultyHandler struct {
	Service *services.FacultyService
}

func NewFacultyHandler(service *services.FacultyService) *FacultyHandler {
	return &FacultyHandler{Service: service}
}

func (h *FacultyHandler) GetFaculty(c *fiber.Ctx) error {
	department := c.Query("department")

	faculty, err := h.Service.ListFaculty(c.Context(), department)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    faculty,
		"count":   len(faculty),
	})
}

func (h *FacultyHandler) GetFacultyByInitials(c *fiber.Ctx) error {
	initials := c.Params("initials")

	member, err := h.Service.GetFacultyByInitials(c.Context(), initials)
	if err != nil {
		return errorResponse(c, err)
	}
	if member == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"error":   "Faculty member not found",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    member,
	})
}
