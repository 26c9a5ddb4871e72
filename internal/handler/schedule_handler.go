package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emsops/shiftcommander-api/internal/dto"
	"github.com/emsops/shiftcommander-api/internal/service"
	appErrors "github.com/emsops/shiftcommander-api/pkg/errors"
	"github.com/emsops/shiftcommander-api/pkg/response"
)

// ScheduleHandler exposes week generation and rotation endpoints.
type ScheduleHandler struct {
	calendar *service.CalendarService
	rotation *service.RotationService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(calendar *service.CalendarService, rotation *service.RotationService) *ScheduleHandler {
	return &ScheduleHandler{calendar: calendar, rotation: rotation}
}

// GenerateWeek materializes a new week. Conflicts if the week exists.
func (h *ScheduleHandler) GenerateWeek(c *gin.Context) {
	var req dto.GenerateWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.calendar.GenerateWeek(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// EnsureWeek is the idempotent variant of GenerateWeek.
func (h *ScheduleHandler) EnsureWeek(c *gin.Context) {
	var req dto.GenerateWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	detail, err := h.calendar.EnsureWeek(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// GetWeek returns a week with shifts, configs and effective units.
func (h *ScheduleHandler) GetWeek(c *gin.Context) {
	detail, err := h.calendar.GetWeek(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// ListWeeks pages stored weeks.
func (h *ScheduleHandler) ListWeeks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	weeks, pagination, err := h.calendar.ListWeeks(c.Request.Context(), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, weeks, pagination)
}

// ApplyFirstOut points a week's rotation default at a unit.
func (h *ScheduleHandler) ApplyFirstOut(c *gin.Context) {
	var req dto.ApplyFirstOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	weekID := c.Param("id")
	if err := h.rotation.ApplyFirstOut(c.Request.Context(), weekID, req.UnitID); err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.calendar.GetWeek(c.Request.Context(), weekID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// PlanRotation assigns first-out round-robin across consecutive weeks.
func (h *ScheduleHandler) PlanRotation(c *gin.Context) {
	var req dto.RotationPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.rotation.PlanRotation(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
