package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emsops/shiftcommander-api/internal/dto"
	"github.com/emsops/shiftcommander-api/internal/service"
	appErrors "github.com/emsops/shiftcommander-api/pkg/errors"
	"github.com/emsops/shiftcommander-api/pkg/response"
)

// SeatHandler exposes seat-record reads, manual edits and the reconcile
// trigger.
type SeatHandler struct {
	seats     *service.SeatService
	reconcile *service.ReconcileService
}

// NewSeatHandler constructs handler.
func NewSeatHandler(seats *service.SeatService, reconcile *service.ReconcileService) *SeatHandler {
	return &SeatHandler{seats: seats, reconcile: reconcile}
}

// ListByShift returns the shift's seat grid.
func (h *SeatHandler) ListByShift(c *gin.Context) {
	seats, err := h.seats.ListByShift(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, seats, nil)
}

// ListByWeek returns every seat record in the week.
func (h *SeatHandler) ListByWeek(c *gin.Context) {
	seats, err := h.seats.ListByWeek(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, seats, nil)
}

// PersonSchedule returns the person's assigned seats with their shifts.
func (h *SeatHandler) PersonSchedule(c *gin.Context) {
	seats, err := h.seats.PersonSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, seats, nil)
}

// UpdateAssignment applies a manual staffing edit to one seat record.
func (h *SeatHandler) UpdateAssignment(c *gin.Context) {
	var req dto.SeatAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	seat, err := h.seats.UpdateAssignment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, seat, nil)
}

// Reconcile runs one dedup/normalize pass over all seat records.
func (h *SeatHandler) Reconcile(c *gin.Context) {
	report, err := h.reconcile.Run(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
