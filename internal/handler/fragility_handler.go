package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emsops/shiftcommander-api/internal/dto"
	"github.com/emsops/shiftcommander-api/internal/service"
	"github.com/emsops/shiftcommander-api/pkg/response"
)

// FragilityHandler serves staffing-risk radar reports.
type FragilityHandler struct {
	radar *service.FragilityService
}

// NewFragilityHandler constructs handler.
func NewFragilityHandler(radar *service.FragilityService) *FragilityHandler {
	return &FragilityHandler{radar: radar}
}

// WeekRadar evaluates every shift of a week against the current roster.
// The policy default can be overridden per request via query parameter.
func (h *FragilityHandler) WeekRadar(c *gin.Context) {
	var policy *dto.RadarPolicy
	if raw, ok := c.GetQuery("allow_non_medical_driver"); ok {
		allow, err := strconv.ParseBool(raw)
		if err == nil {
			policy = &dto.RadarPolicy{AllowNonMedicalDriver: allow}
		}
	}

	report, err := h.radar.EvaluateWeek(c.Request.Context(), c.Param("id"), policy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
