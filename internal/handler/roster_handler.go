package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emsops/shiftcommander-api/internal/dto"
	"github.com/emsops/shiftcommander-api/internal/service"
	appErrors "github.com/emsops/shiftcommander-api/pkg/errors"
	"github.com/emsops/shiftcommander-api/pkg/response"
)

// RosterHandler exposes roster reads and the CSV/history import endpoints.
type RosterHandler struct {
	roster  *service.RosterService
	history *service.ImportService
}

// NewRosterHandler constructs handler.
func NewRosterHandler(roster *service.RosterService, history *service.ImportService) *RosterHandler {
	return &RosterHandler{roster: roster, history: history}
}

// ListPeople returns the full roster.
func (h *RosterHandler) ListPeople(c *gin.Context) {
	people, err := h.roster.ListPeople(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, people, nil)
}

// ListUnits returns the active units.
func (h *RosterHandler) ListUnits(c *gin.Context) {
	units, err := h.roster.ListUnits(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, units, nil)
}

// ListPlaceholders returns the active placeholders.
func (h *RosterHandler) ListPlaceholders(c *gin.Context) {
	placeholders, err := h.roster.ListPlaceholders(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, placeholders, nil)
}

// ImportRoster ingests a roster CSV uploaded as multipart form field
// "file".
func (h *RosterHandler) ImportRoster(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "missing roster file"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable roster file"))
		return
	}
	defer file.Close()

	report, err := h.roster.ImportCSV(c.Request.Context(), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ImportHistory bulk-writes tagged historical seat assignments and runs a
// reconcile pass.
func (h *RosterHandler) ImportHistory(c *gin.Context) {
	var req dto.HistoryImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.history.ImportHistory(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
