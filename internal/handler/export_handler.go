package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emsops/shiftcommander-api/internal/service"
	"github.com/emsops/shiftcommander-api/pkg/response"
)

// ExportHandler serves week seat-grid downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// WeekCSV streams the week grid as CSV.
func (h *ExportHandler) WeekCSV(c *gin.Context) {
	weekID := c.Param("id")
	data, err := h.exports.ExportWeekCSV(c.Request.Context(), weekID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_seats.csv"`, weekID))
	c.Data(http.StatusOK, "text/csv", data)
}

// WeekPDF streams the week grid as PDF.
func (h *ExportHandler) WeekPDF(c *gin.Context) {
	weekID := c.Param("id")
	data, err := h.exports.ExportWeekPDF(c.Request.Context(), weekID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_seats.pdf"`, weekID))
	c.Data(http.StatusOK, "application/pdf", data)
}
