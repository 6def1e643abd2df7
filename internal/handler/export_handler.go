package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduschedule/eduschedule-api/internal/service"
	"github.com/eduschedule/eduschedule-api/pkg/response"
)

// ExportHandler serves calendar and spreadsheet exports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// ICS godoc
// @Summary Export the timetable as an iCalendar feed
// @Tags Exports
// @Produce text/calendar
// @Param classroomId query string false "Limit to one classroom"
// @Param courseId query string false "Limit to one course"
// @Param calendarId query string false "Limit to a saved calendar's courses"
// @Success 200 {string} string "ICS document"
// @Router /export/ics [get]
func (h *ExportHandler) ICS(c *gin.Context) {
	payload, err := h.service.ICS(c.Request.Context(), service.ICSFilter{
		ClassroomID: c.Query("classroomId"),
		CourseID:    c.Query("courseId"),
		CalendarID:  c.Query("calendarId"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="timetable.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", payload)
}

// CSV godoc
// @Summary Export every event as CSV
// @Tags Exports
// @Produce text/csv
// @Success 200 {string} string "CSV document"
// @Router /export/events.csv [get]
func (h *ExportHandler) CSV(c *gin.Context) {
	payload, err := h.service.CSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="events.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", payload)
}
