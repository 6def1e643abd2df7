package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduschedule/eduschedule-api/internal/service"
	"github.com/eduschedule/eduschedule-api/pkg/response"
)

// AgendaHandler serves the day view.
type AgendaHandler struct {
	service *service.AgendaService
}

// NewAgendaHandler constructs handler.
func NewAgendaHandler(svc *service.AgendaService) *AgendaHandler {
	return &AgendaHandler{service: svc}
}

// Day godoc
// @Summary Agenda for one day
// @Tags Agenda
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param classroomId query string false "Filter by classroom"
// @Param courseId query string false "Filter by course"
// @Param calendarId query string false "Scope to one of the caller's calendars"
// @Success 200 {object} response.Envelope
// @Router /agenda [get]
func (h *AgendaHandler) Day(c *gin.Context) {
	req := service.AgendaRequest{
		Date:        c.Query("date"),
		ClassroomID: c.Query("classroomId"),
		CourseID:    c.Query("courseId"),
		CalendarID:  c.Query("calendarId"),
	}
	if claims := claimsFromContext(c); claims != nil {
		req.UserID = claims.UserID
	}

	view, err := h.service.Day(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
