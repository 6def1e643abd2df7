package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eduschedule/eduschedule-api/internal/models"
	"github.com/eduschedule/eduschedule-api/internal/service"
	appErrors "github.com/eduschedule/eduschedule-api/pkg/errors"
	"github.com/eduschedule/eduschedule-api/pkg/response"
)

// EventHandler manages event endpoints.
type EventHandler struct {
	service *service.EventService
}

// NewEventHandler constructs handler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{service: svc}
}

// List godoc
// @Summary List events
// @Tags Events
// @Produce json
// @Param classroomId query string false "Filter by classroom"
// @Param courseId query string false "Filter by course"
// @Param teacherId query string false "Filter by teacher"
// @Param from query string false "Only events ending on or after this date (YYYY-MM-DD)"
// @Param to query string false "Only events starting on or before this date (YYYY-MM-DD)"
// @Param search query string false "Search in event names"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	var filter models.EventFilter
	filter.ClassroomID = c.Query("classroomId")
	filter.CourseID = c.Query("courseId")
	filter.TeacherID = c.Query("teacherId")
	filter.Search = c.Query("search")
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD"))
			return
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD"))
			return
		}
		filter.To = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	events, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

// Get godoc
// @Summary Get event by id
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	ev, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ev, nil)
}

// Create godoc
// @Summary Book an event
// @Tags Events
// @Accept json
// @Produce json
// @Param payload body service.EventPayload true "Event payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "classroom already booked"
// @Security BearerAuth
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	var req service.EventPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	ev, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ev)
}

// Update godoc
// @Summary Update an event
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body service.EventPayload true "Event payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "classroom already booked"
// @Security BearerAuth
// @Router /events/{id} [put]
func (h *EventHandler) Update(c *gin.Context) {
	var req service.EventPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	ev, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ev, nil)
}

// Delete godoc
// @Summary Delete an event
// @Tags Events
// @Param id path string true "Event ID"
// @Success 204
// @Security BearerAuth
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CancelOccurrence godoc
// @Summary Cancel a single occurrence of a repeating event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Param date path string true "Occurrence date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /events/{id}/occurrences/{date} [delete]
func (h *EventHandler) CancelOccurrence(c *gin.Context) {
	ev, err := h.service.CancelOccurrence(c.Request.Context(), c.Param("id"), c.Param("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ev, nil)
}
