package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eduschedule/eduschedule-api/internal/models"
	"github.com/eduschedule/eduschedule-api/internal/service"
	appErrors "github.com/eduschedule/eduschedule-api/pkg/errors"
	"github.com/eduschedule/eduschedule-api/pkg/response"
)

// ClassroomHandler manages classroom endpoints.
type ClassroomHandler struct {
	service *service.ClassroomService
	exports *service.ExportService
}

// NewClassroomHandler constructs handler. exports may be nil when the export
// surface is disabled.
func NewClassroomHandler(svc *service.ClassroomService, exports *service.ExportService) *ClassroomHandler {
	return &ClassroomHandler{service: svc, exports: exports}
}

// List godoc
// @Summary List classrooms
// @Tags Classrooms
// @Produce json
// @Param building query string false "Filter by building"
// @Param search query string false "Search in room names"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /classrooms [get]
func (h *ClassroomHandler) List(c *gin.Context) {
	var filter models.ClassroomFilter
	filter.Building = c.Query("building")
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	rooms, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, pagination)
}

// Get godoc
// @Summary Get classroom by id
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id} [get]
func (h *ClassroomHandler) Get(c *gin.Context) {
	room, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Events godoc
// @Summary List a classroom's bookings
// @Tags Classrooms
// @Produce json
// @Param id path string true "Classroom ID"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{id}/events [get]
func (h *ClassroomHandler) Events(c *gin.Context) {
	events, err := h.service.Events(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

// Timetable godoc
// @Summary Weekly timetable sheet for a classroom
// @Tags Classrooms
// @Produce application/pdf
// @Param id path string true "Classroom ID"
// @Param date query string true "Any date inside the wanted week (YYYY-MM-DD)"
// @Success 200 {file} binary
// @Router /classrooms/{id}/timetable.pdf [get]
func (h *ClassroomHandler) Timetable(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	payload, err := h.exports.ClassroomTimetable(c.Request.Context(), c.Param("id"), c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="timetable.pdf"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}

// Create godoc
// @Summary Create classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param payload body service.ClassroomPayload true "Classroom payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /classrooms [post]
func (h *ClassroomHandler) Create(c *gin.Context) {
	var req service.ClassroomPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	room, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// Update godoc
// @Summary Update classroom
// @Tags Classrooms
// @Accept json
// @Produce json
// @Param id path string true "Classroom ID"
// @Param payload body service.ClassroomPayload true "Classroom payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /classrooms/{id} [put]
func (h *ClassroomHandler) Update(c *gin.Context) {
	var req service.ClassroomPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	room, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Delete godoc
// @Summary Delete classroom
// @Tags Classrooms
// @Param id path string true "Classroom ID"
// @Success 204
// @Security BearerAuth
// @Router /classrooms/{id} [delete]
func (h *ClassroomHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
