package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduschedule/eduschedule-api/internal/service"
	appErrors "github.com/eduschedule/eduschedule-api/pkg/errors"
	"github.com/eduschedule/eduschedule-api/pkg/response"
)

// CalendarHandler manages the caller's personal calendars. Every route is
// behind the JWT middleware, so claims are always present.
type CalendarHandler struct {
	service *service.CalendarService
}

// NewCalendarHandler constructs handler.
func NewCalendarHandler(svc *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// List godoc
// @Summary List my calendars
// @Tags Calendars
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /calendars [get]
func (h *CalendarHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	calendars, err := h.service.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, calendars, nil)
}

// Get godoc
// @Summary Get one of my calendars
// @Tags Calendars
// @Produce json
// @Param id path string true "Calendar ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /calendars/{id} [get]
func (h *CalendarHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	cal, err := h.service.Get(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cal, nil)
}

// Create godoc
// @Summary Create a calendar
// @Tags Calendars
// @Accept json
// @Produce json
// @Param payload body service.CalendarPayload true "Calendar payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /calendars [post]
func (h *CalendarHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CalendarPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cal, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cal)
}

// Update godoc
// @Summary Update a calendar
// @Tags Calendars
// @Accept json
// @Produce json
// @Param id path string true "Calendar ID"
// @Param payload body service.CalendarPayload true "Calendar payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /calendars/{id} [put]
func (h *CalendarHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CalendarPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cal, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cal, nil)
}

// Delete godoc
// @Summary Delete a calendar
// @Tags Calendars
// @Param id path string true "Calendar ID"
// @Success 204
// @Security BearerAuth
// @Router /calendars/{id} [delete]
func (h *CalendarHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
