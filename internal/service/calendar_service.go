package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/eduschedule/eduschedule-api/internal/models"
	appErrors "github.com/eduschedule/eduschedule-api/pkg/errors"
)

type calendarRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.UserCalendar, error)
	FindByID(ctx context.Context, id string) (*models.UserCalendar, error)
	Create(ctx context.Context, cal *models.UserCalendar) error
	Update(ctx context.Context, cal *models.UserCalendar) error
	Delete(ctx context.Context, id string) error
}

// CalendarPayload describes create and update calendar requests.
type CalendarPayload struct {
	Name      string   `json:"name" validate:"required"`
	CourseIDs []string `json:"course_ids"`
}

// CalendarService manages user-owned agenda filters. Every operation is
// scoped to the authenticated user; calendars are never visible across users.
type CalendarService struct {
	repo      calendarRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCalendarService instantiates CalendarService.
func NewCalendarService(repo calendarRepository, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{repo: repo, validator: validate, logger: logger}
}

// List returns the user's calendars.
func (s *CalendarService) List(ctx context.Context, userID string) ([]models.UserCalendar, error) {
	calendars, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list calendars")
	}
	return calendars, nil
}

// Get loads one calendar owned by the user.
func (s *CalendarService) Get(ctx context.Context, userID, id string) (*models.UserCalendar, error) {
	cal, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
	}
	if cal.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "calendar belongs to another user")
	}
	return cal, nil
}

// Create stores a new calendar for the user.
func (s *CalendarService) Create(ctx context.Context, userID string, req CalendarPayload) (*models.UserCalendar, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar payload")
	}
	cal := models.UserCalendar{
		UserID:    userID,
		Name:      req.Name,
		CourseIDs: models.StringList(req.CourseIDs),
	}
	if err := s.repo.Create(ctx, &cal); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create calendar")
	}
	return &cal, nil
}

// Update modifies one of the user's calendars.
func (s *CalendarService) Update(ctx context.Context, userID, id string, req CalendarPayload) (*models.UserCalendar, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid calendar payload")
	}
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	existing.Name = req.Name
	existing.CourseIDs = models.StringList(req.CourseIDs)
	if existing.CourseIDs == nil {
		existing.CourseIDs = models.StringList{}
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update calendar")
	}
	return existing, nil
}

// Delete removes one of the user's calendars.
func (s *CalendarService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete calendar")
	}
	return nil
}
