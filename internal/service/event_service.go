package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/eduschedule/eduschedule-api/internal/models"
	"github.com/eduschedule/eduschedule-api/internal/schedule"
	appErrors "github.com/eduschedule/eduschedule-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	ListByClassroom(ctx context.Context, classroomID, excludeEventID string) ([]models.Event, error)
	ListByClassroomTx(ctx context.Context, tx *sqlx.Tx, classroomID, excludeEventID string) ([]models.Event, error)
	InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
	LockClassroom(ctx context.Context, tx *sqlx.Tx, classroomID string) error
	CreateTx(ctx context.Context, tx *sqlx.Tx, ev *models.Event) error
	UpdateTx(ctx context.Context, tx *sqlx.Tx, ev *models.Event) error
	AppendExcludedDate(ctx context.Context, id, isoDate string) error
	Delete(ctx context.Context, id string) error
}

type agendaInvalidator interface {
	InvalidateAll(ctx context.Context) error
}

// EventPayload describes the body of create and update event requests.
// Dates are ISO (YYYY-MM-DD), times are HH:MM:SS wall clock.
type EventPayload struct {
	Name           string   `json:"name" validate:"required"`
	ClassroomID    string   `json:"classroom_id" validate:"required"`
	CourseID       string   `json:"course_id" validate:"required"`
	TeacherID      *string  `json:"teacher_id"`
	StartTime      string   `json:"start_time" validate:"required"`
	EndTime        string   `json:"end_time" validate:"required"`
	StartDate      string   `json:"start_date" validate:"required"`
	EndDate        string   `json:"end_date" validate:"required"`
	RepeatInterval string   `json:"repeat_interval" validate:"required"`
	ExcludedDates  []string `json:"excluded_dates"`
}

// EventService coordinates event booking, including the locked
// read-validate-write sequence that keeps classroom bookings conflict free.
type EventService struct {
	repo      eventRepository
	cache     agendaInvalidator
	engine    *schedule.Validator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventService instantiates EventService. metrics may be nil.
func NewEventService(repo eventRepository, cache agendaInvalidator, engine *schedule.Validator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = schedule.NewValidator(nil)
	}
	return &EventService{repo: repo, cache: cache, engine: engine, metrics: metrics, validator: validate, logger: logger}
}

// List returns events with pagination metadata.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return events, pagination, nil
}

// Get loads a single event.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	ev, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return ev, nil
}

// Create books a new event. The classroom is locked for the duration of the
// transaction so two concurrent requests cannot both pass validation.
func (s *EventService) Create(ctx context.Context, req EventPayload) (*models.Event, error) {
	candidate, err := s.buildEvent(req, "")
	if err != nil {
		return nil, err
	}

	err = s.repo.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.LockClassroom(ctx, tx, candidate.ClassroomID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock classroom")
		}
		existing, err := s.repo.ListByClassroomTx(ctx, tx, candidate.ClassroomID, "")
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom bookings")
		}
		if err := s.ensureNoConflict(*candidate, existing); err != nil {
			return err
		}
		if err := s.repo.CreateTx(ctx, tx, candidate); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAgenda(ctx)
	return candidate, nil
}

// Update rebooks an existing event, revalidating against every other event in
// the target classroom.
func (s *EventService) Update(ctx context.Context, id string, req EventPayload) (*models.Event, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.buildEvent(req, existing.ID)
	if err != nil {
		return nil, err
	}
	updated.CreatedAt = existing.CreatedAt

	err = s.repo.InTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.LockClassroom(ctx, tx, updated.ClassroomID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock classroom")
		}
		others, err := s.repo.ListByClassroomTx(ctx, tx, updated.ClassroomID, updated.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom bookings")
		}
		if err := s.ensureNoConflict(*updated, others); err != nil {
			return err
		}
		if err := s.repo.UpdateTx(ctx, tx, updated); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateAgenda(ctx)
	return updated, nil
}

// Delete removes an event and every occurrence it generates.
func (s *EventService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	s.invalidateAgenda(ctx)
	return nil
}

// CancelOccurrence removes a single date from a repeating event without
// touching the series. The date is appended to the event's excluded set.
func (s *EventService) CancelOccurrence(ctx context.Context, id, isoDate string) (*models.Event, error) {
	ev, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "date must be YYYY-MM-DD")
	}

	occurs, err := s.engine.OccursOn(*ev, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidRecurrence.Code, appErrors.ErrInvalidRecurrence.Status, "event recurrence is malformed")
	}
	if !occurs {
		return nil, appErrors.Clone(appErrors.ErrValidation, "event has no occurrence on "+isoDate)
	}

	if err := s.repo.AppendExcludedDate(ctx, ev.ID, isoDate); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel occurrence")
	}
	if !ev.ExcludedDates.Contains(isoDate) {
		ev.ExcludedDates = append(ev.ExcludedDates, isoDate)
	}

	s.invalidateAgenda(ctx)
	return ev, nil
}

func (s *EventService) ensureNoConflict(candidate models.Event, existing []models.Event) error {
	started := time.Now()
	err := s.engine.Validate(candidate, existing)
	s.metrics.ObserveExpand(time.Since(started))
	if err == nil {
		return nil
	}
	var conflict *schedule.ConflictError
	if errors.As(err, &conflict) {
		s.metrics.RecordConflict()
		return appErrors.Wrap(conflict, appErrors.ErrRoomConflict.Code, appErrors.ErrRoomConflict.Status, conflict.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrInvalidRecurrence.Code, appErrors.ErrInvalidRecurrence.Status, err.Error())
}

func (s *EventService) buildEvent(req EventPayload, id string) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	interval := models.RepeatInterval(req.RepeatInterval)
	if !interval.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "repeat_interval must be one of none, daily, weekly, monthly, yearly")
	}

	startTime, err := time.Parse("15:04:05", req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be HH:MM:SS")
	}
	endTime, err := time.Parse("15:04:05", req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be HH:MM:SS")
	}
	if !startTime.Before(endTime) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	// Unpadded hours like "9:00:00" parse fine but would break the string
	// ordering the agenda relies on, so store the normalized form.
	normalizedStart := startTime.Format("15:04:05")
	normalizedEnd := endTime.Format("15:04:05")

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_date must be YYYY-MM-DD")
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must be YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not be before start_date")
	}
	if interval == models.RepeatNone && !startDate.Equal(endDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "one-off events must have start_date equal to end_date")
	}

	excluded := make(models.DateList, 0, len(req.ExcludedDates))
	for _, raw := range req.ExcludedDates {
		if _, err := time.Parse("2006-01-02", raw); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "excluded_dates entries must be YYYY-MM-DD")
		}
		if !excluded.Contains(raw) {
			excluded = append(excluded, raw)
		}
	}

	return &models.Event{
		ID:             id,
		Name:           req.Name,
		ClassroomID:    req.ClassroomID,
		CourseID:       req.CourseID,
		TeacherID:      req.TeacherID,
		StartTime:      normalizedStart,
		EndTime:        normalizedEnd,
		StartDate:      startDate,
		EndDate:        endDate,
		RepeatInterval: interval,
		ExcludedDates:  excluded,
	}, nil
}

func (s *EventService) invalidateAgenda(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("failed to invalidate agenda cache", zap.Error(err))
	}
}
