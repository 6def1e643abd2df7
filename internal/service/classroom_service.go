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

type classroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
	Create(ctx context.Context, room *models.Classroom) error
	Update(ctx context.Context, room *models.Classroom) error
	Delete(ctx context.Context, id string) error
}

type classroomEventRepository interface {
	ListByClassroom(ctx context.Context, classroomID, excludeEventID string) ([]models.Event, error)
}

// ClassroomPayload describes create and update classroom requests.
type ClassroomPayload struct {
	Name      string `json:"name" validate:"required"`
	Building  string `json:"building"`
	Capacity  int    `json:"capacity" validate:"gte=0"`
	Equipment string `json:"equipment"`
}

// ClassroomService manages the room inventory.
type ClassroomService struct {
	repo      classroomRepository
	events    classroomEventRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassroomService instantiates ClassroomService.
func NewClassroomService(repo classroomRepository, events classroomEventRepository, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{repo: repo, events: events, validator: validate, logger: logger}
}

// List returns classrooms with pagination metadata.
func (s *ClassroomService) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, *models.Pagination, error) {
	rooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
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
	return rooms, pagination, nil
}

// Get loads a single classroom.
func (s *ClassroomService) Get(ctx context.Context, id string) (*models.Classroom, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return room, nil
}

// Events returns every booking of the classroom.
func (s *ClassroomService) Events(ctx context.Context, id string) ([]models.Event, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	events, err := s.events.ListByClassroom(ctx, id, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classroom events")
	}
	return events, nil
}

// Create registers a new classroom.
func (s *ClassroomService) Create(ctx context.Context, req ClassroomPayload) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	room := models.Classroom{
		Name:      req.Name,
		Building:  req.Building,
		Capacity:  req.Capacity,
		Equipment: req.Equipment,
	}
	if err := s.repo.Create(ctx, &room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}
	return &room, nil
}

// Update modifies an existing classroom.
func (s *ClassroomService) Update(ctx context.Context, id string, req ClassroomPayload) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	existing.Name = req.Name
	existing.Building = req.Building
	existing.Capacity = req.Capacity
	existing.Equipment = req.Equipment
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classroom")
	}
	return existing, nil
}

// Delete removes a classroom. Rooms with bookings cannot be removed.
func (s *ClassroomService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	events, err := s.events.ListByClassroom(ctx, id, "")
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classroom events")
	}
	if len(events) > 0 {
		return appErrors.Clone(appErrors.ErrValidation, "classroom still has booked events")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete classroom")
	}
	return nil
}
