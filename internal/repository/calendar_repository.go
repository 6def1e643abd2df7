package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eduschedule/eduschedule-api/internal/models"
)

// CalendarRepository provides persistence for user-owned calendar filters.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository creates a new calendar repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// ListByUser returns every calendar owned by a user.
func (r *CalendarRepository) ListByUser(ctx context.Context, userID string) ([]models.UserCalendar, error) {
	const query = `SELECT id, user_id, name, course_ids, created_at, updated_at FROM user_calendars WHERE user_id = $1 ORDER BY name ASC`
	var calendars []models.UserCalendar
	if err := r.db.SelectContext(ctx, &calendars, query, userID); err != nil {
		return nil, fmt.Errorf("list calendars by user: %w", err)
	}
	return calendars, nil
}

// FindByID loads a calendar by id.
func (r *CalendarRepository) FindByID(ctx context.Context, id string) (*models.UserCalendar, error) {
	const query = `SELECT id, user_id, name, course_ids, created_at, updated_at FROM user_calendars WHERE id = $1`
	var cal models.UserCalendar
	if err := r.db.GetContext(ctx, &cal, query, id); err != nil {
		return nil, err
	}
	return &cal, nil
}

// Create stores a new calendar record.
func (r *CalendarRepository) Create(ctx context.Context, cal *models.UserCalendar) error {
	if cal.ID == "" {
		cal.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if cal.CreatedAt.IsZero() {
		cal.CreatedAt = now
	}
	cal.UpdatedAt = now
	if cal.CourseIDs == nil {
		cal.CourseIDs = models.StringList{}
	}

	const query = `INSERT INTO user_calendars (id, user_id, name, course_ids, created_at, updated_at) VALUES (:id, :user_id, :name, :course_ids, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cal); err != nil {
		return fmt.Errorf("create calendar: %w", err)
	}
	return nil
}

// Update modifies a calendar record.
func (r *CalendarRepository) Update(ctx context.Context, cal *models.UserCalendar) error {
	cal.UpdatedAt = time.Now().UTC()
	const query = `UPDATE user_calendars SET name = :name, course_ids = :course_ids, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, cal); err != nil {
		return fmt.Errorf("update calendar: %w", err)
	}
	return nil
}

// Delete removes a calendar by id.
func (r *CalendarRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM user_calendars WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	return nil
}
