package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/eduschedule/eduschedule-api/internal/models"
)

const eventColumns = `id, name, classroom_id, course_id, teacher_id, start_time, end_time, start_date, end_date, repeat_interval, excluded_dates, created_at, updated_at`

// EventRepository provides persistence for events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// List returns events with optional filtering and pagination.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	base := "FROM events WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("end_date >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"start_date": true,
		"name":       true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "start_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, start_time ASC LIMIT %d OFFSET %d", eventColumns, base, sortBy, order, size, offset)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	return events, total, nil
}

// FindByID loads an event by id.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE id = $1", eventColumns)
	var ev models.Event
	if err := r.db.GetContext(ctx, &ev, query, id); err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListByClassroom returns every event booked in a classroom, optionally
// excluding one event id. This is the conflict validator's input set.
func (r *EventRepository) ListByClassroom(ctx context.Context, classroomID, excludeEventID string) ([]models.Event, error) {
	return listByClassroom(ctx, r.db, classroomID, excludeEventID)
}

// ListByClassroomTx is ListByClassroom inside an existing transaction, used
// by the locked read-validate-write booking sequence.
func (r *EventRepository) ListByClassroomTx(ctx context.Context, tx *sqlx.Tx, classroomID, excludeEventID string) ([]models.Event, error) {
	return listByClassroom(ctx, tx, classroomID, excludeEventID)
}

func listByClassroom(ctx context.Context, q sqlx.QueryerContext, classroomID, excludeEventID string) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE classroom_id = $1", eventColumns)
	args := []interface{}{classroomID}
	if excludeEventID != "" {
		query += " AND id <> $2"
		args = append(args, excludeEventID)
	}
	query += " ORDER BY start_date ASC, start_time ASC"

	var events []models.Event
	if err := sqlx.SelectContext(ctx, q, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list events by classroom: %w", err)
	}
	return events, nil
}

// ListAll returns every event, ordered for stable export output.
func (r *EventRepository) ListAll(ctx context.Context) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events ORDER BY start_date ASC, start_time ASC, name ASC", eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list all events: %w", err)
	}
	return events, nil
}

// ListActiveOn returns events whose date span covers the given date. The
// caller still has to apply the recurrence rules to decide which of them
// actually fire that day.
func (r *EventRepository) ListActiveOn(ctx context.Context, date time.Time) ([]models.Event, error) {
	query := fmt.Sprintf("SELECT %s FROM events WHERE start_date <= $1 AND end_date >= $1 ORDER BY start_time ASC, name ASC", eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, date); err != nil {
		return nil, fmt.Errorf("list events active on %s: %w", date.Format("2006-01-02"), err)
	}
	return events, nil
}

// InTx runs fn inside a transaction, rolling back on error.
func (r *EventRepository) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin event tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit event tx: %w", err)
	}
	return nil
}

// LockClassroom serializes concurrent bookings of one classroom for the
// duration of the transaction.
func (r *EventRepository) LockClassroom(ctx context.Context, tx *sqlx.Tx, classroomID string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, classroomID); err != nil {
		return fmt.Errorf("lock classroom %s: %w", classroomID, err)
	}
	return nil
}

// Create stores a new event record.
func (r *EventRepository) Create(ctx context.Context, ev *models.Event) error {
	return insertEvent(ctx, r.db, ev)
}

// CreateTx stores a new event record inside an existing transaction.
func (r *EventRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, ev *models.Event) error {
	return insertEvent(ctx, tx, ev)
}

func insertEvent(ctx context.Context, exec sqlx.ExtContext, ev *models.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.UpdatedAt = now
	if ev.ExcludedDates == nil {
		ev.ExcludedDates = models.DateList{}
	}

	const query = `INSERT INTO events (id, name, classroom_id, course_id, teacher_id, start_time, end_time, start_date, end_date, repeat_interval, excluded_dates, created_at, updated_at) VALUES (:id, :name, :classroom_id, :course_id, :teacher_id, :start_time, :end_time, :start_date, :end_date, :repeat_interval, :excluded_dates, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, ev); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update modifies an event record.
func (r *EventRepository) Update(ctx context.Context, ev *models.Event) error {
	return updateEvent(ctx, r.db, ev)
}

// UpdateTx modifies an event record inside an existing transaction.
func (r *EventRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, ev *models.Event) error {
	return updateEvent(ctx, tx, ev)
}

func updateEvent(ctx context.Context, exec sqlx.ExtContext, ev *models.Event) error {
	ev.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET name = :name, classroom_id = :classroom_id, course_id = :course_id, teacher_id = :teacher_id, start_time = :start_time, end_time = :end_time, start_date = :start_date, end_date = :end_date, repeat_interval = :repeat_interval, excluded_dates = :excluded_dates, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, ev); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// AppendExcludedDate cancels one occurrence of the event. The statement is
// idempotent: re-adding an already excluded date changes nothing.
func (r *EventRepository) AppendExcludedDate(ctx context.Context, id, isoDate string) error {
	const query = `UPDATE events SET excluded_dates = excluded_dates || to_jsonb($2::text), updated_at = $3 WHERE id = $1 AND NOT excluded_dates @> to_jsonb($2::text)`
	if _, err := r.db.ExecContext(ctx, query, id, isoDate, time.Now().UTC()); err != nil {
		return fmt.Errorf("append excluded date: %w", err)
	}
	return nil
}

// Delete removes an event by id.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
