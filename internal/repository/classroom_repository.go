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

// ClassroomRepository provides persistence for classrooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a new classroom repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// List returns classrooms with optional filtering and pagination.
func (r *ClassroomRepository) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	base := "FROM classrooms WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Building != "" {
		conditions = append(conditions, fmt.Sprintf("building = $%d", len(args)+1))
		args = append(args, filter.Building)
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
		"name":     true,
		"building": true,
		"capacity": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "name"
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

	query := fmt.Sprintf("SELECT id, name, building, capacity, equipment, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classrooms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classrooms: %w", err)
	}

	return classrooms, total, nil
}

// FindByID loads a classroom by id.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	const query = `SELECT id, name, building, capacity, equipment, created_at, updated_at FROM classrooms WHERE id = $1`
	var room models.Classroom
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// Create stores a new classroom record.
func (r *ClassroomRepository) Create(ctx context.Context, room *models.Classroom) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now

	const query = `INSERT INTO classrooms (id, name, building, capacity, equipment, created_at, updated_at) VALUES (:id, :name, :building, :capacity, :equipment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// Update modifies a classroom record.
func (r *ClassroomRepository) Update(ctx context.Context, room *models.Classroom) error {
	room.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classrooms SET name = :name, building = :building, capacity = :capacity, equipment = :equipment, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		return fmt.Errorf("update classroom: %w", err)
	}
	return nil
}

// Delete removes a classroom by id.
func (r *ClassroomRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM classrooms WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete classroom: %w", err)
	}
	return nil
}
