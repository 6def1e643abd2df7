package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/eduschedule/eduschedule-api/internal/models"
	"github.com/eduschedule/eduschedule-api/internal/schedule"
	appErrors "github.com/eduschedule/eduschedule-api/pkg/errors"
)

type agendaEventRepository interface {
	ListActiveOn(ctx context.Context, date time.Time) ([]models.Event, error)
}

type agendaCalendarRepository interface {
	FindByID(ctx context.Context, id string) (*models.UserCalendar, error)
}

type agendaCache interface {
	Key(isoDate, calendarID, classroomID, courseID string) string
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AgendaRequest selects one day of the timetable, optionally narrowed to a
// classroom, a course or a user calendar.
type AgendaRequest struct {
	Date        string
	ClassroomID string
	CourseID    string
	CalendarID  string
	UserID      string
}

// AgendaItem is one concrete occurrence on the requested day.
type AgendaItem struct {
	EventID     string  `json:"event_id"`
	Name        string  `json:"name"`
	ClassroomID string  `json:"classroom_id"`
	CourseID    string  `json:"course_id"`
	TeacherID   *string `json:"teacher_id,omitempty"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
}

// AgendaView is the rendered day.
type AgendaView struct {
	Date    string       `json:"date"`
	Holiday bool         `json:"holiday"`
	Items   []AgendaItem `json:"items"`
}

// AgendaService renders the day view by expanding every active event onto the
// requested date. Responses are cached in Redis and invalidated on any event
// mutation.
type AgendaService struct {
	events    agendaEventRepository
	calendars agendaCalendarRepository
	cache     agendaCache
	engine    *schedule.Validator
	holidays  schedule.HolidayFunc
	metrics   *MetricsService
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewAgendaService instantiates AgendaService. cache and metrics may be nil;
// without a cache every request recomputes the view.
func NewAgendaService(events agendaEventRepository, calendars agendaCalendarRepository, cache agendaCache, holidays schedule.HolidayFunc, metrics *MetricsService, cacheTTL time.Duration, logger *zap.Logger) *AgendaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgendaService{
		events:    events,
		calendars: calendars,
		cache:     cache,
		engine:    schedule.NewValidator(holidays),
		holidays:  holidays,
		metrics:   metrics,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// Day expands the timetable for a single date.
func (s *AgendaService) Day(ctx context.Context, req AgendaRequest) (*AgendaView, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}

	var courseScope models.StringList
	if req.CalendarID != "" {
		cal, err := s.calendars.FindByID(ctx, req.CalendarID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
		}
		if req.UserID != "" && cal.UserID != req.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "calendar belongs to another user")
		}
		// An empty course list means the calendar covers everything.
		if len(cal.CourseIDs) > 0 {
			courseScope = cal.CourseIDs
		}
	}

	var cacheKey string
	if s.cache != nil {
		cacheKey = s.cache.Key(req.Date, req.CalendarID, req.ClassroomID, req.CourseID)
		var cached AgendaView
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("agenda cache read failed", zap.Error(err))
		} else {
			s.metrics.RecordCacheLookup(false)
		}
	}

	events, err := s.events.ListActiveOn(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	view := &AgendaView{
		Date:    req.Date,
		Holiday: s.holidays != nil && s.holidays(date),
		Items:   []AgendaItem{},
	}

	for _, ev := range events {
		if req.ClassroomID != "" && ev.ClassroomID != req.ClassroomID {
			continue
		}
		if req.CourseID != "" && ev.CourseID != req.CourseID {
			continue
		}
		if courseScope != nil && !courseScope.Contains(ev.CourseID) {
			continue
		}
		occurs, err := s.engine.OccursOn(ev, date)
		if err != nil {
			s.logger.Warn("skipping malformed event", zap.String("event_id", ev.ID), zap.Error(err))
			continue
		}
		if !occurs {
			continue
		}
		view.Items = append(view.Items, AgendaItem{
			EventID:     ev.ID,
			Name:        ev.Name,
			ClassroomID: ev.ClassroomID,
			CourseID:    ev.CourseID,
			TeacherID:   ev.TeacherID,
			StartTime:   ev.StartTime,
			EndTime:     ev.EndTime,
		})
	}

	// Times are fixed-width HH:MM:SS so the string order is chronological.
	sort.Slice(view.Items, func(i, j int) bool {
		if view.Items[i].StartTime != view.Items[j].StartTime {
			return view.Items[i].StartTime < view.Items[j].StartTime
		}
		return view.Items[i].Name < view.Items[j].Name
	})

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, view, s.cacheTTL); err != nil {
			s.logger.Warn("agenda cache write failed", zap.Error(err))
		}
	}

	return view, nil
}
