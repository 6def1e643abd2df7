package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduschedule/eduschedule-api/internal/models"
	appErrors "github.com/eduschedule/eduschedule-api/pkg/errors"
)

type mockAgendaEventRepo struct {
	events []models.Event
}

func (m *mockAgendaEventRepo) ListActiveOn(ctx context.Context, date time.Time) ([]models.Event, error) {
	var out []models.Event
	for _, ev := range m.events {
		if !ev.StartDate.After(date) && !ev.EndDate.Before(date) {
			out = append(out, ev)
		}
	}
	return out, nil
}

type mockAgendaCalendarRepo struct {
	calendars map[string]models.UserCalendar
}

func (m *mockAgendaCalendarRepo) FindByID(ctx context.Context, id string) (*models.UserCalendar, error) {
	if cal, ok := m.calendars[id]; ok {
		return &cal, nil
	}
	return nil, sql.ErrNoRows
}

type mockAgendaCache struct {
	store map[string]*AgendaView
	sets  int
}

func (m *mockAgendaCache) Key(isoDate, calendarID, classroomID, courseID string) string {
	return isoDate + ":" + calendarID + ":" + classroomID + ":" + courseID
}

func (m *mockAgendaCache) Get(ctx context.Context, key string, dest interface{}) error {
	if view, ok := m.store[key]; ok {
		*dest.(*AgendaView) = *view
		return nil
	}
	return appErrors.ErrCacheMiss
}

func (m *mockAgendaCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.store == nil {
		m.store = make(map[string]*AgendaView)
	}
	view := value.(*AgendaView)
	m.sets++
	m.store[key] = view
	return nil
}

func agendaFixtures() *mockAgendaEventRepo {
	return &mockAgendaEventRepo{events: []models.Event{
		{
			ID:             "evt-b",
			Name:           "Calculus I",
			ClassroomID:    "room-2",
			CourseID:       "course-1",
			StartTime:      "10:00:00",
			EndTime:        "11:00:00",
			StartDate:      time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
			EndDate:        time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
			RepeatInterval: models.RepeatDaily,
		},
		{
			ID:             "evt-c",
			Name:           "Physics Lab",
			ClassroomID:    "room-3",
			CourseID:       "course-2",
			StartTime:      "08:00:00",
			EndTime:        "09:30:00",
			StartDate:      time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
			EndDate:        time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC),
			RepeatInterval: models.RepeatWeekly,
		},
	}}
}

func TestAgendaDay(t *testing.T) {
	svc := NewAgendaService(agendaFixtures(), &mockAgendaCalendarRepo{}, nil, nil, nil, 0, nil)

	// 2024-04-08 is a Monday: both the daily and the weekly series fire.
	view, err := svc.Day(context.Background(), AgendaRequest{Date: "2024-04-08"})
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "Physics Lab", view.Items[0].Name, "sorted by start time")
	assert.Equal(t, "Calculus I", view.Items[1].Name)
	assert.False(t, view.Holiday)

	// Tuesday: only the daily series.
	view, err = svc.Day(context.Background(), AgendaRequest{Date: "2024-04-09"})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "evt-b", view.Items[0].EventID)

	// Saturday: nothing fires.
	view, err = svc.Day(context.Background(), AgendaRequest{Date: "2024-04-06"})
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestAgendaDayFilters(t *testing.T) {
	svc := NewAgendaService(agendaFixtures(), &mockAgendaCalendarRepo{}, nil, nil, nil, 0, nil)

	view, err := svc.Day(context.Background(), AgendaRequest{Date: "2024-04-08", ClassroomID: "room-3"})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Physics Lab", view.Items[0].Name)

	view, err = svc.Day(context.Background(), AgendaRequest{Date: "2024-04-08", CourseID: "course-1"})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Calculus I", view.Items[0].Name)
}

func TestAgendaDayHoliday(t *testing.T) {
	holiday := func(d time.Time) bool {
		return d.Equal(time.Date(2024, time.April, 9, 0, 0, 0, 0, time.UTC))
	}
	svc := NewAgendaService(agendaFixtures(), &mockAgendaCalendarRepo{}, nil, holiday, nil, 0, nil)

	view, err := svc.Day(context.Background(), AgendaRequest{Date: "2024-04-09"})
	require.NoError(t, err)
	assert.True(t, view.Holiday)
	assert.Empty(t, view.Items, "repeating events are suppressed on holidays")
}

func TestAgendaDayCalendarScope(t *testing.T) {
	calendars := &mockAgendaCalendarRepo{calendars: map[string]models.UserCalendar{
		"cal-1": {ID: "cal-1", UserID: "user-1", Name: "My Courses", CourseIDs: models.StringList{"course-2"}},
	}}
	svc := NewAgendaService(agendaFixtures(), calendars, nil, nil, nil, 0, nil)

	view, err := svc.Day(context.Background(), AgendaRequest{Date: "2024-04-08", CalendarID: "cal-1", UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Physics Lab", view.Items[0].Name)

	_, err = svc.Day(context.Background(), AgendaRequest{Date: "2024-04-08", CalendarID: "cal-1", UserID: "user-2"})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Day(context.Background(), AgendaRequest{Date: "2024-04-08", CalendarID: "missing", UserID: "user-1"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestAgendaDayCaches(t *testing.T) {
	cache := &mockAgendaCache{}
	svc := NewAgendaService(agendaFixtures(), &mockAgendaCalendarRepo{}, cache, nil, nil, time.Minute, nil)

	first, err := svc.Day(context.Background(), AgendaRequest{Date: "2024-04-08"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.Day(context.Background(), AgendaRequest{Date: "2024-04-08"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets, "second request served from cache")
	assert.Equal(t, first.Items, second.Items)
}

func TestAgendaDayBadDate(t *testing.T) {
	svc := NewAgendaService(agendaFixtures(), &mockAgendaCalendarRepo{}, nil, nil, nil, 0, nil)
	_, err := svc.Day(context.Background(), AgendaRequest{Date: "08-04-2024"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
