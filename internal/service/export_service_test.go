package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduschedule/eduschedule-api/internal/models"
	appErrors "github.com/eduschedule/eduschedule-api/pkg/errors"
)

type mockExportEventRepo struct {
	events []models.Event
}

func (m *mockExportEventRepo) ListAll(ctx context.Context) ([]models.Event, error) {
	return m.events, nil
}

func (m *mockExportEventRepo) ListByClassroom(ctx context.Context, classroomID, excludeEventID string) ([]models.Event, error) {
	var out []models.Event
	for _, ev := range m.events {
		if ev.ClassroomID == classroomID {
			out = append(out, ev)
		}
	}
	return out, nil
}

type mockExportClassroomRepo struct {
	rooms map[string]models.Classroom
}

func (m *mockExportClassroomRepo) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	if room, ok := m.rooms[id]; ok {
		return &room, nil
	}
	return nil, sql.ErrNoRows
}

type mockExportCalendarRepo struct {
	calendars map[string]models.UserCalendar
}

func (m *mockExportCalendarRepo) FindByID(ctx context.Context, id string) (*models.UserCalendar, error) {
	if cal, ok := m.calendars[id]; ok {
		return &cal, nil
	}
	return nil, sql.ErrNoRows
}

func exportFixtures() *mockExportEventRepo {
	return &mockExportEventRepo{events: []models.Event{
		{
			ID:             "evt-a",
			Name:           "Thesis Defense",
			ClassroomID:    "room-1",
			CourseID:       "course-9",
			StartTime:      "08:00:00",
			EndTime:        "09:00:00",
			StartDate:      time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
			EndDate:        time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
			RepeatInterval: models.RepeatNone,
		},
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
			ExcludedDates:  models.DateList{"2024-04-11"},
		},
	}}
}

func TestExportICS(t *testing.T) {
	svc := NewExportService(exportFixtures(), &mockExportClassroomRepo{}, nil, nil, "Campus Timetable", nil)

	payload, err := svc.ICS(context.Background(), ICSFilter{})
	require.NoError(t, err)
	doc := string(payload)

	assert.Contains(t, doc, "BEGIN:VCALENDAR")
	assert.Contains(t, doc, "X-WR-CALNAME:Campus Timetable")
	assert.Contains(t, doc, "UID:evt-a@eduschedule")
	assert.Contains(t, doc, "UID:evt-b@eduschedule")
	assert.Contains(t, doc, "SUMMARY:Calculus I")
	assert.Contains(t, doc, "FREQ=WEEKLY;BYDAY=MO", "daily series only fires on weekdays")
	assert.Contains(t, doc, "EXDATE:20240411T100000Z")
	assert.Equal(t, 2, strings.Count(doc, "BEGIN:VEVENT"))
}

func TestExportICSClassroomFilter(t *testing.T) {
	svc := NewExportService(exportFixtures(), &mockExportClassroomRepo{}, nil, nil, "", nil)

	payload, err := svc.ICS(context.Background(), ICSFilter{ClassroomID: "room-1"})
	require.NoError(t, err)
	doc := string(payload)
	assert.Contains(t, doc, "UID:evt-a@eduschedule")
	assert.NotContains(t, doc, "UID:evt-b@eduschedule")
}

func TestExportICSCalendarScope(t *testing.T) {
	calendars := &mockExportCalendarRepo{calendars: map[string]models.UserCalendar{
		"cal-1": {ID: "cal-1", UserID: "user-1", Name: "My Semester", CourseIDs: models.StringList{"course-1"}},
	}}
	svc := NewExportService(exportFixtures(), &mockExportClassroomRepo{}, calendars, nil, "", nil)

	payload, err := svc.ICS(context.Background(), ICSFilter{CalendarID: "cal-1"})
	require.NoError(t, err)
	doc := string(payload)
	assert.Contains(t, doc, "UID:evt-b@eduschedule")
	assert.NotContains(t, doc, "UID:evt-a@eduschedule")

	_, err = svc.ICS(context.Background(), ICSFilter{CalendarID: "missing"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportICSHolidayBecomesExdate(t *testing.T) {
	holiday := func(d time.Time) bool {
		return d.Equal(time.Date(2024, time.April, 12, 0, 0, 0, 0, time.UTC))
	}
	svc := NewExportService(exportFixtures(), &mockExportClassroomRepo{}, nil, holiday, "", nil)

	payload, err := svc.ICS(context.Background(), ICSFilter{ClassroomID: "room-2"})
	require.NoError(t, err)
	assert.Contains(t, string(payload), "EXDATE:20240412T100000Z")
}

func TestExportCSV(t *testing.T) {
	svc := NewExportService(exportFixtures(), &mockExportClassroomRepo{}, nil, nil, "", nil)

	payload, err := svc.CSV(context.Background())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3, "header plus one line per event")
	assert.Contains(t, lines[0], "repeat_interval")
	assert.Contains(t, string(payload), "Calculus I")
	assert.Contains(t, string(payload), "2024-04-11")
}

func TestExportClassroomTimetable(t *testing.T) {
	rooms := &mockExportClassroomRepo{rooms: map[string]models.Classroom{
		"room-2": {ID: "room-2", Name: "Main Lecture Hall"},
	}}
	svc := NewExportService(exportFixtures(), rooms, nil, nil, "", nil)

	payload, err := svc.ClassroomTimetable(context.Background(), "room-2", "2024-04-10")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))

	_, err = svc.ClassroomTimetable(context.Background(), "missing", "2024-04-10")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.ClassroomTimetable(context.Background(), "room-2", "bad-date")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
