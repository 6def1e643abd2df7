package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/eduschedule/eduschedule-api/internal/models"
	"github.com/eduschedule/eduschedule-api/internal/schedule"
	appErrors "github.com/eduschedule/eduschedule-api/pkg/errors"
	"github.com/eduschedule/eduschedule-api/pkg/export"
)

type exportEventRepository interface {
	ListAll(ctx context.Context) ([]models.Event, error)
	ListByClassroom(ctx context.Context, classroomID, excludeEventID string) ([]models.Event, error)
}

type exportClassroomRepository interface {
	FindByID(ctx context.Context, id string) (*models.Classroom, error)
}

type exportCalendarRepository interface {
	FindByID(ctx context.Context, id string) (*models.UserCalendar, error)
}

// ICSFilter narrows the exported calendar. CalendarID scopes the feed to the
// courses of a saved user calendar so it can be subscribed to directly.
type ICSFilter struct {
	ClassroomID string
	CourseID    string
	CalendarID  string
}

// ExportService renders the timetable as ICS, CSV and PDF documents.
type ExportService struct {
	events       exportEventRepository
	classrooms   exportClassroomRepository
	calendars    exportCalendarRepository
	holidays     schedule.HolidayFunc
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	calendarName string
	logger       *zap.Logger
}

// NewExportService instantiates ExportService.
func NewExportService(events exportEventRepository, classrooms exportClassroomRepository, calendars exportCalendarRepository, holidays schedule.HolidayFunc, calendarName string, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if calendarName == "" {
		calendarName = "EduSchedule"
	}
	return &ExportService{
		events:       events,
		classrooms:   classrooms,
		calendars:    calendars,
		holidays:     holidays,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		calendarName: calendarName,
		logger:       logger,
	}
}

// ICS renders the timetable as an iCalendar document. Repeating events are
// emitted as RRULEs; cancelled and holiday-suppressed occurrences become
// EXDATEs so the subscribed calendar matches the agenda exactly.
func (s *ExportService) ICS(ctx context.Context, filter ICSFilter) ([]byte, error) {
	var courseScope map[string]struct{}
	if filter.CalendarID != "" {
		saved, err := s.calendars.FindByID(ctx, filter.CalendarID)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "calendar not found")
		}
		// An empty course list means the calendar covers everything.
		if len(saved.CourseIDs) > 0 {
			courseScope = make(map[string]struct{}, len(saved.CourseIDs))
			for _, id := range saved.CourseIDs {
				courseScope[id] = struct{}{}
			}
		}
	}

	events, err := s.events.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//EduSchedule//Timetable//EN")
	cal.SetXWRCalName(s.calendarName)

	for _, ev := range events {
		if filter.ClassroomID != "" && ev.ClassroomID != filter.ClassroomID {
			continue
		}
		if filter.CourseID != "" && ev.CourseID != filter.CourseID {
			continue
		}
		if courseScope != nil {
			if _, ok := courseScope[ev.CourseID]; !ok {
				continue
			}
		}
		if err := s.appendVEvent(cal, ev); err != nil {
			s.logger.Warn("skipping unexportable event", zap.String("event_id", ev.ID), zap.Error(err))
		}
	}

	return []byte(cal.Serialize()), nil
}

func (s *ExportService) appendVEvent(cal *ical.Calendar, ev models.Event) error {
	start, err := combineDateTime(ev.StartDate, ev.StartTime)
	if err != nil {
		return err
	}
	end, err := combineDateTime(ev.StartDate, ev.EndTime)
	if err != nil {
		return err
	}

	ve := cal.AddEvent(ev.ID + "@eduschedule")
	ve.SetDtStampTime(time.Now().UTC())
	ve.SetStartAt(start)
	ve.SetEndAt(end)
	ve.SetSummary(ev.Name)
	ve.SetLocation(ev.ClassroomID)

	if ev.RepeatInterval.Repeating() {
		ve.AddRrule(rruleFor(ev))
	}
	for _, excluded := range suppressedDates(ev, s.holidays) {
		exStart, err := combineDateTime(excluded, ev.StartTime)
		if err != nil {
			return err
		}
		ve.AddExdate(exStart.Format("20060102T150405Z"))
	}
	return nil
}

func combineDateTime(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04:05", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time of day %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
}

// rruleFor maps a repeat interval onto an RFC 5545 recurrence rule. Daily
// events only fire on weekdays, so daily maps to a weekly BYDAY rule.
func rruleFor(ev models.Event) string {
	until := ev.EndDate.Format("20060102") + "T235959Z"
	switch ev.RepeatInterval {
	case models.RepeatDaily:
		return "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR;UNTIL=" + until
	case models.RepeatWeekly:
		return "FREQ=WEEKLY;UNTIL=" + until
	case models.RepeatMonthly:
		return "FREQ=MONTHLY;UNTIL=" + until
	default:
		return "FREQ=YEARLY;UNTIL=" + until
	}
}

// suppressedDates returns the dates inside the event span on which the rule
// would fire but the occurrence is cancelled or falls on a holiday.
func suppressedDates(ev models.Event, isHoliday schedule.HolidayFunc) []time.Time {
	all, err := schedule.Expand(stripSuppression(ev), ev.StartDate, ev.EndDate, nil)
	if err != nil {
		return nil
	}
	kept, err := schedule.Expand(ev, ev.StartDate, ev.EndDate, isHoliday)
	if err != nil {
		return nil
	}
	keptSet := make(map[string]struct{}, len(kept))
	for _, d := range kept {
		keptSet[schedule.ISODate(d)] = struct{}{}
	}
	var out []time.Time
	for _, d := range all {
		if _, ok := keptSet[schedule.ISODate(d)]; !ok {
			out = append(out, d)
		}
	}
	return out
}

func stripSuppression(ev models.Event) models.Event {
	ev.ExcludedDates = nil
	return ev
}

// CSV dumps every event as one row.
func (s *ExportService) CSV(ctx context.Context) ([]byte, error) {
	events, err := s.events.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	data := export.Dataset{
		Headers: []string{"id", "name", "classroom_id", "course_id", "teacher_id", "start_time", "end_time", "start_date", "end_date", "repeat_interval", "excluded_dates"},
	}
	for _, ev := range events {
		teacherID := ""
		if ev.TeacherID != nil {
			teacherID = *ev.TeacherID
		}
		data.Rows = append(data.Rows, map[string]string{
			"id":              ev.ID,
			"name":            ev.Name,
			"classroom_id":    ev.ClassroomID,
			"course_id":       ev.CourseID,
			"teacher_id":      teacherID,
			"start_time":      ev.StartTime,
			"end_time":        ev.EndTime,
			"start_date":      schedule.ISODate(ev.StartDate),
			"end_date":        schedule.ISODate(ev.EndDate),
			"repeat_interval": string(ev.RepeatInterval),
			"excluded_dates":  strings.Join(ev.ExcludedDates, " "),
		})
	}

	payload, err := s.csv.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

// ClassroomTimetable renders one classroom's week as a PDF sheet. The week is
// the Monday-to-Sunday span containing the given date.
func (s *ExportService) ClassroomTimetable(ctx context.Context, classroomID string, isoDate string) ([]byte, error) {
	room, err := s.classrooms.FindByID(ctx, classroomID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
	}

	anchor, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	monday := anchor.AddDate(0, 0, -((int(anchor.Weekday()) + 6) % 7))
	sunday := monday.AddDate(0, 0, 6)

	events, err := s.events.ListByClassroom(ctx, classroomID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classroom events")
	}

	grid := export.TimetableGrid{
		Title:   fmt.Sprintf("%s week of %s", room.Name, schedule.ISODate(monday)),
		Entries: map[string][]string{},
	}
	for d := 0; d < 7; d++ {
		day := monday.AddDate(0, 0, d)
		grid.Days = append(grid.Days, day.Format("Mon 02 Jan"))
	}

	for _, ev := range events {
		dates, err := schedule.Expand(ev, monday, sunday, s.holidays)
		if err != nil {
			s.logger.Warn("skipping malformed event", zap.String("event_id", ev.ID), zap.Error(err))
			continue
		}
		for _, d := range dates {
			label := d.Format("Mon 02 Jan")
			line := fmt.Sprintf("%s-%s %s", ev.StartTime[:5], ev.EndTime[:5], ev.Name)
			grid.Entries[label] = append(grid.Entries[label], line)
		}
	}

	payload, err := s.pdf.RenderTimetable(grid)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	return payload, nil
}
