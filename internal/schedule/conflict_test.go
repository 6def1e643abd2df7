package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduschedule/eduschedule-api/internal/models"
)

// Fixtures mirror the reference bookings: a one-off, a daily series and a
// weekly series, each owning a different room during April 2024.
func fixtureOneOff() models.Event {
	return models.Event{
		ID:             "evt-a",
		Name:           "Thesis Defense",
		ClassroomID:    "room-1",
		StartTime:      "08:00:00",
		EndTime:        "09:00:00",
		StartDate:      date(2024, time.April, 1),
		EndDate:        date(2024, time.April, 1),
		RepeatInterval: models.RepeatNone,
	}
}

func fixtureDaily() models.Event {
	return models.Event{
		ID:             "evt-b",
		Name:           "Calculus I",
		ClassroomID:    "room-2",
		StartTime:      "10:00:00",
		EndTime:        "11:00:00",
		StartDate:      date(2024, time.April, 1),
		EndDate:        date(2024, time.April, 30),
		RepeatInterval: models.RepeatDaily,
	}
}

func fixtureWeekly() models.Event {
	// Anchored on a Monday.
	return models.Event{
		ID:             "evt-c",
		Name:           "Physics Lab",
		ClassroomID:    "room-3",
		StartTime:      "12:00:00",
		EndTime:        "13:00:00",
		StartDate:      date(2024, time.April, 1),
		EndDate:        date(2024, time.April, 30),
		RepeatInterval: models.RepeatWeekly,
	}
}

func candidate(interval models.RepeatInterval, start, end time.Time, startTime, endTime string) models.Event {
	return models.Event{
		Name:           "Candidate Booking",
		StartTime:      startTime,
		EndTime:        endTime,
		StartDate:      start,
		EndDate:        end,
		RepeatInterval: interval,
	}
}

func TestValidateBackToBackIsFree(t *testing.T) {
	v := NewValidator(nil)
	c := candidate(models.RepeatNone, date(2024, time.April, 1), date(2024, time.April, 1), "09:00:00", "10:00:00")
	assert.NoError(t, v.Validate(c, []models.Event{fixtureOneOff()}))
}

func TestValidateOverlapConflicts(t *testing.T) {
	v := NewValidator(nil)
	c := candidate(models.RepeatNone, date(2024, time.April, 1), date(2024, time.April, 1), "08:30:00", "10:00:00")

	err := v.Validate(c, []models.Event{fixtureOneOff()})
	require.Error(t, err)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, date(2024, time.April, 1), conflict.Date)
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, "Thesis Defense", conflict.Conflicts[0].Name)
	assert.Equal(t, "08:00:00", conflict.Conflicts[0].StartTime)
	assert.Equal(t, "09:00:00", conflict.Conflicts[0].EndTime)
	assert.Contains(t, err.Error(), "Thesis Defense")
}

func TestValidateDailyVsDaily(t *testing.T) {
	v := NewValidator(nil)

	// Overlapping date ranges, identical times.
	c := candidate(models.RepeatDaily, date(2024, time.April, 3), date(2024, time.May, 9), "10:00:00", "11:00:00")
	assert.Error(t, v.Validate(c, []models.Event{fixtureDaily()}))

	// Ranges touch but times only meet at the boundary.
	c = candidate(models.RepeatNone, date(2024, time.April, 11), date(2024, time.April, 11), "09:00:00", "10:00:00")
	assert.NoError(t, v.Validate(c, []models.Event{fixtureDaily()}))
}

func TestValidateDailySkipsWeekendCandidates(t *testing.T) {
	v := NewValidator(nil)

	// 2024-04-06 is a Saturday; the daily series never fires there.
	c := candidate(models.RepeatNone, date(2024, time.April, 6), date(2024, time.April, 6), "10:00:00", "11:00:00")
	assert.NoError(t, v.Validate(c, []models.Event{fixtureDaily()}))
}

func TestValidateWeeklyMatchesWeekdayOnly(t *testing.T) {
	v := NewValidator(nil)

	// Tuesday in the same week: the weekly series does not occur.
	c := candidate(models.RepeatNone, date(2024, time.April, 2), date(2024, time.April, 2), "12:00:00", "13:00:00")
	assert.NoError(t, v.Validate(c, []models.Event{fixtureWeekly()}))

	// The following Monday: both series fire, same time window.
	c = candidate(models.RepeatWeekly, date(2024, time.April, 8), date(2024, time.April, 30), "12:00:00", "13:00:00")
	assert.Error(t, v.Validate(c, []models.Event{fixtureWeekly()}))
}

func TestValidateNoSelfConflict(t *testing.T) {
	v := NewValidator(nil)

	// Re-validating an unmodified event against a set that still carries its
	// prior version must not conflict with itself.
	existing := fixtureOneOff()
	unchanged := fixtureOneOff()
	assert.NoError(t, v.Validate(unchanged, []models.Event{existing}))

	// Same booking moved onto its own old slot with a wider window.
	moved := fixtureOneOff()
	moved.StartTime = "08:30:00"
	moved.EndTime = "10:00:00"
	assert.NoError(t, v.Validate(moved, []models.Event{existing}))
}

func TestValidateConflictIsSymmetric(t *testing.T) {
	v := NewValidator(nil)

	x := fixtureDaily()
	y := candidate(models.RepeatDaily, date(2024, time.April, 3), date(2024, time.May, 9), "10:30:00", "11:30:00")
	y.ID = "evt-y"

	assert.Error(t, v.Validate(y, []models.Event{x}))
	assert.Error(t, v.Validate(x, []models.Event{y}))
}

func TestValidateExistingPairConflicts(t *testing.T) {
	v := NewValidator(nil)

	// The candidate's own slot is clear, but the room already holds two
	// overlapping bookings. The full bucket check must still fail.
	first := fixtureDaily()
	second := fixtureDaily()
	second.ID = "evt-b2"
	second.Name = "Calculus II"
	second.StartTime = "10:30:00"
	second.EndTime = "11:30:00"

	c := candidate(models.RepeatNone, date(2024, time.April, 1), date(2024, time.April, 1), "08:00:00", "09:00:00")
	err := v.Validate(c, []models.Event{first, second})
	require.Error(t, err)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, date(2024, time.April, 1), conflict.Date)
	require.Len(t, conflict.Conflicts, 1)
	assert.Contains(t, []string{"Calculus I", "Calculus II"}, conflict.Conflicts[0].Name)
}

func TestValidateCandidateConflictNamesExistingBooking(t *testing.T) {
	v := NewValidator(nil)

	c := candidate(models.RepeatNone, date(2024, time.April, 1), date(2024, time.April, 1), "10:30:00", "11:30:00")
	err := v.Validate(c, []models.Event{fixtureDaily()})
	require.Error(t, err)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, "Calculus I", conflict.Conflicts[0].Name)
	assert.NotContains(t, err.Error(), "Candidate Booking")
}

func TestValidateExcludedOccurrenceCannotConflict(t *testing.T) {
	v := NewValidator(nil)

	daily := fixtureDaily()
	daily.ExcludedDates = models.DateList{"2024-04-11"}

	c := candidate(models.RepeatNone, date(2024, time.April, 11), date(2024, time.April, 11), "10:00:00", "11:00:00")
	assert.NoError(t, v.Validate(c, []models.Event{daily}))

	// Any other day of the series still blocks.
	c = candidate(models.RepeatNone, date(2024, time.April, 10), date(2024, time.April, 10), "10:00:00", "11:00:00")
	assert.Error(t, v.Validate(c, []models.Event{daily}))
}

func TestValidateHolidaySuppressesSeries(t *testing.T) {
	holiday := func(d time.Time) bool { return d.Equal(date(2024, time.April, 12)) }
	v := NewValidator(holiday)

	// The daily series is suppressed on the holiday, so a one-off booking of
	// the slot goes through.
	c := candidate(models.RepeatNone, date(2024, time.April, 12), date(2024, time.April, 12), "10:00:00", "11:00:00")
	assert.NoError(t, v.Validate(c, []models.Event{fixtureDaily()}))
}

func TestValidateFailsFastOnFirstDate(t *testing.T) {
	v := NewValidator(nil)

	c := candidate(models.RepeatDaily, date(2024, time.April, 1), date(2024, time.April, 30), "10:30:00", "11:30:00")
	err := v.Validate(c, []models.Event{fixtureDaily()})
	require.Error(t, err)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, date(2024, time.April, 1), conflict.Date, "first overlapping date wins")
}

func TestValidateMalformedInput(t *testing.T) {
	v := NewValidator(nil)

	c := candidate(models.RepeatNone, date(2024, time.April, 1), date(2024, time.April, 1), "25:00:00", "26:00:00")
	err := v.Validate(c, nil)
	assert.ErrorIs(t, err, ErrMalformedTime)

	c = candidate(models.RepeatNone, date(2024, time.April, 2), date(2024, time.April, 1), "10:00:00", "11:00:00")
	assert.ErrorIs(t, v.Validate(c, nil), ErrInvalidEventRange)

	c = candidate("biweekly", date(2024, time.April, 1), date(2024, time.April, 1), "10:00:00", "11:00:00")
	assert.ErrorIs(t, v.Validate(c, nil), ErrUnknownInterval)
}
