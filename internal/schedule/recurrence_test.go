package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduschedule/eduschedule-api/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testEvent(interval models.RepeatInterval, start, end time.Time) models.Event {
	return models.Event{
		ID:             "evt-1",
		Name:           "Linear Algebra",
		ClassroomID:    "room-1",
		StartTime:      "10:00:00",
		EndTime:        "11:00:00",
		StartDate:      start,
		EndDate:        end,
		RepeatInterval: interval,
	}
}

func TestExpandNone(t *testing.T) {
	ev := testEvent(models.RepeatNone, date(2024, time.April, 1), date(2024, time.April, 1))

	dates, err := Expand(ev, date(2024, time.April, 1), date(2024, time.April, 30), nil)
	require.NoError(t, err)
	require.Equal(t, []time.Time{date(2024, time.April, 1)}, dates)

	// Outside the requested range.
	dates, err = Expand(ev, date(2024, time.April, 2), date(2024, time.April, 30), nil)
	require.NoError(t, err)
	assert.Empty(t, dates)

	// Excluded single occurrence.
	ev.ExcludedDates = models.DateList{"2024-04-01"}
	dates, err = Expand(ev, date(2024, time.April, 1), date(2024, time.April, 30), nil)
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestExpandNoneFiresOnHoliday(t *testing.T) {
	ev := testEvent(models.RepeatNone, date(2024, time.May, 1), date(2024, time.May, 1))
	holiday := func(d time.Time) bool { return d.Equal(date(2024, time.May, 1)) }

	dates, err := Expand(ev, date(2024, time.May, 1), date(2024, time.May, 1), holiday)
	require.NoError(t, err)
	assert.Len(t, dates, 1, "one-off events are held even on holidays")
}

func TestExpandDailySkipsWeekends(t *testing.T) {
	ev := testEvent(models.RepeatDaily, date(2024, time.April, 1), date(2024, time.April, 30))

	dates, err := Expand(ev, date(2024, time.April, 1), date(2024, time.April, 30), nil)
	require.NoError(t, err)
	assert.Len(t, dates, 22, "April 2024 has 22 weekdays")
	for _, d := range dates {
		assert.NotEqual(t, time.Saturday, d.Weekday())
		assert.NotEqual(t, time.Sunday, d.Weekday())
	}
}

func TestExpandWeeklyPeriodicity(t *testing.T) {
	// 2024-04-01 is a Monday.
	ev := testEvent(models.RepeatWeekly, date(2024, time.April, 1), date(2024, time.April, 30))

	dates, err := Expand(ev, date(2024, time.April, 1), date(2024, time.April, 30), nil)
	require.NoError(t, err)
	require.Len(t, dates, 5)
	for i, d := range dates {
		assert.Equal(t, time.Monday, d.Weekday())
		if i > 0 {
			assert.Equal(t, 7*24*time.Hour, d.Sub(dates[i-1]))
		}
	}
}

func TestExpandWeeklyAnchorWeekdayFromMidRange(t *testing.T) {
	// Request range starts mid-week; occurrences must still land on the
	// anchor's weekday, not the range start's.
	ev := testEvent(models.RepeatWeekly, date(2024, time.April, 1), date(2024, time.April, 30))

	dates, err := Expand(ev, date(2024, time.April, 3), date(2024, time.April, 30), nil)
	require.NoError(t, err)
	require.Equal(t, []time.Time{
		date(2024, time.April, 8),
		date(2024, time.April, 15),
		date(2024, time.April, 22),
		date(2024, time.April, 29),
	}, dates)
}

func TestExpandMonthlyClampsShortMonths(t *testing.T) {
	ev := testEvent(models.RepeatMonthly, date(2024, time.January, 31), date(2024, time.April, 30))

	dates, err := Expand(ev, date(2024, time.January, 1), date(2024, time.December, 31), nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		date(2024, time.January, 31),
		date(2024, time.February, 29),
		date(2024, time.March, 31),
		date(2024, time.April, 30),
	}, dates)
}

func TestExpandYearly(t *testing.T) {
	ev := testEvent(models.RepeatYearly, date(2024, time.April, 1), date(2026, time.December, 31))

	dates, err := Expand(ev, date(2024, time.January, 1), date(2026, time.December, 31), nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		date(2024, time.April, 1),
		date(2025, time.April, 1),
		date(2026, time.April, 1),
	}, dates)
}

func TestExpandYearlyLeapDayAnchor(t *testing.T) {
	ev := testEvent(models.RepeatYearly, date(2024, time.February, 29), date(2027, time.December, 31))

	dates, err := Expand(ev, date(2024, time.January, 1), date(2027, time.December, 31), nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2024, time.February, 29)}, dates,
		"Feb 29 has no match in common years")
}

func TestExpandClipsToRequestedRange(t *testing.T) {
	ev := testEvent(models.RepeatDaily, date(2024, time.March, 1), date(2024, time.May, 31))

	from := date(2024, time.April, 10)
	to := date(2024, time.April, 20)
	dates, err := Expand(ev, from, to, nil)
	require.NoError(t, err)
	require.NotEmpty(t, dates)
	for _, d := range dates {
		assert.False(t, d.Before(from))
		assert.False(t, d.After(to))
	}
}

func TestExpandExclusionIdempotent(t *testing.T) {
	ev := testEvent(models.RepeatDaily, date(2024, time.April, 1), date(2024, time.April, 30))
	ev.ExcludedDates = models.DateList{"2024-04-03"}

	once, err := Expand(ev, date(2024, time.April, 1), date(2024, time.April, 30), nil)
	require.NoError(t, err)

	ev.ExcludedDates = models.DateList{"2024-04-03", "2024-04-03"}
	twice, err := Expand(ev, date(2024, time.April, 1), date(2024, time.April, 30), nil)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	for _, d := range once {
		assert.NotEqual(t, "2024-04-03", ISODate(d))
	}
}

func TestExpandHolidaySuppressesRepeating(t *testing.T) {
	ev := testEvent(models.RepeatDaily, date(2024, time.April, 1), date(2024, time.April, 30))
	holiday := func(d time.Time) bool { return d.Equal(date(2024, time.April, 12)) }

	dates, err := Expand(ev, date(2024, time.April, 1), date(2024, time.April, 30), holiday)
	require.NoError(t, err)
	assert.Len(t, dates, 21)
	for _, d := range dates {
		assert.NotEqual(t, "2024-04-12", ISODate(d))
	}
}

func TestExpandInvertedRequestRange(t *testing.T) {
	ev := testEvent(models.RepeatDaily, date(2024, time.April, 1), date(2024, time.April, 30))

	dates, err := Expand(ev, date(2024, time.April, 30), date(2024, time.April, 1), nil)
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestExpandMalformedEvent(t *testing.T) {
	ev := testEvent(models.RepeatDaily, date(2024, time.April, 30), date(2024, time.April, 1))
	_, err := Expand(ev, date(2024, time.April, 1), date(2024, time.April, 30), nil)
	assert.ErrorIs(t, err, ErrInvalidEventRange)

	ev = testEvent("fortnightly", date(2024, time.April, 1), date(2024, time.April, 30))
	_, err = Expand(ev, date(2024, time.April, 1), date(2024, time.April, 30), nil)
	assert.ErrorIs(t, err, ErrUnknownInterval)
}

func TestOccursOnMatchesExpand(t *testing.T) {
	ev := testEvent(models.RepeatWeekly, date(2024, time.April, 1), date(2024, time.April, 30))

	ok, err := OccursOn(ev, date(2024, time.April, 8), nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = OccursOn(ev, date(2024, time.April, 9), nil)
	require.NoError(t, err)
	assert.False(t, ok, "Tuesday does not match a Monday-anchored weekly event")

	_, err = OccursOn(testEvent("sometimes", date(2024, time.April, 1), date(2024, time.April, 1)), date(2024, time.April, 1), nil)
	assert.True(t, errors.Is(err, ErrUnknownInterval))
}
