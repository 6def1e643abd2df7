package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolidayCalendarYearIndependent(t *testing.T) {
	cal, err := NewHolidayCalendar([]string{"03-25", "05-01"})
	require.NoError(t, err)

	assert.True(t, cal.IsHoliday(date(2024, time.March, 25)))
	assert.True(t, cal.IsHoliday(date(2031, time.March, 25)))
	assert.False(t, cal.IsHoliday(date(2024, time.March, 26)))
}

func TestHolidayCalendarYearSpecific(t *testing.T) {
	cal, err := NewHolidayCalendar([]string{"2024-04-12"})
	require.NoError(t, err)

	assert.True(t, cal.IsHoliday(date(2024, time.April, 12)))
	assert.False(t, cal.IsHoliday(date(2025, time.April, 12)))
}

func TestHolidayCalendarMixedForms(t *testing.T) {
	cal, err := NewHolidayCalendar([]string{"01-01", "2024-06-17"})
	require.NoError(t, err)

	assert.True(t, cal.IsHoliday(date(2030, time.January, 1)))
	assert.True(t, cal.IsHoliday(date(2024, time.June, 17)))
	assert.False(t, cal.IsHoliday(date(2025, time.June, 17)))
}

func TestHolidayCalendarRejectsGarbage(t *testing.T) {
	for _, entry := range []string{"13-01", "2024-13-40", "next tuesday", "1-1"} {
		_, err := NewHolidayCalendar([]string{entry})
		assert.Error(t, err, "entry %q should be rejected", entry)
	}
}

func TestHolidayCalendarNilSafe(t *testing.T) {
	var cal *HolidayCalendar
	assert.False(t, cal.IsHoliday(date(2024, time.January, 1)))
}
