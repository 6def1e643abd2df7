package schedule

import (
	"fmt"
	"time"
)

// HolidayFunc reports whether a date is an institution-wide holiday.
// Repeating occurrences are suppressed on holidays; one-off events still fire.
type HolidayFunc func(date time.Time) bool

// HolidayCalendar is the single configured source of holiday dates. Entries
// are either year-independent ("MM-DD") or year-specific ("YYYY-MM-DD").
type HolidayCalendar struct {
	yearly map[string]struct{}
	exact  map[string]struct{}
}

// NewHolidayCalendar parses the configured entries. Unparseable entries are
// rejected so a typo cannot silently drop a holiday.
func NewHolidayCalendar(entries []string) (*HolidayCalendar, error) {
	cal := &HolidayCalendar{
		yearly: make(map[string]struct{}),
		exact:  make(map[string]struct{}),
	}
	for _, entry := range entries {
		switch len(entry) {
		case 5:
			if _, err := time.Parse("01-02", entry); err != nil {
				return nil, fmt.Errorf("invalid holiday entry %q: %w", entry, err)
			}
			cal.yearly[entry] = struct{}{}
		case 10:
			if _, err := time.Parse("2006-01-02", entry); err != nil {
				return nil, fmt.Errorf("invalid holiday entry %q: %w", entry, err)
			}
			cal.exact[entry] = struct{}{}
		default:
			return nil, fmt.Errorf("invalid holiday entry %q: want MM-DD or YYYY-MM-DD", entry)
		}
	}
	return cal, nil
}

// IsHoliday reports whether the date matches a configured holiday.
func (c *HolidayCalendar) IsHoliday(date time.Time) bool {
	if c == nil {
		return false
	}
	if _, ok := c.yearly[date.Format("01-02")]; ok {
		return true
	}
	_, ok := c.exact[date.Format("2006-01-02")]
	return ok
}

// Func adapts the calendar to the HolidayFunc the engine consumes.
func (c *HolidayCalendar) Func() HolidayFunc {
	return c.IsHoliday
}
