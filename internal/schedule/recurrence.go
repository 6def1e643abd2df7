package schedule

import (
	"fmt"
	"time"

	"github.com/eduschedule/eduschedule-api/internal/models"
)

// Expand produces every calendar date in [max(event start, from),
// min(event end, to)] on which the event occurs, honoring the excluded-date
// list and holiday suppression, ascending and duplicate-free.
//
// Rules per interval:
//   - none: the start date only; holidays do not suppress one-off events.
//   - daily: every date except Saturdays and Sundays.
//   - weekly: dates sharing the start date's weekday.
//   - monthly: the start date's day-of-month, clamped to the last day of
//     shorter months.
//   - yearly: dates sharing the start date's (month, day).
//
// An inverted request range yields an empty result. An inverted event range
// or unknown interval is a malformed event and yields an error.
func Expand(ev models.Event, from, to time.Time, isHoliday HolidayFunc) ([]time.Time, error) {
	if !ev.RepeatInterval.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInterval, ev.RepeatInterval)
	}

	start := DateOnly(ev.StartDate)
	end := DateOnly(ev.EndDate)
	if end.Before(start) {
		return nil, ErrInvalidEventRange
	}

	from = DateOnly(from)
	to = DateOnly(to)
	if to.Before(from) {
		return nil, nil
	}

	if isHoliday == nil {
		isHoliday = func(time.Time) bool { return false }
	}

	lo := start
	if from.After(lo) {
		lo = from
	}
	hi := end
	if to.Before(hi) {
		hi = to
	}
	if hi.Before(lo) {
		return nil, nil
	}

	keep := func(d time.Time) bool {
		if ev.ExcludedDates.Contains(ISODate(d)) {
			return false
		}
		return !isHoliday(d)
	}

	var dates []time.Time
	switch ev.RepeatInterval {
	case models.RepeatNone:
		// Holiday suppression does not apply: a one-off event scheduled on
		// a holiday is still held.
		if !start.Before(lo) && !start.After(hi) && !ev.ExcludedDates.Contains(ISODate(start)) {
			dates = append(dates, start)
		}

	case models.RepeatDaily:
		for d := lo; !d.After(hi); d = d.AddDate(0, 0, 1) {
			if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
			if keep(d) {
				dates = append(dates, d)
			}
		}

	case models.RepeatWeekly:
		offset := (int(start.Weekday()) - int(lo.Weekday()) + 7) % 7
		for d := lo.AddDate(0, 0, offset); !d.After(hi); d = d.AddDate(0, 0, 7) {
			if keep(d) {
				dates = append(dates, d)
			}
		}

	case models.RepeatMonthly:
		for cursor := time.Date(lo.Year(), lo.Month(), 1, 0, 0, 0, 0, time.UTC); !cursor.After(hi); cursor = cursor.AddDate(0, 1, 0) {
			day := start.Day()
			if last := lastDayOfMonth(cursor); day > last {
				day = last
			}
			d := time.Date(cursor.Year(), cursor.Month(), day, 0, 0, 0, 0, time.UTC)
			if d.Before(lo) || d.After(hi) {
				continue
			}
			if keep(d) {
				dates = append(dates, d)
			}
		}

	case models.RepeatYearly:
		for year := lo.Year(); year <= hi.Year(); year++ {
			d := time.Date(year, start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
			// Feb 29 anchors normalize to Mar 1 in common years; no such
			// year has a matching (month, day), so skip it.
			if d.Month() != start.Month() || d.Day() != start.Day() {
				continue
			}
			if d.Before(lo) || d.After(hi) {
				continue
			}
			if keep(d) {
				dates = append(dates, d)
			}
		}
	}

	return dates, nil
}

// OccursOn is the single-date projection of Expand. Both the conflict
// validator and the agenda view answer "does this event happen on this day"
// through this one predicate.
func OccursOn(ev models.Event, date time.Time, isHoliday HolidayFunc) (bool, error) {
	dates, err := Expand(ev, date, date, isHoliday)
	if err != nil {
		return false, err
	}
	return len(dates) > 0, nil
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}
