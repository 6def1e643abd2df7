package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/eduschedule/eduschedule-api/internal/models"
)

// OccurrenceConflict identifies one booking that overlaps the conflicting
// occurrence: which event, on which date, over which time window.
type OccurrenceConflict struct {
	EventID   string `json:"event_id,omitempty"`
	Name      string `json:"name"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// ConflictError reports the first date on which the classroom is
// double-booked. It is a recoverable validation failure, never fatal.
type ConflictError struct {
	Date      time.Time            `json:"date"`
	Conflicts []OccurrenceConflict `json:"conflicts"`
}

// Error renders a message suitable for direct display to the booking user.
func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		parts[i] = fmt.Sprintf("%s at %s - %s", c.Name, c.StartTime, c.EndTime)
	}
	return fmt.Sprintf("classroom is not available on %s; booked by: %s",
		ISODate(e.Date), strings.Join(parts, ", "))
}

// Validator checks a candidate booking against the other events of the same
// classroom. It holds only the injected holiday predicate and is safe for
// concurrent use.
type Validator struct {
	isHoliday HolidayFunc
}

// NewValidator constructs a Validator with the given holiday predicate,
// which may be nil.
func NewValidator(isHoliday HolidayFunc) *Validator {
	return &Validator{isHoliday: isHoliday}
}

// OccursOn reports whether the event fires on the given date under the
// validator's holiday predicate.
func (v *Validator) OccursOn(ev models.Event, date time.Time) (bool, error) {
	return OccursOn(ev, date, v.isHoliday)
}

type occupancy struct {
	eventID   string
	name      string
	startTime string
	endTime   string
	startSec  int
	endSec    int
}

// Validate materializes every occurrence of the candidate and the existing
// events within the candidate's date span, buckets them by calendar date and
// checks every occupancy in a bucket against every other one. A bucket
// holding two overlapping existing bookings fails too, not just overlaps
// involving the candidate. It fails fast with a *ConflictError on the first
// conflicting date in ascending order; the candidate is expanded first, so
// its own conflicts name the existing counterpart bookings.
//
// existing must hold every event booked in the candidate's classroom other
// than the candidate itself; events sharing the candidate's id are skipped
// defensively so re-validating an update never conflicts with its own prior
// version. Occurrences cancelled via excluded dates are not expanded and so
// cannot conflict.
func (v *Validator) Validate(candidate models.Event, existing []models.Event) error {
	start := DateOnly(candidate.StartDate)
	end := DateOnly(candidate.EndDate)
	if !candidate.RepeatInterval.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownInterval, candidate.RepeatInterval)
	}
	if end.Before(start) {
		return ErrInvalidEventRange
	}

	days := int(end.Sub(start).Hours()/24) + 1
	buckets := make([][]occupancy, days)

	add := func(ev models.Event) error {
		startSec, err := parseTimeOfDay(ev.StartTime)
		if err != nil {
			return fmt.Errorf("event %q: %w", ev.Name, err)
		}
		endSec, err := parseTimeOfDay(ev.EndTime)
		if err != nil {
			return fmt.Errorf("event %q: %w", ev.Name, err)
		}
		dates, err := Expand(ev, start, end, v.isHoliday)
		if err != nil {
			return fmt.Errorf("expand event %q: %w", ev.Name, err)
		}
		for _, d := range dates {
			idx := int(d.Sub(start).Hours() / 24)
			buckets[idx] = append(buckets[idx], occupancy{
				eventID:   ev.ID,
				name:      ev.Name,
				startTime: ev.StartTime,
				endTime:   ev.EndTime,
				startSec:  startSec,
				endSec:    endSec,
			})
		}
		return nil
	}

	if err := add(candidate); err != nil {
		return err
	}
	for _, ev := range existing {
		if candidate.ID != "" && ev.ID == candidate.ID {
			continue
		}
		if err := add(ev); err != nil {
			return err
		}
	}

	for idx, bucket := range buckets {
		for i, occ := range bucket {
			var overlapping []OccurrenceConflict
			for j, other := range bucket {
				if j == i {
					continue
				}
				if other.startSec < occ.endSec && other.endSec > occ.startSec {
					overlapping = append(overlapping, OccurrenceConflict{
						EventID:   other.eventID,
						Name:      other.name,
						Date:      ISODate(start.AddDate(0, 0, idx)),
						StartTime: other.startTime,
						EndTime:   other.endTime,
					})
				}
			}
			if len(overlapping) > 0 {
				return &ConflictError{
					Date:      start.AddDate(0, 0, idx),
					Conflicts: overlapping,
				}
			}
		}
	}

	return nil
}
