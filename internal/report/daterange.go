package report

import (
	"fmt"
	"time"

	"github.com/paybazaar/retailer-portal/internal/apperr"
)

// DateLayout is the wire format of start_date and end_date
const DateLayout = "2006-01-02"

// MaxRangeDays is the widest allowed filter window
const MaxRangeDays = 365

var (
	ErrStartInFuture = apperr.Validation("start_in_future", "Start date cannot be in the future")
	ErrEndInFuture   = apperr.Validation("end_in_future", "End date cannot be in the future")
	ErrStartAfterEnd = apperr.Validation("start_after_end", "Start date cannot be after end date")
	ErrRangeTooLong  = apperr.Validation("range_too_long", "Date range cannot exceed 365 days")
)

// DateRange is an inclusive range of calendar days. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses optional YYYY-MM-DD bounds as days in loc
func ParseDateRange(start, end string, loc *time.Location) (DateRange, error) {
	var r DateRange
	var err error
	if start != "" {
		if r.Start, err = time.ParseInLocation(DateLayout, start, loc); err != nil {
			return DateRange{}, apperr.Validation("invalid_start_date", fmt.Sprintf("Invalid start date %q", start))
		}
	}
	if end != "" {
		if r.End, err = time.ParseInLocation(DateLayout, end, loc); err != nil {
			return DateRange{}, apperr.Validation("invalid_end_date", fmt.Sprintf("Invalid end date %q", end))
		}
	}
	return r, nil
}

// IsZero reports whether both bounds are blank
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Validate checks the range against today. Each violated rule has its own error.
func (r DateRange) Validate(today time.Time) error {
	t := dayNumber(today)
	if !r.Start.IsZero() && dayNumber(r.Start) > t {
		return ErrStartInFuture
	}
	if !r.End.IsZero() && dayNumber(r.End) > t {
		return ErrEndInFuture
	}
	if !r.Start.IsZero() && !r.End.IsZero() {
		s, e := dayNumber(r.Start), dayNumber(r.End)
		if s > e {
			return ErrStartAfterEnd
		}
		if e-s > MaxRangeDays {
			return ErrRangeTooLong
		}
	}
	return nil
}

// Contains reports whether ts falls on a day inside the range, judged in loc
func (r DateRange) Contains(ts time.Time, loc *time.Location) bool {
	d := dayNumber(ts.In(loc))
	if !r.Start.IsZero() && d < dayNumber(r.Start) {
		return false
	}
	if !r.End.IsZero() && d > dayNumber(r.End) {
		return false
	}
	return true
}

// Params renders the bounds as backend query values
func (r DateRange) Params() (start, end string) {
	if !r.Start.IsZero() {
		start = r.Start.Format(DateLayout)
	}
	if !r.End.IsZero() {
		end = r.End.Format(DateLayout)
	}
	return start, end
}

// Today returns midnight of now's calendar day in loc
func Today(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// dayNumber counts calendar days using the wall-clock date of t
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
