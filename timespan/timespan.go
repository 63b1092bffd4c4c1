package timespan

import (
	"fmt"
	"time"

	"github.com/fitdash/apperrors"
)

// DateLayout is the calendar date format sent to the backend
const DateLayout = "2006-01-02"

// Range is a named reporting period
type Range string

const (
	Yesterday    Range = "Yesterday"
	Past7Days    Range = "Past 7 Days"
	Past30Days   Range = "Past 30 Days"
	Past6Months  Range = "Past 6 Months"
	Past12Months Range = "Past 12 Months"
	ThisWeek     Range = "This Week"
	ThisMonth    Range = "This Month"
	ThisYear     Range = "This Year"
	AllTime      Range = "All Time"
	Custom       Range = "Custom"
)

// DefaultRange is used when nothing has been persisted yet
const DefaultRange = Past30Days

var ranges = []Range{
	Yesterday,
	Past7Days,
	Past30Days,
	Past6Months,
	Past12Months,
	ThisWeek,
	ThisMonth,
	ThisYear,
	AllTime,
	Custom,
}

// Ranges returns every range in menu order.
func Ranges() []Range {
	out := make([]Range, len(ranges))
	copy(out, ranges)
	return out
}

// ParseRange validates a range name coming from a form, a flag or storage.
func ParseRange(s string) (Range, error) {
	for _, r := range ranges {
		if string(r) == s {
			return r, nil
		}
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown time range %q", s)).
		WithContext("range", s)
}

func (r Range) String() string { return string(r) }

// Settings is the persisted time span choice. Named ranges carry no dates.
type Settings struct {
	Range     Range  `json:"range"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

func Default() Settings {
	return Settings{Range: DefaultRange}
}

// WithRange returns settings for a named range, discarding any custom dates.
func (s Settings) WithRange(r Range) Settings {
	return Settings{Range: r}
}

// IsCustom reports whether both explicit dates are present.
func (s Settings) IsCustom() bool {
	return s.StartDate != "" && s.EndDate != ""
}

// NewCustom validates a pair of calendar dates and returns custom settings
// that carry them verbatim.
func NewCustom(start, end string) (Settings, error) {
	startAt, err := time.Parse(DateLayout, start)
	if err != nil {
		return Settings{}, apperrors.NewValidationError("start date must be a YYYY-MM-DD date").
			WithContext("start_date", start)
	}
	endAt, err := time.Parse(DateLayout, end)
	if err != nil {
		return Settings{}, apperrors.NewValidationError("end date must be a YYYY-MM-DD date").
			WithContext("end_date", end)
	}
	if startAt.After(endAt) {
		return Settings{}, apperrors.NewValidationError("start date must not be after end date").
			WithContext("start_date", start).
			WithContext("end_date", end)
	}
	return Settings{Range: Custom, StartDate: start, EndDate: end}, nil
}

// DateRange is the resolved pair of dates for one request
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// StartTime returns the beginning of a named range relative to now. Custom has
// no computed start and reports false.
func StartTime(r Range, now time.Time) (time.Time, bool) {
	switch r {
	case Yesterday:
		return now.AddDate(0, 0, -1), true
	case ThisWeek:
		day := startOfDay(now)
		return day.AddDate(0, 0, -int(day.Weekday())), true
	case ThisMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), true
	case ThisYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), true
	case Past7Days:
		return now.AddDate(0, 0, -7), true
	case Past30Days:
		return now.AddDate(0, 0, -30), true
	case Past6Months:
		return addMonths(now, -6), true
	case Past12Months:
		return addMonths(now, -12), true
	case AllTime:
		return addMonths(now, -2000*12), true
	case Custom:
		return time.Time{}, false
	}
	return time.Time{}, false
}

// Resolve turns settings into concrete dates. Explicit dates win; otherwise the
// range start is computed and the end is today.
func Resolve(s Settings, now time.Time) DateRange {
	if s.IsCustom() {
		return DateRange{StartDate: s.StartDate, EndDate: s.EndDate}
	}
	start, ok := StartTime(s.Range, now)
	if !ok {
		start = now
	}
	return DateRange{
		StartDate: start.Format(DateLayout),
		EndDate:   now.Format(DateLayout),
	}
}

// Clock produces "now" in a fixed location.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{Location: loc, Now: time.Now}
}

// Today returns the current instant in the clock's location.
func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// Resolve resolves settings against the clock's current time.
func (c Clock) Resolve(s Settings) DateRange {
	return Resolve(s, c.Today())
}

// Zone loads the IANA zone a viewer reported. Unknown or empty names fall
// back to the clock's own location.
func (c Clock) Zone(name string) *time.Location {
	if name != "" && name != "Local" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// addMonths moves t by n calendar months, clamping the day to the last day of
// the target month (Aug 31 minus six months is Feb 28 or 29).
func addMonths(t time.Time, n int) time.Time {
	total := int(t.Month()) - 1 + n
	year := t.Year() + floorDiv(total, 12)
	month := time.Month(total - floorDiv(total, 12)*12 + 1)
	day := t.Day()
	if last := daysIn(year, month, t.Location()); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
