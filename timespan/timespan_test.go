package timespan

import (
	"testing"
	"time"

	"github.com/fitdash/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 15, 4, 5, 0, time.UTC)
}

func TestResolveNamedRanges(t *testing.T) {
	now := date(2024, time.May, 15) // Wednesday

	tests := []struct {
		r     Range
		start string
	}{
		{Yesterday, "2024-05-14"},
		{Past7Days, "2024-05-08"},
		{Past30Days, "2024-04-15"},
		{Past6Months, "2023-11-15"},
		{Past12Months, "2023-05-15"},
		{ThisWeek, "2024-05-12"},
		{ThisMonth, "2024-05-01"},
		{ThisYear, "2024-01-01"},
		{AllTime, "0024-05-15"},
	}

	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			got := Resolve(Default().WithRange(tt.r), now)
			assert.Equal(t, tt.start, got.StartDate)
			assert.Equal(t, "2024-05-15", got.EndDate)
		})
	}
}

func TestResolveCustomKeepsDates(t *testing.T) {
	s, err := NewCustom("2024-01-01", "2024-01-31")
	require.NoError(t, err)

	got := Resolve(s, date(2030, time.June, 1))
	assert.Equal(t, DateRange{StartDate: "2024-01-01", EndDate: "2024-01-31"}, got)
}

func TestResolveCustomWithoutDatesFallsBackToToday(t *testing.T) {
	got := Resolve(Settings{Range: Custom}, date(2024, time.May, 15))
	assert.Equal(t, DateRange{StartDate: "2024-05-15", EndDate: "2024-05-15"}, got)
}

func TestStartNeverAfterEnd(t *testing.T) {
	day := date(2023, time.January, 1)
	for i := 0; i < 800; i++ {
		now := day.AddDate(0, 0, i)
		for _, r := range Ranges() {
			if r == Custom {
				continue
			}
			got := Resolve(Default().WithRange(r), now)
			require.LessOrEqual(t, got.StartDate, got.EndDate, "%s on %s", r, now.Format(DateLayout))
			require.Equal(t, now.Format(DateLayout), got.EndDate)
		}
	}
}

func TestThisWeekStartsOnSunday(t *testing.T) {
	sunday := date(2024, time.May, 12)
	start, ok := StartTime(ThisWeek, sunday)
	require.True(t, ok)
	assert.Equal(t, "2024-05-12", start.Format(DateLayout))

	saturday := date(2024, time.May, 18)
	start, _ = StartTime(ThisWeek, saturday)
	assert.Equal(t, "2024-05-12", start.Format(DateLayout))
}

func TestMonthArithmeticClampsDay(t *testing.T) {
	start, _ := StartTime(Past6Months, date(2024, time.August, 31))
	assert.Equal(t, "2024-02-29", start.Format(DateLayout))

	start, _ = StartTime(Past12Months, date(2024, time.February, 29))
	assert.Equal(t, "2023-02-28", start.Format(DateLayout))
}

func TestStartTimeCustom(t *testing.T) {
	_, ok := StartTime(Custom, date(2024, time.May, 15))
	assert.False(t, ok)
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("Past 12 Months")
	require.NoError(t, err)
	assert.Equal(t, Past12Months, r)

	_, err = ParseRange("Last Fortnight")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRangesMenuOrder(t *testing.T) {
	got := Ranges()
	require.Len(t, got, 10)
	assert.Equal(t, Yesterday, got[0])
	assert.Equal(t, Custom, got[9])

	got[0] = AllTime
	assert.Equal(t, Yesterday, Ranges()[0], "Ranges must return a copy")
}

func TestWithRangeClearsDates(t *testing.T) {
	s := Settings{Range: Custom, StartDate: "2024-01-01", EndDate: "2024-02-01"}
	assert.Equal(t, Settings{Range: ThisMonth}, s.WithRange(ThisMonth))
}

func TestNewCustomValidation(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
	}{
		{"unparsable start", "01/02/2024", "2024-02-01"},
		{"unparsable end", "2024-01-01", "tomorrow"},
		{"start after end", "2024-03-01", "2024-02-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCustom(tt.start, tt.end)
			assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
		})
	}

	s, err := NewCustom("2024-02-01", "2024-02-01")
	require.NoError(t, err)
	assert.Equal(t, Custom, s.Range)
}

func TestClockUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	clock := Clock{
		Location: loc,
		Now:      func() time.Time { return time.Date(2024, time.May, 15, 22, 0, 0, 0, time.UTC) },
	}

	assert.Equal(t, "2024-05-16", clock.Resolve(Default().WithRange(ThisMonth)).EndDate)
}

func TestClockZone(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	clock := Clock{Location: loc}

	assert.Equal(t, "America/St_Johns", clock.Zone("America/St_Johns").String())
	assert.Same(t, loc, clock.Zone(""))
	assert.Same(t, loc, clock.Zone("Mars/Olympus_Mons"))
	assert.Same(t, loc, clock.Zone("Local"))
}
