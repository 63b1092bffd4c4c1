package activity

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// compactSuffix maps SI prefixes to the en-US compact notation letters
var compactSuffix = map[string]string{
	"":  "",
	"k": "K",
	"M": "M",
	"G": "B",
	"T": "T",
}

var nextPrefix = map[string]string{"": "k", "k": "M", "M": "G", "G": "T"}

// CompactNumber formats n like en-US compact notation: 999, 1.2K, 12K, 3.4M.
func CompactNumber(n int64) string {
	if n < 0 {
		return "-" + CompactNumber(-n)
	}
	value, prefix := humanize.ComputeSI(float64(n))
	if _, ok := compactSuffix[prefix]; !ok {
		return strconv.FormatInt(n, 10)
	}

	rounded := roundCompact(value)
	if rounded >= 1000 {
		if next, ok := nextPrefix[prefix]; ok {
			prefix = next
			rounded = roundCompact(rounded / 1000)
		}
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64) + compactSuffix[prefix]
}

// values below 10 keep one decimal, the rest are whole
func roundCompact(v float64) float64 {
	if v < 10 {
		return math.Round(v*10) / 10
	}
	return math.Round(v)
}

// FormatItems is the "Total" statistic
func FormatItems(n int64) string {
	return CompactNumber(n) + " items"
}

type durationUnit struct {
	name    string
	minutes float64
}

var durationUnits = []durationUnit{
	{"year", 365.25 * 24 * 60},
	{"month", 365.25 * 24 * 60 / 12},
	{"week", 7 * 24 * 60},
	{"day", 24 * 60},
	{"hour", 60},
	{"minute", 1},
}

// FormatDuration humanizes a number of minutes using its two largest non-zero
// units, e.g. "2 months, 3 days". Smaller remainders are dropped.
func FormatDuration(minutes int64) string {
	if minutes <= 0 {
		return "0 minutes"
	}
	remaining := float64(minutes)
	parts := make([]string, 0, 2)
	for _, unit := range durationUnits {
		if len(parts) == 2 {
			break
		}
		n := math.Floor(remaining / unit.minutes)
		if n < 1 {
			continue
		}
		remaining -= n * unit.minutes
		parts = append(parts, plural(int64(n), unit.name))
	}
	return strings.Join(parts, ", ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
