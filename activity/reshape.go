package activity

import (
	"strings"
	"time"
	"unicode"

	"github.com/fitdash/models"
	"github.com/fitdash/timespan"
)

// Category is one drawable activity series and its color
type Category struct {
	Name  string
	Color string
}

// MediaColors is the fixed series palette. Series are drawn in this order.
var MediaColors = []Category{
	{Name: "BOOK", Color: "#82c91e"},
	{Name: "MOVIE", Color: "#15aabf"},
	{Name: "SHOW", Color: "#fd7e14"},
	{Name: "VIDEO_GAME", Color: "#12b886"},
	{Name: "AUDIO_BOOK", Color: "#4c6ef5"},
	{Name: "PODCAST", Color: "#fab005"},
	{Name: "MANGA", Color: "#be4bdb"},
	{Name: "ANIME", Color: "#fa5252"},
	{Name: "VISUAL_NOVEL", Color: "#e64980"},
	{Name: "WORKOUT", Color: "#7950f2"},
	{Name: "MEASUREMENT", Color: "#228be6"},
}

// Bucket is one reshaped time bucket with only its non-zero values
type Bucket struct {
	Day    string
	Values map[string]float64
}

// Reshaped is the activity payload ready to chart
type Reshaped struct {
	Buckets       []Bucket
	Series        []Category
	GroupedBy     models.GroupedBy
	TotalCount    int64
	TotalDuration int64
}

// FieldName maps a wire field to its series name: the first "Count" and the
// first "total" are removed and the rest is converted to upper snake case.
//
//	audioBookCount -> AUDIO_BOOK
//	day            -> DAY
func FieldName(key string) string {
	key = strings.Replace(key, "Count", "", 1)
	key = strings.Replace(key, "total", "", 1)
	return strings.ToUpper(snakeCase(key))
}

func snakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteRune('_')
			}
			continue
		case unicode.IsUpper(r) && i > 0:
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				if !strings.HasSuffix(b.String(), "_") {
					b.WriteRune('_')
				}
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.Trim(b.String(), "_")
}

func isCategory(name string) bool {
	for _, c := range MediaColors {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Reshape drops zero values, renames fields and computes the presence set: a
// category is present iff at least one bucket has a non-zero value for it.
func Reshape(a models.DailyUserActivities) Reshaped {
	present := make(map[string]bool, len(MediaColors))
	buckets := make([]Bucket, 0, len(a.Items))

	for _, item := range a.Items {
		values := make(map[string]float64, len(item.Fields))
		for key, v := range item.Fields {
			if v == 0 {
				continue
			}
			name := FieldName(key)
			if name == "" {
				continue
			}
			values[name] = v
			if isCategory(name) {
				present[name] = true
			}
		}
		buckets = append(buckets, Bucket{Day: item.Day, Values: values})
	}

	var series []Category
	for _, c := range MediaColors {
		if present[c.Name] {
			series = append(series, c)
		}
	}

	return Reshaped{
		Buckets:       buckets,
		Series:        series,
		GroupedBy:     a.GroupedBy,
		TotalCount:    a.TotalCount,
		TotalDuration: a.TotalDuration,
	}
}

// TickLayout is the x axis label layout for a bucket granularity
func TickLayout(g models.GroupedBy) string {
	switch g {
	case models.GroupedByMonth:
		return "Jan"
	case models.GroupedByYear, models.GroupedByMillennium:
		return "2006"
	default:
		return "Jan 2"
	}
}

// FormatTick renders a bucket label. Labels that are not dates are returned
// unchanged.
func FormatTick(day string, g models.GroupedBy) string {
	for _, layout := range []string{timespan.DateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, day); err == nil {
			return t.Format(TickLayout(g))
		}
	}
	return day
}
