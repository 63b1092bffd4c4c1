// Package templates holds the templ components of the dashboard. Run
// `templ generate` after editing a .templ file.
package templates

//go:generate templ generate

import (
	"github.com/fitdash/activity"
	"github.com/fitdash/charts"
	"github.com/fitdash/notify"
	"github.com/fitdash/timespan"
)

// PageTitle is the document title of the analytics page
const PageTitle = "Fitness Analytics | Fitdash"

// ZoneCookie carries the browser's IANA time zone name. The page sets it on
// load.
const ZoneCookie = "fitdash_tz"

const activityURL = "/analytics/activity"

// AnalyticsPage is the data of the full dashboard page
type AnalyticsPage struct {
	Title         string
	Settings      timespan.Settings
	Resolved      timespan.DateRange
	Ranges        []timespan.Range
	Charts        []charts.ChartView
	Activity      activity.View
	Capturing     bool
	Notifications []notify.Notification
}

func (p AnalyticsPage) title() string {
	if p.Title == "" {
		return PageTitle
	}
	return p.Title
}

func chartURL(slug string) string {
	return "/analytics/charts/" + slug
}

func busy(capturing bool) string {
	if capturing {
		return "true"
	}
	return "false"
}
