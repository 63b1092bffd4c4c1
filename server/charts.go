package server

import (
	"context"
	"time"

	"github.com/fitdash/activity"
	"github.com/fitdash/charts"
	"github.com/fitdash/export"
	"github.com/fitdash/query"
	"github.com/fitdash/timespan"
)

// Dashboard is the ordered set of charts on the analytics page
type Dashboard struct {
	Charts   []*charts.Container
	Activity *activity.Section
}

// NewDashboard builds one container per adapter, all sharing deps
func NewDashboard(adapters []charts.Adapter, deps charts.ContainerDeps, section *activity.Section) Dashboard {
	containers := make([]*charts.Container, 0, len(adapters))
	for _, a := range adapters {
		containers = append(containers, charts.NewContainer(a, deps))
	}
	return Dashboard{Charts: containers, Activity: section}
}

// Views resolves every card for one request. Preferences are loaded once
// and shared by all cards.
func (d Dashboard) Views(ctx context.Context, clientID string, dr timespan.DateRange, active query.Activation, loc *time.Location) []charts.ChartView {
	if len(d.Charts) == 0 {
		return nil
	}
	prefs := d.Charts[0].Preferences(ctx)
	views := make([]charts.ChartView, 0, len(d.Charts))
	for _, c := range d.Charts {
		views = append(views, c.ViewWith(ctx, prefs, clientID, dr, active, loc))
	}
	return views
}

// Snapshot collects what the dashboard shows for a capture. Hidden charts are
// left out, charts without data become empty tiles and a chart that failed to
// load fails the capture.
func (d Dashboard) Snapshot(ctx context.Context, req export.Request) (export.Snapshot, error) {
	var snap export.Snapshot
	for _, view := range d.Views(ctx, req.ClientID, req.Range, query.Active, req.Location) {
		switch view.State {
		case charts.StateReady, charts.StateEmpty:
			snap.Charts = append(snap.Charts, view.Projection)
		case charts.StateError:
			return snap, view.Err
		}
	}

	if d.Activity == nil {
		return snap, nil
	}
	act := d.Activity.View(ctx, req.Range, query.Active)
	switch act.State {
	case charts.StateReady:
		snap.Activity = &act.Data
	case charts.StateEmpty:
		empty := activity.Reshaped{}.ChartData()
		snap.Activity = &empty
	case charts.StateError:
		return snap, act.Err
	}
	return snap, nil
}
