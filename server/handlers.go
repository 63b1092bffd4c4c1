package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/fitdash/apperrors"
	"github.com/fitdash/charts"
	"github.com/fitdash/export"
	"github.com/fitdash/notify"
	"github.com/fitdash/query"
	"github.com/fitdash/templates"
	"github.com/fitdash/timespan"
)

// timeSpan loads the client's settings and resolves them for this request
func (s *Server) timeSpan(ctx context.Context, clientID string) (timespan.Settings, timespan.DateRange) {
	settings, err := s.deps.Settings.TimeSpan(ctx, clientID)
	if err != nil {
		s.errors.Handle(ctx, err)
	}
	return settings, s.deps.Clock.Resolve(settings)
}

// location is the viewer's time zone as reported by the page script, falling
// back to the configured zone.
func (s *Server) location(r *http.Request) *time.Location {
	c, err := r.Cookie(templates.ZoneCookie)
	if err != nil {
		return s.deps.Clock.Zone("")
	}
	name, err := url.QueryUnescape(c.Value)
	if err != nil {
		return s.deps.Clock.Zone("")
	}
	return s.deps.Clock.Zone(name)
}

func (s *Server) dashboard() Dashboard {
	return Dashboard{Charts: s.deps.Charts, Activity: s.deps.Activity}
}

// render flushes pending notifications into HX-Trigger and serves c
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	if isHTMXRequest(r) {
		if err := s.deps.Notifier.Flush(w, ClientID(r.Context())); err != nil {
			s.logger.WarnContext(r.Context(), "Failed to encode notifications", "error", err)
		}
	}
	templ.Handler(c, templ.WithStatus(status), templ.WithErrorHandler(s.renderError)).ServeHTTP(w, r)
}

func (s *Server) renderError(r *http.Request, err error) http.Handler {
	s.logger.ErrorContext(r.Context(), "Failed to render component", "error", err)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	})
}

// fail reports err to the client. Input errors become a yellow notification,
// everything else a red one.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	s.errors.Handle(ctx, err)

	status := http.StatusInternalServerError
	note := notify.Notification{Color: notify.Red, Title: "Error", Message: "Something went wrong"}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus()
		if appErr.Type == apperrors.ErrorTypeValidation {
			note = notify.Notification{Color: notify.Yellow, Title: "Invalid input", Message: appErr.Message}
		}
	}
	if appErr == nil || appErr.Type != apperrors.ErrorTypeCapture {
		// the exporter already queued its own notification
		s.deps.Notifier.Push(ClientID(ctx), note)
	}

	if !isHTMXRequest(r) {
		http.Redirect(w, r, "/analytics", http.StatusSeeOther)
		return
	}
	if err := s.deps.Notifier.Flush(w, ClientID(ctx)); err != nil {
		s.logger.WarnContext(ctx, "Failed to encode notifications", "error", err)
	}
	w.WriteHeader(status)
}

// saved finishes a settings change: htmx refreshes the page, plain forms are
// redirected back to it.
func (s *Server) saved(w http.ResponseWriter, r *http.Request) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/analytics", http.StatusSeeOther)
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/analytics", http.StatusFound)
}

func (s *Server) analyticsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientID := ClientID(ctx)
	settings, dr := s.timeSpan(ctx, clientID)

	// cached data renders right away, the rest loads when revealed
	views := s.dashboard().Views(ctx, clientID, dr, query.Inactive, s.location(r))

	page := templates.AnalyticsPage{
		Title:         templates.PageTitle,
		Settings:      settings,
		Resolved:      dr,
		Ranges:        timespan.Ranges(),
		Charts:        views,
		Activity:      s.deps.Activity.View(ctx, dr, query.Inactive),
		Capturing:     s.deps.Exporter != nil && s.deps.Exporter.Capturing(clientID),
		Notifications: s.deps.Notifier.Drain(clientID),
	}
	s.render(w, r, http.StatusOK, templates.Analytics(page))
}

func (s *Server) rangeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, apperrors.NewValidationError("Failed to parse form data"))
		return
	}
	rng, err := timespan.ParseRange(r.FormValue("range"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rng == timespan.Custom {
		s.fail(w, r, apperrors.NewValidationError("Pick a start and end date for a custom range"))
		return
	}

	current, _ := s.timeSpan(ctx, ClientID(ctx))
	if err := s.deps.Settings.SetTimeSpan(ctx, ClientID(ctx), current.WithRange(rng)); err != nil {
		s.fail(w, r, err)
		return
	}
	s.saved(w, r)
}

func (s *Server) customRangeHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		s.fail(w, r, apperrors.NewValidationError("Failed to parse form data"))
		return
	}
	custom, err := timespan.NewCustom(r.FormValue("startDate"), r.FormValue("endDate"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.deps.Settings.SetTimeSpan(ctx, ClientID(ctx), custom); err != nil {
		s.fail(w, r, err)
		return
	}
	s.saved(w, r)
}

func (s *Server) container(w http.ResponseWriter, r *http.Request) (*charts.Container, bool) {
	c, ok := s.charts[r.PathValue("slug")]
	if !ok {
		http.NotFound(w, r)
	}
	return c, ok
}

func (s *Server) chartHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := s.container(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	clientID := ClientID(ctx)
	_, dr := s.timeSpan(ctx, clientID)

	view := c.View(ctx, clientID, dr, query.Active, s.location(r))
	s.render(w, r, http.StatusOK, templates.ChartCard(view))
}

func (s *Server) countHandler(w http.ResponseWriter, r *http.Request) {
	c, ok := s.container(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	clientID := ClientID(ctx)

	if err := r.ParseForm(); err != nil {
		s.fail(w, r, apperrors.NewValidationError("Failed to parse form data"))
		return
	}
	n, err := strconv.Atoi(r.FormValue("count"))
	if err != nil {
		s.fail(w, r, apperrors.NewValidationError(fmt.Sprintf("Count must be a whole number, got %q", r.FormValue("count"))))
		return
	}

	_, dr := s.timeSpan(ctx, clientID)
	if _, err := c.SetCount(ctx, clientID, dr, n); err != nil {
		s.fail(w, r, err)
		return
	}
	view := c.View(ctx, clientID, dr, query.Active, s.location(r))
	s.render(w, r, http.StatusOK, templates.ChartCard(view))
}

func (s *Server) activityHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, dr := s.timeSpan(ctx, ClientID(ctx))
	s.render(w, r, http.StatusOK, templates.ActivitySection(s.deps.Activity.View(ctx, dr, query.Active)))
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.deps.Exporter == nil {
		http.Error(w, "Export is not configured", http.StatusNotImplemented)
		return
	}
	clientID := ClientID(ctx)
	_, dr := s.timeSpan(ctx, clientID)

	req := export.Request{ClientID: clientID, Range: dr, Location: s.location(r)}
	data, err := s.deps.Exporter.Export(ctx, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		s.logger.WarnContext(ctx, "Failed to write export", "error", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
