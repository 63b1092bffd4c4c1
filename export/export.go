// Package export captures the analytics dashboard as a single PNG image.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fitdash/apperrors"
	"github.com/fitdash/notify"
	"github.com/fitdash/timespan"
)

const (
	FailureTitle   = "Error"
	FailureMessage = "Something went wrong while capturing the image"
)

// Request describes the dashboard to capture
type Request struct {
	ClientID string
	Range    timespan.DateRange
	// Location is the viewer's zone for the time of day chart
	Location *time.Location
}

// Filename is the attachment name offered for the capture
func (r Request) Filename() string {
	return fmt.Sprintf("fitness-analytics_%s_%s.png", r.Range.StartDate, r.Range.EndDate)
}

// Capturer produces a PNG of the dashboard
type Capturer interface {
	Name() string
	Capture(ctx context.Context, req Request) ([]byte, error)
}

// Recorder observes finished exports
type Recorder interface {
	ExportFinished(capturer, status string, size int)
}

// ErrBusy is returned when the client already has a capture running
var ErrBusy = apperrors.New(apperrors.ErrorTypeValidation, "EXPORT_IN_PROGRESS", "An export is already in progress")

// Exporter runs captures and reports failures to the client
type Exporter struct {
	capturer Capturer
	notifier *notify.Notifier
	recorder Recorder
	logger   *slog.Logger

	mu        sync.Mutex
	capturing map[string]bool
}

func NewExporter(capturer Capturer, notifier *notify.Notifier, recorder Recorder, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		capturer:  capturer,
		notifier:  notifier,
		recorder:  recorder,
		logger:    logger,
		capturing: make(map[string]bool),
	}
}

// Capturing reports whether clientID has a capture running
func (e *Exporter) Capturing(clientID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.capturing[clientID]
}

func (e *Exporter) begin(clientID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.capturing[clientID] {
		return false
	}
	e.capturing[clientID] = true
	return true
}

func (e *Exporter) finish(clientID string) {
	e.mu.Lock()
	delete(e.capturing, clientID)
	e.mu.Unlock()
}

// Export captures the dashboard for req. The capturing flag is cleared on
// every return path, panics included. A failed capture pushes a red
// notification for the client and returns a capture error.
func (e *Exporter) Export(ctx context.Context, req Request) (data []byte, err error) {
	if !e.begin(req.ClientID) {
		return nil, ErrBusy
	}
	start := time.Now()
	defer e.finish(req.ClientID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capture panicked: %v", r)
			data = nil
		}
		if err != nil {
			e.fail(ctx, req, err)
			err = apperrors.NewCaptureError(err)
			return
		}
		e.logger.InfoContext(ctx, "Dashboard captured",
			"capturer", e.capturer.Name(),
			"bytes", len(data),
			"duration", time.Since(start))
		if e.recorder != nil {
			e.recorder.ExportFinished(e.capturer.Name(), "success", len(data))
		}
	}()

	return e.capturer.Capture(ctx, req)
}

func (e *Exporter) fail(ctx context.Context, req Request, err error) {
	e.logger.ErrorContext(ctx, "Dashboard capture failed",
		"capturer", e.capturer.Name(),
		"client", req.ClientID,
		"error", err)
	if e.recorder != nil {
		e.recorder.ExportFinished(e.capturer.Name(), "error", 0)
	}
	if e.notifier != nil {
		e.notifier.Push(req.ClientID, notify.Notification{
			Color:   notify.Red,
			Title:   FailureTitle,
			Message: FailureMessage,
		})
	}
}
