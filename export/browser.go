package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"golang.org/x/image/draw"
)

const (
	DashboardSelector     = "#dashboard"
	DefaultBrowserTimeout = 30 * time.Second
	DefaultMaxSide        = 2000
)

// BrowserOptions configures a BrowserCapturer
type BrowserOptions struct {
	// DebugURL is a Chrome DevTools websocket endpoint. When empty a local
	// headless Chrome is started.
	DebugURL string
	// PageURL is the dashboard address the browser loads
	PageURL    string
	CookieName string
	Selector   string
	Timeout    time.Duration
	MaxSide    int
}

// BrowserCapturer screenshots the live dashboard node in a real browser
type BrowserCapturer struct {
	opts BrowserOptions
}

func NewBrowserCapturer(opts BrowserOptions) *BrowserCapturer {
	if opts.Selector == "" {
		opts.Selector = DashboardSelector
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultBrowserTimeout
	}
	if opts.MaxSide <= 0 {
		opts.MaxSide = DefaultMaxSide
	}
	return &BrowserCapturer{opts: opts}
}

func (c *BrowserCapturer) Name() string { return "browser" }

func (c *BrowserCapturer) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.DebugURL != "" {
		return chromedp.NewRemoteAllocator(ctx, c.opts.DebugURL)
	}
	return chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
}

func (c *BrowserCapturer) Capture(ctx context.Context, req Request) ([]byte, error) {
	if c.opts.PageURL == "" {
		return nil, fmt.Errorf("browser capture needs a page URL")
	}

	allocCtx, allocCancel := c.allocator(ctx)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()
	timeoutCtx, cancel := context.WithTimeout(taskCtx, c.opts.Timeout)
	defer cancel()

	var buf []byte
	actions := []chromedp.Action{}
	if c.opts.CookieName != "" {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			return network.SetCookie(c.opts.CookieName, req.ClientID).
				WithURL(c.opts.PageURL).
				WithHTTPOnly(true).
				Do(ctx)
		}))
	}
	if zone := zoneName(req.Location); zone != "" {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetTimezoneOverride(zone).Do(ctx)
		}))
	}
	actions = append(actions,
		chromedp.Navigate(c.opts.PageURL),
		chromedp.WaitVisible(c.opts.Selector, chromedp.ByQuery),
		chromedp.Screenshot(c.opts.Selector, &buf, chromedp.NodeVisible, chromedp.ByQuery),
	)

	if err := chromedp.Run(timeoutCtx, actions...); err != nil {
		return nil, fmt.Errorf("screenshot %s: %w", c.opts.Selector, err)
	}
	return Downscale(buf, c.opts.MaxSide)
}

// zoneName is the IANA name of loc, empty when the browser should keep its own
func zoneName(loc *time.Location) string {
	if loc == nil || loc == time.Local || loc.String() == "Local" {
		return ""
	}
	if _, err := time.LoadLocation(loc.String()); err != nil {
		// fixed zones have no IANA name
		return ""
	}
	return loc.String()
}

// Downscale shrinks a PNG so neither side exceeds maxSide
func Downscale(data []byte, maxSide int) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if maxSide <= 0 || (width <= maxSide && height <= maxSide) {
		return data, nil
	}

	newWidth, newHeight := maxSide, maxSide
	if width > height {
		newHeight = int(float64(height) * float64(maxSide) / float64(width))
	} else {
		newWidth = int(float64(width) * float64(maxSide) / float64(height))
	}
	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return nil, fmt.Errorf("encode screenshot: %w", err)
	}
	return out.Bytes(), nil
}
