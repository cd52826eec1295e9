package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"

	"hotel-price-watch/internal/pricing"
)

// stealthJS masks the most common headless fingerprints before any page
// script runs. Booking pages gate their rate buttons behind bot checks.
const stealthJS = `
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'languages', { get: () => ['en-GB', 'en'] });
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3] });
	window.chrome = window.chrome || { runtime: {} };
`

// Options parameterise the page fetcher.
type Options struct {
	Bin           string
	Headless      bool
	NoSandbox     bool
	PageTimeout   time.Duration
	SettleDelay   time.Duration
	ScrollOffsets []int
	RateSelectors []string
}

// Capture is everything one page load yields for the pricing pipeline: the
// rendered body text, the raw markup, and the matched rate controls in
// selector-priority order. A capture may be partial when the load failed.
type Capture struct {
	BodyText   string
	HTML       string
	Candidates []pricing.Candidate
}

// Fetcher drives a shared headless Chromium instance.
type Fetcher struct {
	opts    Options
	browser *rod.Browser
	logger  zerolog.Logger
}

// New launches the browser and returns a fetcher. Callers must Close it.
func New(opts Options, logger zerolog.Logger) (*Fetcher, error) {
	if opts.PageTimeout <= 0 {
		opts.PageTimeout = 45 * time.Second
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 1500 * time.Millisecond
	}
	if len(opts.ScrollOffsets) == 0 {
		opts.ScrollOffsets = []int{600, 1200, 1800, 2400}
	}

	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox).
		Leakless(false)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &Fetcher{
		opts:    opts,
		browser: browser,
		logger:  logger.With().Str("component", "browser").Logger(),
	}, nil
}

// Close shuts the browser down.
func (f *Fetcher) Close() {
	if f == nil || f.browser == nil {
		return
	}
	if err := f.browser.Close(); err != nil {
		f.logger.Warn().Err(err).Msg("browser close failed")
	}
}

// Fetch loads url and captures text, markup, and rate-control candidates.
// The returned Capture holds whatever was collected even when err is
// non-nil, so a timed-out page still contributes its amounts.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Capture, error) {
	var capture Capture

	page, err := f.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return capture, fmt.Errorf("open page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			f.logger.Debug().Err(err).Msg("page close failed")
		}
	}()

	page = page.Context(ctx).Timeout(f.opts.PageTimeout)

	if _, err := page.EvalOnNewDocument(stealthJS); err != nil {
		f.logger.Debug().Err(err).Msg("stealth injection failed")
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		f.logger.Debug().Err(err).Msg("set viewport failed")
	}

	loadErr := page.Navigate(url)
	if loadErr == nil {
		loadErr = page.WaitLoad()
	}

	sleepCtx(ctx, f.opts.SettleDelay)
	f.acceptCookies(page)
	f.scrollThrough(ctx, page)
	f.waitForRateControl(page)

	capture.Candidates = f.collectCandidates(page)

	if body, err := page.Timeout(5 * time.Second).Element("body"); err == nil {
		if text, err := body.Text(); err == nil {
			capture.BodyText = text
		}
	}
	if html, err := page.HTML(); err == nil {
		capture.HTML = html
	}

	if loadErr != nil {
		return capture, fmt.Errorf("load page: %w", loadErr)
	}
	return capture, nil
}

// acceptCookies clicks the consent banner when one shows up. Best effort.
func (f *Fetcher) acceptCookies(page *rod.Page) {
	button, err := page.Timeout(2 * time.Second).ElementR("button", `/^\s*accept( all)?\b/i`)
	if err != nil {
		return
	}
	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		f.logger.Debug().Err(err).Msg("consent click failed")
		return
	}
	sleepCtx(page.GetContext(), 800*time.Millisecond)
}

// scrollThrough walks the page in stages to trigger lazy-loaded rate blocks.
func (f *Fetcher) scrollThrough(ctx context.Context, page *rod.Page) {
	for _, offset := range f.opts.ScrollOffsets {
		if _, err := page.Eval(`(y) => window.scrollTo(0, y)`, offset); err != nil {
			f.logger.Debug().Err(err).Int("offset", offset).Msg("scroll failed")
		}
		sleepCtx(ctx, 400*time.Millisecond)
	}
}

// waitForRateControl waits briefly for any configured rate selector to
// attach. Best effort; absence just means the free-text fallback runs.
func (f *Fetcher) waitForRateControl(page *rod.Page) {
	for _, selector := range f.opts.RateSelectors {
		if _, err := page.Timeout(3 * time.Second).Element(selector); err == nil {
			return
		}
	}
}

// collectCandidates wraps the first match of each selector, preserving the
// configured priority order.
func (f *Fetcher) collectCandidates(page *rod.Page) []pricing.Candidate {
	var candidates []pricing.Candidate
	for _, selector := range f.opts.RateSelectors {
		elements, err := page.Elements(selector)
		if err != nil || len(elements) == 0 {
			continue
		}
		candidates = append(candidates, newRodCandidate(elements.First()))
	}
	f.logger.Debug().Int("candidates", len(candidates)).Msg("rate controls collected")
	return candidates
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if ctx == nil {
		time.Sleep(d)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
