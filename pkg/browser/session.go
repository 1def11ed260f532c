// Package browser drives a headless Chrome tab over a map search results feed.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"placeharvest/pkg/config"
	errs "placeharvest/pkg/errors"
	"placeharvest/pkg/logger"
	"placeharvest/pkg/models"
	"placeharvest/pkg/retry"
)

// heavyAssets are URL patterns blocked when BlockHeavyAssets is set
var heavyAssets = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.otf",
	"*.mp4", "*.webm", "*.mp3",
}

// Session is one browser with one tab. It is not safe for concurrent use.
type Session struct {
	cfg    config.BrowserConfig
	logger logger.Logger

	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewSession prepares a session; the browser starts on Open
func NewSession(cfg config.BrowserConfig, log logger.Logger) *Session {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Session{cfg: cfg, logger: log.WithField("component", "browser")}
}

// Open starts the browser and navigates to seedURL
func (s *Session) Open(ctx context.Context, seedURL string) error {
	if s.tabCtx != nil {
		return errs.New(errs.ErrorTypeDriverUnavailable, "session already open")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(1366, 900),
	)
	if s.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.cfg.UserAgent))
	}
	if bin := s.chromeBinary(); bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}
	if s.cfg.ProxyServer != "" {
		opts = append(opts, chromedp.ProxyServer(s.cfg.ProxyServer))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		s.logger.Debug(fmt.Sprintf(format, args...))
	}))
	s.tabCtx, s.cancelTab, s.cancelAlloc = tabCtx, cancelTab, cancelAlloc

	s.logger.InfoWithFields("Opening listing", map[string]interface{}{
		"url":      seedURL,
		"headless": s.cfg.Headless,
		"proxy":    s.cfg.ProxyServer != "",
	})

	actions := []chromedp.Action{network.Enable()}
	if s.cfg.BlockHeavyAssets {
		actions = append(actions, network.SetBlockedURLS(heavyAssets))
	}
	actions = append(actions, chromedp.Navigate(seedURL))

	if err := s.run(ctx, s.cfg.NavigationTimeout, actions...); err != nil {
		if ctx.Err() != nil {
			return errs.Wrap(errs.ErrorTypeCancelled, "navigation interrupted", ctx.Err())
		}
		return errs.Wrap(errs.ErrorTypeDriverUnavailable, "failed to open "+seedURL, err)
	}

	// A missing feed is reported by CountEntries, where the loader can retry it.
	if err := s.run(ctx, s.cfg.NavigationTimeout, chromedp.WaitVisible(s.cfg.Selectors.Feed, chromedp.ByQuery)); err != nil {
		s.logger.WithError(err).Warn("Listing feed did not appear")
	}

	return retry.Wait(ctx, s.cfg.InitialSettle)
}

// CountEntries returns the number of cards in the feed
func (s *Session) CountEntries(ctx context.Context) (int, error) {
	js := fmt.Sprintf(`(function() {
		var feed = document.querySelector(%s);
		if (!feed) return -1;
		return feed.querySelectorAll(%s).length;
	})()`, jsString(s.cfg.Selectors.Feed), jsString(s.cfg.Selectors.Card))

	var n int
	if err := s.run(ctx, s.cfg.PanelTimeout, chromedp.Evaluate(js, &n)); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errs.New(errs.ErrorTypeListingUnavailable, "feed container not found")
	}
	return n, nil
}

// GrowListing scrolls the feed by one step
func (s *Session) GrowListing(ctx context.Context) error {
	js := fmt.Sprintf(`(function() {
		var feed = document.querySelector(%s);
		if (feed) feed.scrollBy(0, %d);
		return !!feed;
	})()`, jsString(s.cfg.Selectors.Feed), s.cfg.ScrollStep)

	var ok bool
	return s.run(ctx, s.cfg.PanelTimeout, chromedp.Evaluate(js, &ok))
}

type cardSnapshot struct {
	Href    string `json:"href"`
	PlaceID string `json:"placeId"`
	Label   string `json:"label"`
}

// Entries snapshots the cards currently in the feed
func (s *Session) Entries(ctx context.Context) ([]models.RawEntry, error) {
	js := fmt.Sprintf(`(function() {
		var feed = document.querySelector(%s);
		if (!feed) return [];
		var cards = feed.querySelectorAll(%s);
		var out = [];
		for (var i = 0; i < cards.length; i++) {
			var c = cards[i];
			var a = c.querySelector(%s) || c.closest('a');
			out.push({
				href: a ? a.href : '',
				placeId: c.getAttribute('data-place-id') || '',
				label: c.getAttribute('aria-label') || ''
			});
		}
		return out;
	})()`, jsString(s.cfg.Selectors.Feed), jsString(s.cfg.Selectors.Card), jsString(s.cfg.Selectors.CardLink))

	var cards []cardSnapshot
	if err := s.run(ctx, s.cfg.NavigationTimeout, chromedp.Evaluate(js, &cards)); err != nil {
		return nil, fmt.Errorf("snapshot feed: %w", err)
	}

	entries := make([]models.RawEntry, len(cards))
	for i, c := range cards {
		entries[i] = models.RawEntry{Index: i, Href: c.Href, PlaceID: c.PlaceID, Label: c.Label}
	}
	return entries, nil
}

// OpenEntry clicks the card, waits for its detail panel and reads it.
// The panel is always dismissed with Escape afterwards.
func (s *Session) OpenEntry(ctx context.Context, entry models.RawEntry) (models.PanelFields, error) {
	defer s.backToList(ctx)

	clickJS := fmt.Sprintf(`(function() {
		var feed = document.querySelector(%s);
		if (!feed) return false;
		var cards = feed.querySelectorAll(%s);
		var target = null;
		var href = %s;
		if (href) {
			for (var i = 0; i < cards.length && !target; i++) {
				var a = cards[i].querySelector(%s);
				if (a && a.href === href) target = a;
			}
		}
		if (!target && cards[%d]) target = cards[%d].querySelector(%s) || cards[%d];
		if (!target) return false;
		target.scrollIntoView({block: 'center'});
		target.click();
		return true;
	})()`,
		jsString(s.cfg.Selectors.Feed), jsString(s.cfg.Selectors.Card), jsString(entry.Href),
		jsString(s.cfg.Selectors.CardLink),
		entry.Index, entry.Index, jsString(s.cfg.Selectors.CardLink), entry.Index)

	var clicked bool
	if err := s.run(ctx, s.cfg.PanelTimeout, chromedp.Evaluate(clickJS, &clicked)); err != nil {
		return models.PanelFields{}, s.classify(ctx, err, "click card")
	}
	if !clicked {
		return models.PanelFields{}, errs.New(errs.ErrorTypePanelNotLoaded, fmt.Sprintf("card %d not found", entry.Index))
	}

	if err := s.run(ctx, s.cfg.PanelTimeout, chromedp.WaitVisible(s.cfg.Selectors.Title, chromedp.ByQuery)); err != nil {
		return models.PanelFields{}, s.classify(ctx, err, "wait for panel title")
	}
	if err := retry.Wait(ctx, s.cfg.ClickSettle); err != nil {
		return models.PanelFields{}, errs.Wrap(errs.ErrorTypeCancelled, "panel settle interrupted", err)
	}

	panelJS := fmt.Sprintf(`(function() {
		var h = document.querySelector(%s);
		if (!h) return '';
		var panel = h.closest(%s) || document.body;
		return panel.outerHTML;
	})()`, jsString(s.cfg.Selectors.Title), jsString(s.cfg.Selectors.Panel))

	var html string
	if err := s.run(ctx, s.cfg.PanelTimeout, chromedp.Evaluate(panelJS, &html)); err != nil {
		return models.PanelFields{}, s.classify(ctx, err, "read panel")
	}

	return ParsePanel(html, s.cfg.Selectors)
}

// Close shuts down the tab and the browser process
func (s *Session) Close() error {
	if s.cancelTab != nil {
		s.cancelTab()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}
	s.tabCtx = nil
	return nil
}

func (s *Session) backToList(ctx context.Context) {
	if ctx.Err() != nil || s.tabCtx == nil {
		return
	}
	if err := s.run(ctx, s.cfg.PanelTimeout, chromedp.KeyEvent(kb.Escape)); err != nil {
		s.logger.WithError(err).Debug("Escape failed")
		return
	}
	_ = retry.Wait(ctx, s.cfg.EscapeSettle)
}

// run executes actions in the tab, bounded by timeout and by the caller's ctx
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if s.tabCtx == nil {
		return errs.New(errs.ErrorTypeDriverUnavailable, "session not open")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	runCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// classify maps a failed panel step onto the entry-scoped or run-scoped error it represents
func (s *Session) classify(ctx context.Context, err error, step string) error {
	switch {
	case ctx.Err() != nil:
		return errs.Wrap(errs.ErrorTypeCancelled, step+" interrupted", ctx.Err())
	case s.tabCtx == nil || s.tabCtx.Err() != nil:
		return errs.Wrap(errs.ErrorTypeDriverUnavailable, "browser tab is gone", err)
	case errors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(errs.ErrorTypeExtractionTimeout, step+" timed out", err)
	default:
		return errs.Wrap(errs.ErrorTypePanelNotLoaded, step+" failed", err)
	}
}

func (s *Session) chromeBinary() string {
	if s.cfg.ChromePath != "" {
		return s.cfg.ChromePath
	}
	return findChromeBinary()
}

// findChromeBinary locates a Chrome or Chromium binary, or returns "" to let chromedp search
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}
	for _, name := range []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
