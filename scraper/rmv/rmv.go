package rmv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"appointment-monitor/config"
	"appointment-monitor/models"
	"appointment-monitor/utils"
)

// Scraper reads location availability from the booking site with a headless browser.
type Scraper struct {
	baseURL   string
	chromeBin string
	timeout   time.Duration
	logger    *utils.Logger
	retry     *utils.RetryConfig

	// render returns the page HTML after scripts ran.
	render func(ctx context.Context, url string) (string, error)
}

// New creates a ready-to-use Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	s := &Scraper{
		baseURL:   cfg.BaseURL,
		chromeBin: cfg.ChromeBin,
		timeout:   time.Duration(cfg.ScrapeTimeoutSec) * time.Second,
		logger:    logger,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
	}
	s.render = s.renderPage
	return s
}

// Fetch returns the current availability of the given location ids.
func (s *Scraper) Fetch(ctx context.Context, ids []string) ([]models.LocationSnapshot, error) {
	s.logger.Info("[rmv] Fetching availability for %d locations", len(ids))

	html, err := s.fetchHTML(ctx, "fetch-availability")
	if err != nil {
		return nil, err
	}
	snapshots, err := parseAvailability(html, ids)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("[rmv] Parsed %d snapshots", len(snapshots))
	return snapshots, nil
}

// FetchAll returns the full location catalog.
func (s *Scraper) FetchAll(ctx context.Context) ([]models.Location, error) {
	s.logger.Info("[rmv] Fetching location catalog")

	html, err := s.fetchHTML(ctx, "fetch-catalog")
	if err != nil {
		return nil, err
	}
	catalog, err := parseCatalog(html)
	if err != nil {
		return nil, err
	}
	s.logger.Info("[rmv] Found %d locations", len(catalog))
	return catalog, nil
}

func (s *Scraper) fetchHTML(ctx context.Context, op string) (string, error) {
	var html string
	err := s.retry.Do(ctx, op, func() error {
		var err error
		html, err = s.render(ctx, s.baseURL)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("rmv: %w", err)
	}
	return html, nil
}

func (s *Scraper) renderPage(ctx context.Context, url string) (string, error) {
	chromeBin := s.chromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	s.logger.Debug("[rmv] Using browser binary: %q", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, s.timeout)
	defer cancelTimeout()

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
