package crawler

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"sjsage522/retroconsolas/config"
	"sjsage522/retroconsolas/helpers"
	"sjsage522/retroconsolas/logger"
	"sjsage522/retroconsolas/pkg/errors"
)

const (
	consentButton = "#onetrust-accept-btn-handler"

	// hides the automation flag that some sites check before serving results
	webdriverPatch = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`
)

// ChromeConfig holds the headless browser parameters
type ChromeConfig struct {
	ChromeBin      string
	MaxScrolls     int
	ScrollPauseMin time.Duration
	ScrollPauseMax time.Duration
	RenderWaitMin  time.Duration
	RenderWaitMax  time.Duration
	ConsentTimeout time.Duration
}

// ChromeConfigFrom builds the browser parameters from the loaded configuration
func ChromeConfigFrom(cfg *config.Config) ChromeConfig {
	return ChromeConfig{
		ChromeBin:      cfg.ChromeBin,
		MaxScrolls:     cfg.MaxScrolls,
		ScrollPauseMin: cfg.ScrollPauseMin,
		ScrollPauseMax: cfg.ScrollPauseMax,
		RenderWaitMin:  cfg.RenderWaitMin,
		RenderWaitMax:  cfg.RenderWaitMax,
		ConsentTimeout: cfg.ConsentTimeout,
	}
}

// pageDriver is the set of page operations a session needs from the browser
type pageDriver interface {
	Navigate(pageURL string) error
	// ClickConsent clicks the consent button once visible, giving up after timeout
	ClickConsent(timeout time.Duration) error
	ScrollHeight() (int64, error)
	ScrollToBottom() error
	HTML() (string, error)
}

// chromedpDriver drives a chromedp browser context
type chromedpDriver struct {
	ctx context.Context
}

func (d *chromedpDriver) Navigate(pageURL string) error {
	return chromedp.Run(d.ctx, chromedp.Navigate(pageURL))
}

func (d *chromedpDriver) ClickConsent(timeout time.Duration) error {
	consentCtx, cancel := context.WithTimeout(d.ctx, timeout)
	defer cancel()

	return chromedp.Run(consentCtx,
		chromedp.WaitVisible(consentButton, chromedp.ByQuery),
		chromedp.Click(consentButton, chromedp.ByQuery),
	)
}

func (d *chromedpDriver) ScrollHeight() (int64, error) {
	var height int64
	err := chromedp.Run(d.ctx, chromedp.Evaluate(`document.body.scrollHeight`, &height))
	return height, err
}

func (d *chromedpDriver) ScrollToBottom() error {
	return chromedp.Run(d.ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

func (d *chromedpDriver) HTML() (string, error) {
	var html string
	err := chromedp.Run(d.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// ChromeSession is a BrowserSession backed by a local headless Chrome
type ChromeSession struct {
	driver   pageDriver
	closers  []context.CancelFunc
	cfg      ChromeConfig
	governor *Governor
	log      *logger.Logger
}

// ChromeSessionFactory returns a SessionFactory starting Chrome sessions
func ChromeSessionFactory(cfg ChromeConfig, governor *Governor) SessionFactory {
	return func(ctx context.Context) (BrowserSession, error) {
		session, err := NewChromeSession(ctx, cfg, governor)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}

// NewChromeSession launches Chrome and installs the webdriver patch. The
// browser lives until Close or until ctx is done.
func NewChromeSession(ctx context.Context, cfg ChromeConfig, governor *Governor) (*ChromeSession, error) {
	chromeBin := cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1920, 1080),
		chromedp.UserAgent(helpers.DefaultUserAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// the first Run starts the browser
	err := chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(webdriverPatch).Do(ctx)
		return err
	}))
	if err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, errors.NewSession("browser", "failed to start Chrome", err)
	}

	session := newChromeSession(&chromedpDriver{ctx: browserCtx}, cfg, governor)
	session.closers = []context.CancelFunc{cancelBrowser, cancelAlloc}
	session.log.Debug().Str("binary", chromeBin).Msg("Chrome started")
	return session, nil
}

func newChromeSession(driver pageDriver, cfg ChromeConfig, governor *Governor) *ChromeSession {
	return &ChromeSession{
		driver:   driver,
		cfg:      cfg,
		governor: governor,
		log:      logger.ForStrategy("browser"),
	}
}

// Render loads pageURL, accepts the consent banner when present, scrolls
// to trigger lazy loading and returns the page's HTML
func (s *ChromeSession) Render(ctx context.Context, pageURL string) (string, error) {
	if err := s.driver.Navigate(pageURL); err != nil {
		return "", errors.NewNetwork("browser", "navigation failed", err)
	}
	if err := s.governor.PauseBetween(ctx, s.cfg.RenderWaitMin, s.cfg.RenderWaitMax); err != nil {
		return "", err
	}

	s.acceptConsent(ctx)

	if err := s.scroll(ctx); err != nil {
		return "", err
	}

	html, err := s.driver.HTML()
	if err != nil {
		return "", errors.NewParsing("browser", "failed to read page HTML", err)
	}
	return html, nil
}

// acceptConsent clicks the consent button if it shows up in time; its
// absence is not an error
func (s *ChromeSession) acceptConsent(ctx context.Context) {
	if err := s.driver.ClickConsent(s.cfg.ConsentTimeout); err != nil {
		s.log.Debug().Err(err).Msg("No consent banner")
		return
	}
	_ = s.governor.PauseBetween(ctx, time.Second, time.Second)
}

// scroll scrolls to the bottom until the page stops growing or MaxScrolls
// is reached
func (s *ChromeSession) scroll(ctx context.Context) error {
	lastHeight, err := s.driver.ScrollHeight()
	if err != nil {
		return errors.NewNetwork("browser", "failed to read page height", err)
	}

	for i := 0; i < s.cfg.MaxScrolls; i++ {
		if err := s.driver.ScrollToBottom(); err != nil {
			return errors.NewNetwork("browser", "scroll failed", err)
		}
		if err := s.governor.PauseBetween(ctx, s.cfg.ScrollPauseMin, s.cfg.ScrollPauseMax); err != nil {
			return err
		}

		height, err := s.driver.ScrollHeight()
		if err != nil {
			return errors.NewNetwork("browser", "failed to read page height", err)
		}
		if height == lastHeight {
			break
		}
		lastHeight = height
	}
	return nil
}

// Close shuts the browser down
func (s *ChromeSession) Close() error {
	for _, cancel := range s.closers {
		cancel()
	}
	s.closers = nil
	return nil
}

// findChromeBinary locates a Chrome or Chromium binary, returning "" to let
// chromedp use its own lookup
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
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
