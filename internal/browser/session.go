// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
	"github.com/xkilldash9x/formpilot-cli/internal/config"
)

// defaultNavigationTimeout bounds navigation and load waits when the config
// leaves them unset.
const defaultNavigationTimeout = 30 * time.Second

// specialKeys maps the capture script's key names to CDP key runes.
var specialKeys = map[string]string{
	"Tab":    kb.Tab,
	"Enter":  kb.Enter,
	"Escape": kb.Escape,
}

// Session drives one browser tab over the Chrome DevTools Protocol and
// implements schemas.PageController. One session, one tab; the recorder,
// executor and watcher all share it sequentially.
type Session struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	cfg         config.BrowserConfig
	log         *zap.Logger
}

var _ schemas.PageController = (*Session)(nil)

// NewSession launches a browser and opens a tab. Close releases both.
func NewSession(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	for _, arg := range cfg.Args {
		name := strings.TrimPrefix(arg, "--")
		if name != "" {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Force the browser process up front so a broken environment fails fast.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	s := &Session{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		cfg:         cfg,
		log:         logger.Named("browser"),
	}
	s.log.Info("Browser session started.", zap.Bool("headless", cfg.Headless))
	return s, nil
}

// Close tears down the tab and the browser process.
func (s *Session) Close() {
	s.cancelTab()
	s.cancelAlloc()
	s.log.Info("Browser session closed.")
}

// run executes actions on the tab, honoring the caller's cancellation.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, s.cfg.NavigationTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()
	select {
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// GetState resolves a fresh snapshot of the page's interactive elements.
func (s *Session) GetState(ctx context.Context) (*schemas.PageSnapshot, error) {
	var url, raw string
	err := s.run(ctx,
		chromedp.Location(&url),
		chromedp.OuterHTML("html", &raw, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read page state: %w", err)
	}
	return ParseSnapshot(url, raw)
}

// Evaluate runs a script in page context. out may be nil to discard the
// result.
func (s *Session) Evaluate(ctx context.Context, script string, out any) error {
	return s.run(ctx, chromedp.Evaluate(script, out))
}

// InputText replaces the element's value.
func (s *Session) InputText(ctx context.Context, el schemas.ElementDescription, text string) error {
	sel := el.Selector()
	return s.run(ctx,
		chromedp.Focus(sel, chromedp.ByQuery),
		chromedp.SetValue(sel, text, chromedp.ByQuery),
	)
}

// ClickElement clicks the element.
func (s *Session) ClickElement(ctx context.Context, el schemas.ElementDescription) error {
	return s.run(ctx, chromedp.Click(el.Selector(), chromedp.ByQuery))
}

// SelectOption picks a select option by visible text, falling back to value.
func (s *Session) SelectOption(ctx context.Context, el schemas.ElementDescription, text string) error {
	script := fmt.Sprintf(`(() => {
	const el = document.querySelector(%q);
	if (!el) { return false; }
	for (const opt of el.options) {
		if (opt.text.trim() === %q || opt.value === %q) {
			el.value = opt.value;
			el.dispatchEvent(new Event('change', { bubbles: true }));
			return true;
		}
	}
	return false;
})()`, el.Selector(), text, text)

	var selected bool
	if err := s.run(ctx, chromedp.Evaluate(script, &selected)); err != nil {
		return err
	}
	if !selected {
		return fmt.Errorf("option %q not found in %s", text, el.Selector())
	}
	return nil
}

// DropdownOptions lists the choices of a select element.
func (s *Session) DropdownOptions(ctx context.Context, el schemas.ElementDescription) ([]schemas.DropdownOption, error) {
	script := fmt.Sprintf(`(() => {
	const el = document.querySelector(%q);
	if (!el || !el.options) { return []; }
	return Array.from(el.options).map((opt, i) => ({ index: i, text: opt.text.trim(), value: opt.value }));
})()`, el.Selector())

	var options []schemas.DropdownOption
	if err := s.run(ctx, chromedp.Evaluate(script, &options)); err != nil {
		return nil, err
	}
	return options, nil
}

// SendKeys sends a key chord to the focused element. Modifier prefixes
// (Control+, Alt+, Meta+) are stripped; the final key is delivered.
func (s *Session) SendKeys(ctx context.Context, keys string) error {
	parts := strings.Split(keys, "+")
	key := parts[len(parts)-1]
	if mapped, ok := specialKeys[key]; ok {
		key = mapped
	}
	return s.run(ctx, chromedp.KeyEvent(key))
}

// NavigateTo loads the URL and waits for the document body.
func (s *Session) NavigateTo(ctx context.Context, url string) error {
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// CurrentURL reports the tab's location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// WaitForLoad blocks until the document body is ready or the timeout lapses.
func (s *Session) WaitForLoad(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.run(waitCtx, chromedp.WaitReady("body", chromedp.ByQuery))
}

// Screenshot captures the viewport as PNG.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.ActionFunc(func(actionCtx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormatPng).
			Do(actionCtx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}
