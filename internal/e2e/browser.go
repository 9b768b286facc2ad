package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const pollInterval = 100 * time.Millisecond

type BrowserConfig struct {
	Headless   bool
	ChromePath string
	Width      int
	Height     int
}

// Launcher owns one Chrome process; every scenario gets its own tab.
type Launcher struct {
	baseURL     string
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancel      context.CancelFunc
	log         *zap.SugaredLogger
}

// NewLauncher starts Chrome. The process lives until Close or until parent
// is cancelled.
func NewLauncher(parent context.Context, baseURL string, cfg BrowserConfig, log *zap.SugaredLogger) (*Launcher, error) {
	if cfg.Width == 0 || cfg.Height == 0 {
		cfg.Width, cfg.Height = 1280, 800
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(cfg.Width, cfg.Height),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Debugf))

	// the first Run starts the browser and ties it to browserCtx
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		cancelAlloc()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Launcher{
		baseURL:     strings.TrimRight(baseURL, "/"),
		browserCtx:  browserCtx,
		cancelAlloc: cancelAlloc,
		cancel:      cancel,
		log:         log,
	}, nil
}

func (l *Launcher) Close() {
	l.cancel()
	l.cancelAlloc()
}

// NewBrowser opens a fresh tab bounded by ctx.
func (l *Launcher) NewBrowser(ctx context.Context) (*Browser, error) {
	tab, cancelTab := chromedp.NewContext(l.browserCtx)
	stop := context.AfterFunc(ctx, cancelTab)

	b := &Browser{
		baseURL:  l.baseURL,
		log:      l.log,
		requests: map[string]int{},
	}
	chromedp.ListenTarget(tab, b.onEvent)

	if err := chromedp.Run(tab, network.Enable()); err != nil {
		stop()
		cancelTab()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	run, cancel := tab, context.CancelFunc(func() {})
	if dl, ok := ctx.Deadline(); ok {
		run, cancel = context.WithDeadline(tab, dl)
	}
	b.ctx = run
	b.close = func() {
		cancel()
		stop()
		cancelTab()
	}
	return b, nil
}

// Browser drives one tab of the blog under test.
type Browser struct {
	ctx     context.Context
	close   func()
	baseURL string
	log     *zap.SugaredLogger

	mu       sync.Mutex
	requests map[string]int
}

func (b *Browser) Close() { b.close() }

func (b *Browser) onEvent(ev interface{}) {
	e, ok := ev.(*network.EventRequestWillBeSent)
	if !ok {
		return
	}
	u, err := url.Parse(e.Request.URL)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.requests[u.Path]++
	b.mu.Unlock()
}

// Requests returns how many requests the page sent to path since the last
// ResetRequests.
func (b *Browser) Requests(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[path]
}

func (b *Browser) ResetRequests() {
	b.mu.Lock()
	b.requests = map[string]int{}
	b.mu.Unlock()
}

func (b *Browser) run(actions ...chromedp.Action) error {
	return chromedp.Run(b.ctx, actions...)
}

// Navigate loads path relative to the blog's base URL and waits for the body.
func (b *Browser) Navigate(path string) error {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = b.baseURL + path
	}
	if err := b.run(chromedp.Navigate(target), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigate %s: %w", path, err)
	}
	return nil
}

func (b *Browser) Reload() error {
	if err := b.run(chromedp.Reload(), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

// Path returns the path of the current page.
func (b *Browser) Path() (string, error) {
	var loc string
	if err := b.run(chromedp.Location(&loc)); err != nil {
		return "", err
	}
	u, err := url.Parse(loc)
	if err != nil {
		return "", err
	}
	return u.Path, nil
}

// Eval runs a JS expression and decodes its result into res.
func (b *Browser) Eval(js string, res interface{}) error {
	return b.run(chromedp.Evaluate(js, res))
}

// eval runs a JS expression with sel bound as a string literal.
func (b *Browser) eval(format, sel string, res interface{}) error {
	lit, err := json.Marshal(sel)
	if err != nil {
		return err
	}
	return b.run(chromedp.Evaluate(fmt.Sprintf(format, lit), res))
}

func (b *Browser) Count(sel string) (int, error) {
	var n int
	if err := b.eval(`document.querySelectorAll(%s).length`, sel, &n); err != nil {
		return 0, fmt.Errorf("count %s: %w", sel, err)
	}
	return n, nil
}

func (b *Browser) Exists(sel string) (bool, error) {
	n, err := b.Count(sel)
	return n > 0, err
}

// Texts returns the trimmed text of every element matching sel.
func (b *Browser) Texts(sel string) ([]string, error) {
	var out []string
	if err := b.eval(`Array.from(document.querySelectorAll(%s), e => e.textContent.trim())`, sel, &out); err != nil {
		return nil, fmt.Errorf("texts %s: %w", sel, err)
	}
	return out, nil
}

func (b *Browser) Text(sel string) (string, error) {
	var s string
	if err := b.eval(`document.querySelector(%s).textContent.trim()`, sel, &s); err != nil {
		return "", fmt.Errorf("text %s: %w", sel, err)
	}
	return s, nil
}

// Attr returns an attribute of the first match; ok is false when the
// element or attribute is missing.
func (b *Browser) Attr(sel, name string) (string, bool, error) {
	var v *string
	lit, _ := json.Marshal(name)
	if err := b.eval(`(() => { const e = document.querySelector(%s); return e ? e.getAttribute(`+string(lit)+`) : null; })()`, sel, &v); err != nil {
		return "", false, fmt.Errorf("attr %s[%s]: %w", sel, name, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (b *Browser) HasClass(sel, class string) (bool, error) {
	var classes []string
	if err := b.eval(`Array.from(document.querySelector(%s).classList)`, sel, &classes); err != nil {
		return false, fmt.Errorf("classes of %s: %w", sel, err)
	}
	for _, c := range classes {
		if c == class {
			return true, nil
		}
	}
	return false, nil
}

// Box returns the bounding client rect of the first match.
func (b *Browser) Box(sel string) (Box, error) {
	var box Box
	err := b.eval(`(() => { const r = document.querySelector(%s).getBoundingClientRect(); return {x: r.x, y: r.y, width: r.width, height: r.height}; })()`, sel, &box)
	if err != nil {
		return Box{}, fmt.Errorf("box of %s: %w", sel, err)
	}
	return box, nil
}

func (b *Browser) ComputedStyle(sel, property string) (string, error) {
	var v string
	lit, _ := json.Marshal(property)
	if err := b.eval(`getComputedStyle(document.querySelector(%s)).getPropertyValue(`+string(lit)+`)`, sel, &v); err != nil {
		return "", fmt.Errorf("style %s of %s: %w", property, sel, err)
	}
	return v, nil
}

func (b *Browser) ScrollTo(y int) error {
	return b.run(chromedp.Evaluate(fmt.Sprintf(`window.scrollTo(0, %d)`, y), nil))
}

func (b *Browser) ScrollToBottom() error {
	return b.run(chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

func (b *Browser) SetViewport(width, height int) error {
	return b.run(chromedp.EmulateViewport(int64(width), int64(height)))
}

func (b *Browser) Click(sel string) error {
	if err := b.run(chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %s: %w", sel, err)
	}
	return nil
}

// Type sends text as individual key presses to the first match.
func (b *Browser) Type(sel, text string) error {
	if err := b.run(chromedp.SendKeys(sel, text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("type into %s: %w", sel, err)
	}
	return nil
}

func (b *Browser) WaitVisible(sel string) error {
	if err := b.run(chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %s: %w", sel, err)
	}
	return nil
}

func (b *Browser) WaitReady(sel string) error {
	if err := b.run(chromedp.WaitReady(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("wait for %s: %w", sel, err)
	}
	return nil
}

func (b *Browser) Sleep(d time.Duration) error {
	return b.run(chromedp.Sleep(d))
}

// WaitFor polls cond until it holds or the tab's deadline passes. Errors
// from cond are retried, since the page may be mid-navigation.
func (b *Browser) WaitFor(what string, cond func() (bool, error)) error {
	t := time.NewTicker(pollInterval)
	defer t.Stop()

	var last error
	for {
		ok, err := cond()
		if err == nil && ok {
			return nil
		}
		last = err
		select {
		case <-b.ctx.Done():
			if last != nil {
				return fmt.Errorf("waiting for %s: %w (last error: %v)", what, b.ctx.Err(), last)
			}
			return fmt.Errorf("waiting for %s: %w", what, b.ctx.Err())
		case <-t.C:
		}
	}
}

// WaitCount waits until at least n elements match sel.
func (b *Browser) WaitCount(sel string, n int) error {
	return b.WaitFor(fmt.Sprintf("%d x %s", n, sel), func() (bool, error) {
		c, err := b.Count(sel)
		return c >= n, err
	})
}

func (b *Browser) WaitClass(sel, class string, want bool) error {
	return b.WaitFor(fmt.Sprintf("%s class %s=%t", sel, class, want), func() (bool, error) {
		has, err := b.HasClass(sel, class)
		return has == want, err
	})
}

func (b *Browser) WaitPath(path string) error {
	return b.WaitFor("path "+path, func() (bool, error) {
		p, err := b.Path()
		return p == path, err
	})
}

// SignIn logs in through the blog's sign-in form.
func (b *Browser) SignIn(email, password string) error {
	if err := b.Navigate("/signin"); err != nil {
		return err
	}
	err := b.run(
		chromedp.SendKeys(`input[name="email"]`, email, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="password"]`, password, chromedp.ByQuery),
		chromedp.Click(`button[type="submit"]`, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	return b.WaitFor("sign-in redirect", func() (bool, error) {
		p, err := b.Path()
		return p != "/signin", err
	})
}
