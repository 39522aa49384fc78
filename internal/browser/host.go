// Package browser binds interfaces.Host to a Chromium tab over the Chrome
// DevTools Protocol using chromedp.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/domstorage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/interfaces"
	"github.com/bobmcallan/storage-inspector/internal/models"
)

// Config controls how the host reaches the browser.
type Config struct {
	// RemoteURL is the DevTools endpoint of a running browser
	// (http://host:9222 or a ws:// browser URL). Empty launches Chromium.
	RemoteURL string
	// TargetURL selects the first page target whose URL contains it.
	TargetURL string
	// StartURL is opened when no existing target matches.
	StartURL string
	Headless bool
	// Timeout bounds every single protocol operation.
	Timeout time.Duration
}

// DefaultConfig returns a headless launch configuration.
func DefaultConfig() Config {
	return Config{
		Headless: true,
		StartURL: "about:blank",
		Timeout:  15 * time.Second,
	}
}

// Host is a CDP-backed interfaces.Host attached to a single tab.
type Host struct {
	tabCtx  context.Context
	cancel  context.CancelFunc
	target  models.Target
	timeout time.Duration
	logger  *common.Logger
	// borrowed is set when the tab already existed before Connect. Such a
	// tab belongs to the user and must outlive the host.
	borrowed  bool
	closeOnce sync.Once

	mu       sync.Mutex
	watchers map[int]func(models.ChangeNotification)
	nextID   int
}

// Connect attaches to (or launches) a browser and selects the tab to inspect.
func Connect(ctx context.Context, cfg Config, logger *common.Logger) (*Host, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	cancelAll := func() {
		browserCancel()
		allocCancel()
	}

	// The first Run establishes the browser connection.
	if err := runWithin(ctx, browserCtx, cfg.Timeout); err != nil {
		cancelAll()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	tabCtx := browserCtx
	borrowed := false
	if cfg.RemoteURL != "" {
		info, err := pickTarget(browserCtx, cfg.TargetURL)
		if err != nil {
			cancelAll()
			return nil, err
		}
		if info != nil {
			// Cancelling browserCtx also cancels this child; Close forgets
			// the target first so chromedp only detaches.
			tabCtx, _ = chromedp.NewContext(browserCtx, chromedp.WithTargetID(info.TargetID))
			borrowed = true
		}
	}

	h := &Host{
		tabCtx:   tabCtx,
		cancel:   cancelAll,
		timeout:  cfg.Timeout,
		logger:   logger,
		borrowed: borrowed,
		watchers: map[int]func(models.ChangeNotification){},
	}
	navigate := !borrowed

	actions := []chromedp.Action{domstorage.Enable()}
	if navigate && cfg.StartURL != "" {
		actions = append([]chromedp.Action{chromedp.Navigate(cfg.StartURL)}, actions...)
	}
	var url, title string
	actions = append(actions, chromedp.Location(&url), chromedp.Title(&title))
	if err := h.run(ctx, actions...); err != nil {
		h.Close()
		return nil, fmt.Errorf("attach to tab: %w", err)
	}

	h.target = models.Target{URL: url, Title: title}
	if c := chromedp.FromContext(tabCtx); c != nil && c.Target != nil {
		h.target.ID = string(c.Target.TargetID)
	}

	chromedp.ListenTarget(tabCtx, h.onEvent)

	if logger != nil {
		logger.Info().
			Str("target_id", h.target.ID).
			Str("url", h.target.URL).
			Bool("remote", cfg.RemoteURL != "").
			Msg("attached to browser tab")
	}
	return h, nil
}

// pickTarget returns the first page target whose URL contains match, or nil.
func pickTarget(browserCtx context.Context, match string) (*target.Info, error) {
	targets, err := chromedp.Targets(browserCtx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if match == "" || strings.Contains(t.URL, match) {
			return t, nil
		}
	}
	return nil, nil
}

// runWithin runs no actions, which forces chromedp to allocate and connect.
func runWithin(ctx, chromeCtx context.Context, timeout time.Duration) error {
	runCtx, cancel := context.WithTimeout(chromeCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx)
}

// run executes actions against the tab, bounded by the per-operation
// timeout and by the caller's context.
func (h *Host) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := h.tabCtx.Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrUnreachable, err)
	}
	runCtx, cancel := context.WithTimeout(h.tabCtx, h.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return h.classify(err)
	}
	return nil
}

// classify maps protocol failures onto the model's sentinel errors.
func (h *Host) classify(err error) error {
	switch {
	case h.tabCtx.Err() != nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, chromedp.ErrInvalidContext):
		return fmt.Errorf("%w: %v", models.ErrUnreachable, err)
	}
	return fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
}

// Target implements interfaces.Host.
func (h *Host) Target() models.Target { return h.target }

// Cookies implements interfaces.Host.
func (h *Host) Cookies() interfaces.CookieJar { return cookieJar{h} }

// Area implements interfaces.Host.
func (h *Host) Area(category models.Category) (interfaces.KeyValueArea, error) {
	if !category.IsKeyValue() {
		return nil, fmt.Errorf("%w: %s is not a key/value area", models.ErrUnsupported, category)
	}
	return area{host: h, category: category}, nil
}

// Workers implements interfaces.Host.
func (h *Host) Workers() interfaces.WorkerRegistry { return workerRegistry{h} }

// CacheStorage implements interfaces.Host.
func (h *Host) CacheStorage() interfaces.CacheStorage { return cacheStorage{h} }

// Watch implements interfaces.Host.
func (h *Host) Watch(fn func(models.ChangeNotification)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.watchers[id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.watchers, id)
		h.mu.Unlock()
	}
}

// Close detaches from the tab and, for launched browsers, stops Chromium.
// A tab that existed before Connect is left open; only tabs the host
// created itself are closed.
func (h *Host) Close() error {
	var err error
	h.closeOnce.Do(func() {
		if h.borrowed {
			err = h.release()
		}
		h.cancel()
	})
	return err
}

// release detaches the CDP session from a borrowed tab and clears the
// target ids, so cancelling its context cannot close the tab.
func (h *Host) release() error {
	c := chromedp.FromContext(h.tabCtx)
	if c == nil || c.Target == nil || c.Browser == nil {
		return nil
	}
	var err error
	if id := c.Target.SessionID; id != "" {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if derr := target.DetachFromTarget().WithSessionID(id).Do(cdp.WithExecutor(ctx, c.Browser)); derr != nil {
			err = fmt.Errorf("detach from tab: %w", derr)
			if h.logger != nil {
				h.logger.Warn().Err(derr).Str("target_id", h.target.ID).Msg("detach from tab failed")
			}
		}
	}
	c.Target.SessionID = ""
	c.Target.TargetID = ""
	return err
}
