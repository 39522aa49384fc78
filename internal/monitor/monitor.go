// Package monitor observes storage mutations and publishes exactly one
// storageUpdated notification for each of them.
//
// Tool writes go through decorators returned by Install and InstallCookies.
// Page writes arrive through the host's event stream (Observe). A tool write
// is echoed back by the host as a page event; the monitor records the write
// before performing it and drops the matching echo, so each mutation is
// reported once.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/interfaces"
	"github.com/bobmcallan/storage-inspector/internal/models"
)

// DefaultEchoWindow is how long a tool write waits for its host echo.
const DefaultEchoWindow = 2 * time.Second

// Option configures a Monitor.
type Option func(*Monitor)

// WithEchoWindow overrides DefaultEchoWindow.
func WithEchoWindow(d time.Duration) Option {
	return func(m *Monitor) { m.window = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// Monitor publishes change notifications to a single publisher.
type Monitor struct {
	pub    interfaces.Publisher
	logger *common.Logger
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	pending []echo
}

type echo struct {
	category models.Category
	key      string
	op       string
	at       time.Time
}

// New creates a monitor publishing to pub.
func New(pub interfaces.Publisher, logger *common.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		pub:    pub,
		logger: logger,
		window: DefaultEchoWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Install decorates a key/value area so every successful SetItem or
// RemoveItem emits one notification. Installing twice with the same monitor
// returns the existing decorator.
func (m *Monitor) Install(area interfaces.KeyValueArea) interfaces.KeyValueArea {
	if a, ok := area.(*monitoredArea); ok && a.m == m {
		return a
	}
	return &monitoredArea{inner: area, m: m}
}

// InstallCookies decorates a cookie jar the same way Install does for areas.
func (m *Monitor) InstallCookies(jar interfaces.CookieJar) interfaces.CookieJar {
	if j, ok := jar.(*monitoredJar); ok && j.m == m {
		return j
	}
	return &monitoredJar{inner: jar, m: m}
}

// Observe turns the host's page-side storage events into notifications until
// the returned stop function is called.
func (m *Monitor) Observe(host interfaces.Host) (stop func()) {
	return host.Watch(m.hostEvent)
}

func (m *Monitor) hostEvent(n models.ChangeNotification) {
	if m.consumeEcho(n.Category, n.Key, n.Op) {
		m.logger.Debug().
			Str("category", string(n.Category)).
			Str("key", n.Key).
			Msg("dropped host echo of tool write")
		return
	}
	m.emit(n.Category, n.Key, n.Op, models.OriginPage)
}

func (m *Monitor) expectEcho(category models.Category, key, op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune()
	m.pending = append(m.pending, echo{category: category, key: key, op: op, at: m.now()})
}

// cancelEcho forgets an expectation whose write failed.
func (m *Monitor) cancelEcho(category models.Category, key, op string) {
	m.consumeEcho(category, key, op)
}

func (m *Monitor) consumeEcho(category models.Category, key, op string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prune()
	for i, e := range m.pending {
		if e.category == category && e.key == key && e.op == op {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return true
		}
	}
	return false
}

// prune drops expired expectations. Callers hold mu.
func (m *Monitor) prune() {
	cutoff := m.now().Add(-m.window)
	kept := m.pending[:0]
	for _, e := range m.pending {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	m.pending = kept
}

func (m *Monitor) emit(category models.Category, key, op, origin string) {
	m.pub.Publish(models.ChangeNotification{
		Type:     models.StorageUpdated,
		Category: category,
		Key:      key,
		Op:       op,
		Origin:   origin,
		At:       m.now(),
	})
}

type monitoredArea struct {
	inner interfaces.KeyValueArea
	m     *Monitor
}

func (a *monitoredArea) Category() models.Category { return a.inner.Category() }

func (a *monitoredArea) Items(ctx context.Context) (map[string]string, error) {
	return a.inner.Items(ctx)
}

func (a *monitoredArea) SetItem(ctx context.Context, key, value string) error {
	return a.mutate(ctx, key, models.OpSet, value, func() error { return a.inner.SetItem(ctx, key, value) })
}

func (a *monitoredArea) RemoveItem(ctx context.Context, key string) error {
	return a.mutate(ctx, key, models.OpRemove, "", func() error { return a.inner.RemoveItem(ctx, key) })
}

// mutate arms an echo expectation only for writes that change the area.
// The host stays silent for a same-value set or the removal of an absent
// key, and an armed expectation would swallow the next real page write.
func (a *monitoredArea) mutate(ctx context.Context, key, op, value string, write func() error) error {
	cat := a.inner.Category()
	armed := a.changes(ctx, key, op, value)
	if armed {
		a.m.expectEcho(cat, key, op)
	}
	if err := write(); err != nil {
		if armed {
			a.m.cancelEcho(cat, key, op)
		}
		return err
	}
	a.m.emit(cat, key, op, models.OriginTool)
	return nil
}

// changes reports whether the write will alter the area. When the current
// contents cannot be read it assumes a change.
func (a *monitoredArea) changes(ctx context.Context, key, op, value string) bool {
	items, err := a.inner.Items(ctx)
	if err != nil {
		return true
	}
	old, ok := items[key]
	if op == models.OpRemove {
		return ok
	}
	return !ok || old != value
}

// Cookie writes have no host echo; CDP reports no cookie events.
type monitoredJar struct {
	inner interfaces.CookieJar
	m     *Monitor
}

func (j *monitoredJar) Cookies(ctx context.Context) ([]models.Cookie, error) {
	return j.inner.Cookies(ctx)
}

func (j *monitoredJar) SetCookie(ctx context.Context, c models.Cookie) error {
	if err := j.inner.SetCookie(ctx, c); err != nil {
		return err
	}
	j.m.emit(models.CategoryCookie, c.Name, models.OpSet, models.OriginTool)
	return nil
}

func (j *monitoredJar) DeleteCookie(ctx context.Context, domain, name, path string) error {
	if err := j.inner.DeleteCookie(ctx, domain, name, path); err != nil {
		return err
	}
	j.m.emit(models.CategoryCookie, name, models.OpRemove, models.OriginTool)
	return nil
}
