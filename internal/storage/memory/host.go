// Package memory implements interfaces.Host over in-process maps. It backs
// the "memory" storage backend and the package tests.
package memory

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/bobmcallan/storage-inspector/internal/interfaces"
	"github.com/bobmcallan/storage-inspector/internal/models"
)

// Host is an in-memory browser tab.
type Host struct {
	target models.Target

	mu       sync.Mutex
	closed   bool
	cookies  []models.Cookie
	areas    map[models.Category]map[string]string
	workers  []models.ServiceWorker
	caches   []models.Cache
	watchers map[int]func(models.ChangeNotification)
	nextID   int
	faults   map[models.Category]error
}

// New creates an empty in-memory host for the given target.
func New(target models.Target) *Host {
	return &Host{
		target: target,
		areas: map[models.Category]map[string]string{
			models.CategoryLocal:   {},
			models.CategorySession: {},
		},
		watchers: map[int]func(models.ChangeNotification){},
	}
}

// Seed replaces the host contents. Intended for demos and tests.
func (h *Host) Seed(s models.Snapshot, workers []models.ServiceWorker, caches []models.Cache) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cookies = append([]models.Cookie(nil), s.Cookies...)
	for cat, src := range map[models.Category]map[string]string{
		models.CategoryLocal:   s.LocalStorage,
		models.CategorySession: s.SessionStorage,
	} {
		dst := map[string]string{}
		for k, v := range src {
			dst[k] = v
		}
		h.areas[cat] = dst
	}
	h.workers = append([]models.ServiceWorker(nil), workers...)
	h.caches = append([]models.Cache(nil), caches...)
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

// Close marks the tab as gone; every later call fails with ErrUnreachable.
func (h *Host) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// Fail makes every later operation on category return err, as a browser
// area that cannot be read would. A nil err clears the fault.
func (h *Host) Fail(category models.Category, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.faults == nil {
		h.faults = map[models.Category]error{}
	}
	if err == nil {
		delete(h.faults, category)
		return
	}
	h.faults[category] = err
}

// lockCategory is lock plus the fault set for category by Fail.
func (h *Host) lockCategory(ctx context.Context, category models.Category) error {
	if err := h.lock(ctx); err != nil {
		return err
	}
	if err := h.faults[category]; err != nil {
		h.mu.Unlock()
		return err
	}
	return nil
}

// lock acquires the mutex and reports ErrUnreachable for closed hosts or
// cancelled contexts. Callers must unlock on success.
func (h *Host) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrUnreachable, err)
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return fmt.Errorf("%w: target %s closed", models.ErrUnreachable, h.target.ID)
	}
	return nil
}

// emit notifies watchers. Must be called without mu held.
func (h *Host) emit(cat models.Category, key, op string) {
	h.mu.Lock()
	fns := make([]func(models.ChangeNotification), 0, len(h.watchers))
	for _, fn := range h.watchers {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	n := models.ChangeNotification{
		Type:     models.StorageUpdated,
		Category: cat,
		Key:      key,
		Op:       op,
		Origin:   models.OriginPage,
		At:       time.Now(),
	}
	for _, fn := range fns {
		fn(n)
	}
}

type cookieJar struct{ h *Host }

func (j cookieJar) Cookies(ctx context.Context) ([]models.Cookie, error) {
	if err := j.h.lockCategory(ctx, models.CategoryCookie); err != nil {
		return nil, err
	}
	defer j.h.mu.Unlock()
	return append([]models.Cookie{}, j.h.cookies...), nil
}

func (j cookieJar) SetCookie(ctx context.Context, c models.Cookie) error {
	if c.Name == "" {
		return fmt.Errorf("%w: cookie name is required", models.ErrInvalidArgument)
	}
	if err := j.h.lockCategory(ctx, models.CategoryCookie); err != nil {
		return err
	}
	defer j.h.mu.Unlock()
	if c.Path == "" {
		c.Path = "/"
	}
	if c.Domain == "" {
		c.Domain = hostname(j.h.target.URL)
	}
	idx := slices.IndexFunc(j.h.cookies, func(e models.Cookie) bool {
		return e.Name == c.Name && e.Domain == c.Domain && e.Path == c.Path
	})
	if idx >= 0 {
		j.h.cookies[idx] = c
	} else {
		j.h.cookies = append(j.h.cookies, c)
	}
	return nil
}

// DeleteCookie mirrors Network.deleteCookies: deleting an absent cookie is
// not an error at the host level, and an empty path matches every path.
func (j cookieJar) DeleteCookie(ctx context.Context, domain, name, path string) error {
	if err := j.h.lockCategory(ctx, models.CategoryCookie); err != nil {
		return err
	}
	defer j.h.mu.Unlock()
	j.h.cookies = slices.DeleteFunc(j.h.cookies, func(c models.Cookie) bool {
		return c.Name == name && (domain == "" || c.Domain == domain) && (path == "" || c.Path == path)
	})
	return nil
}

type area struct {
	host     *Host
	category models.Category
}

func (a area) Category() models.Category { return a.category }

func (a area) Items(ctx context.Context) (map[string]string, error) {
	if err := a.host.lockCategory(ctx, a.category); err != nil {
		return nil, err
	}
	defer a.host.mu.Unlock()
	out := make(map[string]string, len(a.host.areas[a.category]))
	for k, v := range a.host.areas[a.category] {
		out[k] = v
	}
	return out, nil
}

// SetItem emits a change only when the value actually changes, as Blink
// raises no storage event for a same-value write.
func (a area) SetItem(ctx context.Context, key, value string) error {
	if err := a.host.lockCategory(ctx, a.category); err != nil {
		return err
	}
	old, existed := a.host.areas[a.category][key]
	a.host.areas[a.category][key] = value
	a.host.mu.Unlock()
	if !existed || old != value {
		a.host.emit(a.category, key, models.OpSet)
	}
	return nil
}

// RemoveItem emits a change only when the key was present.
func (a area) RemoveItem(ctx context.Context, key string) error {
	if err := a.host.lockCategory(ctx, a.category); err != nil {
		return err
	}
	_, existed := a.host.areas[a.category][key]
	delete(a.host.areas[a.category], key)
	a.host.mu.Unlock()
	if existed {
		a.host.emit(a.category, key, models.OpRemove)
	}
	return nil
}

type workerRegistry struct{ h *Host }

func (r workerRegistry) ServiceWorkers(ctx context.Context) ([]models.ServiceWorker, error) {
	if err := r.h.lock(ctx); err != nil {
		return nil, err
	}
	defer r.h.mu.Unlock()
	return append([]models.ServiceWorker{}, r.h.workers...), nil
}

func (r workerRegistry) Unregister(ctx context.Context, id string) error {
	if err := r.h.lock(ctx); err != nil {
		return err
	}
	defer r.h.mu.Unlock()
	n := len(r.h.workers)
	r.h.workers = slices.DeleteFunc(r.h.workers, func(w models.ServiceWorker) bool { return w.ID == id })
	if len(r.h.workers) == n {
		return fmt.Errorf("service worker %s: %w", id, models.ErrNotFound)
	}
	return nil
}

type cacheStorage struct{ h *Host }

func (s cacheStorage) Caches(ctx context.Context) ([]models.Cache, error) {
	if err := s.h.lock(ctx); err != nil {
		return nil, err
	}
	defer s.h.mu.Unlock()
	out := make([]models.Cache, len(s.h.caches))
	for i, c := range s.h.caches {
		out[i] = models.Cache{Name: c.Name, URLs: append([]string{}, c.URLs...)}
	}
	return out, nil
}

func (s cacheStorage) DeleteCache(ctx context.Context, name string) error {
	if err := s.h.lock(ctx); err != nil {
		return err
	}
	defer s.h.mu.Unlock()
	n := len(s.h.caches)
	s.h.caches = slices.DeleteFunc(s.h.caches, func(c models.Cache) bool { return c.Name == name })
	if len(s.h.caches) == n {
		return fmt.Errorf("cache %s: %w", name, models.ErrNotFound)
	}
	return nil
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
