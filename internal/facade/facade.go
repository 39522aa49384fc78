// Package facade is the request/response surface over the inspected page's
// storage. Every operation blocks until the host answers, may fail on its
// own, and is never retried.
package facade

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/interfaces"
	"github.com/bobmcallan/storage-inspector/internal/models"
	"github.com/bobmcallan/storage-inspector/internal/monitor"
)

// Facade routes storage operations to the host. Cookie and key/value writes
// go through monitor decorators so that each emits one notification.
type Facade struct {
	host    interfaces.Host
	logger  *common.Logger
	cookies interfaces.CookieJar
	areas   map[models.Category]interfaces.KeyValueArea
}

// New builds a façade over host. A nil monitor leaves writes unobserved.
func New(host interfaces.Host, mon *monitor.Monitor, logger *common.Logger) (*Facade, error) {
	f := &Facade{
		host:    host,
		logger:  logger,
		cookies: host.Cookies(),
		areas:   make(map[models.Category]interfaces.KeyValueArea, 2),
	}
	if mon != nil {
		f.cookies = mon.InstallCookies(f.cookies)
	}
	for _, cat := range []models.Category{models.CategoryLocal, models.CategorySession} {
		area, err := host.Area(cat)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cat.Label(), err)
		}
		if mon != nil {
			area = mon.Install(area)
		}
		f.areas[cat] = area
	}
	return f, nil
}

// Target describes the inspected tab.
func (f *Facade) Target() models.Target { return f.host.Target() }

// ListCookies returns every cookie.
func (f *Facade) ListCookies(ctx context.Context) ([]models.Cookie, error) {
	return f.cookies.Cookies(ctx)
}

// SetCookie creates or replaces a cookie. The value is not validated.
func (f *Facade) SetCookie(ctx context.Context, c models.Cookie) error {
	if c.Name == "" {
		return fmt.Errorf("%w: cookie name is required", models.ErrInvalidArgument)
	}
	return f.cookies.SetCookie(ctx, c)
}

// DeleteCookie removes the named cookie. An empty domain matches any domain.
// Only the first listed match is removed, scoped to its own path, so
// same-named cookies on other paths survive. Deleting a cookie that does
// not exist returns ErrNotFound.
func (f *Facade) DeleteCookie(ctx context.Context, domain, name string) error {
	c, err := f.findCookie(ctx, domain, name)
	if err != nil {
		return err
	}
	return f.cookies.DeleteCookie(ctx, c.Domain, c.Name, c.Path)
}

func (f *Facade) findCookie(ctx context.Context, domain, name string) (models.Cookie, error) {
	cookies, err := f.cookies.Cookies(ctx)
	if err != nil {
		return models.Cookie{}, err
	}
	for _, c := range cookies {
		if c.Name == name && domainMatches(c.Domain, domain) {
			return c, nil
		}
	}
	if domain == "" {
		return models.Cookie{}, fmt.Errorf("cookie %s: %w", name, models.ErrNotFound)
	}
	return models.Cookie{}, fmt.Errorf("cookie %s for %s: %w", name, domain, models.ErrNotFound)
}

// domainMatches compares cookie domains ignoring the leading dot of
// domain cookies.
func domainMatches(have, want string) bool {
	if want == "" {
		return true
	}
	return strings.EqualFold(strings.TrimPrefix(have, "."), strings.TrimPrefix(want, "."))
}

func (f *Facade) area(category models.Category) (interfaces.KeyValueArea, error) {
	a, ok := f.areas[category]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a key/value area", models.ErrUnsupported, category)
	}
	return a, nil
}

// ListKeyValue returns the contents of localStorage or sessionStorage.
func (f *Facade) ListKeyValue(ctx context.Context, category models.Category) (map[string]string, error) {
	a, err := f.area(category)
	if err != nil {
		return nil, err
	}
	return a.Items(ctx)
}

// SetKeyValue writes one key in localStorage or sessionStorage.
func (f *Facade) SetKeyValue(ctx context.Context, category models.Category, key, value string) error {
	a, err := f.area(category)
	if err != nil {
		return err
	}
	return a.SetItem(ctx, key, value)
}

// DeleteKeyValue removes one key. Removing an absent key is not an error,
// matching Storage.removeItem.
func (f *Facade) DeleteKeyValue(ctx context.Context, category models.Category, key string) error {
	a, err := f.area(category)
	if err != nil {
		return err
	}
	return a.RemoveItem(ctx, key)
}

// ListServiceWorkers returns the page's service worker registrations.
func (f *Facade) ListServiceWorkers(ctx context.Context) ([]models.ServiceWorker, error) {
	return f.host.Workers().ServiceWorkers(ctx)
}

// Unregister removes a service worker registration.
func (f *Facade) Unregister(ctx context.Context, id string) error {
	return f.host.Workers().Unregister(ctx, id)
}

// ListCaches returns every Cache Storage bucket.
func (f *Facade) ListCaches(ctx context.Context) ([]models.Cache, error) {
	return f.host.CacheStorage().Caches(ctx)
}

// DeleteCache removes a Cache Storage bucket by name.
func (f *Facade) DeleteCache(ctx context.Context, name string) error {
	return f.host.CacheStorage().DeleteCache(ctx, name)
}

// Snapshot reads cookies and both key/value areas. A failing read leaves
// that part empty. When only some reads fail the error wraps ErrPartial;
// when all fail the joined errors are returned as they are.
func (f *Facade) Snapshot(ctx context.Context) (models.Snapshot, error) {
	snap := models.NewSnapshot()
	var errs []error

	cookies, err := f.ListCookies(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("cookies: %w", err))
	} else {
		snap.Cookies = cookies
	}

	areas := []models.Category{models.CategoryLocal, models.CategorySession}
	for _, cat := range areas {
		items, err := f.ListKeyValue(ctx, cat)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cat.Label(), err))
			continue
		}
		switch cat {
		case models.CategoryLocal:
			snap.LocalStorage = items
		case models.CategorySession:
			snap.SessionStorage = items
		}
	}

	switch {
	case len(errs) == 1+len(areas):
		return snap, errors.Join(errs...)
	case len(errs) > 0:
		err := fmt.Errorf("%w: %w", models.ErrPartial, errors.Join(errs...))
		f.logger.Warn().Err(err).Msg("partial storage snapshot")
		return snap, err
	}
	return snap, nil
}
