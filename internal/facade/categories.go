package facade

import (
	"context"
	"fmt"
	"slices"

	"github.com/bobmcallan/storage-inspector/internal/models"
)

// Category is one storage kind behind a uniform list/get/delete surface.
type Category interface {
	Kind() models.Category
	List(ctx context.Context) ([]models.Record, error)
	Get(ctx context.Context, id models.RecordID) (models.Record, error)
	Delete(ctx context.Context, id models.RecordID) error
}

// Writable is implemented by categories whose records can be set: cookies
// and the two key/value areas.
type Writable interface {
	Category
	Set(ctx context.Context, item models.StorageItem) error
}

// Category returns the variant for kind.
func (f *Facade) Category(kind models.Category) (Category, error) {
	switch kind {
	case models.CategoryCookie:
		return cookieCategory{f}, nil
	case models.CategoryLocal, models.CategorySession:
		return keyValueCategory{f: f, kind: kind}, nil
	case models.CategoryServiceWorker:
		return workerCategory{f}, nil
	case models.CategoryCache:
		return cacheCategory{f}, nil
	}
	return nil, fmt.Errorf("%w: unknown storage category %q", models.ErrUnsupported, kind)
}

// Categories returns every variant in display order.
func (f *Facade) Categories() []Category {
	out := make([]Category, 0, len(models.AllCategories))
	for _, kind := range models.AllCategories {
		c, _ := f.Category(kind)
		out = append(out, c)
	}
	return out
}

// Set writes an item through its category. Service workers and caches are
// read-only and yield ErrUnsupported.
func (f *Facade) Set(ctx context.Context, item models.StorageItem) error {
	c, err := f.Category(item.Category)
	if err != nil {
		return err
	}
	w, ok := c.(Writable)
	if !ok {
		return fmt.Errorf("%w: %s records cannot be set", models.ErrUnsupported, item.Category.Label())
	}
	return w.Set(ctx, item)
}

// Delete removes the identified record through its category.
func (f *Facade) Delete(ctx context.Context, id models.RecordID) error {
	c, err := f.Category(id.Category)
	if err != nil {
		return err
	}
	return c.Delete(ctx, id)
}

type cookieCategory struct{ f *Facade }

func (c cookieCategory) Kind() models.Category { return models.CategoryCookie }

func (c cookieCategory) List(ctx context.Context) ([]models.Record, error) {
	cookies, err := c.f.ListCookies(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, 0, len(cookies))
	for _, ck := range cookies {
		out = append(out, ck.Item())
	}
	return out, nil
}

func (c cookieCategory) Get(ctx context.Context, id models.RecordID) (models.Record, error) {
	ck, err := c.f.findCookie(ctx, id.Domain, id.Key)
	if err != nil {
		return nil, err
	}
	return ck.Item(), nil
}

// Set keeps the attributes of an existing cookie and replaces its value.
// New cookies default to the tab's host and path "/".
func (c cookieCategory) Set(ctx context.Context, item models.StorageItem) error {
	ck := models.Cookie{
		Name:           item.Key,
		Value:          item.Value,
		Domain:         item.Domain,
		Path:           item.Path,
		ExpirationDate: item.Expires,
	}
	if existing, err := c.f.findCookie(ctx, item.Domain, item.Key); err == nil {
		ck = existing
		ck.Value = item.Value
		if item.Path != "" {
			ck.Path = item.Path
		}
		if item.Expires != 0 {
			ck.ExpirationDate = item.Expires
		}
	}
	return c.f.SetCookie(ctx, ck)
}

func (c cookieCategory) Delete(ctx context.Context, id models.RecordID) error {
	return c.f.DeleteCookie(ctx, id.Domain, id.Key)
}

type keyValueCategory struct {
	f    *Facade
	kind models.Category
}

func (c keyValueCategory) Kind() models.Category { return c.kind }

func (c keyValueCategory) List(ctx context.Context) ([]models.Record, error) {
	items, err := c.f.ListKeyValue(ctx, c.kind)
	if err != nil {
		return nil, err
	}
	snap := models.Snapshot{}
	if c.kind == models.CategoryLocal {
		snap.LocalStorage = items
	} else {
		snap.SessionStorage = items
	}
	out := make([]models.Record, 0, len(items))
	for _, it := range snap.Items() {
		out = append(out, it)
	}
	return out, nil
}

func (c keyValueCategory) Get(ctx context.Context, id models.RecordID) (models.Record, error) {
	items, err := c.f.ListKeyValue(ctx, c.kind)
	if err != nil {
		return nil, err
	}
	v, ok := items[id.Key]
	if !ok {
		return nil, fmt.Errorf("%s %q: %w", c.kind.Label(), id.Key, models.ErrNotFound)
	}
	return models.StorageItem{Category: c.kind, Key: id.Key, Value: v}, nil
}

func (c keyValueCategory) Set(ctx context.Context, item models.StorageItem) error {
	return c.f.SetKeyValue(ctx, c.kind, item.Key, item.Value)
}

func (c keyValueCategory) Delete(ctx context.Context, id models.RecordID) error {
	return c.f.DeleteKeyValue(ctx, c.kind, id.Key)
}

type workerCategory struct{ f *Facade }

func (c workerCategory) Kind() models.Category { return models.CategoryServiceWorker }

func (c workerCategory) List(ctx context.Context) ([]models.Record, error) {
	workers, err := c.f.ListServiceWorkers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, 0, len(workers))
	for _, w := range workers {
		out = append(out, w)
	}
	return out, nil
}

func (c workerCategory) Get(ctx context.Context, id models.RecordID) (models.Record, error) {
	workers, err := c.f.ListServiceWorkers(ctx)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(workers, func(w models.ServiceWorker) bool { return w.ID == id.Key })
	if i < 0 {
		return nil, fmt.Errorf("service worker %s: %w", id.Key, models.ErrNotFound)
	}
	return workers[i], nil
}

func (c workerCategory) Delete(ctx context.Context, id models.RecordID) error {
	return c.f.Unregister(ctx, id.Key)
}

type cacheCategory struct{ f *Facade }

func (c cacheCategory) Kind() models.Category { return models.CategoryCache }

func (c cacheCategory) List(ctx context.Context) ([]models.Record, error) {
	caches, err := c.f.ListCaches(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, 0, len(caches))
	for _, cc := range caches {
		out = append(out, cc)
	}
	return out, nil
}

func (c cacheCategory) Get(ctx context.Context, id models.RecordID) (models.Record, error) {
	caches, err := c.f.ListCaches(ctx)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(caches, func(cc models.Cache) bool { return cc.Name == id.Key })
	if i < 0 {
		return nil, fmt.Errorf("cache %s: %w", id.Key, models.ErrNotFound)
	}
	return caches[i], nil
}

func (c cacheCategory) Delete(ctx context.Context, id models.RecordID) error {
	return c.f.DeleteCache(ctx, id.Key)
}
