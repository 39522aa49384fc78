package interfaces

import (
	"context"

	"github.com/bobmcallan/storage-inspector/internal/models"
)

// Host is the narrow surface of the browser that the inspector calls
// through. Implementations can be swapped (CDP now, in-memory for tests).
type Host interface {
	Target() models.Target
	Cookies() CookieJar
	Area(category models.Category) (KeyValueArea, error)
	Workers() WorkerRegistry
	CacheStorage() CacheStorage

	// Watch registers fn for page-side key/value mutations reported by the
	// host. The returned function removes the registration.
	Watch(fn func(models.ChangeNotification)) (stop func())

	Close() error
}

// CookieJar provides cookie operations.
type CookieJar interface {
	Cookies(ctx context.Context) ([]models.Cookie, error)
	SetCookie(ctx context.Context, cookie models.Cookie) error
	// DeleteCookie removes the cookie with the given name, domain and path.
	// An empty path matches every path.
	DeleteCookie(ctx context.Context, domain, name, path string) error
}

// KeyValueArea provides localStorage or sessionStorage operations.
type KeyValueArea interface {
	Category() models.Category
	Items(ctx context.Context) (map[string]string, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// WorkerRegistry provides service worker registrations.
type WorkerRegistry interface {
	ServiceWorkers(ctx context.Context) ([]models.ServiceWorker, error)
	Unregister(ctx context.Context, id string) error
}

// CacheStorage provides Cache Storage buckets.
type CacheStorage interface {
	Caches(ctx context.Context) ([]models.Cache, error)
	DeleteCache(ctx context.Context, name string) error
}

// Publisher accepts change notifications.
type Publisher interface {
	Publish(n models.ChangeNotification)
}
