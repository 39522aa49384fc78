package models

import (
	"fmt"
	"strings"
)

// Category identifies one kind of browser storage.
type Category string

const (
	CategoryCookie        Category = "cookie"
	CategoryLocal         Category = "local"
	CategorySession       Category = "session"
	CategoryServiceWorker Category = "service-worker"
	CategoryCache         Category = "cache"
)

// AllCategories lists every category in display order.
var AllCategories = []Category{
	CategoryCookie,
	CategoryLocal,
	CategorySession,
	CategoryServiceWorker,
	CategoryCache,
}

// ParseCategory accepts the canonical names plus the aliases used by the
// panel and import documents ("cookies", "localStorage", "sw", ...).
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cookie", "cookies":
		return CategoryCookie, nil
	case "local", "localstorage", "local-storage":
		return CategoryLocal, nil
	case "session", "sessionstorage", "session-storage":
		return CategorySession, nil
	case "service-worker", "service-workers", "serviceworker", "serviceworkers", "sw":
		return CategoryServiceWorker, nil
	case "cache", "caches", "cachestorage":
		return CategoryCache, nil
	}
	return "", fmt.Errorf("%w: unknown storage category %q", ErrUnsupported, s)
}

// IsKeyValue reports whether the category is a page key/value area.
func (c Category) IsKeyValue() bool {
	return c == CategoryLocal || c == CategorySession
}

// IsItem reports whether records of the category are StorageItems.
func (c Category) IsItem() bool {
	return c == CategoryCookie || c.IsKeyValue()
}

// Label is the name shown in tables and matched by the search filter.
func (c Category) Label() string {
	switch c {
	case CategoryLocal:
		return "localStorage"
	case CategorySession:
		return "sessionStorage"
	case CategoryServiceWorker:
		return "serviceWorker"
	default:
		return string(c)
	}
}

// ParseItemFilter parses a row-type filter. Empty and "all" select every
// row; categories without storage rows are rejected.
func ParseItemFilter(s string) (Category, error) {
	if s == "" || strings.EqualFold(s, "all") {
		return "", nil
	}
	c, err := ParseCategory(s)
	if err != nil {
		return "", err
	}
	if !c.IsItem() {
		return "", fmt.Errorf("%w: %s has no storage rows", ErrUnsupported, c.Label())
	}
	return c, nil
}
