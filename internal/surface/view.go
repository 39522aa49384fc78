// Package surface holds the presentation state shared by the panel, the
// CLI and the HTTP handlers: the last fetched snapshot and the actions a
// user can take on it.
package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/exchange"
	"github.com/bobmcallan/storage-inspector/internal/facade"
	"github.com/bobmcallan/storage-inspector/internal/models"
	"github.com/bobmcallan/storage-inspector/internal/relay"
)

// View caches the last snapshot of the inspected page. The cache is never
// authoritative: every refresh trigger replaces it wholesale.
type View struct {
	facade *facade.Facade
	logger *common.Logger

	mu       sync.RWMutex
	snapshot models.Snapshot
	workers  []models.ServiceWorker
	caches   []models.Cache
	fetched  time.Time
}

// NewView creates an empty view.
func NewView(f *facade.Facade, logger *common.Logger) *View {
	return &View{
		facade:   f,
		logger:   logger,
		snapshot: models.NewSnapshot(),
		workers:  []models.ServiceWorker{},
		caches:   []models.Cache{},
	}
}

// Degraded drops an ErrPartial refresh error. The view already holds the
// areas that could be read, so callers serve those instead of failing.
func Degraded(err error) error {
	if errors.Is(err, models.ErrPartial) {
		return nil
	}
	return err
}

// Facade returns the façade the view reads through.
func (v *View) Facade() *facade.Facade { return v.facade }

// Refresh pulls a full snapshot and replaces the cached one. A partial
// snapshot is still stored; the read error is logged and returned.
func (v *View) Refresh(ctx context.Context) (models.Snapshot, error) {
	snap, err := v.facade.Snapshot(ctx)
	v.mu.Lock()
	v.snapshot = snap
	v.fetched = time.Now()
	v.mu.Unlock()
	if err != nil {
		v.logger.Warn().Err(err).Msg("storage refresh incomplete")
	}
	return snap.Clone(), err
}

// RefreshWorkers replaces the cached service worker list.
func (v *View) RefreshWorkers(ctx context.Context) ([]models.ServiceWorker, error) {
	workers, err := v.facade.ListServiceWorkers(ctx)
	if err != nil {
		v.logger.Warn().Err(err).Msg("service worker refresh failed")
		return nil, err
	}
	v.mu.Lock()
	v.workers = workers
	v.mu.Unlock()
	return append([]models.ServiceWorker{}, workers...), nil
}

// RefreshCaches replaces the cached Cache Storage list.
func (v *View) RefreshCaches(ctx context.Context) ([]models.Cache, error) {
	caches, err := v.facade.ListCaches(ctx)
	if err != nil {
		v.logger.Warn().Err(err).Msg("cache refresh failed")
		return nil, err
	}
	v.mu.Lock()
	v.caches = caches
	v.mu.Unlock()
	return append([]models.Cache{}, caches...), nil
}

// Snapshot returns a copy of the cached snapshot.
func (v *View) Snapshot() models.Snapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshot.Clone()
}

// Workers returns the cached service workers.
func (v *View) Workers() []models.ServiceWorker {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]models.ServiceWorker{}, v.workers...)
}

// Caches returns the cached Cache Storage buckets.
func (v *View) Caches() []models.Cache {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]models.Cache{}, v.caches...)
}

// FetchedAt reports when the snapshot was last refreshed.
func (v *View) FetchedAt() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fetched
}

// Rows filters the cached snapshot without re-fetching.
func (v *View) Rows(category models.Category, term string) []models.StorageItem {
	v.mu.RLock()
	items := v.snapshot.Items()
	v.mu.RUnlock()
	return Filter(FilterCategory(items, category), term)
}

// Edit writes value for the identified row, then refreshes. The displayed
// value is whatever the refresh returns.
func (v *View) Edit(ctx context.Context, id models.RecordID, value string) error {
	item := models.StorageItem{Category: id.Category, Key: id.Key, Value: value, Domain: id.Domain}
	if err := v.facade.Set(ctx, item); err != nil {
		v.logger.Error().Err(err).
			Str("category", string(id.Category)).
			Str("key", id.Key).
			Msg("edit failed")
		return err
	}
	_, err := v.Refresh(ctx)
	return Degraded(err)
}

// Delete removes the identified row locally, asks the façade to delete it
// and refreshes regardless of the outcome. The delete error, if any, is
// returned after the refresh.
func (v *View) Delete(ctx context.Context, id models.RecordID) error {
	v.mu.Lock()
	v.snapshot = v.snapshot.Without(id)
	v.mu.Unlock()

	delErr := v.facade.Delete(ctx, id)
	if delErr != nil {
		v.logger.Error().Err(delErr).
			Str("category", string(id.Category)).
			Str("key", id.Key).
			Msg("delete failed")
	}

	var refreshErr error
	switch id.Category {
	case models.CategoryServiceWorker:
		_, refreshErr = v.RefreshWorkers(ctx)
	case models.CategoryCache:
		_, refreshErr = v.RefreshCaches(ctx)
	default:
		_, refreshErr = v.Refresh(ctx)
		refreshErr = Degraded(refreshErr)
	}
	if delErr != nil {
		return delErr
	}
	return refreshErr
}

// Copy returns the cached value of the identified row.
func (v *View) Copy(id models.RecordID) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if id.Category == models.CategoryCookie {
		for _, c := range v.snapshot.Cookies {
			if c.Name == id.Key && (id.Domain == "" || c.Domain == id.Domain) {
				return c.Value, nil
			}
		}
	} else if area := v.snapshot.Area(id.Category); area != nil {
		if val, ok := area[id.Key]; ok {
			return val, nil
		}
	}
	return "", fmt.Errorf("%s %q: %w", id.Category.Label(), id.Key, models.ErrNotFound)
}

// Export returns the export document of the cached snapshot.
func (v *View) Export() exchange.Document {
	return exchange.FromSnapshot(v.Snapshot())
}

// Import replays a document through the façade and refreshes afterwards,
// even when the document was malformed.
func (v *View) Import(ctx context.Context, data []byte) (exchange.Result, error) {
	res, err := exchange.Import(ctx, v.facade, data, v.logger)
	if err != nil {
		v.logger.Error().Err(err).Msg("import failed")
	}
	// Refresh failures are logged by Refresh.
	_, _ = v.Refresh(ctx)
	return res, err
}

// Attach subscribes the view to r. Every notification triggers a full
// refresh followed by onChange. Refresh errors are logged, not returned.
func (v *View) Attach(r *relay.Relay, id string, onChange func(models.Snapshot, models.ChangeNotification)) (unsubscribe func()) {
	_, unsubscribe = r.Subscribe(id, func(n models.ChangeNotification) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		snap, _ := v.Refresh(ctx)
		if onChange != nil {
			onChange(snap, n)
		}
	})
	return unsubscribe
}
