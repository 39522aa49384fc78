package browser

import (
	"time"

	"github.com/chromedp/cdproto/domstorage"

	"github.com/bobmcallan/storage-inspector/internal/models"
)

// onEvent translates DOMStorage events into notifications for watchers.
// chromedp invokes it on its event loop, so it must not block.
func (h *Host) onEvent(ev interface{}) {
	var (
		id  *domstorage.StorageID
		key string
		op  string
	)
	switch e := ev.(type) {
	case *domstorage.EventDomStorageItemAdded:
		id, key, op = e.StorageID, e.Key, models.OpSet
	case *domstorage.EventDomStorageItemUpdated:
		id, key, op = e.StorageID, e.Key, models.OpSet
	case *domstorage.EventDomStorageItemRemoved:
		id, key, op = e.StorageID, e.Key, models.OpRemove
	case *domstorage.EventDomStorageItemsCleared:
		id, op = e.StorageID, models.OpClear
	default:
		return
	}

	category := models.CategorySession
	if id != nil && id.IsLocalStorage {
		category = models.CategoryLocal
	}
	n := models.ChangeNotification{
		Type:     models.StorageUpdated,
		Category: category,
		Key:      key,
		Op:       op,
		Origin:   models.OriginPage,
		At:       time.Now(),
	}

	h.mu.Lock()
	fns := make([]func(models.ChangeNotification), 0, len(h.watchers))
	for _, fn := range h.watchers {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
}
