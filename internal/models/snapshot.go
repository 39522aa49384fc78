package models

import (
	"slices"

	"github.com/samber/lo"
)

// Snapshot is a point-in-time copy of the page's cookie and key/value storage.
type Snapshot struct {
	Cookies        []Cookie          `json:"cookies"`
	LocalStorage   map[string]string `json:"localStorage"`
	SessionStorage map[string]string `json:"sessionStorage"`
}

// NewSnapshot returns an empty snapshot with non-nil collections.
func NewSnapshot() Snapshot {
	return Snapshot{
		Cookies:        []Cookie{},
		LocalStorage:   map[string]string{},
		SessionStorage: map[string]string{},
	}
}

// Area returns the key/value map for a category, or nil for other categories.
func (s Snapshot) Area(c Category) map[string]string {
	switch c {
	case CategoryLocal:
		return s.LocalStorage
	case CategorySession:
		return s.SessionStorage
	}
	return nil
}

// Items flattens the snapshot: cookies, then localStorage, then
// sessionStorage, keys ascending within each key/value area.
func (s Snapshot) Items() []StorageItem {
	items := make([]StorageItem, 0, len(s.Cookies)+len(s.LocalStorage)+len(s.SessionStorage))
	for _, c := range s.Cookies {
		items = append(items, c.Item())
	}
	for _, cat := range []Category{CategoryLocal, CategorySession} {
		area := s.Area(cat)
		keys := lo.Keys(area)
		slices.Sort(keys)
		for _, k := range keys {
			items = append(items, StorageItem{Category: cat, Key: k, Value: area[k]})
		}
	}
	return items
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := NewSnapshot()
	out.Cookies = append(out.Cookies, s.Cookies...)
	for k, v := range s.LocalStorage {
		out.LocalStorage[k] = v
	}
	for k, v := range s.SessionStorage {
		out.SessionStorage[k] = v
	}
	return out
}

// Without returns a copy of the snapshot with the identified item removed.
func (s Snapshot) Without(id RecordID) Snapshot {
	out := s.Clone()
	switch {
	case id.Category == CategoryCookie:
		out.Cookies = lo.Reject(out.Cookies, func(c Cookie, _ int) bool {
			return c.Name == id.Key && (id.Domain == "" || c.Domain == id.Domain)
		})
	case id.Category.IsKeyValue():
		delete(out.Area(id.Category), id.Key)
	}
	return out
}
