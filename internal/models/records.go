package models

// ServiceWorker is a service worker registration of the inspected page.
type ServiceWorker struct {
	ID        string `json:"id"`
	ScriptURL string `json:"scriptURL"`
	Status    string `json:"status"`
	Scope     string `json:"scope"`
}

// RecordID implements Record.
func (w ServiceWorker) RecordID() RecordID {
	return RecordID{Category: CategoryServiceWorker, Key: w.ID}
}

// Cache is one named Cache Storage bucket and the request URLs it holds.
type Cache struct {
	Name string   `json:"name"`
	URLs []string `json:"urls"`
}

// RecordID implements Record.
func (c Cache) RecordID() RecordID {
	return RecordID{Category: CategoryCache, Key: c.Name}
}

// Target describes the inspected tab.
type Target struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}
