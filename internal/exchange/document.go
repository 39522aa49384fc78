// Package exchange reads and writes the storage export document:
//
//	{"cookies": [...], "localStorage": {...}, "sessionStorage": {...}}
package exchange

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bobmcallan/storage-inspector/internal/models"
)

// Document is the export format. It mirrors models.Snapshot field for field.
type Document struct {
	Cookies        []models.Cookie   `json:"cookies"`
	LocalStorage   map[string]string `json:"localStorage"`
	SessionStorage map[string]string `json:"sessionStorage"`
}

// FromSnapshot converts a snapshot into an export document.
func FromSnapshot(s models.Snapshot) Document {
	s = s.Clone()
	return Document{
		Cookies:        s.Cookies,
		LocalStorage:   s.LocalStorage,
		SessionStorage: s.SessionStorage,
	}
}

// Marshal renders the document with two-space indentation.
func (d Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export document: %w", err)
	}
	return data, nil
}

// Filename returns the download name for an export made at t.
func Filename(t time.Time) string {
	return "storage_export_" + t.UTC().Format("2006-01-02") + ".json"
}
