package models

import "time"

// RecordID identifies a record within its category. Domain is only
// meaningful for cookies.
type RecordID struct {
	Category Category `json:"type"`
	Key      string   `json:"key"`
	Domain   string   `json:"domain,omitempty"`
}

// Record is implemented by every storage record variant.
type Record interface {
	RecordID() RecordID
}

// Cookie is a browser cookie as exchanged with the host and export documents.
type Cookie struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Domain         string  `json:"domain"`
	Path           string  `json:"path"`
	ExpirationDate float64 `json:"expirationDate,omitempty"` // seconds since epoch; 0 for session cookies
	Secure         bool    `json:"secure"`
	HTTPOnly       bool    `json:"httpOnly"`
	SameSite       string  `json:"sameSite,omitempty"`
}

// IsSession reports whether the cookie expires with the browser session.
func (c Cookie) IsSession() bool {
	return c.ExpirationDate <= 0
}

// Expires returns the expiry time, or the zero time for session cookies.
func (c Cookie) Expires() time.Time {
	if c.IsSession() {
		return time.Time{}
	}
	sec := int64(c.ExpirationDate)
	nsec := int64((c.ExpirationDate - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// Item flattens the cookie into a StorageItem.
func (c Cookie) Item() StorageItem {
	return StorageItem{
		Category: CategoryCookie,
		Key:      c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Expires:  c.ExpirationDate,
	}
}

// RecordID implements Record.
func (c Cookie) RecordID() RecordID {
	return RecordID{Category: CategoryCookie, Key: c.Name, Domain: c.Domain}
}

// StorageItem is one row of cookie, localStorage or sessionStorage data.
type StorageItem struct {
	Category Category `json:"type"`
	Key      string   `json:"key"`
	Value    string   `json:"value"`
	Domain   string   `json:"domain,omitempty"`
	Path     string   `json:"path,omitempty"`
	Expires  float64  `json:"expires,omitempty"`
}

// RecordID implements Record.
func (i StorageItem) RecordID() RecordID {
	id := RecordID{Category: i.Category, Key: i.Key}
	if i.Category == CategoryCookie {
		id.Domain = i.Domain
	}
	return id
}
