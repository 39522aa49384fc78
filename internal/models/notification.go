package models

import "time"

// NotificationType is the "type" field of a change notification.
type NotificationType string

const (
	// StorageUpdated is emitted by the storage monitor.
	StorageUpdated NotificationType = "storageUpdated"
	// StorageChanged is the form the relay rebroadcasts to subscribers.
	StorageChanged NotificationType = "storageChanged"
)

// Mutation operations carried in a notification delta.
const (
	OpSet    = "set"
	OpRemove = "remove"
	OpClear  = "clear"
)

// Mutation origins.
const (
	OriginTool = "tool"
	OriginPage = "page"
)

// ChangeNotification signals that storage changed. The delta fields are
// informational only: receivers re-fetch the full snapshot.
type ChangeNotification struct {
	Type     NotificationType `json:"type"`
	Category Category         `json:"category,omitempty"`
	Key      string           `json:"key,omitempty"`
	Op       string           `json:"op,omitempty"`
	Origin   string           `json:"origin,omitempty"`
	At       time.Time        `json:"at"`
}
