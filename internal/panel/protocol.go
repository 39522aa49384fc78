// Package panel implements the DevTools panel's command port: a WebSocket
// carrying JSON requests from the panel page and snapshot responses back.
package panel

import "encoding/json"

// Request names sent by the panel.
const (
	CmdInit              = "init"
	CmdGetStorage        = "get-storage"
	CmdGetServiceWorkers = "get-service-workers"
	CmdGetCache          = "get-cache"
	CmdUpdateStorage     = "update-storage"
	CmdDeleteStorage     = "delete-storage"
	CmdUnregisterSW      = "unregister-sw"
	CmdDeleteCache       = "delete-cache"
	CmdExportData        = "export-data"
	CmdImportData        = "import-data"
)

// Response types sent to the panel.
const (
	TypeStorageUpdate  = "storage-update"
	TypeSWUpdate       = "sw-update"
	TypeCacheUpdate    = "cache-update"
	TypeExportData     = "export-data"
	TypeImportResult   = "import-result"
	TypeStorageChanged = "storageChanged"
	TypeError          = "error"
)

// Request is one panel command. Fields beyond Name and TabID depend on the
// command.
type Request struct {
	Name        string          `json:"name"`
	TabID       string          `json:"tabId,omitempty"`
	StorageType string          `json:"storageType,omitempty"`
	Type        string          `json:"type,omitempty"`
	Key         string          `json:"key,omitempty"`
	Value       string          `json:"value,omitempty"`
	Domain      string          `json:"domain,omitempty"`
	Path        string          `json:"path,omitempty"`
	ID          string          `json:"id,omitempty"`
	CacheName   string          `json:"cacheName,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// Response is one message to the panel.
type Response struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ErrorData is the payload of an error response.
type ErrorData struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

// ExportData is the payload of an export-data response.
type ExportData struct {
	Filename string `json:"filename"`
	Document any    `json:"document"`
}

// ImportResult is the payload of an import-result response.
type ImportResult struct {
	Applied int      `json:"applied"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}
