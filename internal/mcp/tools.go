package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

var toolNames = []string{
	"list_storage",
	"set_storage",
	"delete_storage",
	"list_service_workers",
	"unregister_service_worker",
	"list_caches",
	"delete_cache",
	"export_storage",
	"import_storage",
	"get_version",
}

const typeDescription = "Storage type: cookies, localStorage or sessionStorage"

// registerTools adds every storage tool to s.
func registerTools(s *server.MCPServer, t *tools) {
	s.AddTool(mcp.NewTool("list_storage",
		mcp.WithDescription("List cookie, localStorage and sessionStorage rows of the inspected tab."),
		mcp.WithString("type", mcp.Description(typeDescription+", or all (default)")),
		mcp.WithString("search", mcp.Description("Case-insensitive match on key, value or type")),
	), t.listStorage)

	s.AddTool(mcp.NewTool("set_storage",
		mcp.WithDescription("Create or overwrite a storage row. Cookie attributes are kept when only the value changes."),
		mcp.WithString("type", mcp.Required(), mcp.Description(typeDescription)),
		mcp.WithString("key", mcp.Required(), mcp.Description("Key, or cookie name")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value")),
		mcp.WithString("domain", mcp.Description("Cookie domain (cookies only)")),
		mcp.WithString("path", mcp.Description("Cookie path (cookies only)")),
	), t.setStorage)

	s.AddTool(mcp.NewTool("delete_storage",
		mcp.WithDescription("Delete a storage row."),
		mcp.WithString("type", mcp.Required(), mcp.Description(typeDescription)),
		mcp.WithString("key", mcp.Required(), mcp.Description("Key, or cookie name")),
		mcp.WithString("domain", mcp.Description("Cookie domain (cookies only)")),
	), t.deleteStorage)

	s.AddTool(mcp.NewTool("list_service_workers",
		mcp.WithDescription("List service worker registrations of the inspected page."),
	), t.listServiceWorkers)

	s.AddTool(mcp.NewTool("unregister_service_worker",
		mcp.WithDescription("Unregister a service worker by id (its registration scope)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Service worker id")),
	), t.unregisterServiceWorker)

	s.AddTool(mcp.NewTool("list_caches",
		mcp.WithDescription("List Cache Storage buckets and their request URLs."),
	), t.listCaches)

	s.AddTool(mcp.NewTool("delete_cache",
		mcp.WithDescription("Delete a Cache Storage bucket by name."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Cache name")),
	), t.deleteCache)

	s.AddTool(mcp.NewTool("export_storage",
		mcp.WithDescription("Export cookies, localStorage and sessionStorage as a JSON document."),
	), t.exportStorage)

	s.AddTool(mcp.NewTool("import_storage",
		mcp.WithDescription("Replay an export document into the inspected tab. Entries are applied one at a time; failures are reported and skipped."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Export document JSON text")),
	), t.importStorage)

	s.AddTool(VersionTool(), VersionToolHandler())
}
