package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/models"
	"github.com/bobmcallan/storage-inspector/internal/surface"
)

// tools holds the dependencies of the tool handlers.
type tools struct {
	view   *surface.View
	logger *common.Logger
}

// errorResult creates an MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

// jsonResult renders v as the text content of a result.
func jsonResult(v interface{}) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("failed to marshal result: " + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(out))},
	}
}

func (t *tools) fail(tool string, err error) *mcp.CallToolResult {
	t.logger.Warn().Str("tool", tool).Err(err).Msg("MCP tool failed")
	return errorResult(err.Error())
}

func (t *tools) listStorage(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category, err := models.ParseItemFilter(r.GetString("type", ""))
	if err != nil {
		return t.fail("list_storage", err), nil
	}
	if _, err := t.view.Refresh(ctx); surface.Degraded(err) != nil {
		return t.fail("list_storage", err), nil
	}
	rows := t.view.Rows(category, r.GetString("search", ""))
	if rows == nil {
		rows = []models.StorageItem{}
	}
	return jsonResult(rows), nil
}

// itemID reads the required type and key arguments.
func itemID(r mcp.CallToolRequest) (models.RecordID, error) {
	rawType, err := r.RequireString("type")
	if err != nil {
		return models.RecordID{}, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
	}
	key, err := r.RequireString("key")
	if err != nil {
		return models.RecordID{}, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
	}
	category, err := models.ParseItemFilter(rawType)
	if err != nil {
		return models.RecordID{}, err
	}
	if category == "" {
		return models.RecordID{}, fmt.Errorf("%w: a single storage type is required", models.ErrInvalidArgument)
	}
	return models.RecordID{Category: category, Key: key, Domain: r.GetString("domain", "")}, nil
}

func (t *tools) setStorage(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := itemID(r)
	if err != nil {
		return t.fail("set_storage", err), nil
	}
	value, err := r.RequireString("value")
	if err != nil {
		return t.fail("set_storage", fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)), nil
	}

	item := models.StorageItem{
		Category: id.Category,
		Key:      id.Key,
		Value:    value,
		Domain:   id.Domain,
		Path:     r.GetString("path", ""),
	}
	if err := t.view.Facade().Set(ctx, item); err != nil {
		return t.fail("set_storage", err), nil
	}
	if _, err := t.view.Refresh(ctx); surface.Degraded(err) != nil {
		return t.fail("set_storage", err), nil
	}
	return jsonResult(t.view.Rows(id.Category, "")), nil
}

func (t *tools) deleteStorage(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := itemID(r)
	if err != nil {
		return t.fail("delete_storage", err), nil
	}
	if err := t.view.Delete(ctx, id); err != nil {
		return t.fail("delete_storage", err), nil
	}
	return jsonResult(map[string]string{"status": "deleted", "type": id.Category.Label(), "key": id.Key}), nil
}

func (t *tools) listServiceWorkers(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workers, err := t.view.RefreshWorkers(ctx)
	if err != nil {
		return t.fail("list_service_workers", err), nil
	}
	return jsonResult(workers), nil
}

func (t *tools) unregisterServiceWorker(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := r.RequireString("id")
	if err != nil {
		return t.fail("unregister_service_worker", err), nil
	}
	if err := t.view.Delete(ctx, models.RecordID{Category: models.CategoryServiceWorker, Key: id}); err != nil {
		return t.fail("unregister_service_worker", err), nil
	}
	return jsonResult(t.view.Workers()), nil
}

func (t *tools) listCaches(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	caches, err := t.view.RefreshCaches(ctx)
	if err != nil {
		return t.fail("list_caches", err), nil
	}
	return jsonResult(caches), nil
}

func (t *tools) deleteCache(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := r.RequireString("name")
	if err != nil {
		return t.fail("delete_cache", err), nil
	}
	if err := t.view.Delete(ctx, models.RecordID{Category: models.CategoryCache, Key: name}); err != nil {
		return t.fail("delete_cache", err), nil
	}
	return jsonResult(t.view.Caches()), nil
}

func (t *tools) exportStorage(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := t.view.Refresh(ctx); surface.Degraded(err) != nil {
		return t.fail("export_storage", err), nil
	}
	data, err := t.view.Export().Marshal()
	if err != nil {
		return t.fail("export_storage", err), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
	}, nil
}

type importSummary struct {
	Applied int      `json:"applied"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

func (t *tools) importStorage(ctx context.Context, r mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := r.RequireString("document")
	if err != nil {
		return t.fail("import_storage", err), nil
	}
	res, err := t.view.Import(ctx, []byte(doc))
	if err != nil {
		return t.fail("import_storage", err), nil
	}
	return jsonResult(importSummary{Applied: res.Applied, Skipped: res.Skipped, Errors: res.Messages()}), nil
}
