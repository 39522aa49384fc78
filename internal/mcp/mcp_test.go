package mcp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/config"
	"github.com/bobmcallan/storage-inspector/internal/facade"
	"github.com/bobmcallan/storage-inspector/internal/models"
	"github.com/bobmcallan/storage-inspector/internal/storage/memory"
	"github.com/bobmcallan/storage-inspector/internal/surface"
)

// --- Helpers ---

func testView(t *testing.T) *surface.View {
	t.Helper()
	host := memory.New(models.Target{ID: "tab-1", URL: "https://shop.example.com/"})
	host.Seed(models.Snapshot{
		Cookies:        []models.Cookie{{Name: "sid", Value: "abc", Domain: "shop.example.com", Path: "/"}},
		LocalStorage:   map[string]string{"theme": "dark", "consent": "yes"},
		SessionStorage: map[string]string{"cart": `{"items":2}`},
	}, []models.ServiceWorker{{ID: "https://shop.example.com/", ScriptURL: "https://shop.example.com/sw.js", Status: "activated", Scope: "https://shop.example.com/"}},
		[]models.Cache{{Name: "assets", URLs: []string{"https://shop.example.com/app.js"}}})

	f, err := facade.New(host, nil, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("facade: %v", err)
	}
	return surface.NewView(f, common.NewSilentLogger())
}

func testServer(t *testing.T) (*mcpserver.MCPServer, *surface.View) {
	t.Helper()
	view := testView(t)
	return NewServer(view, common.NewSilentLogger()), view
}

// listTools calls tools/list on the MCPServer and returns the tools.
func listTools(t *testing.T, s *mcpserver.MCPServer) []mcpgo.Tool {
	t.Helper()

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
	ctx := t.Context()
	result := s.HandleMessage(ctx, msg)

	resp, ok := result.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", result)
	}

	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var toolsResult mcpgo.ListToolsResult
	if err := json.Unmarshal(resultJSON, &toolsResult); err != nil {
		t.Fatalf("failed to unmarshal ListToolsResult: %v", err)
	}

	return toolsResult.Tools
}

// callTool calls a tool on the MCPServer and returns the result.
func callTool(t *testing.T, s *mcpserver.MCPServer, name string, args map[string]interface{}) *mcpgo.CallToolResult {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":` + string(paramsJSON) + `}`)
	ctx := t.Context()
	result := s.HandleMessage(ctx, msg)

	resp, ok := result.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", result)
	}

	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var toolResult mcpgo.CallToolResult
	if err := json.Unmarshal(resultJSON, &toolResult); err != nil {
		t.Fatalf("failed to unmarshal CallToolResult: %v", err)
	}

	return &toolResult
}

// extractText extracts the text field from an MCP content block.
func extractText(t *testing.T, content mcpgo.Content) string {
	t.Helper()
	contentJSON, _ := json.Marshal(content)
	var tc struct {
		Text string `json:"text"`
	}
	json.Unmarshal(contentJSON, &tc)
	return tc.Text
}

func resultText(t *testing.T, r *mcpgo.CallToolResult) string {
	t.Helper()
	if len(r.Content) == 0 {
		t.Fatal("expected content in tool result")
	}
	return extractText(t, r.Content[0])
}

// --- Tests ---

func TestToolsList_ExposesEveryTool(t *testing.T) {
	s, _ := testServer(t)

	tools := listTools(t, s)
	names := map[string]bool{}
	for _, tool := range tools {
		names[tool.Name] = true
	}
	for _, want := range toolNames {
		if !names[want] {
			t.Errorf("missing tool %s", want)
		}
	}
	if len(tools) != len(toolNames) {
		t.Errorf("expected %d tools, got %d", len(toolNames), len(tools))
	}
}

func TestListStorage_Filtered(t *testing.T) {
	s, _ := testServer(t)

	result := callTool(t, s, "list_storage", map[string]interface{}{"type": "localStorage", "search": "DARK"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	var rows []models.StorageItem
	if err := json.Unmarshal([]byte(resultText(t, result)), &rows); err != nil {
		t.Fatalf("failed to unmarshal rows: %v", err)
	}
	if len(rows) != 1 || rows[0].Key != "theme" {
		t.Errorf("expected only theme, got %+v", rows)
	}
}

func TestListStorage_All(t *testing.T) {
	s, _ := testServer(t)

	result := callTool(t, s, "list_storage", map[string]interface{}{})
	var rows []models.StorageItem
	json.Unmarshal([]byte(resultText(t, result)), &rows)
	if len(rows) != 4 {
		t.Errorf("expected 4 rows, got %d", len(rows))
	}
}

func TestListStorage_RejectsUnknownType(t *testing.T) {
	s, _ := testServer(t)

	result := callTool(t, s, "list_storage", map[string]interface{}{"type": "indexeddb"})
	if !result.IsError {
		t.Error("expected error result for unknown type")
	}
}

func TestSetStorage(t *testing.T) {
	s, view := testServer(t)

	result := callTool(t, s, "set_storage", map[string]interface{}{"type": "sessionStorage", "key": "step", "value": "3"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if got := view.Snapshot().SessionStorage["step"]; got != "3" {
		t.Errorf("expected step=3, got %q", got)
	}
}

func TestSetStorage_CookieKeepsAttributes(t *testing.T) {
	s, view := testServer(t)

	result := callTool(t, s, "set_storage", map[string]interface{}{"type": "cookies", "key": "sid", "value": "xyz"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	cookies := view.Snapshot().Cookies
	if len(cookies) != 1 || cookies[0].Value != "xyz" || cookies[0].Domain != "shop.example.com" {
		t.Errorf("unexpected cookies %+v", cookies)
	}
}

func TestSetStorage_MissingArguments(t *testing.T) {
	s, _ := testServer(t)

	for _, args := range []map[string]interface{}{
		{"key": "k", "value": "v"},
		{"type": "localStorage", "value": "v"},
		{"type": "localStorage", "key": "k"},
		{"type": "all", "key": "k", "value": "v"},
	} {
		if result := callTool(t, s, "set_storage", args); !result.IsError {
			t.Errorf("%v: expected error result", args)
		}
	}
}

func TestDeleteStorage(t *testing.T) {
	s, view := testServer(t)

	result := callTool(t, s, "delete_storage", map[string]interface{}{"type": "localStorage", "key": "consent"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	if _, ok := view.Snapshot().LocalStorage["consent"]; ok {
		t.Error("expected consent removed")
	}

	result = callTool(t, s, "delete_storage", map[string]interface{}{"type": "cookies", "key": "missing"})
	if !result.IsError || !strings.Contains(resultText(t, result), "not found") {
		t.Errorf("expected not found error, got %+v", result)
	}
}

func TestServiceWorkerTools(t *testing.T) {
	s, _ := testServer(t)

	result := callTool(t, s, "list_service_workers", map[string]interface{}{})
	var workers []models.ServiceWorker
	json.Unmarshal([]byte(resultText(t, result)), &workers)
	if len(workers) != 1 {
		t.Fatalf("expected 1 worker, got %d", len(workers))
	}

	result = callTool(t, s, "unregister_service_worker", map[string]interface{}{"id": workers[0].ID})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	result = callTool(t, s, "unregister_service_worker", map[string]interface{}{"id": workers[0].ID})
	if !result.IsError {
		t.Error("expected error unregistering twice")
	}
}

func TestCacheTools(t *testing.T) {
	s, _ := testServer(t)

	result := callTool(t, s, "list_caches", map[string]interface{}{})
	var caches []models.Cache
	json.Unmarshal([]byte(resultText(t, result)), &caches)
	if len(caches) != 1 || caches[0].Name != "assets" {
		t.Fatalf("expected assets cache, got %+v", caches)
	}

	result = callTool(t, s, "delete_cache", map[string]interface{}{"name": "assets"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	json.Unmarshal([]byte(resultText(t, result)), &caches)
	if len(caches) != 0 {
		t.Errorf("expected no caches, got %+v", caches)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	s, _ := testServer(t)

	result := callTool(t, s, "export_storage", map[string]interface{}{})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	doc := resultText(t, result)
	if !strings.Contains(doc, `"localStorage"`) || !strings.Contains(doc, `"theme": "dark"`) {
		t.Errorf("unexpected export document %s", doc)
	}

	s2 := NewServer(testView(t), common.NewSilentLogger())
	result = callTool(t, s2, "import_storage", map[string]interface{}{"document": doc})
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, result))
	}
	var summary importSummary
	json.Unmarshal([]byte(resultText(t, result)), &summary)
	if summary.Applied != 4 || summary.Skipped != 0 {
		t.Errorf("expected 4 applied, got %+v", summary)
	}
}

func TestImportStorage_Malformed(t *testing.T) {
	s, _ := testServer(t)

	result := callTool(t, s, "import_storage", map[string]interface{}{"document": "[]"})
	if !result.IsError {
		t.Error("expected error result for non-object document")
	}
}

func TestListStorage_PartialSnapshot(t *testing.T) {
	host := memory.New(models.Target{ID: "tab-1", URL: "https://shop.example.com/"})
	host.Seed(models.Snapshot{
		Cookies:        []models.Cookie{{Name: "sid", Value: "abc", Domain: "shop.example.com", Path: "/"}},
		SessionStorage: map[string]string{"cart": "2"},
	}, nil, nil)
	host.Fail(models.CategoryCookie, models.ErrUnreachable)
	f, err := facade.New(host, nil, common.NewSilentLogger())
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(surface.NewView(f, common.NewSilentLogger()), common.NewSilentLogger())

	result := callTool(t, s, "list_storage", map[string]interface{}{})
	if result.IsError {
		t.Fatalf("expected rows despite unreadable cookies, got error %s", resultText(t, result))
	}
	var rows []models.StorageItem
	if err := json.Unmarshal([]byte(resultText(t, result)), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Key != "cart" {
		t.Errorf("expected only the session row, got %+v", rows)
	}
}

func TestGetVersion(t *testing.T) {
	s, _ := testServer(t)

	result := callTool(t, s, "get_version", map[string]interface{}{})
	var info config.VersionInfo
	if err := json.Unmarshal([]byte(resultText(t, result)), &info); err != nil {
		t.Fatalf("failed to unmarshal version: %v", err)
	}
	if info.Version != config.GetVersion() {
		t.Errorf("expected version %s, got %s", config.GetVersion(), info.Version)
	}
}

func TestHandler_ServesStreamableHTTP(t *testing.T) {
	h := NewHandler(testView(t), common.NewSilentLogger())

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`
	req := httptest.NewRequest("POST", "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "list_storage") {
		t.Errorf("expected tools in response, got %s", w.Body.String())
	}
}
