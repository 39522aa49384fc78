package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	a := s.app

	// Panel page
	mux.HandleFunc("/", a.PageHandler.ServePage("panel.html", "panel"))

	// Panel port (WebSocket)
	mux.Handle("/ws/panel", a.PanelHandler)

	// MCP endpoint (JSON-RPC over HTTP)
	if a.MCPHandler != nil {
		mux.Handle("/mcp", a.MCPHandler)
	}

	// API routes
	mux.HandleFunc("/api/storage", func(w http.ResponseWriter, r *http.Request) {
		RouteResourceItem(w, r, a.StorageHandler.List, a.StorageHandler.Put, a.StorageHandler.Delete)
	})
	mux.HandleFunc("/api/service-workers", func(w http.ResponseWriter, r *http.Request) {
		RouteResourceItem(w, r, a.WorkersHandler.List, nil, a.WorkersHandler.Delete)
	})
	mux.HandleFunc("/api/caches", func(w http.ResponseWriter, r *http.Request) {
		RouteResourceItem(w, r, a.CachesHandler.List, nil, a.CachesHandler.Delete)
	})
	mux.HandleFunc("/api/export", a.ExchangeHandler.Export)
	mux.HandleFunc("/api/import", a.ExchangeHandler.Import)
	mux.Handle("/api/events", a.EventStream)
	mux.HandleFunc("/api/target", a.TargetHandler.ServeHTTP)
	mux.HandleFunc("/api/health", a.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", a.VersionHandler.ServeHTTP)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched API routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
