package server

import (
	"net/http"
	"slices"
	"strings"

	"github.com/samber/lo"
)

// RouteHandler is a function type for HTTP handlers.
type RouteHandler func(http.ResponseWriter, *http.Request)

// MethodRouter maps HTTP methods to handlers.
type MethodRouter map[string]RouteHandler

// RouteByMethod routes requests based on HTTP method. Unknown methods get a
// 405 listing the allowed ones.
func RouteByMethod(w http.ResponseWriter, r *http.Request, routes MethodRouter) {
	handler, ok := routes[r.Method]
	if !ok {
		allowed := lo.Keys(routes)
		slices.Sort(allowed)
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	handler(w, r)
}

// RouteResourceItem routes a storage resource: GET lists, PUT writes and
// DELETE removes. A nil handler leaves that method unrouted.
func RouteResourceItem(w http.ResponseWriter, r *http.Request, list, put, del RouteHandler) {
	routes := lo.PickBy(MethodRouter{
		http.MethodGet:    list,
		http.MethodPut:    put,
		http.MethodDelete: del,
	}, func(_ string, h RouteHandler) bool { return h != nil })
	RouteByMethod(w, r, routes)
}
