package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/samber/lo"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/config"
	"github.com/bobmcallan/storage-inspector/internal/models"
	"github.com/bobmcallan/storage-inspector/internal/surface"
)

//go:embed pages/*.html
var pageFS embed.FS

// pageData is the template context of every embedded page.
type pageData struct {
	Page    string
	DevMode bool
	Target  models.Target
	Version string
	// Labels maps category ids to the names shown and searched in tables.
	Labels map[models.Category]string
}

// categoryLabels is the panel's copy of Category.Label.
var categoryLabels = lo.SliceToMap(models.AllCategories, func(c models.Category) (models.Category, string) {
	return c, c.Label()
})

// PageHandler renders the embedded HTML pages.
type PageHandler struct {
	view      *surface.View
	templates *template.Template
	logger    *common.Logger
	devMode   bool
}

// NewPageHandler parses the embedded templates. It panics on a broken
// template since those ship inside the binary.
func NewPageHandler(view *surface.View, logger *common.Logger, devMode bool) *PageHandler {
	return &PageHandler{
		view:      view,
		templates: template.Must(template.ParseFS(pageFS, "pages/*.html")),
		logger:    logger,
		devMode:   devMode,
	}
}

// ServePage serves templateName at the site root only. The page is
// rendered into a buffer so a template failure yields a clean 500.
func (h *PageHandler) ServePage(templateName, pageName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		data := pageData{
			Page:    pageName,
			DevMode: h.devMode,
			Target:  h.view.Facade().Target(),
			Version: config.GetVersion(),
			Labels:  categoryLabels,
		}
		var buf bytes.Buffer
		if err := h.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
			if h.logger != nil {
				h.logger.Error().Err(err).Str("template", templateName).Msg("failed to render page")
			}
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		// The target is baked into the page; a cached copy would point at a stale tab.
		w.Header().Set("Cache-Control", "no-store")
		w.Write(buf.Bytes())
	}
}
