package surface

import (
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/bobmcallan/storage-inspector/internal/models"
)

// Filter returns the items whose key, value or category label contains term,
// ignoring case. An empty term returns every item. The input is not modified.
func Filter(items []models.StorageItem, term string) []models.StorageItem {
	term = strings.ToLower(term)
	return lo.Filter(items, func(it models.StorageItem, _ int) bool {
		if term == "" {
			return true
		}
		return strings.Contains(strings.ToLower(it.Key), term) ||
			strings.Contains(strings.ToLower(it.Value), term) ||
			strings.Contains(strings.ToLower(it.Category.Label()), term)
	})
}

// FilterCategory keeps only items of the given category. An empty category
// keeps everything.
func FilterCategory(items []models.StorageItem, category models.Category) []models.StorageItem {
	if category == "" {
		return append([]models.StorageItem{}, items...)
	}
	return lo.Filter(items, func(it models.StorageItem, _ int) bool {
		return it.Category == category
	})
}

// DisplayValue pretty-prints raw when it is a JSON object or array and
// returns it unchanged otherwise.
func DisplayValue(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !gjson.Valid(trimmed) {
		return raw
	}
	if r := gjson.Parse(trimmed); !r.IsObject() && !r.IsArray() {
		return raw
	}
	return strings.TrimRight(string(pretty.PrettyOptions([]byte(trimmed), &pretty.Options{
		Width:  80,
		Prefix: "",
		Indent: "  ",
	})), "\n")
}
