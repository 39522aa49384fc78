package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/models"
)

var (
	// ErrMalformedDocument is returned when the input is not a JSON object.
	// Nothing is written in that case.
	ErrMalformedDocument = errors.New("malformed import document")

	// ErrMissingName marks a cookie entry without a name.
	ErrMissingName = errors.New("cookie entry has no name")
)

// Writer receives the replayed entries. *facade.Facade satisfies it.
type Writer interface {
	SetCookie(ctx context.Context, c models.Cookie) error
	SetKeyValue(ctx context.Context, category models.Category, key, value string) error
}

// Result summarises an import.
type Result struct {
	Applied int     `json:"applied"`
	Skipped int     `json:"skipped"`
	Errors  []error `json:"-"`
}

// Messages returns the per-entry errors as strings.
func (r Result) Messages() []string {
	out := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		out[i] = err.Error()
	}
	return out
}

// Import replays a document through w: cookies, then localStorage, then
// sessionStorage, one entry at a time. Non-string values are written as
// their JSON text. A failing entry is logged and skipped; earlier writes
// are kept. Only a document that is not a JSON object fails as a whole.
func Import(ctx context.Context, w Writer, data []byte, logger *common.Logger) (Result, error) {
	var res Result
	if !gjson.ValidBytes(data) {
		return res, fmt.Errorf("%w: invalid JSON", ErrMalformedDocument)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return res, fmt.Errorf("%w: top level must be an object", ErrMalformedDocument)
	}

	fail := func(err error) {
		res.Skipped++
		res.Errors = append(res.Errors, err)
		logger.Warn().Err(err).Msg("import entry skipped")
	}

	if cookies := root.Get("cookies"); cookies.IsArray() {
		for i, entry := range cookies.Array() {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			c, err := cookieFromJSON(entry)
			if err != nil {
				fail(fmt.Errorf("cookies[%d]: %w", i, err))
				continue
			}
			if err := w.SetCookie(ctx, c); err != nil {
				fail(fmt.Errorf("cookie %s: %w", c.Name, err))
				continue
			}
			res.Applied++
		}
	} else if cookies.Exists() {
		logger.Warn().Str("section", "cookies").Msg("import section is not an array, ignored")
	}

	for _, section := range []struct {
		field    string
		category models.Category
	}{
		{"localStorage", models.CategoryLocal},
		{"sessionStorage", models.CategorySession},
	} {
		area := root.Get(section.field)
		if !area.IsObject() {
			if area.Exists() && area.Type != gjson.Null {
				logger.Warn().Str("section", section.field).Msg("import section is not an object, ignored")
			}
			continue
		}
		var stop error
		area.ForEach(func(key, value gjson.Result) bool {
			if err := ctx.Err(); err != nil {
				stop = err
				return false
			}
			if err := w.SetKeyValue(ctx, section.category, key.String(), stringValue(value)); err != nil {
				fail(fmt.Errorf("%s %q: %w", section.field, key.String(), err))
				return true
			}
			res.Applied++
			return true
		})
		if stop != nil {
			return res, stop
		}
	}

	logger.Info().
		Int("applied", res.Applied).
		Int("skipped", res.Skipped).
		Msg("import finished")
	return res, nil
}

func cookieFromJSON(entry gjson.Result) (models.Cookie, error) {
	if !entry.IsObject() {
		return models.Cookie{}, fmt.Errorf("%w: entry is not an object", models.ErrInvalidArgument)
	}
	name := entry.Get("name")
	if !name.Exists() || name.String() == "" {
		return models.Cookie{}, ErrMissingName
	}
	c := models.Cookie{
		Name:           stringValue(name),
		Value:          stringValue(entry.Get("value")),
		Domain:         entry.Get("domain").String(),
		Path:           entry.Get("path").String(),
		ExpirationDate: entry.Get("expirationDate").Float(),
		Secure:         entry.Get("secure").Bool(),
		HTTPOnly:       entry.Get("httpOnly").Bool(),
		SameSite:       entry.Get("sameSite").String(),
	}
	if c.Path == "" {
		c.Path = "/"
	}
	return c, nil
}

// stringValue returns strings as-is and any other JSON value as its text.
func stringValue(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.String()
	case gjson.Null:
		if !v.Exists() {
			return ""
		}
	}
	return v.Raw
}
