package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/bobmcallan/storage-inspector/internal/models"
)

// area reads and writes localStorage or sessionStorage by evaluating
// script in the page, so writes behave exactly like the page's own.
type area struct {
	host     *Host
	category models.Category
}

const readAreaJS = `(() => {
	const s = window[%s];
	const out = {};
	for (let i = 0; i < s.length; i++) {
		const k = s.key(i);
		out[k] = s.getItem(k);
	}
	return out;
})()`

func (a area) Category() models.Category { return a.category }

func (a area) global() string {
	if a.category == models.CategoryLocal {
		return "localStorage"
	}
	return "sessionStorage"
}

func (a area) Items(ctx context.Context) (map[string]string, error) {
	items := map[string]string{}
	expr := fmt.Sprintf(readAreaJS, quote(a.global()))
	if err := a.host.run(ctx, chromedp.Evaluate(expr, &items)); err != nil {
		return nil, fmt.Errorf("read %s: %w", a.global(), err)
	}
	return items, nil
}

func (a area) SetItem(ctx context.Context, key, value string) error {
	expr := fmt.Sprintf("window[%s].setItem(%s, %s)", quote(a.global()), quote(key), quote(value))
	if err := a.host.run(ctx, chromedp.Evaluate(expr, nil)); err != nil {
		return fmt.Errorf("set %s %q: %w", a.global(), key, err)
	}
	return nil
}

func (a area) RemoveItem(ctx context.Context, key string) error {
	expr := fmt.Sprintf("window[%s].removeItem(%s)", quote(a.global()), quote(key))
	if err := a.host.run(ctx, chromedp.Evaluate(expr, nil)); err != nil {
		return fmt.Errorf("remove %s %q: %w", a.global(), key, err)
	}
	return nil
}

// quote renders s as a JavaScript string literal.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
