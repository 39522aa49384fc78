package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"github.com/bobmcallan/storage-inspector/internal/models"
)

type cookieJar struct{ h *Host }

// Cookies returns every cookie in the browser, like the cookies API getAll.
func (j cookieJar) Cookies(ctx context.Context) ([]models.Cookie, error) {
	var raw []*network.Cookie
	err := j.h.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}

	out := make([]models.Cookie, 0, len(raw))
	for _, c := range raw {
		out = append(out, fromNetworkCookie(c))
	}
	return out, nil
}

func (j cookieJar) SetCookie(ctx context.Context, c models.Cookie) error {
	if c.Name == "" {
		return fmt.Errorf("%w: cookie name is required", models.ErrInvalidArgument)
	}
	path := c.Path
	if path == "" {
		path = "/"
	}

	params := network.SetCookie(c.Name, c.Value).
		WithPath(path).
		WithSecure(c.Secure).
		WithHTTPOnly(c.HTTPOnly)
	if c.Domain != "" {
		params = params.WithDomain(c.Domain)
	} else {
		params = params.WithURL(j.h.target.URL)
	}
	if ss := sameSiteToCDP(c.SameSite); ss != "" {
		params = params.WithSameSite(ss)
	}
	if !c.IsSession() {
		exp := cdp.TimeSinceEpoch(c.Expires())
		params = params.WithExpires(&exp)
	}

	if err := j.h.run(ctx, params); err != nil {
		return fmt.Errorf("set cookie %s: %w", c.Name, err)
	}
	return nil
}

func (j cookieJar) DeleteCookie(ctx context.Context, domain, name, path string) error {
	params := network.DeleteCookies(name)
	if domain != "" {
		params = params.WithDomain(strings.TrimPrefix(domain, "."))
	} else {
		params = params.WithURL(j.h.target.URL)
	}
	if path != "" {
		params = params.WithPath(path)
	}
	if err := j.h.run(ctx, params); err != nil {
		return fmt.Errorf("delete cookie %s: %w", name, err)
	}
	return nil
}

func fromNetworkCookie(c *network.Cookie) models.Cookie {
	out := models.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
		SameSite: sameSiteFromCDP(c.SameSite),
	}
	if !c.Session && c.Expires > 0 {
		out.ExpirationDate = c.Expires
	}
	return out
}

// The export document uses the extension cookies API spelling of sameSite.
func sameSiteFromCDP(s network.CookieSameSite) string {
	switch s {
	case network.CookieSameSiteStrict:
		return "strict"
	case network.CookieSameSiteLax:
		return "lax"
	case network.CookieSameSiteNone:
		return "no_restriction"
	}
	return ""
}

func sameSiteToCDP(s string) network.CookieSameSite {
	switch strings.ToLower(s) {
	case "strict":
		return network.CookieSameSiteStrict
	case "lax":
		return network.CookieSameSiteLax
	case "none", "no_restriction":
		return network.CookieSameSiteNone
	}
	return ""
}
