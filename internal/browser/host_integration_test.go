package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/models"
)

// startHeadlessShell runs chromedp/headless-shell and returns its DevTools URL.
func startHeadlessShell(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	var ctr testcontainers.Container
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("docker unavailable: %v", r)
			}
		}()
		ctr, err = testcontainers.Run(ctx, "chromedp/headless-shell:latest",
			testcontainers.WithExposedPorts("9222/tcp"),
			testcontainers.WithWaitStrategy(
				wait.ForHTTP("/json/version").WithPort("9222/tcp").WithStartupTimeout(60*time.Second),
			),
		)
	}()
	if err != nil {
		t.Skipf("headless-shell container not available: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cleanupCancel()
		ctr.Terminate(cleanupCtx)
	})

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "9222/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func connectTab(t *testing.T) *Host {
	t.Helper()
	remote := startHeadlessShell(t)

	// The DevTools endpoint itself gives the tab an http origin with working
	// Web Storage.
	h, err := Connect(t.Context(), Config{
		RemoteURL: remote,
		TargetURL: "json/version",
		StartURL:  "http://127.0.0.1:9222/json/version",
		Timeout:   20 * time.Second,
	}, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHost_KeyValueAreas(t *testing.T) {
	h := connectTab(t)
	ctx := t.Context()

	for _, cat := range []models.Category{models.CategoryLocal, models.CategorySession} {
		a, err := h.Area(cat)
		if err != nil {
			t.Fatalf("area %s: %v", cat, err)
		}
		if err := a.SetItem(ctx, "greeting", `"quoted" value`); err != nil {
			t.Fatalf("set %s: %v", cat, err)
		}
		items, err := a.Items(ctx)
		if err != nil {
			t.Fatalf("items %s: %v", cat, err)
		}
		if items["greeting"] != `"quoted" value` {
			t.Errorf("%s: expected greeting, got %v", cat, items)
		}
		if err := a.RemoveItem(ctx, "greeting"); err != nil {
			t.Fatalf("remove %s: %v", cat, err)
		}
		items, _ = a.Items(ctx)
		if _, ok := items["greeting"]; ok {
			t.Errorf("%s: greeting still present after remove", cat)
		}
	}

	if _, err := h.Area(models.CategoryCookie); !errors.Is(err, models.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported for cookie area, got %v", err)
	}
}

func TestHost_Cookies(t *testing.T) {
	h := connectTab(t)
	ctx := t.Context()
	jar := h.Cookies()

	if err := jar.SetCookie(ctx, models.Cookie{Name: "flavour", Value: "oat", SameSite: "lax"}); err != nil {
		t.Fatalf("set cookie: %v", err)
	}
	cookies, err := jar.Cookies(ctx)
	if err != nil {
		t.Fatalf("cookies: %v", err)
	}
	var found *models.Cookie
	for i := range cookies {
		if cookies[i].Name == "flavour" {
			found = &cookies[i]
		}
	}
	if found == nil {
		t.Fatalf("expected cookie flavour in %+v", cookies)
	}
	if found.Value != "oat" || found.Path != "/" || found.SameSite != "lax" {
		t.Errorf("unexpected cookie %+v", *found)
	}

	if err := jar.DeleteCookie(ctx, found.Domain, "flavour", found.Path); err != nil {
		t.Fatalf("delete cookie: %v", err)
	}
	cookies, _ = jar.Cookies(ctx)
	for _, c := range cookies {
		if c.Name == "flavour" {
			t.Error("cookie still present after delete")
		}
	}

	if err := jar.SetCookie(ctx, models.Cookie{Value: "x"}); !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for nameless cookie, got %v", err)
	}
}

func TestHost_WatchReportsPageWrites(t *testing.T) {
	h := connectTab(t)

	got := make(chan models.ChangeNotification, 8)
	stop := h.Watch(func(n models.ChangeNotification) { got <- n })
	defer stop()

	a, _ := h.Area(models.CategoryLocal)
	if err := a.SetItem(t.Context(), "theme", "dark"); err != nil {
		t.Fatalf("set: %v", err)
	}

	select {
	case n := <-got:
		if n.Category != models.CategoryLocal || n.Key != "theme" || n.Op != models.OpSet {
			t.Errorf("unexpected notification %+v", n)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no DOMStorage event received")
	}
}

func TestHost_WorkersAndCachesEmpty(t *testing.T) {
	h := connectTab(t)
	ctx := t.Context()

	workers, err := h.Workers().ServiceWorkers(ctx)
	if err != nil {
		t.Fatalf("workers: %v", err)
	}
	if len(workers) != 0 {
		t.Errorf("expected no workers, got %+v", workers)
	}
	if err := h.Workers().Unregister(ctx, "http://127.0.0.1:9222/none/"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	caches, err := h.CacheStorage().Caches(ctx)
	if err != nil {
		t.Fatalf("caches: %v", err)
	}
	if len(caches) != 0 {
		t.Errorf("expected no caches, got %+v", caches)
	}
	if err := h.CacheStorage().DeleteCache(ctx, "nope"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSameSiteMapping(t *testing.T) {
	for in, want := range map[string]string{"strict": "strict", "Lax": "lax", "none": "no_restriction", "no_restriction": "no_restriction", "": ""} {
		if got := sameSiteFromCDP(sameSiteToCDP(in)); got != want {
			t.Errorf("%q: expected %q, got %q", in, want, got)
		}
	}
}

func TestQuote(t *testing.T) {
	if got := quote(`a"b\n`); got != `"a\"b\\n"` {
		t.Errorf("unexpected quote %s", got)
	}
}

func TestHost_CloseLeavesExistingTabOpen(t *testing.T) {
	remote := startHeadlessShell(t)

	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), remote)
	defer allocCancel()
	userCtx, userCancel := chromedp.NewContext(allocCtx)
	defer userCancel()
	if err := chromedp.Run(userCtx, chromedp.Navigate("http://127.0.0.1:9222/json/version?keep")); err != nil {
		t.Fatalf("open user tab: %v", err)
	}
	userTab := chromedp.FromContext(userCtx).Target.TargetID

	h, err := Connect(t.Context(), Config{
		RemoteURL: remote,
		TargetURL: "?keep",
		Timeout:   20 * time.Second,
	}, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if h.Target().ID != string(userTab) {
		t.Fatalf("expected to attach to %s, got %s", userTab, h.Target().ID)
	}
	if err := h.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	// chromedp tears targets down asynchronously; give it time to misbehave.
	time.Sleep(2 * time.Second)
	targets, err := chromedp.Targets(userCtx)
	if err != nil {
		t.Fatalf("list targets: %v", err)
	}
	for _, ti := range targets {
		if ti.TargetID == userTab {
			return
		}
	}
	t.Errorf("tab %s was closed by Host.Close", userTab)
}
