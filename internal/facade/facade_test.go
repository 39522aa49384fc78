package facade

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/models"
	"github.com/bobmcallan/storage-inspector/internal/monitor"
	"github.com/bobmcallan/storage-inspector/internal/storage/memory"
)

type recorder struct {
	mu  sync.Mutex
	got []models.ChangeNotification
}

func (r *recorder) Publish(n models.ChangeNotification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func newTestFacade(t *testing.T) (*Facade, *memory.Host, *recorder) {
	t.Helper()
	host := memory.New(models.Target{ID: "tab-1", URL: "https://example.com/app"})
	host.Seed(models.Snapshot{
		Cookies: []models.Cookie{
			{Name: "sid", Value: "abc", Domain: "example.com", Path: "/", Secure: true},
			{Name: "pref", Value: "dark", Domain: ".example.com", Path: "/", ExpirationDate: 1893456000},
		},
		LocalStorage:   map[string]string{"a": "1"},
		SessionStorage: map[string]string{"cart": `{"items":2}`},
	}, []models.ServiceWorker{
		{ID: "https://example.com/", ScriptURL: "https://example.com/sw.js", Status: "activated", Scope: "https://example.com/"},
	}, []models.Cache{
		{Name: "static-v1", URLs: []string{"https://example.com/app.js"}},
	})

	rec := &recorder{}
	mon := monitor.New(rec, common.NewSilentLogger())
	stop := mon.Observe(host)
	t.Cleanup(stop)

	f, err := New(host, mon, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return f, host, rec
}

func TestSetKeyValue_OneNotificationAndFreshFetch(t *testing.T) {
	f, _, rec := newTestFacade(t)
	ctx := context.Background()

	if err := f.SetKeyValue(ctx, models.CategoryLocal, "a", "2"); err != nil {
		t.Fatalf("SetKeyValue failed: %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("expected exactly 1 notification, got %d", rec.count())
	}

	items, err := f.ListKeyValue(ctx, models.CategoryLocal)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items["a"] != "2" {
		t.Errorf(`expected {"a":"2"}, got %v`, items)
	}
}

func TestKeyValue_NotificationCountMatchesMutations(t *testing.T) {
	f, _, rec := newTestFacade(t)
	ctx := context.Background()

	for i, op := range []func() error{
		func() error { return f.SetKeyValue(ctx, models.CategoryLocal, "x", "1") },
		func() error { return f.SetKeyValue(ctx, models.CategorySession, "y", "2") },
		func() error { return f.DeleteKeyValue(ctx, models.CategoryLocal, "x") },
		func() error { return f.DeleteKeyValue(ctx, models.CategorySession, "missing") },
	} {
		if err := op(); err != nil {
			t.Fatalf("op %d failed: %v", i, err)
		}
	}
	if rec.count() != 4 {
		t.Errorf("expected 4 notifications, got %d", rec.count())
	}
}

func TestKeyValue_UnsupportedCategory(t *testing.T) {
	f, _, _ := newTestFacade(t)

	_, err := f.ListKeyValue(context.Background(), models.CategoryCookie)
	if !errors.Is(err, models.ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestDeleteCookie_MissingIsNotFound(t *testing.T) {
	f, _, rec := newTestFacade(t)
	ctx := context.Background()

	err := f.DeleteCookie(ctx, "example.com", "session")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if rec.count() != 0 {
		t.Errorf("expected no notification for failed delete, got %d", rec.count())
	}

	snap, err := f.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot after failed delete: %v", err)
	}
	for _, c := range snap.Cookies {
		if c.Name == "session" {
			t.Error("unexpected cookie named session")
		}
	}
	if len(snap.Cookies) != 2 {
		t.Errorf("expected the 2 seeded cookies, got %d", len(snap.Cookies))
	}
}

func TestDeleteCookie_DotDomainMatches(t *testing.T) {
	f, _, rec := newTestFacade(t)
	ctx := context.Background()

	if err := f.DeleteCookie(ctx, "example.com", "pref"); err != nil {
		t.Fatalf("DeleteCookie failed: %v", err)
	}
	cookies, _ := f.ListCookies(ctx)
	if len(cookies) != 1 || cookies[0].Name != "sid" {
		t.Errorf("expected only sid to remain, got %+v", cookies)
	}
	if rec.count() != 1 {
		t.Errorf("expected 1 notification, got %d", rec.count())
	}
}

func TestDeleteCookie_KeepsOtherPaths(t *testing.T) {
	f, _, _ := newTestFacade(t)
	ctx := context.Background()

	scoped := models.Cookie{Name: "sid", Value: "app-only", Domain: "example.com", Path: "/app"}
	if err := f.SetCookie(ctx, scoped); err != nil {
		t.Fatal(err)
	}
	if err := f.DeleteCookie(ctx, "example.com", "sid"); err != nil {
		t.Fatalf("DeleteCookie failed: %v", err)
	}

	cookies, _ := f.ListCookies(ctx)
	var remaining []models.Cookie
	for _, c := range cookies {
		if c.Name == "sid" {
			remaining = append(remaining, c)
		}
	}
	if len(remaining) != 1 || remaining[0].Path != "/app" || remaining[0].Value != "app-only" {
		t.Errorf("expected only the /app sid to survive, got %+v", remaining)
	}
}

func TestSetCookie_RequiresName(t *testing.T) {
	f, _, _ := newTestFacade(t)

	err := f.SetCookie(context.Background(), models.Cookie{Value: "x"})
	if !errors.Is(err, models.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestSnapshot_DegradesOnUnreachable(t *testing.T) {
	f, host, _ := newTestFacade(t)
	host.Close()

	snap, err := f.Snapshot(context.Background())
	if !errors.Is(err, models.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if snap.LocalStorage == nil || snap.SessionStorage == nil || snap.Cookies == nil {
		t.Error("expected non-nil empty collections in a degraded snapshot")
	}
	if len(snap.LocalStorage) != 0 {
		t.Errorf("expected empty localStorage, got %v", snap.LocalStorage)
	}
}

func TestSnapshot_PartialWhenOneAreaFails(t *testing.T) {
	f, host, _ := newTestFacade(t)
	host.Fail(models.CategoryCookie, fmt.Errorf("%w: cookie store locked", models.ErrUnreachable))

	snap, err := f.Snapshot(context.Background())
	if !errors.Is(err, models.ErrPartial) {
		t.Fatalf("expected ErrPartial, got %v", err)
	}
	if !errors.Is(err, models.ErrUnreachable) {
		t.Errorf("expected the cause to stay visible, got %v", err)
	}
	if len(snap.Cookies) != 0 {
		t.Errorf("expected no cookies, got %+v", snap.Cookies)
	}
	if snap.LocalStorage["a"] != "1" || snap.SessionStorage["cart"] == "" {
		t.Errorf("expected readable areas in the snapshot, got %+v", snap)
	}

	host.Close()
	if _, err := f.Snapshot(context.Background()); errors.Is(err, models.ErrPartial) {
		t.Errorf("expected a total failure not to be partial, got %v", err)
	}
}

func TestWorkersAndCaches(t *testing.T) {
	f, _, _ := newTestFacade(t)
	ctx := context.Background()

	workers, err := f.ListServiceWorkers(ctx)
	if err != nil || len(workers) != 1 {
		t.Fatalf("expected 1 worker, got %v (%v)", workers, err)
	}
	if err := f.Unregister(ctx, workers[0].ID); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}
	if err := f.Unregister(ctx, workers[0].ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second unregister, got %v", err)
	}

	caches, err := f.ListCaches(ctx)
	if err != nil || len(caches) != 1 {
		t.Fatalf("expected 1 cache, got %v (%v)", caches, err)
	}
	if err := f.DeleteCache(ctx, "static-v1"); err != nil {
		t.Fatalf("DeleteCache failed: %v", err)
	}
	if err := f.DeleteCache(ctx, "static-v1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}
