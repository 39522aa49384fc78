package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/storage-inspector/internal/common"
	"github.com/bobmcallan/storage-inspector/internal/models"
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

func (r *recorder) all() []models.ChangeNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ChangeNotification(nil), r.got...)
}

func newHost() *memory.Host {
	return memory.New(models.Target{ID: "tab-1", URL: "https://example.com/"})
}

func localArea(t *testing.T, h *memory.Host) interface {
	SetItem(context.Context, string, string) error
} {
	t.Helper()
	a, err := h.Area(models.CategoryLocal)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestInstall_OneNotificationPerMutation(t *testing.T) {
	rec := &recorder{}
	m := New(rec, common.NewSilentLogger())
	h := newHost()
	area, _ := h.Area(models.CategoryLocal)
	wrapped := m.Install(area)

	ctx := context.Background()
	if err := wrapped.SetItem(ctx, "a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := wrapped.SetItem(ctx, "b", "2"); err != nil {
		t.Fatal(err)
	}
	if err := wrapped.RemoveItem(ctx, "a"); err != nil {
		t.Fatal(err)
	}

	got := rec.all()
	if len(got) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(got))
	}
	for _, n := range got {
		if n.Type != models.StorageUpdated {
			t.Errorf("expected type storageUpdated, got %s", n.Type)
		}
		if n.Origin != models.OriginTool {
			t.Errorf("expected tool origin, got %s", n.Origin)
		}
	}
	if got[2].Op != models.OpRemove || got[2].Key != "a" {
		t.Errorf("expected remove of a, got %+v", got[2])
	}
}

func TestInstall_MutationStillApplied(t *testing.T) {
	m := New(&recorder{}, common.NewSilentLogger())
	h := newHost()
	area, _ := h.Area(models.CategorySession)
	wrapped := m.Install(area)

	if err := wrapped.SetItem(context.Background(), "k", "v"); err != nil {
		t.Fatal(err)
	}
	items, _ := area.Items(context.Background())
	if items["k"] != "v" {
		t.Errorf("expected underlying area to hold k=v, got %v", items)
	}
}

func TestInstall_Idempotent(t *testing.T) {
	rec := &recorder{}
	m := New(rec, common.NewSilentLogger())
	area, _ := newHost().Area(models.CategoryLocal)

	once := m.Install(area)
	twice := m.Install(once)
	if once != twice {
		t.Fatal("expected re-install to return the existing decorator")
	}

	if err := twice.SetItem(context.Background(), "a", "1"); err != nil {
		t.Fatal(err)
	}
	if n := len(rec.all()); n != 1 {
		t.Errorf("expected 1 notification after double install, got %d", n)
	}
}

func TestInstall_DistinctMonitorsEachNotify(t *testing.T) {
	rec := &recorder{}
	m1 := New(rec, common.NewSilentLogger())
	m2 := New(rec, common.NewSilentLogger())
	area, _ := newHost().Area(models.CategoryLocal)

	wrapped := m2.Install(m1.Install(area))
	if err := wrapped.SetItem(context.Background(), "a", "1"); err != nil {
		t.Fatal(err)
	}
	if n := len(rec.all()); n != 2 {
		t.Errorf("expected one notification per monitor (2), got %d", n)
	}
}

func TestInstall_FailedWriteDoesNotNotify(t *testing.T) {
	rec := &recorder{}
	m := New(rec, common.NewSilentLogger())
	h := newHost()
	area, _ := h.Area(models.CategoryLocal)
	wrapped := m.Install(area)
	h.Close()

	err := wrapped.SetItem(context.Background(), "a", "1")
	if !errors.Is(err, models.ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	if n := len(rec.all()); n != 0 {
		t.Errorf("expected no notification for failed write, got %d", n)
	}
}

func TestObserve_SuppressesEchoOfToolWrite(t *testing.T) {
	rec := &recorder{}
	m := New(rec, common.NewSilentLogger())
	h := newHost()
	stop := m.Observe(h)
	defer stop()

	area, _ := h.Area(models.CategoryLocal)
	wrapped := m.Install(area)
	if err := wrapped.SetItem(context.Background(), "a", "1"); err != nil {
		t.Fatal(err)
	}

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 notification with host echo, got %d", len(got))
	}
	if got[0].Origin != models.OriginTool {
		t.Errorf("expected tool origin, got %s", got[0].Origin)
	}
}

func TestObserve_SilentToolWriteDoesNotHidePageWrite(t *testing.T) {
	rec := &recorder{}
	m := New(rec, common.NewSilentLogger())
	h := newHost()
	stop := m.Observe(h)
	defer stop()

	ctx := context.Background()
	area, _ := h.Area(models.CategoryLocal)
	if err := area.SetItem(ctx, "a", "1"); err != nil {
		t.Fatal(err)
	}
	wrapped := m.Install(area)

	// Neither write changes the area, so the host raises no event for them.
	if err := wrapped.SetItem(ctx, "a", "1"); err != nil {
		t.Fatal(err)
	}
	if err := wrapped.RemoveItem(ctx, "missing"); err != nil {
		t.Fatal(err)
	}

	if err := area.SetItem(ctx, "a", "2"); err != nil {
		t.Fatal(err)
	}
	if err := area.SetItem(ctx, "missing", "x"); err != nil {
		t.Fatal(err)
	}
	if err := area.RemoveItem(ctx, "missing"); err != nil {
		t.Fatal(err)
	}

	got := rec.all()
	wantOrigins := []string{
		models.OriginPage, // a=1 before install
		models.OriginTool, // a=1 again
		models.OriginTool, // remove missing
		models.OriginPage, // a=2
		models.OriginPage, // missing=x
		models.OriginPage, // remove missing
	}
	if len(got) != len(wantOrigins) {
		t.Fatalf("expected %d notifications, got %d: %+v", len(wantOrigins), len(got), got)
	}
	for i, want := range wantOrigins {
		if got[i].Origin != want {
			t.Errorf("notification %d: expected origin %s, got %s (%+v)", i, want, got[i].Origin, got[i])
		}
	}
	if got[3].Key != "a" || got[3].Op != models.OpSet {
		t.Errorf("expected page set of a, got %+v", got[3])
	}
}

func TestObserve_PageWriteNotifiesOnce(t *testing.T) {
	rec := &recorder{}
	m := New(rec, common.NewSilentLogger())
	h := newHost()
	stop := m.Observe(h)
	defer stop()

	// A write on the raw area stands in for the page's own script.
	if err := localArea(t, h).SetItem(context.Background(), "theme", "dark"); err != nil {
		t.Fatal(err)
	}

	got := rec.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(got))
	}
	if got[0].Origin != models.OriginPage || got[0].Key != "theme" {
		t.Errorf("unexpected notification %+v", got[0])
	}
}

func TestObserve_StopEndsObservation(t *testing.T) {
	rec := &recorder{}
	m := New(rec, common.NewSilentLogger())
	h := newHost()
	stop := m.Observe(h)
	stop()

	if err := localArea(t, h).SetItem(context.Background(), "a", "1"); err != nil {
		t.Fatal(err)
	}
	if n := len(rec.all()); n != 0 {
		t.Errorf("expected no notifications after stop, got %d", n)
	}
}

func TestEchoWindow_Expires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := New(&recorder{}, common.NewSilentLogger(),
		WithEchoWindow(time.Second),
		WithClock(func() time.Time { return now }),
	)

	m.expectEcho(models.CategoryLocal, "a", models.OpSet)
	now = now.Add(2 * time.Second)
	if m.consumeEcho(models.CategoryLocal, "a", models.OpSet) {
		t.Error("expected stale echo expectation to be pruned")
	}
}

func TestInstallCookies(t *testing.T) {
	rec := &recorder{}
	m := New(rec, common.NewSilentLogger())
	h := newHost()
	jar := m.InstallCookies(h.Cookies())
	if m.InstallCookies(jar) != jar {
		t.Fatal("expected re-install to return the existing decorator")
	}

	ctx := context.Background()
	if err := jar.SetCookie(ctx, models.Cookie{Name: "sid", Value: "abc"}); err != nil {
		t.Fatal(err)
	}
	if err := jar.DeleteCookie(ctx, "example.com", "sid", "/"); err != nil {
		t.Fatal(err)
	}
	if err := jar.SetCookie(ctx, models.Cookie{}); err == nil {
		t.Fatal("expected error for nameless cookie")
	}

	got := rec.all()
	if len(got) != 2 {
		t.Fatalf("expected 2 cookie notifications, got %d", len(got))
	}
	if got[0].Category != models.CategoryCookie || got[0].Op != models.OpSet {
		t.Errorf("unexpected first notification %+v", got[0])
	}
}
