package models

import (
	"errors"
	"testing"
)

func TestParseCategory_Aliases(t *testing.T) {
	for raw, want := range map[string]Category{
		"cookies":        CategoryCookie,
		"localStorage":   CategoryLocal,
		"sessionStorage": CategorySession,
		" Session ":      CategorySession,
		"sw":             CategoryServiceWorker,
		"caches":         CategoryCache,
	} {
		got, err := ParseCategory(raw)
		if err != nil || got != want {
			t.Errorf("%q: expected %q, got %q (%v)", raw, want, got, err)
		}
	}
	if _, err := ParseCategory("indexeddb"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}

func TestParseItemFilter(t *testing.T) {
	for raw, want := range map[string]Category{
		"":               "",
		"all":            "",
		"ALL":            "",
		"cookies":        CategoryCookie,
		"localStorage":   CategoryLocal,
		"sessionStorage": CategorySession,
	} {
		got, err := ParseItemFilter(raw)
		if err != nil || got != want {
			t.Errorf("%q: expected %q, got %q (%v)", raw, want, got, err)
		}
	}
	if _, err := ParseItemFilter("cache"); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected cache to be rejected, got %v", err)
	}
}

func TestSnapshotItemsOrder(t *testing.T) {
	s := Snapshot{
		Cookies:        []Cookie{{Name: "c", Value: "1"}},
		LocalStorage:   map[string]string{"b": "2", "a": "1"},
		SessionStorage: map[string]string{"z": "9"},
	}
	items := s.Items()
	var keys []string
	for _, it := range items {
		keys = append(keys, string(it.Category)+":"+it.Key)
	}
	want := []string{"cookie:c", "local:a", "local:b", "session:z"}
	if len(keys) != len(want) {
		t.Fatalf("expected %v, got %v", want, keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], keys[i])
		}
	}
}

func TestSnapshotWithout(t *testing.T) {
	s := Snapshot{
		Cookies: []Cookie{
			{Name: "sid", Domain: "a.com"},
			{Name: "sid", Domain: "b.com"},
		},
		LocalStorage: map[string]string{"k": "v"},
	}
	out := s.Without(RecordID{Category: CategoryCookie, Key: "sid", Domain: "a.com"})
	if len(out.Cookies) != 1 || out.Cookies[0].Domain != "b.com" {
		t.Errorf("expected only b.com cookie, got %+v", out.Cookies)
	}
	if len(s.Cookies) != 2 {
		t.Error("Without must not modify the receiver")
	}
	out = s.Without(RecordID{Category: CategoryLocal, Key: "k"})
	if _, ok := out.LocalStorage["k"]; ok {
		t.Error("expected k removed")
	}
	if s.LocalStorage["k"] != "v" {
		t.Error("Without must not modify the receiver's map")
	}
}

func TestCookieExpires(t *testing.T) {
	c := Cookie{ExpirationDate: 1700000000.5}
	if c.IsSession() {
		t.Error("expected persistent cookie")
	}
	if got := c.Expires().UnixMilli(); got != 1700000000500 {
		t.Errorf("expected 1700000000500ms, got %d", got)
	}
	if !(Cookie{}).IsSession() || !(Cookie{}).Expires().IsZero() {
		t.Error("expected session cookie with zero expiry")
	}
}
