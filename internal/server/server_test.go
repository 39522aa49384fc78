package server

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestServer_ShutdownEndsEventStreams(t *testing.T) {
	s := New(newTestApp(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	served := make(chan error, 1)
	go func() { served <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	if err != nil || !strings.HasPrefix(line, "event: connected") {
		t.Fatalf("expected connected event, got %q (%v)", line, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	start := time.Now()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("shutdown waited %s for the open stream", elapsed)
	}

	select {
	case err := <-served:
		if err != nil {
			t.Errorf("expected clean serve exit, got %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Serve did not return after Shutdown")
	}

	if _, err := io.ReadAll(resp.Body); err != nil && !strings.Contains(err.Error(), "EOF") {
		t.Logf("stream closed with %v", err)
	}
}

func TestServer_AddressFromConfig(t *testing.T) {
	application := newTestApp(t)
	application.Config.Server.Host = "::1"
	application.Config.Server.Port = 4123

	if got := New(application).server.Addr; got != "[::1]:4123" {
		t.Errorf("expected bracketed IPv6 address, got %s", got)
	}
}
