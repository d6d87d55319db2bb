package app

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestHTTPServiceServesAndStops(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})
	svc := NewHTTPService("127.0.0.1:0", handler)

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	deadline := time.Now().Add(3 * time.Second)
	for strings.HasSuffix(svc.Addr(), ":0") {
		if time.Now().After(deadline) {
			t.Fatalf("listener not ready")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get("http://" + svc.Addr() + "/ping")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "pong" {
		t.Fatalf("unexpected body %q", string(body))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("start should return nil after shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestHTTPServiceStartFailsOnBusyAddress(t *testing.T) {
	first := NewHTTPService("127.0.0.1:0", http.NotFoundHandler())
	go func() { _ = first.Start(context.Background()) }()
	deadline := time.Now().Add(3 * time.Second)
	for strings.HasSuffix(first.Addr(), ":0") {
		if time.Now().After(deadline) {
			t.Fatalf("listener not ready")
		}
		time.Sleep(10 * time.Millisecond)
	}
	defer func() { _ = first.Stop(context.Background()) }()

	second := NewHTTPService(first.Addr(), http.NotFoundHandler())
	if err := second.Start(context.Background()); err == nil {
		t.Fatalf("second listener on the same address should fail")
	}
}
