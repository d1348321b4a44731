package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Compy/mpf-mc/internal/config"
	"github.com/Compy/mpf-mc/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyLoadFailure(context.Background(), errors.New("boom")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type capture struct {
	title    string
	tags     string
	priority string
	body     string
	calls    int
}

func captureServer(t *testing.T, captured *capture) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		captured.title = r.Header.Get("Title")
		captured.tags = r.Header.Get("Tags")
		captured.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		captured.body = string(body)
		captured.calls++
		_ = r.Body.Close()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func newNtfyService(t *testing.T, url string, startup, errs bool) notifications.Service {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = url
	cfg.Notifications.RequestTimeout = 5
	cfg.Notifications.Startup = startup
	cfg.Notifications.Errors = errs
	return notifications.NewService(&cfg)
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	var captured capture
	server := captureServer(t, &captured)
	svc := newNtfyService(t, server.URL, true, true)

	if err := svc.NotifyStartupComplete(context.Background(), "/machines/demo", 42, 1500*time.Millisecond); err != nil {
		t.Fatalf("NotifyStartupComplete: %v", err)
	}
	if captured.title != "MPF-MC - Ready" {
		t.Fatalf("title = %q", captured.title)
	}
	if !strings.Contains(captured.body, "42 assets registered from /machines/demo") {
		t.Fatalf("body = %q", captured.body)
	}
	if captured.tags != "mpf-mc,startup,ready" {
		t.Fatalf("tags = %q", captured.tags)
	}

	if err := svc.NotifyAssetsLoaded(context.Background(), 10, 12, 2*time.Second); err != nil {
		t.Fatalf("NotifyAssetsLoaded: %v", err)
	}
	if captured.body != "Preload complete: 10 of 12 assets loaded in 2s" {
		t.Fatalf("body = %q", captured.body)
	}

	if err := svc.NotifyLoadFailure(context.Background(), errors.New("decode ball.png: corrupt")); err != nil {
		t.Fatalf("NotifyLoadFailure: %v", err)
	}
	if captured.priority != "high" {
		t.Fatalf("priority = %q", captured.priority)
	}
	if !strings.Contains(captured.body, "decode ball.png: corrupt") {
		t.Fatalf("body = %q", captured.body)
	}

	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if captured.priority != "low" {
		t.Fatalf("priority = %q", captured.priority)
	}
}

func TestNtfyServiceHonorsToggles(t *testing.T) {
	var captured capture
	server := captureServer(t, &captured)
	svc := newNtfyService(t, server.URL, false, false)

	if err := svc.NotifyStartupComplete(context.Background(), "/machines/demo", 1, time.Second); err != nil {
		t.Fatalf("NotifyStartupComplete: %v", err)
	}
	if err := svc.NotifyAssetsLoaded(context.Background(), 1, 1, time.Second); err != nil {
		t.Fatalf("NotifyAssetsLoaded: %v", err)
	}
	if err := svc.NotifyLoadFailure(context.Background(), errors.New("boom")); err != nil {
		t.Fatalf("NotifyLoadFailure: %v", err)
	}
	if captured.calls != 0 {
		t.Fatalf("suppressed events reached the server %d times", captured.calls)
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	svc := newNtfyService(t, server.URL, true, true)
	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry status code, got %v", err)
	}
}
