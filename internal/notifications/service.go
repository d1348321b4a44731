package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Compy/mpf-mc/internal/config"
)

const userAgent = "MPF-MC-Go/0.1.0"

// Service defines the notification surface exposed to controller
// components.
type Service interface {
	NotifyStartupComplete(ctx context.Context, machineDir string, assetCount int, elapsed time.Duration) error
	NotifyAssetsLoaded(ctx context.Context, loaded, total int, elapsed time.Duration) error
	NotifyLoadFailure(ctx context.Context, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when
// configured. When no ntfy topic is configured, a noop implementation
// is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		startup:  cfg.Notifications.Startup,
		errors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	startup  bool
	errors   bool
}

func (n *ntfyService) NotifyStartupComplete(ctx context.Context, machineDir string, assetCount int, elapsed time.Duration) error {
	if !n.startup {
		return nil
	}
	data := payload{
		title:   "MPF-MC - Ready",
		message: fmt.Sprintf("Media controller ready: %d assets registered from %s in %s", assetCount, strings.TrimSpace(machineDir), roundDuration(elapsed)),
		tags:    []string{"mpf-mc", "startup", "ready"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyAssetsLoaded(ctx context.Context, loaded, total int, elapsed time.Duration) error {
	if !n.startup {
		return nil
	}
	data := payload{
		title:   "MPF-MC - Assets Loaded",
		message: fmt.Sprintf("Preload complete: %d of %d assets loaded in %s", loaded, total, roundDuration(elapsed)),
		tags:    []string{"mpf-mc", "assets", "loaded"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyLoadFailure(ctx context.Context, err error) error {
	if !n.errors {
		return nil
	}
	message := "Asset loading failed: unknown"
	if err != nil {
		message = "Asset loading failed: " + strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    "MPF-MC - Load Failure",
		message:  message,
		tags:     []string{"mpf-mc", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "MPF-MC - Test",
		message:  "Notification system test",
		tags:     []string{"mpf-mc", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func roundDuration(d time.Duration) string {
	d = d.Round(time.Millisecond)
	if d < 0 {
		d = 0
	}
	return d.String()
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyStartupComplete(context.Context, string, int, time.Duration) error { return nil }
func (noopService) NotifyAssetsLoaded(context.Context, int, int, time.Duration) error       { return nil }
func (noopService) NotifyLoadFailure(context.Context, error) error                          { return nil }
func (noopService) TestNotification(context.Context) error                                  { return nil }
