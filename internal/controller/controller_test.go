package controller_test

import (
	"bytes"
	"context"
	"encoding/binary"
	goimage "image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Compy/mpf-mc/internal/config"
	"github.com/Compy/mpf-mc/internal/controller"
	"github.com/Compy/mpf-mc/internal/logging"
)

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, goimage.NewRGBA(goimage.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
}

func writeTestWAV(t *testing.T, path string) {
	t.Helper()
	var data bytes.Buffer
	for _, s := range []int16{0, 300, -300, 0} {
		binary.Write(&data, binary.LittleEndian, s)
	}
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint32(22050))
	binary.Write(&buf, binary.LittleEndian, uint32(22050*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	machine := filepath.Join(root, "machine")
	for _, dir := range []string{
		filepath.Join(machine, "images"),
		filepath.Join(machine, "sounds"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeTestPNG(t, filepath.Join(machine, "images", "ball.png"))
	writeTestWAV(t, filepath.Join(machine, "sounds", "ding.wav"))

	cfg := config.Default()
	cfg.Paths.MachineDir = machine
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Paths.CacheDir = filepath.Join(root, "cache")
	cfg.Paths.SocketPath = filepath.Join(root, "mpf-mc.sock")
	cfg.Assets.PollIntervalMillis = 2
	cfg.Assets.Watch = false
	cfg.MediaProbe.CacheEnabled = false
	cfg.Notifications.NtfyTopic = ""
	return &cfg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestStartDiscoversAndPreloads(t *testing.T) {
	cfg := newTestConfig(t)
	c, err := controller.New(cfg, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, c.Ready)

	status := c.Status(ctx)
	if !status.Running || !status.Ready {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.Progress.Percent != 100 {
		t.Fatalf("Percent = %d, want 100", status.Progress.Percent)
	}

	byKind := make(map[string]int)
	for _, class := range status.Classes {
		byKind[class.Attribute] = class.Loaded
	}
	if byKind["images"] != 1 || byKind["sounds"] != 1 {
		t.Fatalf("unexpected loaded counts: %v", byKind)
	}

	listed := c.ListAssets("images")
	if len(listed) != 1 || listed[0].Name != "ball" || listed[0].State != "loaded" {
		t.Fatalf("unexpected asset list: %+v", listed)
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	cfg := newTestConfig(t)

	first, err := controller.New(cfg, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(first.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	second, err := controller.New(cfg, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(second.Stop)
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected second instance to be rejected")
	}
}

func TestRemoteProgressMergesIntoStatus(t *testing.T) {
	cfg := newTestConfig(t)
	c, err := controller.New(cfg, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, c.Ready)

	progress, err := c.ReportRemoteProgress(10, 5)
	if err != nil {
		t.Fatalf("ReportRemoteProgress: %v", err)
	}
	if progress.RemoteTotal != 10 || progress.RemoteLoaded != 5 {
		t.Fatalf("unexpected remote counters: %+v", progress)
	}
	if progress.Percent == 100 {
		t.Fatal("percent should drop below 100 with remote work outstanding")
	}

	if _, err := c.ReportRemoteProgress(3, 7); err == nil {
		t.Fatal("expected error for remaining above total")
	}
}

func TestLoadKeyRequiresKey(t *testing.T) {
	cfg := newTestConfig(t)
	c, err := controller.New(cfg, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Stop)

	if _, err := c.LoadKey(""); err == nil {
		t.Fatal("expected error for empty load key")
	}
	matched, err := c.LoadKey("no_such_key")
	if err != nil {
		t.Fatalf("LoadKey: %v", err)
	}
	if matched != 0 {
		t.Fatalf("matched = %d, want 0", matched)
	}
}
