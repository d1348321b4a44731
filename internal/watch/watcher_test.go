package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Compy/mpf-mc/internal/assets"
)

type countingPayload struct {
	loads   atomic.Int32
	unloads atomic.Int32
}

func (p *countingPayload) Load() error {
	p.loads.Add(1)
	return nil
}

func (p *countingPayload) Unload() error {
	p.unloads.Add(1)
	return nil
}

func newManager(t *testing.T) (*assets.Manager, map[string]*countingPayload) {
	t.Helper()
	payloads := make(map[string]*countingPayload)
	mgr := assets.NewManager(assets.Options{PollInterval: 2 * time.Millisecond})
	t.Cleanup(mgr.Shutdown)
	err := mgr.RegisterClass(&assets.Class{
		Attribute:     "images",
		ConfigSection: "images",
		PathString:    "images",
		Extensions:    []string{"png"},
		New: func(name, file string, cfg assets.Config) (assets.Payload, error) {
			p := &countingPayload{}
			payloads[name] = p
			return p, nil
		},
	})
	if err != nil {
		t.Fatalf("RegisterClass: %v", err)
	}
	return mgr, payloads
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestReloadRefreshesLoadedAsset(t *testing.T) {
	mgr, payloads := newManager(t)
	file := filepath.Join(t.TempDir(), "ball.png")

	asset, err := mgr.CreateAsset("images", "ball", file, assets.Config{})
	if err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}
	asset.Load(nil)
	waitFor(t, asset.Loaded)

	w, err := New(mgr, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	w.reload(file)
	waitFor(t, func() bool { return payloads["ball"].loads.Load() == 2 })
	if payloads["ball"].unloads.Load() != 1 {
		t.Fatalf("unloads = %d, want 1", payloads["ball"].unloads.Load())
	}
	waitFor(t, asset.Loaded)
}

func TestReloadSkipsUnloadedAsset(t *testing.T) {
	mgr, payloads := newManager(t)
	file := filepath.Join(t.TempDir(), "ball.png")

	if _, err := mgr.CreateAsset("images", "ball", file, assets.Config{}); err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}

	w, err := New(mgr, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	w.reload(file)
	time.Sleep(20 * time.Millisecond)
	if payloads["ball"].loads.Load() != 0 {
		t.Fatalf("loads = %d, want 0", payloads["ball"].loads.Load())
	}
}

func TestReloadIgnoresUnknownPath(t *testing.T) {
	mgr, _ := newManager(t)

	w, err := New(mgr, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	w.reload(filepath.Join(t.TempDir(), "unregistered.png"))
}

func TestWriteEventTriggersReload(t *testing.T) {
	mgr, payloads := newManager(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "ball.png")
	if err := os.WriteFile(file, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	asset, err := mgr.CreateAsset("images", "ball", file, assets.Config{})
	if err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}
	asset.Load(nil)
	waitFor(t, asset.Loaded)

	w, err := New(mgr, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { w.Close() })
	if err := w.Start(dir); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(file, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return payloads["ball"].loads.Load() >= 2 })
}
