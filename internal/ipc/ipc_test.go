package ipc_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Compy/mpf-mc/internal/ipc"
	"github.com/Compy/mpf-mc/internal/logging"
)

type fakeCore struct {
	shutdowns atomic.Int32
	remote    atomic.Int32
}

func (f *fakeCore) Status(context.Context) ipc.StatusResponse {
	return ipc.StatusResponse{
		Running:    true,
		SessionID:  "session-1",
		MachineDir: "/machines/demo",
		Ready:      true,
		PID:        os.Getpid(),
		Progress:   ipc.ProgressInfo{Total: 4, Loaded: 4, Percent: 100},
		Classes: []ipc.ClassInfo{
			{Attribute: "images", Assets: 3, Loaded: 3},
			{Attribute: "sounds", Assets: 1, Loaded: 1},
		},
	}
}

func (f *fakeCore) ReportRemoteProgress(total, remaining int) (ipc.ProgressInfo, error) {
	if remaining < 0 || total < remaining {
		return ipc.ProgressInfo{}, errors.New("inconsistent counts")
	}
	f.remote.Add(1)
	return ipc.ProgressInfo{
		Total:        total,
		Loaded:       total - remaining,
		Remaining:    remaining,
		Percent:      50,
		RemoteTotal:  total,
		RemoteLoaded: total - remaining,
	}, nil
}

func (f *fakeCore) LoadKey(key string) (int, error) {
	if key == "missing" {
		return 0, nil
	}
	return 2, nil
}

func (f *fakeCore) ListAssets(attribute string) []ipc.AssetInfo {
	all := []ipc.AssetInfo{
		{Name: "ball", Kind: "images", State: "loaded", LoadKey: "preload"},
		{Name: "ding", Kind: "sounds", State: "unloaded", LoadKey: "on_demand"},
	}
	if attribute == "" {
		return all
	}
	var out []ipc.AssetInfo
	for _, info := range all {
		if info.Kind == attribute {
			out = append(out, info)
		}
	}
	return out
}

func (f *fakeCore) RequestShutdown() { f.shutdowns.Add(1) }

func startServer(t *testing.T) (*fakeCore, *ipc.Client) {
	t.Helper()
	core := &fakeCore{}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	socket := filepath.Join(t.TempDir(), "mpf-mc.sock")
	srv, err := ipc.NewServer(ctx, socket, core, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return core, client
}

func TestStatusRoundTrip(t *testing.T) {
	_, client := startServer(t)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running || !status.Ready {
		t.Fatalf("unexpected status: %+v", status)
	}
	if status.Progress.Percent != 100 {
		t.Fatalf("Percent = %d, want 100", status.Progress.Percent)
	}
	if len(status.Classes) != 2 || status.Classes[0].Attribute != "images" {
		t.Fatalf("unexpected classes: %+v", status.Classes)
	}
}

func TestReportProgress(t *testing.T) {
	core, client := startServer(t)

	resp, err := client.ReportProgress(10, 5)
	if err != nil {
		t.Fatalf("ReportProgress RPC failed: %v", err)
	}
	if resp.Progress.RemoteLoaded != 5 {
		t.Fatalf("RemoteLoaded = %d, want 5", resp.Progress.RemoteLoaded)
	}
	if core.remote.Load() != 1 {
		t.Fatalf("core saw %d reports, want 1", core.remote.Load())
	}

	if _, err := client.ReportProgress(3, 7); err == nil {
		t.Fatal("expected error for remaining above total")
	}
}

func TestLoadKey(t *testing.T) {
	_, client := startServer(t)

	resp, err := client.LoadKey("mode_one_start")
	if err != nil {
		t.Fatalf("LoadKey RPC failed: %v", err)
	}
	if resp.Matched != 2 {
		t.Fatalf("Matched = %d, want 2", resp.Matched)
	}

	resp, err = client.LoadKey("missing")
	if err != nil {
		t.Fatalf("LoadKey RPC failed: %v", err)
	}
	if resp.Matched != 0 {
		t.Fatalf("Matched = %d, want 0", resp.Matched)
	}

	if _, err := client.LoadKey(""); err == nil {
		t.Fatal("expected error for empty key")
	}
}

func TestAssetList(t *testing.T) {
	_, client := startServer(t)

	resp, err := client.AssetList("")
	if err != nil {
		t.Fatalf("AssetList RPC failed: %v", err)
	}
	if len(resp.Assets) != 2 {
		t.Fatalf("got %d assets, want 2", len(resp.Assets))
	}

	resp, err = client.AssetList("sounds")
	if err != nil {
		t.Fatalf("AssetList RPC failed: %v", err)
	}
	if len(resp.Assets) != 1 || resp.Assets[0].Name != "ding" {
		t.Fatalf("unexpected filtered assets: %+v", resp.Assets)
	}
}

func TestShutdown(t *testing.T) {
	core, client := startServer(t)

	resp, err := client.Shutdown()
	if err != nil {
		t.Fatalf("Shutdown RPC failed: %v", err)
	}
	if !resp.Stopping {
		t.Fatal("expected Stopping=true")
	}
	if core.shutdowns.Load() != 1 {
		t.Fatalf("core saw %d shutdowns, want 1", core.shutdowns.Load())
	}
}

func TestServerRemovesStaleSocket(t *testing.T) {
	dir := t.TempDir()
	socket := filepath.Join(dir, "stale.sock")
	if err := os.WriteFile(socket, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := ipc.NewServer(ctx, socket, &fakeCore{}, logging.NewNop())
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Close()

	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("socket should be removed after Close, stat err = %v", err)
	}
}
