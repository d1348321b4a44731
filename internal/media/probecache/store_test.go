package probecache_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Compy/mpf-mc/internal/media/probe"
	"github.com/Compy/mpf-mc/internal/media/probecache"
)

func openStore(t *testing.T, path string) *probecache.Store {
	t.Helper()
	store, err := probecache.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleResult() probe.Result {
	return probe.Result{
		Streams: []probe.Stream{{Index: 0, CodecType: "video", CodecName: "h264", Width: 640, Height: 480}},
		Format:  probe.Format{Duration: "3.5", NBStreams: 1},
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "cache.db"))
	ctx := context.Background()
	mtime := time.Now()

	if err := store.Put(ctx, "/videos/clip.mp4", 1024, mtime, sampleResult()); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, hit, err := store.Get(ctx, "/videos/clip.mp4", 1024, mtime)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !hit {
		t.Fatal("expected cache hit")
	}
	if w, h := got.Dimensions(); w != 640 || h != 480 {
		t.Fatalf("dimensions lost in round trip: %dx%d", w, h)
	}
	if got.DurationSeconds() != 3.5 {
		t.Fatalf("duration lost: %v", got.DurationSeconds())
	}
}

func TestGetMissesOnChangedFile(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "cache.db"))
	ctx := context.Background()
	mtime := time.Now()

	if err := store.Put(ctx, "/videos/clip.mp4", 1024, mtime, sampleResult()); err != nil {
		t.Fatalf("put: %v", err)
	}

	if _, hit, _ := store.Get(ctx, "/videos/clip.mp4", 2048, mtime); hit {
		t.Fatal("size change should miss")
	}
	if _, hit, _ := store.Get(ctx, "/videos/clip.mp4", 1024, mtime.Add(time.Second)); hit {
		t.Fatal("mtime change should miss")
	}
	if _, hit, _ := store.Get(ctx, "/videos/other.mp4", 1024, mtime); hit {
		t.Fatal("unknown path should miss")
	}
}

func TestPutReplacesExistingEntry(t *testing.T) {
	store := openStore(t, filepath.Join(t.TempDir(), "cache.db"))
	ctx := context.Background()
	mtime := time.Now()

	if err := store.Put(ctx, "/videos/clip.mp4", 1024, mtime, sampleResult()); err != nil {
		t.Fatalf("first put: %v", err)
	}

	updated := sampleResult()
	updated.Streams[0].Width = 1920
	newMtime := mtime.Add(time.Minute)
	if err := store.Put(ctx, "/videos/clip.mp4", 4096, newMtime, updated); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, hit, err := store.Get(ctx, "/videos/clip.mp4", 4096, newMtime)
	if err != nil || !hit {
		t.Fatalf("get after replace: hit=%v err=%v", hit, err)
	}
	if w, _ := got.Dimensions(); w != 1920 {
		t.Fatalf("replacement lost: width=%d", w)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()
	mtime := time.Now()

	store, err := probecache.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Put(ctx, "/videos/clip.mp4", 1024, mtime, sampleResult()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := openStore(t, path)
	_, hit, err := reopened.Get(ctx, "/videos/clip.mp4", 1024, mtime)
	if err != nil || !hit {
		t.Fatalf("entry lost across reopen: hit=%v err=%v", hit, err)
	}
}

func TestPurgeDropsEntriesForMissingFiles(t *testing.T) {
	dir := t.TempDir()
	store := openStore(t, filepath.Join(dir, "cache.db"))
	ctx := context.Background()

	realFile := filepath.Join(dir, "real.mp4")
	if err := os.WriteFile(realFile, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	mtime := time.Now()
	if err := store.Put(ctx, realFile, 1, mtime, sampleResult()); err != nil {
		t.Fatalf("put real: %v", err)
	}
	if err := store.Put(ctx, filepath.Join(dir, "gone.mp4"), 1, mtime, sampleResult()); err != nil {
		t.Fatalf("put gone: %v", err)
	}

	removed, err := store.Purge(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, hit, _ := store.Get(ctx, realFile, 1, mtime); !hit {
		t.Fatal("purge dropped a live entry")
	}
}
