package image

import (
	goimage "image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Compy/mpf-mc/internal/assets"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := goimage.NewRGBA(goimage.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return path
}

func TestLoadAndUnload(t *testing.T) {
	path := writePNG(t, t.TempDir(), "sprite.png", 4, 2)

	payload, err := Class("images").New("sprite", path, assets.Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	img := payload.(*Image)

	if err := img.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w, h := img.Size(); w != 4 || h != 2 {
		t.Fatalf("Size() = %dx%d, want 4x2", w, h)
	}
	if img.Image() == nil {
		t.Fatal("Image() returned nil after load")
	}

	if err := img.Unload(); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if img.Image() != nil {
		t.Fatal("Image() should be nil after unload")
	}
	if w, h := img.Size(); w != 0 || h != 0 {
		t.Fatalf("Size() after unload = %dx%d, want 0x0", w, h)
	}
}

func TestLoadMissingFile(t *testing.T) {
	payload, err := Class("images").New("ghost", filepath.Join(t.TempDir(), "ghost.png"), assets.Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := payload.Load(); err == nil {
		t.Fatal("expected error loading missing file")
	}
}

func TestLoadCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	payload, err := Class("images").New("bad", path, assets.Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := payload.Load(); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestClassAcceptsExtensions(t *testing.T) {
	class := Class("images")
	for _, name := range []string{"a.png", "b.jpg", "c.gif", "d.bmp"} {
		if !class.AcceptsFile(name) {
			t.Errorf("AcceptsFile(%q) = false", name)
		}
	}
	if class.AcceptsFile("a.txt") {
		t.Error("AcceptsFile(a.txt) = true")
	}
}
