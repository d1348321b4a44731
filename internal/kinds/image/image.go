// Package image provides the bitmap image asset kind. PNG, JPEG, GIF,
// BMP, and WebP files are decoded into an in-memory image.Image.
package image

import (
	"fmt"
	goimage "image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/Compy/mpf-mc/internal/assets"
)

// Class returns the image asset class for registration.
func Class(folder string) *assets.Class {
	return &assets.Class{
		Attribute:     "images",
		ConfigSection: "images",
		GroupSection:  "image_groups",
		PathString:    folder,
		Extensions:    []string{"png", "jpg", "jpeg", "gif", "bmp", "webp"},
		Priority:      100,
		New: func(name, file string, cfg assets.Config) (assets.Payload, error) {
			return &Image{file: file}, nil
		},
	}
}

// Image is the decoded payload of an image asset.
type Image struct {
	file string

	mu     sync.Mutex
	img    goimage.Image
	width  int
	height int
}

// Load decodes the backing file.
func (i *Image) Load() error {
	f, err := os.Open(i.file)
	if err != nil {
		return err
	}
	defer f.Close()

	decoded, _, err := goimage.Decode(f)
	if err != nil {
		return fmt.Errorf("decode image (%s): %w", i.file, err)
	}
	bounds := decoded.Bounds()

	i.mu.Lock()
	i.img = decoded
	i.width = bounds.Dx()
	i.height = bounds.Dy()
	i.mu.Unlock()
	return nil
}

// Unload drops the decoded pixels.
func (i *Image) Unload() error {
	i.mu.Lock()
	i.img = nil
	i.width = 0
	i.height = 0
	i.mu.Unlock()
	return nil
}

// Image returns the decoded image, or nil when unloaded.
func (i *Image) Image() goimage.Image {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.img
}

// Size returns the decoded dimensions in pixels.
func (i *Image) Size() (int, int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.width, i.height
}
