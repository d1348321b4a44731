// Package font provides the bitmap font asset kind backed by
// AngelCode BMFont descriptor files.
package font

import (
	"errors"
	"sync"

	"github.com/fzipp/bmfont"

	"github.com/Compy/mpf-mc/internal/assets"
)

// Class returns the bitmap font asset class for registration.
func Class(folder string) *assets.Class {
	return &assets.Class{
		Attribute:     "fonts",
		ConfigSection: "fonts",
		GroupSection:  "font_groups",
		PathString:    folder,
		Extensions:    []string{"fnt"},
		Priority:      70,
		New: func(name, file string, cfg assets.Config) (assets.Payload, error) {
			return &Font{file: file}, nil
		},
	}
}

// Font is the parsed payload of a bitmap font asset.
type Font struct {
	file string

	mu   sync.Mutex
	font *bmfont.BitmapFont
}

// Load parses the descriptor and its page images.
func (f *Font) Load() error {
	font, err := bmfont.Load(f.file)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.font = font
	f.mu.Unlock()
	return nil
}

// Unload drops the parsed font.
func (f *Font) Unload() error {
	f.mu.Lock()
	f.font = nil
	f.mu.Unlock()
	return nil
}

// Font returns the parsed font, or an error when unloaded.
func (f *Font) Font() (*bmfont.BitmapFont, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.font == nil {
		return nil, errors.New("font not loaded")
	}
	return f.font, nil
}

// Face returns the font face name, empty when unloaded.
func (f *Font) Face() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.font == nil {
		return ""
	}
	return f.font.Descriptor.Info.Face
}

// LineHeight returns the pixel distance between lines of text, 0 when
// unloaded.
func (f *Font) LineHeight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.font == nil {
		return 0
	}
	return f.font.Descriptor.Common.LineHeight
}
