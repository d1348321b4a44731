// Package video provides the video asset kind. Loading a video does
// not decode frames; it inspects the container with ffprobe (cached
// when a probe cache is configured) and validates that a video stream
// exists.
package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Compy/mpf-mc/internal/assets"
	"github.com/Compy/mpf-mc/internal/media/probe"
	"github.com/Compy/mpf-mc/internal/media/probecache"
)

// Options carries the collaborators video payloads need at load time.
type Options struct {
	// Binary is the ffprobe executable name or path.
	Binary string

	// Cache is optional; a nil cache means every load probes.
	Cache *probecache.Store

	// Timeout bounds a single ffprobe invocation.
	Timeout time.Duration
}

// Class returns the video asset class for registration.
func Class(folder string, opts Options) *assets.Class {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &assets.Class{
		Attribute:     "videos",
		ConfigSection: "videos",
		GroupSection:  "video_groups",
		PathString:    folder,
		Extensions:    []string{"mp4", "mkv", "avi", "mov", "m4v", "webm"},
		Priority:      80,
		New: func(name, file string, cfg assets.Config) (assets.Payload, error) {
			return &Video{file: file, opts: opts}, nil
		},
	}
}

// Video is the inspected payload of a video asset.
type Video struct {
	file string
	opts Options

	mu   sync.Mutex
	info *probe.Result
}

// Load probes the backing file and validates it has a video stream.
func (v *Video) Load() error {
	stat, err := os.Stat(v.file)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.opts.Timeout)
	defer cancel()

	var result probe.Result
	hit := false
	if v.opts.Cache != nil {
		result, hit, err = v.opts.Cache.Get(ctx, v.file, stat.Size(), stat.ModTime())
		if err != nil {
			return err
		}
	}
	if !hit {
		result, err = probe.Inspect(ctx, v.opts.Binary, v.file)
		if err != nil {
			return err
		}
		if v.opts.Cache != nil {
			if err := v.opts.Cache.Put(ctx, v.file, stat.Size(), stat.ModTime(), result); err != nil {
				return err
			}
		}
	}

	if result.VideoStreamCount() == 0 {
		return fmt.Errorf("%s has no video stream", v.file)
	}

	v.mu.Lock()
	v.info = &result
	v.mu.Unlock()
	return nil
}

// Unload drops the inspection result.
func (v *Video) Unload() error {
	v.mu.Lock()
	v.info = nil
	v.mu.Unlock()
	return nil
}

// Info returns the probe result, or an error when unloaded.
func (v *Video) Info() (probe.Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.info == nil {
		return probe.Result{}, errors.New("video not loaded")
	}
	return *v.info, nil
}

// Duration returns the container duration in seconds, 0 when
// unloaded.
func (v *Video) Duration() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.info == nil {
		return 0
	}
	return v.info.DurationSeconds()
}

// Size returns the frame dimensions, zeros when unloaded.
func (v *Video) Size() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.info == nil {
		return 0, 0
	}
	return v.info.Dimensions()
}
