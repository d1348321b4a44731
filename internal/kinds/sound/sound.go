// Package sound provides the audio asset kind. WAV files are parsed
// directly; MP3 and Ogg Vorbis are decoded to 16-bit PCM.
package sound

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"

	"github.com/Compy/mpf-mc/internal/assets"
)

// Class returns the sound asset class for registration.
func Class(folder string) *assets.Class {
	return &assets.Class{
		Attribute:     "sounds",
		ConfigSection: "sounds",
		GroupSection:  "sound_groups",
		PathString:    folder,
		Extensions:    []string{"wav", "mp3", "ogg"},
		Priority:      90,
		New: func(name, file string, cfg assets.Config) (assets.Payload, error) {
			volume := cfg.Float("volume", 0.5)
			if volume < 0 || volume > 1 {
				return nil, fmt.Errorf("volume %v out of range [0, 1]", volume)
			}
			return &Sound{
				file:   file,
				volume: volume,
				loops:  cfg.Int("loops", 0),
			}, nil
		},
	}
}

// Track is decoded PCM audio: interleaved 16-bit little-endian
// samples.
type Track struct {
	Samples    []byte
	SampleRate int
	Channels   int
}

// Duration returns the track length in seconds.
func (t *Track) Duration() float64 {
	if t.SampleRate == 0 || t.Channels == 0 {
		return 0
	}
	frames := len(t.Samples) / 2 / t.Channels
	return float64(frames) / float64(t.SampleRate)
}

// Sound is the decoded payload of an audio asset.
type Sound struct {
	file   string
	volume float64
	loops  int

	mu    sync.Mutex
	track *Track
}

// Volume returns the configured playback volume in [0, 1].
func (s *Sound) Volume() float64 { return s.volume }

// Loops returns the configured loop count, 0 meaning play once.
func (s *Sound) Loops() int { return s.loops }

// Load decodes the backing file into PCM.
func (s *Sound) Load() error {
	f, err := os.Open(s.file)
	if err != nil {
		return err
	}
	defer f.Close()

	var track *Track
	switch strings.ToLower(filepath.Ext(s.file)) {
	case ".wav":
		track, err = decodeWAV(f)
	case ".mp3":
		track, err = decodeMP3(f)
	case ".ogg":
		track, err = decodeOgg(f)
	default:
		err = fmt.Errorf("unsupported audio format %q", filepath.Ext(s.file))
	}
	if err != nil {
		return fmt.Errorf("decode audio (%s): %w", s.file, err)
	}

	s.mu.Lock()
	s.track = track
	s.mu.Unlock()
	return nil
}

// Unload drops the decoded PCM.
func (s *Sound) Unload() error {
	s.mu.Lock()
	s.track = nil
	s.mu.Unlock()
	return nil
}

// Track returns the decoded audio, or nil when unloaded.
func (s *Sound) Track() *Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

func decodeMP3(r io.Reader) (*Track, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	samples, err := io.ReadAll(decoder)
	if err != nil {
		return nil, err
	}
	// go-mp3 always emits 16-bit stereo.
	return &Track{
		Samples:    samples,
		SampleRate: decoder.SampleRate(),
		Channels:   2,
	}, nil
}

func decodeOgg(r io.Reader) (*Track, error) {
	floats, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	samples := make([]byte, len(floats)*2)
	for i, sample := range floats {
		scaled := int(math.Round(float64(sample) * 32767))
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		binary.LittleEndian.PutUint16(samples[i*2:], uint16(int16(scaled)))
	}
	return &Track{
		Samples:    samples,
		SampleRate: format.SampleRate,
		Channels:   format.Channels,
	}, nil
}
