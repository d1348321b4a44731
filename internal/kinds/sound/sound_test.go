package sound

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/Compy/mpf-mc/internal/assets"
)

// buildWAV assembles a minimal 16-bit PCM RIFF file.
func buildWAV(t *testing.T, channels, sampleRate int, samples []int16) []byte {
	t.Helper()
	var data bytes.Buffer
	for _, s := range samples {
		binary.Write(&data, binary.LittleEndian, s)
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(channels*2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWAV(t *testing.T) {
	samples := []int16{0, 1000, -1000, 32767, -32768, 0, 0, 0}
	path := writeFile(t, t.TempDir(), "ding.wav", buildWAV(t, 2, 44100, samples))

	payload, err := Class("sounds").New("ding", path, assets.Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	snd := payload.(*Sound)

	if err := snd.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	track := snd.Track()
	if track == nil {
		t.Fatal("Track() returned nil after load")
	}
	if track.Channels != 2 || track.SampleRate != 44100 {
		t.Fatalf("got %d channels at %d Hz, want 2 at 44100", track.Channels, track.SampleRate)
	}
	if len(track.Samples) != len(samples)*2 {
		t.Fatalf("got %d sample bytes, want %d", len(track.Samples), len(samples)*2)
	}

	if err := snd.Unload(); err != nil {
		t.Fatalf("Unload: %v", err)
	}
	if snd.Track() != nil {
		t.Fatal("Track() should be nil after unload")
	}
}

func TestLoadWAVSkipsUnknownChunks(t *testing.T) {
	wav := buildWAV(t, 1, 22050, []int16{1, 2, 3})
	// Splice a LIST chunk between fmt and data.
	extra := append([]byte("LIST"), 0x04, 0x00, 0x00, 0x00, 'I', 'N', 'F', 'O')
	spliced := append(append(append([]byte{}, wav[:36]...), extra...), wav[36:]...)
	binary.LittleEndian.PutUint32(spliced[4:], uint32(len(spliced)-8))

	track, err := decodeWAV(bytes.NewReader(spliced))
	if err != nil {
		t.Fatalf("decodeWAV: %v", err)
	}
	if track.Channels != 1 || track.SampleRate != 22050 {
		t.Fatalf("got %d channels at %d Hz, want 1 at 22050", track.Channels, track.SampleRate)
	}
}

func TestLoadWAVErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not riff", []byte("JUNKJUNKJUNKJUNK")},
		{"truncated", []byte("RIFF")},
		{"no data chunk", func() []byte {
			wav := buildWAV(t, 1, 22050, []int16{1})
			return wav[:44-8]
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeWAV(bytes.NewReader(tt.data)); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestLoadWAVRejectsUnsupportedFormat(t *testing.T) {
	wav := buildWAV(t, 1, 22050, []int16{1, 2})
	// Flip the format tag to IEEE float.
	binary.LittleEndian.PutUint16(wav[20:], 3)
	if _, err := decodeWAV(bytes.NewReader(wav)); err == nil {
		t.Fatal("expected error for non-PCM format")
	}
}

func TestVolumeAndLoopsConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ding.wav", buildWAV(t, 1, 22050, []int16{0}))

	payload, err := Class("sounds").New("ding", path, assets.Config{"volume": 0.8, "loops": 3})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	snd := payload.(*Sound)
	if snd.Volume() != 0.8 {
		t.Fatalf("Volume() = %v, want 0.8", snd.Volume())
	}
	if snd.Loops() != 3 {
		t.Fatalf("Loops() = %d, want 3", snd.Loops())
	}
}

func TestVolumeOutOfRange(t *testing.T) {
	if _, err := Class("sounds").New("loud", "loud.wav", assets.Config{"volume": 1.5}); err == nil {
		t.Fatal("expected error for volume above 1")
	}
	if _, err := Class("sounds").New("neg", "neg.wav", assets.Config{"volume": -0.1}); err == nil {
		t.Fatal("expected error for negative volume")
	}
}

func TestTrackDuration(t *testing.T) {
	track := &Track{Samples: make([]byte, 44100*2*2), SampleRate: 44100, Channels: 2}
	if d := track.Duration(); d < 0.99 || d > 1.01 {
		t.Fatalf("Duration() = %v, want ~1s", d)
	}
}

func TestUnsupportedExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "tune.flac", []byte("fLaC"))
	payload, err := Class("sounds").New("tune", path, assets.Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := payload.Load(); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
