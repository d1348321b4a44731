package sound

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const pcmFormat = 1

// decodeWAV parses a RIFF/WAVE container holding 16-bit PCM and
// returns the raw sample data. Unknown chunks are skipped.
func decodeWAV(r io.Reader) (*Track, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE file")
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		haveFormat    bool
	)

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, errors.New("missing data chunk")
			}
			return nil, fmt.Errorf("read chunk header: %w", err)
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, errors.New("fmt chunk too short")
			}
			body := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			if format := binary.LittleEndian.Uint16(body[0:2]); format != pcmFormat {
				return nil, fmt.Errorf("unsupported WAV format tag %d, only PCM is supported", format)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			if channels == 0 || sampleRate == 0 {
				return nil, errors.New("invalid fmt chunk")
			}
			if bitsPerSample != 16 {
				return nil, fmt.Errorf("unsupported bit depth %d, only 16-bit PCM is supported", bitsPerSample)
			}
			haveFormat = true

		case "data":
			if !haveFormat {
				return nil, errors.New("data chunk before fmt chunk")
			}
			samples := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, samples); err != nil {
				return nil, fmt.Errorf("read sample data: %w", err)
			}
			return &Track{
				Samples:    samples,
				SampleRate: sampleRate,
				Channels:   channels,
			}, nil

		default:
			// Chunks are word-aligned; odd sizes carry a pad byte.
			skip := int64(chunkSize)
			if chunkSize%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, fmt.Errorf("skip %s chunk: %w", chunkID, err)
			}
		}
	}
}
