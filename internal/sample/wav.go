// internal/sample/wav.go
package sample

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
)

var (
	// ErrUnsupportedSampleRate is returned when a WAV file's sample rate is
	// not SampleRate. This engine never resamples.
	ErrUnsupportedSampleRate = errors.New("sample: unsupported sample rate")
	// ErrUnsupportedChannels is returned for anything other than mono or
	// stereo source material.
	ErrUnsupportedChannels = errors.New("sample: unsupported channel count")
	// ErrMalformedWAV is returned when the file cannot be parsed as WAV.
	ErrMalformedWAV = errors.New("sample: malformed WAV file")
)

// wavFloatFormat is the WAVE_FORMAT_IEEE_FLOAT format tag.
const wavFloatFormat = 3

// LoadWAV decodes a WAV file at path into normalized float32 frames.
// The sample rate must be 48000 Hz and the file must be mono or stereo.
func LoadWAV(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s", ErrMalformedWAV, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedWAV, path, err)
	}

	if int(dec.SampleRate) != SampleRate {
		return nil, fmt.Errorf("%w: %s: got %d Hz, want %d Hz",
			ErrUnsupportedSampleRate, path, dec.SampleRate, SampleRate)
	}
	channels := buf.Format.NumChannels
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("%w: %s: got %d channels", ErrUnsupportedChannels, path, channels)
	}

	frames := decodeSamples(buf.Data, int(dec.BitDepth), dec.WavAudioFormat)

	return &Data{Frames: frames, Channels: channels}, nil
}

// decodeSamples normalizes raw PCM integers to float32 in [-1.0, 1.0].
// IEEE float samples are passed through after reinterpreting their bits;
// integer samples are scaled by the signed range of their bit depth.
func decodeSamples(raw []int, bitDepth int, audioFormat uint16) []float32 {
	out := make([]float32, len(raw))

	if audioFormat == wavFloatFormat {
		for i, v := range raw {
			out[i] = math.Float32frombits(uint32(v))
		}
		return out
	}

	scale := float32(int64(1) << uint(bitDepth-1))
	for i, v := range raw {
		out[i] = float32(v) / scale
	}
	return out
}
