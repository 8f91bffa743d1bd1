// internal/sample/data.go
package sample

import "time"

// SampleRate is the only sample rate this engine accepts for source WAV
// files. Anything else is rejected at load time rather than resampled.
const SampleRate = 48000

// Data holds one decoded sample's audio frames, normalized to [-1.0, 1.0].
// Frames are interleaved when Channels > 1.
type Data struct {
	Frames   []float32
	Channels int
}

// Empty returns a zero-length, mono silent placeholder. Used when a
// kit/variant is missing a sample file on disk.
func Empty() *Data {
	return &Data{Frames: nil, Channels: 1}
}

// NumFrames returns the number of audio frames (not individual samples).
func (d *Data) NumFrames() int {
	if d.Channels == 0 {
		return 0
	}
	return len(d.Frames) / d.Channels
}

// DurationSeconds returns the playback duration at SampleRate.
func (d *Data) DurationSeconds() float64 {
	return float64(d.NumFrames()) / float64(SampleRate)
}

// Duration returns DurationSeconds as a time.Duration.
func (d *Data) Duration() time.Duration {
	return time.Duration(d.DurationSeconds() * float64(time.Second))
}
