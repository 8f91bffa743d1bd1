// internal/audio/callback.go
package audio

import (
	"github.com/ColonelBlimp/drumkeys/internal/sample"
	"github.com/ColonelBlimp/drumkeys/internal/trigger"
)

// MinBufferFrames is the smallest period size, in frames, that Engine
// requests from the audio backend: a smaller Config.BufferFrames is raised
// to it. The device's own reported minimum is not queried.
const MinBufferFrames = 64

// Voice is one currently-playing instance of a sample.
type Voice struct {
	SampleID uint8
	Position int
	Gain     float32
	Data     *sample.Data
}

// finished reports whether the voice has played past the end of its data.
func (v *Voice) finished() bool {
	return v.Position >= v.Data.NumFrames()
}

// Callback implements one audio buffer's worth of work: drain pending
// triggers, steal voices if over budget, spawn new voices, then mix every
// live voice into out. out holds outputChannels-interleaved float32
// frames. voices and drainBuf are reused across calls by the caller to
// avoid allocating in the hot path.
//
// This function must never allocate, block, or log.
func Callback(
	out []float32,
	outputChannels int,
	triggers *trigger.Channel,
	drainBuf *[]trigger.Trigger,
	voices *[]Voice,
	bank *sample.Cell,
	masterVolume float32,
	maxVoices int,
) {
	*drainBuf = (*drainBuf)[:0]
	triggers.Drain(drainBuf)

	b := bank.Load()

	if len(*drainBuf) > 0 {
		stealVoices(voices, len(*drainBuf), maxVoices)
		spawnVoices(voices, *drainBuf, b, maxVoices)
	}

	for i := range out {
		out[i] = 0
	}

	mixVoices(out, outputChannels, voices, masterVolume)

	for i := range out {
		out[i] = clamp(out[i], -1.0, 1.0)
	}

	removeFinished(voices)
}

// stealVoices removes the oldest voices in bulk, just enough to make room
// for incoming triggers without exceeding maxVoices.
func stealVoices(voices *[]Voice, incoming, maxVoices int) {
	available := maxVoices - len(*voices)
	if available < 0 {
		available = 0
	}
	if incoming <= available {
		return
	}
	toSteal := incoming - available
	if toSteal > len(*voices) {
		toSteal = len(*voices)
	}
	copy(*voices, (*voices)[toSteal:])
	*voices = (*voices)[:len(*voices)-toSteal]
}

// spawnVoices creates a new Voice for each trigger whose sample ID is
// valid, up to maxVoices total. Triggers beyond the remaining budget are
// dropped.
func spawnVoices(voices *[]Voice, triggers []trigger.Trigger, b *sample.Bank, maxVoices int) {
	for _, t := range triggers {
		if len(*voices) >= maxVoices {
			return
		}
		if b == nil || int(t.SampleID) >= len(b.Samples) {
			continue
		}
		data := b.Samples[t.SampleID]
		gain := t.Velocity
		if int(t.SampleID) < len(b.Gains) {
			gain *= b.Gains[t.SampleID]
		}
		*voices = append(*voices, Voice{
			SampleID: t.SampleID,
			Position: 0,
			Gain:     gain,
			Data:     data,
		})
	}
}

// mixVoices adds each live voice's next frames, up to one full buffer or
// the end of its sample, into out and advances its position, applying the spec's channel mapping: mono sources are
// duplicated to every output channel; multi-channel sources map output
// channel c to source channel min(c, sourceChannels-1).
func mixVoices(out []float32, outputChannels int, voices *[]Voice, masterVolume float32) {
	vs := *voices
	frames := len(out) / outputChannels

	for vi := range vs {
		v := &vs[vi]
		srcChannels := v.Data.Channels
		if srcChannels == 0 {
			continue
		}

		for f := 0; f < frames; f++ {
			if v.Position >= v.Data.NumFrames() {
				break
			}
			gain := v.Gain * masterVolume
			base := v.Position * srcChannels

			for c := 0; c < outputChannels; c++ {
				srcCh := c
				if srcChannels == 1 {
					srcCh = 0
				} else if srcCh >= srcChannels {
					srcCh = srcChannels - 1
				}
				out[f*outputChannels+c] += v.Data.Frames[base+srcCh] * gain
			}
			v.Position++
		}
	}
}

// removeFinished drops every voice that has played past the end of its
// sample, preserving the relative order of the rest.
func removeFinished(voices *[]Voice) {
	kept := (*voices)[:0]
	for _, v := range *voices {
		if !v.finished() {
			kept = append(kept, v)
		}
	}
	*voices = kept
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
