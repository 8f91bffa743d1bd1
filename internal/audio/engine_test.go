// internal/audio/engine_test.go
package audio

import (
	"errors"
	"testing"

	"github.com/ColonelBlimp/drumkeys/internal/sample"
	"github.com/ColonelBlimp/drumkeys/internal/trigger"
)

func newTestEngine() *Engine {
	cfg := DefaultConfig()
	cell := sample.NewCell(&sample.Bank{})
	return New(cfg, trigger.NewChannel(), cell)
}

func TestEngine_StartBeforeInitFails(t *testing.T) {
	e := newTestEngine()

	if err := e.Start(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Start() before Init = %v, want ErrNotInitialized", err)
	}
	if e.IsRunning() {
		t.Error("IsRunning() = true after a failed Start")
	}
}

func TestEngine_StopWithoutStartFails(t *testing.T) {
	e := newTestEngine()

	if err := e.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Stop() without Start = %v, want ErrNotRunning", err)
	}
}

func TestEngine_ListDevicesBeforeInitFails(t *testing.T) {
	e := newTestEngine()

	if _, err := e.ListDevices(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("ListDevices() before Init = %v, want ErrNotInitialized", err)
	}
}

func TestEngine_MasterVolumeRoundTrip(t *testing.T) {
	e := newTestEngine()

	e.SetMasterVolume(0.25)
	got := float32frombits(e.masterVolume.Load())
	if got != 0.25 {
		t.Errorf("masterVolume = %v, want 0.25", got)
	}

	e.SetMasterVolume(1.0)
	got = float32frombits(e.masterVolume.Load())
	if got != 1.0 {
		t.Errorf("masterVolume = %v, want 1.0", got)
	}
}

func TestEngine_CloseBeforeInitIsSafe(t *testing.T) {
	e := newTestEngine()

	if err := e.Close(); err != nil {
		t.Fatalf("Close() without Init failed: %v", err)
	}
}

func TestEngine_DefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DeviceIndex != -1 {
		t.Errorf("DeviceIndex = %d, want -1", cfg.DeviceIndex)
	}
	if cfg.Channels != 2 {
		t.Errorf("Channels = %d, want 2", cfg.Channels)
	}
	if cfg.MaxVoices != 32 {
		t.Errorf("MaxVoices = %d, want 32", cfg.MaxVoices)
	}
	if cfg.MasterVolume != 1.0 {
		t.Errorf("MasterVolume = %v, want 1.0", cfg.MasterVolume)
	}
}
