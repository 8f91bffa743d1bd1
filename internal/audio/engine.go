// internal/audio/engine.go
package audio

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"

	"github.com/ColonelBlimp/drumkeys/internal/sample"
	"github.com/ColonelBlimp/drumkeys/internal/trigger"
)

var (
	ErrNotInitialized = errors.New("audio engine not initialized")
	ErrAlreadyRunning = errors.New("audio engine already running")
	ErrNotRunning     = errors.New("audio engine not running")
)

// Config holds audio playback configuration.
type Config struct {
	DeviceIndex  int // -1 for default device
	Channels     uint32
	BufferFrames uint32
	MaxVoices    int
	MasterVolume float32
}

// DefaultConfig returns sensible playback defaults.
func DefaultConfig() Config {
	return Config{
		DeviceIndex:  -1,
		Channels:     2,
		BufferFrames: 256,
		MaxVoices:    32,
		MasterVolume: 1.0,
	}
}

// Engine drives a real-time playback device and mixes triggered voices
// into its output buffer.
type Engine struct {
	config  Config
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running atomic.Bool
	closed  atomic.Bool
	mu      sync.Mutex

	triggers     *trigger.Channel
	bank         *sample.Cell
	masterVolume atomic.Uint32 // float32 bits, swapped lock-free

	voices   []Voice
	drainBuf []trigger.Trigger
}

// New creates a playback engine around the given trigger channel and
// sample bank.
func New(cfg Config, triggers *trigger.Channel, bank *sample.Cell) *Engine {
	e := &Engine{
		config:   cfg,
		triggers: triggers,
		bank:     bank,
		voices:   make([]Voice, 0, cfg.MaxVoices),
		drainBuf: make([]trigger.Trigger, 0, trigger.Capacity),
	}
	e.SetMasterVolume(cfg.MasterVolume)
	return e
}

// SetMasterVolume updates the gain applied to all voices. Safe to call
// concurrently with the audio callback.
func (e *Engine) SetMasterVolume(v float32) {
	e.masterVolume.Store(float32bits(v))
}

// Init initializes the audio backend.
func (e *Engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx != nil {
		return errors.New("audio: already initialized")
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}
	e.ctx = ctx
	return nil
}

// ListDevices returns available playback devices.
func (e *Engine) ListDevices() ([]malgo.DeviceInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx == nil {
		return nil, ErrNotInitialized
	}
	infos, err := e.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	return infos, nil
}

// Start opens the playback device and begins mixing.
func (e *Engine) Start() error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	e.mu.Lock()
	if e.ctx == nil {
		e.mu.Unlock()
		e.running.Store(false)
		return ErrNotInitialized
	}
	audioCtx := e.ctx.Context

	var deviceID unsafe.Pointer
	if e.config.DeviceIndex >= 0 {
		devices, err := e.ctx.Devices(malgo.Playback)
		if err != nil {
			e.mu.Unlock()
			e.running.Store(false)
			return fmt.Errorf("enumerate devices: %w", err)
		}
		if e.config.DeviceIndex >= len(devices) {
			e.mu.Unlock()
			e.running.Store(false)
			return fmt.Errorf("device index %d out of range (have %d devices)",
				e.config.DeviceIndex, len(devices))
		}
		deviceID = devices[e.config.DeviceIndex].ID.Pointer()
	}
	e.mu.Unlock()

	bufferFrames := e.config.BufferFrames
	if bufferFrames < MinBufferFrames {
		bufferFrames = MinBufferFrames
	}

	deviceConfig := malgo.DeviceConfig{
		DeviceType:         malgo.Playback,
		SampleRate:         uint32(sample.SampleRate),
		PeriodSizeInFrames: bufferFrames,
		Playback: malgo.SubConfig{
			Format:   malgo.FormatF32,
			Channels: e.config.Channels,
		},
	}
	if deviceID != nil {
		deviceConfig.Playback.DeviceID = deviceID
	}

	channels := int(e.config.Channels)
	onSendFrames := func(outputSamples, inputSamples []byte, frameCount uint32) {
		out := bytesAsFloat32(outputSamples)
		mv := float32frombits(e.masterVolume.Load())
		Callback(out, channels, e.triggers, &e.drainBuf, &e.voices, e.bank, mv, e.config.MaxVoices)
	}

	device, err := malgo.InitDevice(audioCtx, deviceConfig, malgo.DeviceCallbacks{Data: onSendFrames})
	if err != nil {
		e.running.Store(false)
		return fmt.Errorf("init device: %w", err)
	}

	e.mu.Lock()
	e.device = device
	e.mu.Unlock()

	if err := device.Start(); err != nil {
		e.mu.Lock()
		e.device.Uninit()
		e.device = nil
		e.mu.Unlock()
		e.running.Store(false)
		return fmt.Errorf("start device: %w", err)
	}

	return nil
}

// Stop stops playback but keeps the backend context initialized.
func (e *Engine) Stop() error {
	if !e.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.device != nil {
		if err := e.device.Stop(); err != nil {
			log.Printf("audio: device stop: %v", err)
		}
		e.device.Uninit()
		e.device = nil
	}
	return nil
}

// Close releases all audio resources.
func (e *Engine) Close() error {
	e.closed.Store(true)

	if e.running.Load() {
		if err := e.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
			log.Printf("audio: stop on close: %v", err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx != nil {
		if err := e.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninit context: %w", err)
		}
		e.ctx.Free()
		e.ctx = nil
	}
	return nil
}

// IsRunning returns true if playback is active.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}
