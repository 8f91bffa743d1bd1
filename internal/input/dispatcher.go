// internal/input/dispatcher.go
package input

import (
	"errors"
	"log"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/ColonelBlimp/drumkeys/internal/trigger"
)

// pollTimeoutMillis bounds how long Run blocks between checks of the
// shutdown flag.
const pollTimeoutMillis = 200

// emitter forwards a filtered, sync-terminated event batch to a virtual
// keyboard. *VirtualKeyboard satisfies this; tests substitute a fake.
type emitter interface {
	Emit(events []Event) error
}

// Dispatcher reads events from a physical keyboard, turns bound key-downs
// into triggers or kit/variant cycles, and forwards everything else to a
// mirrored virtual keyboard, preserving event-batch integrity.
type Dispatcher struct {
	device  *Device
	virtual emitter
	keyMap  KeyMap
	cycling CyclingKeys
	cycle   *CycleState
	sender  *trigger.Channel

	batch []Event
}

// NewDispatcher builds a dispatcher. virtual may be nil, in which case
// non-suppressed events are simply dropped instead of forwarded (useful
// in passive-mode tests or environments without uinput).
func NewDispatcher(device *Device, virtual *VirtualKeyboard, keyMap KeyMap, cycling CyclingKeys, cycle *CycleState, sender *trigger.Channel) *Dispatcher {
	d := &Dispatcher{
		device:  device,
		keyMap:  keyMap,
		cycling: cycling,
		cycle:   cycle,
		sender:  sender,
		batch:   make([]Event, 0, 8),
	}
	if virtual != nil {
		d.virtual = virtual
	}
	return d
}

// newDispatcherWithEmitter builds a dispatcher against an arbitrary
// emitter, for tests that substitute a fake virtual keyboard.
func newDispatcherWithEmitter(device *Device, virtual emitter, keyMap KeyMap, cycling CyclingKeys, cycle *CycleState, sender *trigger.Channel) *Dispatcher {
	return &Dispatcher{
		device:  device,
		virtual: virtual,
		keyMap:  keyMap,
		cycling: cycling,
		cycle:   cycle,
		sender:  sender,
		batch:   make([]Event, 0, 8),
	}
}

// Run blocks, dispatching events until shutdown is set to true. It is
// meant to run on a dedicated goroutine.
func (d *Dispatcher) Run(shutdown *atomic.Bool) error {
	log.Printf("input: dispatcher started with %d key bindings", len(d.keyMap))

	for {
		if shutdown.Load() {
			log.Print("input: dispatcher shutting down")
			return nil
		}

		ready, err := d.waitReadable()
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		if !ready {
			continue
		}

		event, err := d.device.ReadEvent()
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if shutdown.Load() {
				return nil
			}
			return err
		}

		d.handle(event)
	}
}

func (d *Dispatcher) waitReadable() (bool, error) {
	fds := []unix.PollFd{{Fd: int32(d.device.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, pollTimeoutMillis)
	if err != nil {
		return false, err
	}
	return n > 0 && fds[0].Revents&unix.POLLIN != 0, nil
}

// handle classifies and acts on a single event, per spec: key-downs are
// always acted on immediately; every non-sync event, key events included,
// accumulates into the current batch until a sync marker triggers the
// forwarding filter.
func (d *Dispatcher) handle(e Event) {
	if e.IsKeyDown() {
		d.onKeyDown(e.Code)
	}

	if e.IsSync() {
		d.flushBatch(e)
		return
	}

	d.batch = append(d.batch, e)
}

// onKeyDown resolves a key-down to an action. Cycling takes priority over
// trigger bindings on the same code: the config validator rejects such
// collisions up front, but the runtime stays defensive about it anyway.
func (d *Dispatcher) onKeyDown(code uint16) {
	switch {
	case d.cycling.NextKit != nil && *d.cycling.NextKit == code:
		d.cycle.NextKit()
		return
	case d.cycling.PrevKit != nil && *d.cycling.PrevKit == code:
		d.cycle.PrevKit()
		return
	case d.cycling.NextVariant != nil && *d.cycling.NextVariant == code:
		d.cycle.NextVariant()
		return
	case d.cycling.PrevVariant != nil && *d.cycling.PrevVariant == code:
		d.cycle.PrevVariant()
		return
	}

	if binding, ok := d.keyMap[code]; ok {
		d.sender.Send(trigger.Trigger{
			SampleID: uint8(binding.SampleIndex),
			Velocity: binding.Gain,
		})
	}
}

// flushBatch filters the accumulated batch: KEY events bound to a sample
// or a cycling action are suppressed. If any KEY event survives, the
// filtered batch (plus sync) is forwarded; if none do, the whole batch,
// including any companion events, is dropped.
func (d *Dispatcher) flushBatch(sync Event) {
	defer func() { d.batch = d.batch[:0] }()

	if d.virtual == nil {
		return
	}

	filtered := make([]Event, 0, len(d.batch)+1)
	hadKey, keptKey := false, false
	for _, e := range d.batch {
		if e.Type == EventKey {
			hadKey = true
			if d.suppressed(e.Code) {
				continue
			}
			keptKey = true
		}
		filtered = append(filtered, e)
	}

	// A batch with KEY events all suppressed is dropped entirely,
	// including its companions. A batch with no KEY events at all (pure
	// passthrough) is forwarded unchanged.
	if hadKey && !keptKey {
		return
	}

	filtered = append(filtered, sync)
	if err := d.virtual.Emit(filtered); err != nil {
		log.Printf("input: forward batch: %v", err)
	}
}

func (d *Dispatcher) suppressed(code uint16) bool {
	if _, ok := d.keyMap[code]; ok {
		return true
	}
	return d.cycling.suppresses(code)
}
