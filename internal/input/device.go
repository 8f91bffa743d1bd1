// internal/input/device.go
package input

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

func bitsetPointer(b bitset) unsafe.Pointer {
	return unsafe.Pointer(&b[0])
}

// Highest event codes (EV_MAX, KEY_MAX, ...) for the event sub-types this
// dispatcher mirrors onto the virtual keyboard, per
// include/uapi/linux/input-event-codes.h.
const (
	evMax  = 0x1f
	keyMax = 0x2ff
	relMax = 0x0f
	absMax = 0x3f
	swMax  = 0x10
)

// Capabilities is a bitmap snapshot of which event codes a device
// supports, queried via EVIOCGBIT so the virtual keyboard created from it
// can mirror every event type faithfully.
type Capabilities struct {
	EventTypes bitset
	Keys       bitset
	Rel        bitset
	Abs        bitset
	Switches   bitset
}

// bitset is a packed bit array matching the kernel's EVIOCGBIT layout:
// bit n of code n lives at byte n/8, bit n%8.
type bitset []byte

func newBitset(maxBit int) bitset {
	return make(bitset, maxBit/8+1)
}

func (b bitset) test(n int) bool {
	if n/8 >= len(b) {
		return false
	}
	return b[n/8]&(1<<uint(n%8)) != 0
}

// Device is an open evdev keyboard source.
type Device struct {
	fd      int
	path    string
	grabbed bool
}

// Open opens the evdev device at path for reading.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open input device %s: %w", path, err)
	}
	return &Device{fd: fd, path: path}, nil
}

// Fd returns the underlying file descriptor, for use with unix.Poll.
func (d *Device) Fd() int { return d.fd }

// Grab takes exclusive ownership of the device: no other process,
// including the rest of the kernel input subsystem's other readers,
// receives events from it until Release is called.
func (d *Device) Grab() error {
	if err := ioctlInt(d.fd, eviocgrab, 1); err != nil {
		return fmt.Errorf("grab %s: %w", d.path, err)
	}
	d.grabbed = true
	return nil
}

// Release gives up exclusive ownership. Safe to call even if Grab was
// never called or already failed.
func (d *Device) Release() error {
	if !d.grabbed {
		return nil
	}
	d.grabbed = false
	if err := ioctlInt(d.fd, eviocgrab, 0); err != nil {
		return fmt.Errorf("release %s: %w", d.path, err)
	}
	return nil
}

// Capabilities queries which event codes this device supports.
func (d *Device) Capabilities() (Capabilities, error) {
	var caps Capabilities

	caps.EventTypes = newBitset(evMax)
	if err := d.readBits(0, caps.EventTypes); err != nil {
		return caps, fmt.Errorf("query event types: %w", err)
	}

	caps.Keys = newBitset(keyMax)
	if caps.EventTypes.test(unix.EV_KEY) {
		if err := d.readBits(unix.EV_KEY, caps.Keys); err != nil {
			return caps, fmt.Errorf("query key bits: %w", err)
		}
	}

	caps.Rel = newBitset(relMax)
	if caps.EventTypes.test(unix.EV_REL) {
		if err := d.readBits(unix.EV_REL, caps.Rel); err != nil {
			return caps, fmt.Errorf("query rel bits: %w", err)
		}
	}

	caps.Abs = newBitset(absMax)
	if caps.EventTypes.test(unix.EV_ABS) {
		if err := d.readBits(unix.EV_ABS, caps.Abs); err != nil {
			return caps, fmt.Errorf("query abs bits: %w", err)
		}
	}

	caps.Switches = newBitset(swMax)
	if caps.EventTypes.test(unix.EV_SW) {
		if err := d.readBits(unix.EV_SW, caps.Switches); err != nil {
			return caps, fmt.Errorf("query switch bits: %w", err)
		}
	}

	return caps, nil
}

func (d *Device) readBits(ev int, out bitset) error {
	return ioctlPtr(d.fd, eviocgbit(ev, len(out)), bitsetPointer(out))
}

var errShortRead = errors.New("input: short read from device")

// ReadEvent blocks until one input_event is available and decodes it.
func (d *Device) ReadEvent() (Event, error) {
	buf := make([]byte, rawEventSize)
	n, err := unix.Read(d.fd, buf)
	if err != nil {
		return Event{}, err
	}
	if n != rawEventSize {
		return Event{}, errShortRead
	}
	return decodeEvent(buf), nil
}

// Close releases the device, including any exclusive grab.
func (d *Device) Close() error {
	_ = d.Release()
	return unix.Close(d.fd)
}
