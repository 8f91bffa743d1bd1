// internal/input/uinput.go
package input

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const uinputPath = "/dev/uinput"

// uinput_setup mirrors struct uinput_setup from linux/uinput.h:
// struct input_id (4x uint16) + a fixed 80-byte name buffer + a uint32.
const uinputMaxNameSize = 80
const uinputSetupSize = 2*4 + uinputMaxNameSize + 4

type uinputSetup struct {
	BusType uint16
	Vendor  uint16
	Product uint16
	Version uint16
	Name    [uinputMaxNameSize]byte
	FFMax   uint32
}

// VirtualKeyboard is a synthetic /dev/uinput device that mirrors a
// physical keyboard's capabilities and re-emits non-suppressed events.
type VirtualKeyboard struct {
	fd int
}

// CreateVirtualKeyboard opens /dev/uinput and configures a new device
// that supports every event code caps reports, then creates it.
func CreateVirtualKeyboard(name string, caps Capabilities) (*VirtualKeyboard, error) {
	fd, err := unix.Open(uinputPath, unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uinputPath, err)
	}
	vk := &VirtualKeyboard{fd: fd}

	if err := vk.mirrorBits(unix.EV_KEY, uiSetKeyBit, caps.Keys, keyMax); err != nil {
		vk.abort()
		return nil, err
	}
	if err := vk.mirrorBits(unix.EV_REL, uiSetRelBit, caps.Rel, relMax); err != nil {
		vk.abort()
		return nil, err
	}
	if err := vk.mirrorBits(unix.EV_ABS, uiSetAbsBit, caps.Abs, absMax); err != nil {
		vk.abort()
		return nil, err
	}
	if err := vk.mirrorBits(unix.EV_SW, uiSetSwBit, caps.Switches, swMax); err != nil {
		vk.abort()
		return nil, err
	}
	if err := ioctlInt(vk.fd, uiSetEvBit, unix.EV_SYN); err != nil {
		vk.abort()
		return nil, fmt.Errorf("set EV_SYN bit: %w", err)
	}

	setup := uinputSetup{
		BusType: 0x03, // BUS_USB
		Vendor:  0x1d6b,
		Product: 0x0001,
		Version: 1,
	}
	copy(setup.Name[:], name)

	if err := ioctlPtr(vk.fd, uiDevSetup, unsafe.Pointer(&setup)); err != nil {
		vk.abort()
		return nil, fmt.Errorf("uinput device setup: %w", err)
	}
	if err := ioctlInt(vk.fd, uiDevCreate, 0); err != nil {
		vk.abort()
		return nil, fmt.Errorf("uinput device create: %w", err)
	}

	return vk, nil
}

// mirrorBits enables, on the uinput device, every bit caps has set for
// event type ev, via the given UI_SET_*BIT request.
func (vk *VirtualKeyboard) mirrorBits(ev int, setBitReq uintptr, caps bitset, max int) error {
	if len(caps) == 0 {
		return nil
	}
	enabled := false
	for code := 0; code <= max; code++ {
		if !caps.test(code) {
			continue
		}
		if !enabled {
			if err := ioctlInt(vk.fd, uiSetEvBit, ev); err != nil {
				return fmt.Errorf("set event bit %d: %w", ev, err)
			}
			enabled = true
		}
		if err := ioctlInt(vk.fd, setBitReq, code); err != nil {
			return fmt.Errorf("set bit %d for event %d: %w", code, ev, err)
		}
	}
	return nil
}

// Emit writes a batch of events, re-terminating it with a sync event if
// the caller did not already include one.
func (vk *VirtualKeyboard) Emit(events []Event) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if _, err := unix.Write(vk.fd, encodeEvent(e)); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}
	if !events[len(events)-1].IsSync() {
		if _, err := unix.Write(vk.fd, encodeEvent(syncEvent())); err != nil {
			return fmt.Errorf("write trailing sync: %w", err)
		}
	}
	return nil
}

// abort tears down a partially-configured device on an init error path.
func (vk *VirtualKeyboard) abort() {
	_ = unix.Close(vk.fd)
}

// Close destroys the virtual device, even if it was never fully created.
func (vk *VirtualKeyboard) Close() error {
	if err := ioctlInt(vk.fd, uiDevDestroy, 0); err != nil {
		_ = unix.Close(vk.fd)
		return fmt.Errorf("uinput device destroy: %w", err)
	}
	return unix.Close(vk.fd)
}
