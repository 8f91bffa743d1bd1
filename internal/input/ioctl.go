// internal/input/ioctl.go
package input

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux encodes ioctl request numbers from a direction, a subsystem type
// byte, a command number, and an argument size, per
// include/uapi/asm-generic/ioctl.h. Neither evdev's EVIOC* nor uinput's
// UI_* request numbers are exposed by golang.org/x/sys/unix, so they are
// derived here the same way the kernel headers derive them.
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift)
}

func io(typ, nr uintptr) uintptr        { return ioc(iocNone, typ, nr, 0) }
func ior(typ, nr, size uintptr) uintptr { return ioc(iocRead, typ, nr, size) }
func iow(typ, nr, size uintptr) uintptr { return ioc(iocWrite, typ, nr, size) }

const (
	evdevType  = 0x45 // 'E'
	uinputType = 0x55 // 'U'
)

var (
	eviocgrab = iow(evdevType, 0x90, 4) // EVIOCGRAB(int)

	uiDevCreate  = io(uinputType, 1)
	uiDevDestroy = io(uinputType, 2)
	uiDevSetup   = iow(uinputType, 3, uinputSetupSize)
	uiSetEvBit   = iow(uinputType, 100, 4)
	uiSetKeyBit  = iow(uinputType, 101, 4)
	uiSetRelBit  = iow(uinputType, 102, 4)
	uiSetAbsBit  = iow(uinputType, 103, 4)
	uiSetSwBit   = iow(uinputType, 109, 4)
)

// eviocgbit returns the EVIOCGBIT(ev, len) request for reading the
// capability bitmap of event type ev into a len-byte buffer.
func eviocgbit(ev int, length int) uintptr {
	return ior(evdevType, uintptr(0x20+ev), uintptr(length))
}

func ioctlInt(fd int, req uintptr, arg int) error {
	return unix.IoctlSetInt(fd, uint(req), arg)
}

func ioctlPtr(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
