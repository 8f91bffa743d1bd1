// internal/input/event.go
package input

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// rawEventSize is sizeof(struct input_event) on 64-bit Linux: two 8-byte
// timeval fields (tv_sec, tv_usec) followed by type/code/value.
const rawEventSize = 24

// EventType classifies a raw input_event for dispatch purposes.
type EventType int

const (
	// EventSync marks the end of an atomic group of events (EV_SYN).
	EventSync EventType = iota
	// EventKey is a key-down/up/repeat event (EV_KEY).
	EventKey
	// EventCompanion is a scancode companion event that normally precedes
	// a KEY event in the same batch (EV_MSC).
	EventCompanion
	// EventOther is any other event type (EV_REL, EV_ABS, EV_SW, ...).
	EventOther
)

// Event is a decoded input_event, stripped of its kernel timestamp.
type Event struct {
	Type  EventType
	Code  uint16
	Value int32

	rawType uint16 // original EV_* constant, needed to re-encode faithfully
}

func classify(rawType uint16) EventType {
	switch rawType {
	case unix.EV_SYN:
		return EventSync
	case unix.EV_KEY:
		return EventKey
	case unix.EV_MSC:
		return EventCompanion
	default:
		return EventOther
	}
}

// decodeEvent parses one rawEventSize-byte input_event record.
func decodeEvent(buf []byte) Event {
	rawType := binary.LittleEndian.Uint16(buf[16:18])
	code := binary.LittleEndian.Uint16(buf[18:20])
	value := int32(binary.LittleEndian.Uint32(buf[20:24]))
	return Event{
		Type:    classify(rawType),
		Code:    code,
		Value:   value,
		rawType: rawType,
	}
}

// encodeEvent serializes e back into a rawEventSize-byte input_event
// record. The timestamp fields are zeroed; uinput does not require the
// emitting process to stamp a time.
func encodeEvent(e Event) []byte {
	buf := make([]byte, rawEventSize)
	binary.LittleEndian.PutUint16(buf[16:18], e.rawType)
	binary.LittleEndian.PutUint16(buf[18:20], e.Code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(e.Value))
	return buf
}

// IsKeyDown reports whether this is a KEY event with value 1 (down).
func (e Event) IsKeyDown() bool { return e.Type == EventKey && e.Value == 1 }

// IsKeyUpOrRepeat reports whether this is a KEY event with value 0 (up)
// or 2 (repeat).
func (e Event) IsKeyUpOrRepeat() bool {
	return e.Type == EventKey && (e.Value == 0 || e.Value == 2)
}

// IsSync reports whether this event is a synchronization marker.
func (e Event) IsSync() bool { return e.Type == EventSync }

func syncEvent() Event {
	return Event{Type: EventSync, rawType: unix.EV_SYN, Code: 0, Value: 0}
}
