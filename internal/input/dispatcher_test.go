// internal/input/dispatcher_test.go
package input

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/ColonelBlimp/drumkeys/internal/sample"
	"github.com/ColonelBlimp/drumkeys/internal/trigger"
)

type fakeEmitter struct {
	batches [][]Event
}

func (f *fakeEmitter) Emit(events []Event) error {
	cp := append([]Event(nil), events...)
	f.batches = append(f.batches, cp)
	return nil
}

func keyEvent(code uint16, value int32) Event {
	return Event{Type: EventKey, Code: code, Value: value, rawType: unix.EV_KEY}
}

func companionEvent(code uint16, value int32) Event {
	return Event{Type: EventCompanion, Code: code, Value: value, rawType: unix.EV_MSC}
}

func newTestDispatcher(t *testing.T, keyMap KeyMap, cycling CyclingKeys) (*Dispatcher, *trigger.Channel, *fakeEmitter) {
	t.Helper()
	ch := trigger.NewChannel()
	fe := &fakeEmitter{}
	d := newDispatcherWithEmitter(nil, fe, keyMap, cycling, nil, ch)
	return d, ch, fe
}

func drainAll(ch *trigger.Channel) []trigger.Trigger {
	var out []trigger.Trigger
	ch.Drain(&out)
	return out
}

func TestDispatcher_KeyDownMatchProducesTrigger(t *testing.T) {
	keyMap := KeyMap{30: {SampleIndex: 0, Gain: 0.8}}
	d, ch, _ := newTestDispatcher(t, keyMap, CyclingKeys{})

	d.handle(keyEvent(30, 1))

	got := drainAll(ch)
	if len(got) != 1 {
		t.Fatalf("len(triggers) = %d, want 1", len(got))
	}
	if got[0].SampleID != 0 || got[0].Velocity != 0.8 {
		t.Errorf("trigger = %+v, want {SampleID:0 Velocity:0.8}", got[0])
	}
}

func TestDispatcher_KeyUpIgnored(t *testing.T) {
	keyMap := KeyMap{30: {SampleIndex: 0, Gain: 1.0}}
	d, ch, _ := newTestDispatcher(t, keyMap, CyclingKeys{})

	d.handle(keyEvent(30, 0))

	if got := drainAll(ch); len(got) != 0 {
		t.Fatalf("len(triggers) = %d, want 0", len(got))
	}
}

func TestDispatcher_KeyRepeatIgnored(t *testing.T) {
	keyMap := KeyMap{30: {SampleIndex: 0, Gain: 1.0}}
	d, ch, _ := newTestDispatcher(t, keyMap, CyclingKeys{})

	d.handle(keyEvent(30, 2))

	if got := drainAll(ch); len(got) != 0 {
		t.Fatalf("len(triggers) = %d, want 0", len(got))
	}
}

func TestDispatcher_UnboundKeyProducesNoTrigger(t *testing.T) {
	keyMap := KeyMap{30: {SampleIndex: 0, Gain: 1.0}}
	d, ch, _ := newTestDispatcher(t, keyMap, CyclingKeys{})

	d.handle(keyEvent(48, 1)) // KEY_B, unbound

	if got := drainAll(ch); len(got) != 0 {
		t.Fatalf("len(triggers) = %d, want 0", len(got))
	}
}

func TestDispatcher_CyclingKeyDownProducesNoTriggerButMovesCycle(t *testing.T) {
	lib := fixtureLibrary()
	cell := sample.NewCell(nil)
	cs, err := NewCycleState(cell, lib)
	if err != nil {
		t.Fatalf("NewCycleState failed: %v", err)
	}

	nextKit := uint16(106)
	cycling := CyclingKeys{NextKit: &nextKit}
	ch := trigger.NewChannel()
	fe := &fakeEmitter{}
	d := newDispatcherWithEmitter(nil, fe, KeyMap{}, cycling, cs, ch)

	d.handle(keyEvent(106, 1))

	if got := drainAll(ch); len(got) != 0 {
		t.Fatalf("len(triggers) = %d, want 0 for a cycling key", len(got))
	}
	if cs.Kit() != 1 {
		t.Errorf("Kit() = %d, want 1 after next-kit key-down", cs.Kit())
	}
}

func TestDispatcher_CyclingTakesPriorityOverCollidingBinding(t *testing.T) {
	lib := fixtureLibrary()
	cell := sample.NewCell(nil)
	cs, err := NewCycleState(cell, lib)
	if err != nil {
		t.Fatalf("NewCycleState failed: %v", err)
	}

	// The config validator rejects this collision up front; the dispatcher
	// stays defensive about it at runtime regardless.
	nextKit := uint16(106)
	keyMap := KeyMap{106: {SampleIndex: 0, Gain: 1.0}}
	cycling := CyclingKeys{NextKit: &nextKit}
	ch := trigger.NewChannel()
	fe := &fakeEmitter{}
	d := newDispatcherWithEmitter(nil, fe, keyMap, cycling, cs, ch)

	d.handle(keyEvent(106, 1))

	if got := drainAll(ch); len(got) != 0 {
		t.Fatalf("len(triggers) = %d, want 0, cycling should win over a colliding binding", len(got))
	}
	if cs.Kit() != 1 {
		t.Errorf("Kit() = %d, want 1, cycling action should still fire on a colliding code", cs.Kit())
	}
}

func TestDispatcher_BatchWithSuppressedKeyIsEntirelyDropped(t *testing.T) {
	keyMap := KeyMap{30: {SampleIndex: 0, Gain: 1.0}}
	d, _, fe := newTestDispatcher(t, keyMap, CyclingKeys{})

	d.handle(companionEvent(4, 30))
	d.handle(keyEvent(30, 1))
	d.handle(Event{Type: EventSync, rawType: unix.EV_SYN})

	if len(fe.batches) != 0 {
		t.Fatalf("batches forwarded = %d, want 0 (sole KEY event was suppressed)", len(fe.batches))
	}
}

func TestDispatcher_BatchWithUnboundKeyIsForwarded(t *testing.T) {
	keyMap := KeyMap{30: {SampleIndex: 0, Gain: 1.0}}
	d, _, fe := newTestDispatcher(t, keyMap, CyclingKeys{})

	d.handle(companionEvent(4, 48))
	d.handle(keyEvent(48, 1)) // KEY_B, unbound
	d.handle(Event{Type: EventSync, rawType: unix.EV_SYN})

	if len(fe.batches) != 1 {
		t.Fatalf("batches forwarded = %d, want 1", len(fe.batches))
	}
	batch := fe.batches[0]
	if len(batch) != 3 {
		t.Fatalf("forwarded batch length = %d, want 3 (companion, key, sync)", len(batch))
	}
	if !batch[len(batch)-1].IsSync() {
		t.Error("forwarded batch does not end with a sync event")
	}
}

func TestDispatcher_MixedBatchDropsOnlySuppressedKeys(t *testing.T) {
	keyMap := KeyMap{30: {SampleIndex: 0, Gain: 1.0}}
	d, _, fe := newTestDispatcher(t, keyMap, CyclingKeys{})

	d.handle(companionEvent(4, 30))
	d.handle(keyEvent(30, 1)) // suppressed
	d.handle(companionEvent(4, 48))
	d.handle(keyEvent(48, 1)) // not suppressed
	d.handle(Event{Type: EventSync, rawType: unix.EV_SYN})

	if len(fe.batches) != 1 {
		t.Fatalf("batches forwarded = %d, want 1", len(fe.batches))
	}
	batch := fe.batches[0]
	for _, e := range batch {
		if e.Type == EventKey && e.Code == 30 {
			t.Error("suppressed KEY event 30 was forwarded")
		}
	}
}

func TestDispatcher_PureNonKeyBatchIsForwardedUnchanged(t *testing.T) {
	d, _, fe := newTestDispatcher(t, KeyMap{}, CyclingKeys{})

	d.handle(Event{Type: EventOther, Code: 0, Value: 5, rawType: unix.EV_REL})
	d.handle(Event{Type: EventSync, rawType: unix.EV_SYN})

	if len(fe.batches) != 1 {
		t.Fatalf("batches forwarded = %d, want 1 for a batch with no KEY events", len(fe.batches))
	}
}
