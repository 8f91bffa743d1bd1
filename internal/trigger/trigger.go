// internal/trigger/trigger.go
package trigger

import (
	"log"

	"code.hybscloud.com/lfq"
)

// Capacity is the number of in-flight triggers the channel can hold
// between the input thread and the audio callback.
const Capacity = 128

// Trigger is a request to start playing one sample at a given velocity.
type Trigger struct {
	SampleID uint8
	Velocity float32
}

// Channel is a lock-free, allocation-free handoff from the input thread
// (producer) to the audio callback (consumer). It must have exactly one
// producer and one consumer.
type Channel struct {
	q *lfq.SPSC[Trigger]
}

// NewChannel creates a trigger channel with room for Capacity triggers.
func NewChannel() *Channel {
	return &Channel{q: lfq.NewSPSC[Trigger](Capacity)}
}

// Send enqueues a trigger. It never blocks. It returns false and logs a
// warning if the queue is full, in which case the trigger is dropped.
//
// Producer side only: call from the input thread.
func (c *Channel) Send(t Trigger) bool {
	if err := c.q.Enqueue(&t); err != nil {
		log.Printf("trigger: dropped sample %d, queue full", t.SampleID)
		return false
	}
	return true
}

// Drain appends every currently queued trigger to out, in FIFO order. It
// does not allocate as long as out has spare capacity for Capacity
// triggers; otherwise append grows it. It never blocks.
//
// Consumer side only: call from the audio callback.
func (c *Channel) Drain(out *[]Trigger) {
	for {
		t, err := c.q.Dequeue()
		if err != nil {
			return
		}
		*out = append(*out, t)
	}
}

// Cap returns the channel's fixed capacity.
func (c *Channel) Cap() int {
	return c.q.Cap()
}
