package notify

import (
	"sync"
	"time"
)

// Capture is a Notifier that records every published event. Used by tests to
// assert on lifecycle transitions without a live bus.
type Capture struct {
	mu     sync.Mutex
	events []Event
}

func NewCapture() *Capture { return &Capture{} }

func (c *Capture) Publish(topic, eventType string, payload map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, Event{Topic: topic, Type: eventType, Payload: payload, At: time.Now()})
}

// Events returns a copy of everything published so far.
func (c *Capture) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

var _ Notifier = (*Capture)(nil)
