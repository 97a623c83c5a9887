package notify

import (
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Event is one lifecycle notification.
type Event struct {
	Topic   string
	Type    string
	Payload map[string]interface{}
	At      time.Time
}

// Notifier publishes lifecycle transitions to interested listeners. Delivery
// is at-most-once and best-effort: publish failures are logged, never
// propagated to the caller.
type Notifier interface {
	Publish(topic, eventType string, payload map[string]interface{})
}

// Bus is the in-process Notifier. Listeners subscribe by topic pattern;
// a pattern may end in "*" to match any suffix ("task:*" matches
// "task:1234"). Slow subscribers drop events rather than blocking publishers.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscription
}

type subscription struct {
	pattern string
	ch      chan Event
}

// NewBus creates an empty notification bus. One bus is wired per process and
// injected wherever lifecycle events are published, so tests can swap in a
// capturing stub.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscription)}
}

// Subscribe registers a listener for topics matching pattern. The returned
// cancel function removes the subscription and closes the channel.
func (b *Bus) Subscribe(pattern string, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	sub := &subscription{pattern: pattern, ch: make(chan Event, buffer)}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

// Publish delivers the event to every matching subscriber. Non-blocking:
// a full subscriber buffer drops the event for that subscriber.
func (b *Bus) Publish(topic, eventType string, payload map[string]interface{}) {
	evt := Event{Topic: topic, Type: eventType, Payload: payload, At: time.Now()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !MatchTopic(sub.pattern, topic) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			log.Warnf("notify: dropping event %s on topic %s (subscriber buffer full)", eventType, topic)
		}
	}
}

// MatchTopic reports whether topic matches pattern. Patterns are exact
// strings, optionally with a trailing "*" wildcard.
func MatchTopic(pattern, topic string) bool {
	if pattern == topic || pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(topic, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

var _ Notifier = (*Bus)(nil)
