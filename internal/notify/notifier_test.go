package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchTopic(t *testing.T) {
	assert.True(t, MatchTopic("pipeline:abc", "pipeline:abc"))
	assert.True(t, MatchTopic("*", "anything"))
	assert.True(t, MatchTopic("pipeline:*", "pipeline:abc"))
	assert.True(t, MatchTopic("pipeline:*", "pipeline:"))

	assert.False(t, MatchTopic("pipeline:abc", "pipeline:def"))
	assert.False(t, MatchTopic("pipeline:*", "task:abc"))
	assert.False(t, MatchTopic("pipeline:abc", "pipeline:abc:extra"))
}

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()

	ch, cancel := bus.Subscribe("pipeline:*", 4)
	defer cancel()

	bus.Publish("pipeline:123", "step_completed", map[string]interface{}{"step": "text_extraction"})
	bus.Publish("task:123", "ignored", nil)

	select {
	case evt := <-ch:
		assert.Equal(t, "pipeline:123", evt.Topic)
		assert.Equal(t, "step_completed", evt.Type)
		assert.Equal(t, "text_extraction", evt.Payload["step"])
	case <-time.After(time.Second):
		t.Fatal("expected event on subscriber channel")
	}

	// The task topic does not match; nothing else should be buffered.
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event: %+v", evt)
	default:
	}
}

func TestBusDropsWhenBufferFull(t *testing.T) {
	bus := NewBus()

	ch, cancel := bus.Subscribe("pipeline:1", 1)
	defer cancel()

	// Second publish must not block even though nobody is draining.
	done := make(chan struct{})
	go func() {
		bus.Publish("pipeline:1", "first", nil)
		bus.Publish("pipeline:1", "second", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}

	evt := <-ch
	assert.Equal(t, "first", evt.Type)
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus := NewBus()

	ch, cancel := bus.Subscribe("pipeline:1", 1)
	cancel()

	_, open := <-ch
	require.False(t, open)

	// Publishing after cancel must not panic on the closed channel.
	bus.Publish("pipeline:1", "late", nil)

	// Cancel is idempotent.
	cancel()
}

func TestCaptureRecordsEvents(t *testing.T) {
	c := NewCapture()
	c.Publish("pipeline:1", "pipeline_completed", map[string]interface{}{"ok": true})
	c.Publish("pipeline:2", "pipeline_failed", nil)

	events := c.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "pipeline_completed", events[0].Type)
	assert.Equal(t, "pipeline:2", events[1].Topic)
}
