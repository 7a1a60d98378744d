// Package bridge provides the pub/sub channel that decouples UI widgets
// from the playback engine. Widgets publish commands and observe playback
// events without holding a reference to each other.
package bridge

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

// Topic names carried by the bus.
const (
	TopicCommand   = "playback.command"    // Command values (see command.go)
	TopicState     = "playback.state"      // StateChanged
	TopicItemEnded = "playback.item_ended" // ItemEnded
	TopicError     = "playback.error"      // PlaybackError
)

// Handler receives every payload published to a topic.
type Handler func(payload any)

// subscription ties a handler to its ID for ordered delivery and removal.
type subscription struct {
	id      string
	handler Handler
}

// Bus is a process-wide publish/subscribe channel. Delivery to multiple
// subscribers of a topic follows registration order; the bus enforces no
// priority beyond that.
type Bus struct {
	mu     sync.RWMutex
	topics map[string][]subscription
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		topics: make(map[string][]subscription),
	}
}

// Subscribe registers a handler for a topic and returns its unsubscribe
// function. Unsubscribing twice is safe, so widget teardown paths can call
// it unconditionally.
func (b *Bus) Subscribe(topic string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	b.topics[topic] = append(b.topics[topic], subscription{id: id, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.remove(topic, id)
		})
	}
}

func (b *Bus) remove(topic, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[topic]
	for i, sub := range subs {
		if sub.id == id {
			b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every subscriber of topic, synchronously and
// in registration order. Handlers must not block.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.topics[topic]))
	copy(subs, b.topics[topic])
	b.mu.RUnlock()

	if len(subs) == 0 {
		zlog.Debug().Msgf("bridge: no subscribers for topic %s", topic)
		return
	}

	for _, sub := range subs {
		sub.handler(payload)
	}
}

// SubscriberCount returns the number of handlers registered for a topic.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
