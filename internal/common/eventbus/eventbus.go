// Package eventbus is a small in-process publish/subscribe bus. The console
// store publishes collection changes on it and form sessions subscribe so
// their option lists follow the latest snapshot.
package eventbus

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one published message.
type Event struct {
	Topic string
	Data  any
}

type subscriber struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

// send delivers ev, giving up after timeout. A zero timeout never blocks.
func (s *subscriber) send(ev Event, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if timeout <= 0 {
		select {
		case s.ch <- ev:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case s.ch <- ev:
		return true
	case <-t.C:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// EventBus routes events to subscribers by topic pattern. Patterns are
// dot-separated and "*" matches exactly one segment; a lone "*" matches every
// topic.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]*subscriber // pattern -> id -> subscriber
	counter     uint64
	dropped     uint64
}

// New returns an event bus with no subscribers.
func New() *EventBus {
	return &EventBus{subscribers: make(map[string]map[string]*subscriber)}
}

// Subscribe registers a buffered subscription for pattern and returns the
// receive channel and an unsubscribe func that closes it.
func (bus *EventBus) Subscribe(pattern string, bufferSize int) (<-chan Event, func()) {
	id := fmt.Sprintf("sub-%d", atomic.AddUint64(&bus.counter, 1))
	sub := &subscriber{ch: make(chan Event, bufferSize)}

	bus.mu.Lock()
	if _, ok := bus.subscribers[pattern]; !ok {
		bus.subscribers[pattern] = make(map[string]*subscriber)
	}
	bus.subscribers[pattern][id] = sub
	bus.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			bus.mu.Lock()
			defer bus.mu.Unlock()
			if subs, ok := bus.subscribers[pattern]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(bus.subscribers, pattern)
				}
			}
			sub.close()
		})
	}
}

// Publish delivers data to every matching subscriber. Slow subscribers lose the
// event after timeout; Dropped counts those losses.
func (bus *EventBus) Publish(topic string, data any, timeout time.Duration) {
	ev := Event{Topic: topic, Data: data}
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	for pattern, subs := range bus.subscribers {
		if !matchTopic(pattern, topic) {
			continue
		}
		for _, sub := range subs {
			if !sub.send(ev, timeout) {
				atomic.AddUint64(&bus.dropped, 1)
			}
		}
	}
}

// Dropped returns the number of undelivered events.
func (bus *EventBus) Dropped() uint64 {
	return atomic.LoadUint64(&bus.dropped)
}

// Shutdown closes every subscription.
func (bus *EventBus) Shutdown() {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for _, subs := range bus.subscribers {
		for _, sub := range subs {
			sub.close()
		}
	}
	bus.subscribers = make(map[string]map[string]*subscriber)
}

func matchTopic(pattern, topic string) bool {
	if pattern == "" || topic == "" {
		return false
	}
	if pattern == "*" || pattern == topic {
		return true
	}
	pp := strings.Split(pattern, ".")
	tp := strings.Split(topic, ".")
	if len(pp) != len(tp) {
		return false
	}
	for i := range pp {
		if pp[i] != "*" && pp[i] != tp[i] {
			return false
		}
	}
	return true
}
