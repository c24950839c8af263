// Package events provides a non-blocking publish/subscribe bus for run
// progress events.
package events

import (
	"sync"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// EventEnvStarted is published when an environment run begins.
	EventEnvStarted EventType = "env_started"
	// EventCommandFinished is published after each executed command.
	EventCommandFinished EventType = "command_finished"
	// EventEnvFinished is published when an environment run reaches a
	// terminal status.
	EventEnvFinished EventType = "env_finished"
)

// Event is one run progress notification.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Env       string
	// Line and ExitCode are set for command events.
	Line     string
	ExitCode int
	// Status is set for env_finished events.
	Status string
}

// Subscriber is a function that receives events.
type Subscriber func(Event)

// Bus delivers events asynchronously via buffered channels. If a
// subscriber's channel is full, the event is dropped rather than blocking
// the run.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]chan Event
	bufferSize  int
}

// NewBus creates a new event bus with the specified buffer size per
// subscriber.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a subscriber for one event type. The subscriber is
// invoked from a dedicated goroutine. Returns an unsubscribe function.
func (b *Bus) Subscribe(eventType EventType, fn Subscriber) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)

	go func() {
		for event := range ch {
			func() {
				defer func() {
					// A panicking subscriber must not take down the run.
					recover()
				}()
				fn(event)
			}()
		}
	}()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subscribers[eventType]
		for i, subCh := range subs {
			if subCh == ch {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
}

// Publish sends an event to all subscribers of its type without blocking.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	for _, ch := range b.subscribers[event.Type] {
		select {
		case ch <- event:
		default:
			// Channel full, drop rather than stall the executor.
		}
	}
}

// Close closes all subscriber channels and clears subscriptions.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscribers {
		for _, ch := range subs {
			close(ch)
		}
		delete(b.subscribers, eventType)
	}
}
