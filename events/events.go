// Package events is the publish/subscribe channel managers report their
// lifecycle on.
//
// Event keys follow "<itemName>:<verb>[:<detail>]":
//
//	phrases:registered
//	goodies:unregister:testId
//	snippets:not:registered
//
// One Bus is created per process and passed to every manager; nothing in
// this package is global.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the severity an event is emitted at.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is a single notification.
type Event struct {
	Level   Level
	Key     string
	Payload []any
	Time    time.Time
}

// Handler receives events. Handlers run synchronously on the emitting
// goroutine and must not block.
type Handler func(Event)

// Emitter is the capability managers depend on.
type Emitter interface {
	Emit(level Level, key string, payload ...any)
}

// Nop discards every event.
type Nop struct{}

// Emit implements Emitter.
func (Nop) Emit(Level, string, ...any) {}

type subscription struct {
	name    string
	handler Handler
}

// Bus fans events out to handlers subscribed per level.
type Bus struct {
	mu   sync.RWMutex
	subs map[Level][]subscription
	now  func() time.Time
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[Level][]subscription),
		now:  time.Now,
	}
}

// On subscribes handler to level under name and returns the name. An empty
// name is replaced by a generated one. Subscribing twice with the same
// name replaces the previous handler.
func (b *Bus) On(level Level, name string, handler Handler) string {
	if name == "" {
		name = uuid.NewString()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[level]
	for i, s := range subs {
		if s.name == name {
			subs[i].handler = handler
			return name
		}
	}
	b.subs[level] = append(subs, subscription{name: name, handler: handler})
	return name
}

// OnAll subscribes handler to every level under name.
func (b *Bus) OnAll(name string, handler Handler) string {
	if name == "" {
		name = uuid.NewString()
	}
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		b.On(level, name, handler)
	}
	return name
}

// Off removes the subscription registered under name for level.
func (b *Bus) Off(level Level, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[level]
	for i, s := range subs {
		if s.name == name {
			b.subs[level] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit delivers an event to every handler subscribed to level, in
// subscription order.
func (b *Bus) Emit(level Level, key string, payload ...any) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[level]))
	copy(subs, b.subs[level])
	b.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	ev := Event{Level: level, Key: key, Payload: payload, Time: b.now()}
	for _, s := range subs {
		s.handler(ev)
	}
}

// Count returns the number of subscriptions for level.
func (b *Bus) Count(level Level) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[level])
}
