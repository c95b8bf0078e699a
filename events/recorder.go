package events

import "sync"

// Recorder is an Emitter that keeps every event in memory. Tests use it in
// place of a Bus to assert on what a manager emitted.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Emitter.
func (r *Recorder) Emit(level Level, key string, payload ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Level: level, Key: key, Payload: payload})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns the number of recorded events.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// CalledWith reports whether an event with level and key was recorded.
func (r *Recorder) CalledWith(level Level, key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Level == level && ev.Key == key {
			return true
		}
	}
	return false
}

// CountKey returns how many events with level and key were recorded.
func (r *Recorder) CountKey(level Level, key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Level == level && ev.Key == key {
			n++
		}
	}
	return n
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
