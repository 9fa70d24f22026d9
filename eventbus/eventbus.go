// Package eventbus broadcasts run progress and status events to
// subscribers (the httpapi package's SSE stream), verbatim-pattern
// grounded on sync/eventbus.go: a map of per-client buffered channels,
// non-blocking publish that drops events for a slow client rather than
// stalling the whole bus.
package eventbus

import "sync"

// EventType distinguishes what a RunEvent reports.
type EventType string

const (
	EventScanProgress  EventType = "scan_progress"
	EventPlanReady     EventType = "plan_ready"
	EventActionDone    EventType = "action_done"
	EventRunCompleted  EventType = "run_completed"
	EventRunFailed     EventType = "run_failed"
	EventSafetyBlocked EventType = "safety_blocked"
)

// RunEvent is one status update broadcast to subscribers.
type RunEvent struct {
	Type    EventType `json:"type"`
	RunID   int64     `json:"run_id"`
	Path    string    `json:"path,omitempty"`
	Current int       `json:"current,omitempty"`
	Total   int       `json:"total,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Bus broadcasts RunEvents to all connected subscribers.
type Bus struct {
	mu      sync.RWMutex
	clients map[chan RunEvent]struct{}
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{clients: make(map[chan RunEvent]struct{})}
}

// Subscribe registers a new client and returns its event channel.
func (b *Bus) Subscribe() chan RunEvent {
	ch := make(chan RunEvent, 32)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Bus) Unsubscribe(ch chan RunEvent) {
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
	close(ch)
}

// Publish sends an event to every connected client; a slow client that
// hasn't drained its buffer has the event dropped rather than blocking
// the publisher.
func (b *Bus) Publish(event RunEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- event:
		default:
		}
	}
}
