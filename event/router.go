package event

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultChannelBufferSize is the default buffer size for subscriber channels.
const DefaultChannelBufferSize = 100

// SubscribeOptions configures event subscription filtering.
type SubscribeOptions struct {
	// EventTypes specifies which event types to receive using glob patterns.
	// Supports: "*" (all), "task.*", "*.started", or exact match. Empty
	// subscribes to all events.
	EventTypes []string

	// SessionID filters events to a single observation session.
	SessionID uuid.UUID

	// TaskID filters events to those scoped to a specific task.
	TaskID uuid.UUID
}

type subscription struct {
	id         uuid.UUID
	patterns   []string
	sessionID  uuid.UUID
	taskID     uuid.UUID
	channel    chan *StreamEvent
	cancelFunc context.CancelFunc
}

// Router fans events out to pattern-filtered subscriber channels. Delivery is
// non-blocking; a subscriber that falls behind loses events rather than
// stalling the detector.
type Router struct {
	subscriptions map[uuid.UUID]*subscription
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	metrics       *routerMetrics
}

// NewRouter creates a Router with the given channel buffer size; values <= 0
// use DefaultChannelBufferSize. A nil registry disables metrics.
func NewRouter(bufferSize int, registry RegistryOpt) *Router {
	if bufferSize <= 0 {
		bufferSize = DefaultChannelBufferSize
	}
	return &Router{
		subscriptions: make(map[uuid.UUID]*subscription),
		bufferSize:    bufferSize,
		metrics:       newRouterMetrics(registry),
	}
}

// Subscribe creates a subscription and returns a channel of events plus a
// cancel function. The channel closes when cancel is called or ctx ends.
func (r *Router) Subscribe(ctx context.Context, opts SubscribeOptions) (<-chan *StreamEvent, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		ch := make(chan *StreamEvent)
		close(ch)
		return ch, func() {}
	}

	patterns := opts.EventTypes
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}

	subCtx, cancel := context.WithCancel(ctx)
	ch := make(chan *StreamEvent, r.bufferSize)

	sub := &subscription{
		id:         uuid.New(),
		patterns:   patterns,
		sessionID:  opts.SessionID,
		taskID:     opts.TaskID,
		channel:    ch,
		cancelFunc: cancel,
	}

	r.subscriptions[sub.id] = sub

	go func() {
		<-subCtx.Done()
		r.unsubscribe(sub.id)
	}()

	return ch, cancel
}

func (r *Router) unsubscribe(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.subscriptions[id]; ok {
		close(sub.channel)
		delete(r.subscriptions, id)
	}
}

// Publish sends an event to all matching subscribers, dropping it for any
// whose channel is full.
func (r *Router) Publish(event *StreamEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}

	r.metrics.IncrementPublished(event.Type)

	for _, sub := range r.subscriptions {
		if !r.matches(sub, event) {
			continue
		}
		select {
		case sub.channel <- event:
			r.metrics.IncrementDelivered(event.Type)
		default:
			r.metrics.IncrementDropped(event.Type)
			slog.Debug("dropped event due to full channel buffer",
				"event_type", event.Type,
				"subscription_id", sub.id,
			)
		}
	}
}

func (r *Router) matches(sub *subscription, event *StreamEvent) bool {
	if sub.sessionID != uuid.Nil && event.SessionID != sub.sessionID {
		return false
	}

	if sub.taskID != uuid.Nil {
		if event.TaskID == nil || *event.TaskID != sub.taskID {
			return false
		}
	}

	for _, pattern := range sub.patterns {
		if matchPattern(pattern, event.Type) {
			return true
		}
	}

	return false
}

// matchPattern checks an event type against a glob pattern: "*" matches
// everything, "task.*" matches an entity, "*.started" matches an action, and
// anything else must match exactly.
func matchPattern(pattern, eventType string) bool {
	if pattern == "*" {
		return true
	}

	if pattern == eventType {
		return true
	}

	patternParts := strings.SplitN(pattern, ".", 2)
	eventParts := strings.SplitN(eventType, ".", 2)

	if len(patternParts) != 2 || len(eventParts) != 2 {
		return false
	}

	patternEntity, patternAction := patternParts[0], patternParts[1]
	eventEntity, eventAction := eventParts[0], eventParts[1]

	if patternAction == "*" && patternEntity == eventEntity {
		return true
	}

	if patternEntity == "*" && patternAction == eventAction {
		return true
	}

	return false
}

// Close shuts down the router and closes all subscription channels.
func (r *Router) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.closed = true

	for id, sub := range r.subscriptions {
		sub.cancelFunc()
		close(sub.channel)
		delete(r.subscriptions, id)
	}
}

// SubscriptionCount returns the number of active subscriptions. Useful for
// testing and debugging.
func (r *Router) SubscriptionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscriptions)
}
