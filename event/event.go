// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SubscriberQueueSize is the per-subscriber channel buffer. A subscriber
// that falls this far behind starts losing events rather than stalling the
// publishing component.
const SubscriberQueueSize = 20

// EventType names a provenance event. Each component package owns its own
// constants ("registry.product_registered", "governance.dispute_flagged",
// etc) alongside the payload struct it publishes.
type EventType string

type SubscriberId int

type HandlerFunc func(Event)

// Event is the envelope around a component payload. Components publish only
// after their transaction commits, so subscribers never observe state that
// was rolled back.
type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// subscriber is a channel delivery endpoint. Sends are non-blocking so a
// slow consumer can never wedge an operation mid-publish.
type subscriber struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

func newSubscriber() *subscriber {
	return &subscriber{
		ch: make(chan Event, SubscriberQueueSize),
	}
}

// deliver sends the event to the subscriber channel. It reports false when
// the event was dropped, either because the buffer is full or the
// subscriber was closed.
func (s *subscriber) deliver(evt Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- evt:
		return true
	default:
		return false
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// EventBus fans provenance events out to in-process subscribers
type EventBus struct {
	subscribers map[EventType]map[SubscriberId]*subscriber
	metrics     *busMetrics
	lastSubId   SubscriberId
	mu          sync.RWMutex
	logger      *slog.Logger
}

func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	e := &EventBus{
		subscribers: make(map[EventType]map[SubscriberId]*subscriber),
	}
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		e.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		e.logger = logger
	}
	if promRegistry != nil {
		e.initMetrics(promRegistry)
	}
	return e
}

// Subscribe returns a channel that receives events of the given type. The
// channel is closed on Unsubscribe or Stop
func (e *EventBus) Subscribe(
	eventType EventType,
) (SubscriberId, <-chan Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub := newSubscriber()
	subId := e.lastSubId + 1
	e.lastSubId = subId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[SubscriberId]*subscriber)
	}
	e.subscribers[eventType][subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	return subId, sub.ch
}

// SubscribeFunc runs the handler on each event of the given type in a
// dedicated goroutine. The goroutine exits when the subscription is removed
// or the bus stops; a panicking handler loses that event but keeps its
// subscription.
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc HandlerFunc,
) SubscriberId {
	subId, evtCh := e.Subscribe(eventType)
	go func() {
		for evt := range evtCh {
			e.runHandler(handlerFunc, evt)
		}
	}()
	return subId
}

func (e *EventBus) runHandler(handlerFunc HandlerFunc, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn(
				"event handler panic",
				"type", evt.Type,
				"panic", r,
			)
		}
	}()
	handlerFunc(evt)
}

// Unsubscribe removes a subscriber and closes its channel
func (e *EventBus) Unsubscribe(eventType EventType, subId SubscriberId) {
	e.mu.Lock()
	var sub *subscriber
	if typeSubs, ok := e.subscribers[eventType]; ok {
		if s, ok2 := typeSubs[subId]; ok2 {
			sub = s
			delete(typeSubs, subId)
			if len(typeSubs) == 0 {
				delete(e.subscribers, eventType)
			}
			if e.metrics != nil {
				e.metrics.subscribers.WithLabelValues(string(eventType)).
					Dec()
			}
		}
	}
	e.mu.Unlock()
	// Close outside the lock so a concurrent Publish cannot deadlock
	if sub != nil {
		sub.close()
	}
}

// Publish delivers the event to every subscriber of its type. Events for
// full or closed subscribers are dropped and counted; the publisher never
// blocks on a consumer.
func (e *EventBus) Publish(evt Event) {
	e.mu.RLock()
	typeSubs := e.subscribers[evt.Type]
	subs := make([]*subscriber, 0, len(typeSubs))
	for _, sub := range typeSubs {
		subs = append(subs, sub)
	}
	e.mu.RUnlock()
	for _, sub := range subs {
		if !sub.deliver(evt) {
			if e.metrics != nil {
				e.metrics.dropped.WithLabelValues(string(evt.Type)).Inc()
			}
			e.logger.Debug(
				"dropped event for lagging subscriber",
				"type", evt.Type,
			)
		}
	}
	if e.metrics != nil {
		e.metrics.published.WithLabelValues(string(evt.Type)).Inc()
	}
}

// Stop closes every subscriber channel and clears the subscriber map, so
// SubscribeFunc goroutines exit during shutdown. The bus remains usable for
// new subscriptions afterwards
func (e *EventBus) Stop() {
	e.mu.Lock()
	subs := e.subscribers
	e.subscribers = make(map[EventType]map[SubscriberId]*subscriber)
	e.mu.Unlock()
	for _, typeSubs := range subs {
		for _, sub := range typeSubs {
			sub.close()
		}
	}
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
}
