/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package hub fans schedule updates out to live websocket subscribers.
package hub

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/eir_schedule/internal/telemetry"
)

// subscriberQueueSize bounds the per-subscriber send queue. A
// subscriber that falls this far behind is dropped rather than
// allowed to stall the broadcast.
const subscriberQueueSize = 16

// Envelope is the wire format for every hub message.
type Envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Subscriber is one connected client. Messages are delivered on Ch by
// a dedicated writer; Done closes when the hub drops the subscriber.
type Subscriber struct {
	ID   string
	Ch   chan []byte
	Done chan struct{}

	closeOnce sync.Once
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.Done)
	})
}

// Hub maintains the subscriber registry. Connect, Disconnect and
// Broadcast are all safe to call concurrently.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscriber]struct{}
	logger zerolog.Logger
}

// New creates an empty hub.
func New(logger zerolog.Logger) *Hub {
	return &Hub{
		subs:   make(map[*Subscriber]struct{}),
		logger: logger.With().Str("component", "hub").Logger(),
	}
}

// Connect registers a new subscriber.
func (h *Hub) Connect(id string) *Subscriber {
	sub := &Subscriber{
		ID:   id,
		Ch:   make(chan []byte, subscriberQueueSize),
		Done: make(chan struct{}),
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	count := len(h.subs)
	h.mu.Unlock()

	telemetry.HubSubscribers.Set(float64(count))
	h.logger.Debug().Str("subscriber_id", id).Int("subscribers", count).Msg("subscriber connected")
	return sub
}

// Disconnect removes a subscriber. Safe to call more than once.
func (h *Hub) Disconnect(sub *Subscriber) {
	h.mu.Lock()
	_, present := h.subs[sub]
	delete(h.subs, sub)
	count := len(h.subs)
	h.mu.Unlock()

	sub.close()
	if present {
		telemetry.HubSubscribers.Set(float64(count))
		h.logger.Debug().Str("subscriber_id", sub.ID).Int("subscribers", count).Msg("subscriber disconnected")
	}
}

// Broadcast sends an envelope to every subscriber. A subscriber whose
// queue is full is dropped; one bad connection never blocks the rest.
func (h *Hub) Broadcast(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode broadcast envelope")
		return
	}

	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.Ch <- data:
			telemetry.HubMessagesTotal.Inc()
		default:
			telemetry.HubDroppedTotal.Inc()
			h.logger.Warn().Str("subscriber_id", sub.ID).Msg("subscriber queue full, dropping")
			h.Disconnect(sub)
		}
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
