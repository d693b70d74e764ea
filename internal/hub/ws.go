/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"

	"github.com/friendsincode/eir_schedule/internal/events"
	"github.com/friendsincode/eir_schedule/internal/telemetry"
	"github.com/friendsincode/eir_schedule/internal/version"
)

const pingInterval = 15 * time.Second

// Publisher is the event bus surface the websocket handler needs.
type Publisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

// WSHandler upgrades HTTP requests to websocket subscriptions.
type WSHandler struct {
	hub    *Hub
	bus    Publisher
	logger zerolog.Logger
}

// NewWSHandler creates the websocket endpoint handler.
func NewWSHandler(h *Hub, bus Publisher, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:    h,
		bus:    bus,
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

// ServeHTTP accepts a websocket connection, sends the welcome message
// and pumps broadcasts until the client goes away.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.APIWebSocketConnections.Inc()
	defer telemetry.APIWebSocketConnections.Dec()

	sub := h.hub.Connect(uuid.NewString())
	defer h.hub.Disconnect(sub)

	ctx := r.Context()

	welcome, err := json.Marshal(Envelope{
		Message: "connected",
		Data: map[string]any{
			"version": version.Version,
		},
	})
	if err == nil {
		if err := conn.Write(ctx, ws.MessageText, welcome); err != nil {
			h.logger.Debug().Err(err).Msg("welcome write failed")
			return
		}
	}

	// Reader: inbound client messages are relayed through the event
	// bus so every subscriber, on every instance, sees them.
	go func() {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				h.hub.Disconnect(sub)
				return
			}
			h.bus.Publish(events.EventClientMessage, events.Payload{
				"from": sub.ID,
				"raw":  string(data),
			})
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "")
			return
		case <-sub.Done:
			conn.Close(ws.StatusNormalClosure, "")
			return
		case msg := <-sub.Ch:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Write(writeCtx, ws.MessageText, msg)
			cancel()
			if err != nil {
				h.logger.Debug().Err(err).Str("subscriber_id", sub.ID).Msg("write failed, dropping subscriber")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
