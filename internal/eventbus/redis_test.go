/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/eir_schedule/internal/events"
)

// fallbackBus returns a bus whose Redis is unreachable, so every path
// runs on the in-memory fallback.
func fallbackBus(t *testing.T) *RedisBus {
	t.Helper()
	cfg := DefaultRedisConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.DialTimeout = 100 * time.Millisecond
	cfg.CheckInterval = time.Hour // keep the reconnect loop quiet

	bus, err := NewRedisBus(cfg, "test-node", zerolog.Nop())
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	t.Cleanup(func() {
		if err := bus.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})
	return bus
}

func TestFallbackDeliversLocalEvents(t *testing.T) {
	bus := fallbackBus(t)

	sub := bus.Subscribe(events.EventScheduleUpdate)
	bus.Publish(events.EventScheduleUpdate, events.Payload{"blocks": []string{"a"}})

	select {
	case payload := <-sub:
		if _, ok := payload["blocks"]; !ok {
			t.Fatalf("payload = %v", payload)
		}
	default:
		t.Fatal("local publish did not reach subscriber")
	}
}

func TestUnsubscribeClosesChannelOnce(t *testing.T) {
	bus := fallbackBus(t)

	sub := bus.Subscribe(events.EventScheduleReset)
	bus.Unsubscribe(events.EventScheduleReset, sub)

	if _, open := <-sub; open {
		t.Fatal("channel still open after unsubscribe")
	}

	// events after unsubscribe go nowhere, without panicking
	bus.Publish(events.EventScheduleReset, events.Payload{})
}

func TestSubscribersAreIndependent(t *testing.T) {
	bus := fallbackBus(t)

	first := bus.Subscribe(events.EventScheduleUpdate)
	second := bus.Subscribe(events.EventScheduleUpdate)
	bus.Unsubscribe(events.EventScheduleUpdate, first)

	bus.Publish(events.EventScheduleUpdate, events.Payload{"blocks": nil})

	select {
	case <-second:
	default:
		t.Fatal("remaining subscriber missed the event")
	}
}
