/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package hub

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	h := New(zerolog.Nop())
	a := h.Connect("a")
	b := h.Connect("b")

	h.Broadcast(Envelope{Message: "schedule_update", Data: []string{"x"}})

	for _, sub := range []*Subscriber{a, b} {
		select {
		case msg := <-sub.Ch:
			var env Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Message != "schedule_update" {
				t.Fatalf("message = %q", env.Message)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s got no message", sub.ID)
		}
	}
}

func TestSlowSubscriberIsDroppedNotBlocking(t *testing.T) {
	h := New(zerolog.Nop())
	slow := h.Connect("slow")
	healthy := h.Connect("healthy")

	// fill the slow subscriber's queue while keeping healthy drained
	received := 0
	for i := 0; i <= subscriberQueueSize+1; i++ {
		h.Broadcast(Envelope{Message: "tick"})
		select {
		case <-healthy.Ch:
			received++
		default:
		}
	}

	select {
	case <-slow.Done:
	case <-time.After(time.Second):
		t.Fatal("slow subscriber was not dropped")
	}
	if h.Count() != 1 {
		t.Fatalf("subscriber count = %d, want 1", h.Count())
	}
	if received == 0 {
		t.Fatal("healthy subscriber received nothing")
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	h := New(zerolog.Nop())
	sub := h.Connect("a")
	h.Disconnect(sub)
	h.Disconnect(sub)
	if h.Count() != 0 {
		t.Fatalf("count = %d, want 0", h.Count())
	}
}

func TestConcurrentConnectBroadcastDisconnect(t *testing.T) {
	h := New(zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := h.Connect("c")
			h.Broadcast(Envelope{Message: "tick"})
			h.Disconnect(sub)
		}()
	}
	wg.Wait()

	if h.Count() != 0 {
		t.Fatalf("count = %d, want 0", h.Count())
	}
}
