/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	ws "nhooyr.io/websocket"

	"github.com/friendsincode/eir_schedule/internal/api"
	"github.com/friendsincode/eir_schedule/internal/events"
	"github.com/friendsincode/eir_schedule/internal/hub"
	"github.com/friendsincode/eir_schedule/internal/models"
	"github.com/friendsincode/eir_schedule/internal/predictor"
	"github.com/friendsincode/eir_schedule/internal/schedule"
	"github.com/friendsincode/eir_schedule/internal/scheduling"
	"github.com/friendsincode/eir_schedule/internal/store"
)

type noopGateway struct{}

func (noopGateway) PredictDelay(ctx context.Context) predictor.DelayPrediction {
	return predictor.DelayPrediction{}
}

func (noopGateway) PredictComplicationRisk(ctx context.Context) predictor.ComplicationRisk {
	return predictor.ComplicationRisk{}
}

// startStack wires store, engine, service, hub and API the way the
// server does, minus Redis, and returns a running test server.
func startStack(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zerolog.Nop()

	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "schedule.json"), logger)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	bus := events.NewBus()
	engine := scheduling.NewEngine(scheduling.DefaultBufferMinutes, logger)
	svc := schedule.New(st, engine, nil, bus, nil, logger)

	h := hub.New(logger)
	updates := bus.Subscribe(events.EventScheduleUpdate)
	go func() {
		for payload := range updates {
			h.Broadcast(hub.Envelope{Message: "schedule_update", Data: payload["blocks"]})
		}
	}()

	a := api.New(svc, noopGateway{}, hub.NewWSHandler(h, bus, logger), nil, nil, nil, logger)
	r := chi.NewRouter()
	a.Routes(r)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	if _, _, err := svc.Import(context.Background(), []models.SurgeryBlock{
		{ID: "a", Title: "Appendectomy", OriginalStart: "09:00", OriginalEnd: "10:00"},
		{ID: "b", Title: "Hernia repair", OriginalStart: "10:05", OriginalEnd: "11:00"},
	}); err != nil {
		t.Fatalf("failed to seed schedule: %v", err)
	}

	return server
}

func readEnvelope(ctx context.Context, t *testing.T, conn *ws.Conn) hub.Envelope {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("websocket read failed: %v", err)
	}
	var env hub.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return env
}

func TestDelayUpdateReachesWebsocketClient(t *testing.T) {
	server := startStack(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := ws.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	if env := readEnvelope(ctx, t, conn); env.Message != "connected" {
		t.Fatalf("welcome message = %q", env.Message)
	}

	body := bytes.NewBufferString(`{"id":"a","delayDuration":15,"delayReason":"anesthesia delay"}`)
	resp, err := http.Post(server.URL+"/surgeries", "application/json", body)
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post status = %d", resp.StatusCode)
	}

	env := readEnvelope(ctx, t, conn)
	if env.Message != "schedule_update" {
		t.Fatalf("message = %q, want schedule_update", env.Message)
	}

	raw, err := json.Marshal(env.Data)
	if err != nil {
		t.Fatalf("re-encode data: %v", err)
	}
	var blocks []models.SurgeryBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		t.Fatalf("decode blocks: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks", len(blocks))
	}
	if blocks[0].EndTime != "10:15" {
		t.Fatalf("block a end = %s, want 10:15", blocks[0].EndTime)
	}
	if blocks[1].StartTime != "10:25" {
		t.Fatalf("block b start = %s, want 10:25", blocks[1].StartTime)
	}
}

func TestScheduleSurvivesRestart(t *testing.T) {
	logger := zerolog.Nop()
	path := filepath.Join(t.TempDir(), "schedule.json")

	st, err := store.NewFileStore(path, logger)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	engine := scheduling.NewEngine(scheduling.DefaultBufferMinutes, logger)
	svc := schedule.New(st, engine, nil, events.NewBus(), nil, logger)

	ctx := context.Background()
	if _, _, err := svc.Import(ctx, []models.SurgeryBlock{
		{ID: "a", OriginalStart: "09:00", OriginalEnd: "10:00"},
	}); err != nil {
		t.Fatalf("import: %v", err)
	}
	if _, _, err := svc.ApplyUpdate(ctx, models.SurgeryBlock{ID: "a", DelayDuration: 20}); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// a new store over the same file sees the applied delay
	st2, err := store.NewFileStore(path, logger)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	svc2 := schedule.New(st2, engine, nil, events.NewBus(), nil, logger)
	got, err := svc2.Schedule(ctx)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(got) != 1 || got[0].EndTime != "10:20" || got[0].DelayTotal != 20 {
		t.Fatalf("restarted schedule = %+v", got)
	}
}
