/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/eir_schedule/internal/events"
	"github.com/friendsincode/eir_schedule/internal/models"
	"github.com/friendsincode/eir_schedule/internal/predictor"
	"github.com/friendsincode/eir_schedule/internal/schedule"
	"github.com/friendsincode/eir_schedule/internal/scheduling"
	"github.com/friendsincode/eir_schedule/internal/store"
)

type stubGateway struct {
	delay predictor.DelayPrediction
	risk  predictor.ComplicationRisk
}

func (s *stubGateway) PredictDelay(ctx context.Context) predictor.DelayPrediction {
	return s.delay
}

func (s *stubGateway) PredictComplicationRisk(ctx context.Context) predictor.ComplicationRisk {
	return s.risk
}

func testRouter(t *testing.T) (*chi.Mux, *schedule.Service) {
	t.Helper()
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "schedule.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	engine := scheduling.NewEngine(scheduling.DefaultBufferMinutes, zerolog.Nop())
	svc := schedule.New(st, engine, nil, events.NewBus(), nil, zerolog.Nop())

	a := New(svc, &stubGateway{
		delay: predictor.DelayPrediction{Available: true, Minutes: 25},
		risk:  predictor.ComplicationRisk{Available: true, Probability: 0.2, Elevated: true},
	}, nil, nil, nil, nil, zerolog.Nop())

	r := chi.NewRouter()
	a.Routes(r)
	return r, svc
}

func seedSchedule(t *testing.T, svc *schedule.Service) {
	t.Helper()
	_, _, err := svc.Import(context.Background(), []models.SurgeryBlock{
		{ID: "a", Title: "Appendectomy", OriginalStart: "09:00", OriginalEnd: "10:00"},
		{ID: "b", Title: "Hernia repair", OriginalStart: "10:05", OriginalEnd: "11:00"},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestGetSurgeries(t *testing.T) {
	r, svc := testRouter(t)
	seedSchedule(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/surgeries", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var blocks []models.SurgeryBlock
	if err := json.Unmarshal(rec.Body.Bytes(), &blocks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(blocks) != 2 || blocks[0].ID != "a" {
		t.Fatalf("blocks = %+v", blocks)
	}
}

func TestPostSurgeryDelay(t *testing.T) {
	r, svc := testRouter(t)
	seedSchedule(t, svc)

	body := bytes.NewBufferString(`{"id":"a","delayDuration":15,"delayReason":"anesthesia delay"}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/surgeries", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var blocks []models.SurgeryBlock
	if err := json.Unmarshal(rec.Body.Bytes(), &blocks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if blocks[0].EndTime != "10:15" {
		t.Fatalf("block a end = %s, want 10:15", blocks[0].EndTime)
	}
	if blocks[1].StartTime != "10:25" {
		t.Fatalf("block b start = %s, want 10:25", blocks[1].StartTime)
	}
}

func TestPostSurgeryMissingID(t *testing.T) {
	r, _ := testRouter(t)

	body := bytes.NewBufferString(`{"delayDuration":15}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/surgeries", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "missing_id" {
		t.Fatalf("error = %q", resp["error"])
	}
}

func TestPostSurgeryMalformedTime(t *testing.T) {
	r, svc := testRouter(t)
	seedSchedule(t, svc)

	body := bytes.NewBufferString(`{"id":"new","startTime":"soon","endTime":"later"}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/surgeries", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPostSurgeryMalformedBody(t *testing.T) {
	r, _ := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/surgeries", bytes.NewBufferString("{")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDelayPrediction(t *testing.T) {
	r, _ := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/delay_prediction", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var p predictor.DelayPrediction
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !p.Available || p.Minutes != 25 {
		t.Fatalf("prediction = %+v", p)
	}
}

func TestComplicationRisk(t *testing.T) {
	r, _ := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/complication_risk", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var risk predictor.ComplicationRisk
	if err := json.Unmarshal(rec.Body.Bytes(), &risk); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !risk.Elevated {
		t.Fatalf("risk = %+v", risk)
	}
}

func TestHealth(t *testing.T) {
	r, _ := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status["status"] != "ok" {
		t.Fatalf("status = %v", status)
	}
}

type brokenStore struct{}

func (brokenStore) ReadAll(ctx context.Context) ([]models.SurgeryBlock, error) {
	return []models.SurgeryBlock{}, nil
}

func (brokenStore) ReplaceAll(ctx context.Context, blocks []models.SurgeryBlock) error {
	return errors.New("disk full")
}

func TestPersistFailureReturns500(t *testing.T) {
	svc := schedule.New(brokenStore{}, scheduling.NewEngine(scheduling.DefaultBufferMinutes, zerolog.Nop()), nil, events.NewBus(), nil, zerolog.Nop())
	a := New(svc, &stubGateway{}, nil, nil, nil, nil, zerolog.Nop())
	r := chi.NewRouter()
	a.Routes(r)

	body := bytes.NewBufferString(`{"id":"a","startTime":"09:00","endTime":"10:00"}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/surgeries", body))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500 for a store failure", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "schedule_write_failed" {
		t.Fatalf("error = %q", resp["error"])
	}
}

func TestInvalidUpdateStillReturns400(t *testing.T) {
	r, svc := testRouter(t)
	seedSchedule(t, svc)

	body := bytes.NewBufferString(`{"id":"a","originalStart":"11:00"}`)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/surgeries", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "invalid_update" {
		t.Fatalf("error = %q", resp["error"])
	}
}

func TestUnavailablePredictorStillReturns200(t *testing.T) {
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "schedule.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	svc := schedule.New(st, scheduling.NewEngine(10, zerolog.Nop()), nil, events.NewBus(), nil, zerolog.Nop())
	a := New(svc, &stubGateway{}, nil, nil, nil, nil, zerolog.Nop())
	r := chi.NewRouter()
	a.Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/delay_prediction", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when unavailable", rec.Code)
	}
	var p predictor.DelayPrediction
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Available {
		t.Fatal("prediction should be unavailable")
	}
}
