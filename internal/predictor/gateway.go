/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package predictor is the boundary to the external inference service.
// The gateway never surfaces transport failures to callers; a failed
// or slow prediction comes back as an explicit unavailable result.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/friendsincode/eir_schedule/internal/telemetry"
)

// complicationThreshold marks a probability as elevated risk.
const complicationThreshold = 0.18

// DelayPrediction is the outcome of a delay-minutes prediction.
type DelayPrediction struct {
	Available bool `json:"available"`
	Minutes   int  `json:"delay_minutes"`
}

// ComplicationRisk is the outcome of a complication-risk prediction.
type ComplicationRisk struct {
	Available   bool    `json:"available"`
	Probability float64 `json:"probability"`
	Elevated    bool    `json:"elevated"`
}

// Gateway predicts schedule outcomes via the external model service.
type Gateway interface {
	PredictDelay(ctx context.Context) DelayPrediction
	PredictComplicationRisk(ctx context.Context) ComplicationRisk
}

// Config configures the HTTP gateway.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	FeaturesPath string // optional YAML file with the default feature vector
}

// HTTPGateway talks JSON over HTTP to the inference service. The
// client and feature vector are built once, on first use.
type HTTPGateway struct {
	cfg    Config
	logger zerolog.Logger

	initOnce sync.Once
	client   *http.Client
	features map[string]any
}

// NewHTTPGateway creates a gateway. No connection is made until the
// first prediction call.
func NewHTTPGateway(cfg Config, logger zerolog.Logger) *HTTPGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &HTTPGateway{
		cfg:    cfg,
		logger: logger.With().Str("component", "predictor").Logger(),
	}
}

func (g *HTTPGateway) init() {
	g.initOnce.Do(func() {
		g.client = &http.Client{Timeout: g.cfg.Timeout}
		g.features = defaultFeatures()
		if g.cfg.FeaturesPath == "" {
			return
		}
		data, err := os.ReadFile(g.cfg.FeaturesPath)
		if err != nil {
			g.logger.Warn().Err(err).Str("path", g.cfg.FeaturesPath).Msg("feature file unreadable, using built-in defaults")
			return
		}
		loaded := map[string]any{}
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			g.logger.Warn().Err(err).Str("path", g.cfg.FeaturesPath).Msg("feature file malformed, using built-in defaults")
			return
		}
		for k, v := range loaded {
			g.features[k] = v
		}
		g.logger.Info().Int("features", len(g.features)).Msg("predictor feature vector loaded")
	})
}

// defaultFeatures is the fallback feature vector when no file is
// configured.
func defaultFeatures() map[string]any {
	return map[string]any{
		"scheduled_duration_minutes": 60,
		"procedure_complexity":       2,
		"patient_asa_class":          2,
		"surgeon_cases_today":        3,
	}
}

// PredictDelay asks the model for the expected delay of the next case.
// The model answers in hours; callers get minutes.
func (g *HTTPGateway) PredictDelay(ctx context.Context) DelayPrediction {
	var out struct {
		DelayHours float64 `json:"delay_hours"`
	}
	if err := g.post(ctx, "/predict_delay", &out); err != nil {
		g.logger.Warn().Err(err).Msg("delay prediction unavailable")
		telemetry.PredictorRequestsTotal.WithLabelValues("delay", "unavailable").Inc()
		return DelayPrediction{}
	}
	telemetry.PredictorRequestsTotal.WithLabelValues("delay", "ok").Inc()
	return DelayPrediction{
		Available: true,
		Minutes:   int(math.Round(out.DelayHours * 60)),
	}
}

// PredictComplicationRisk asks the model for a complication
// probability for the default case profile.
func (g *HTTPGateway) PredictComplicationRisk(ctx context.Context) ComplicationRisk {
	var out struct {
		Probability float64 `json:"probability"`
	}
	if err := g.post(ctx, "/complication_risk", &out); err != nil {
		g.logger.Warn().Err(err).Msg("complication risk unavailable")
		telemetry.PredictorRequestsTotal.WithLabelValues("complication", "unavailable").Inc()
		return ComplicationRisk{}
	}
	telemetry.PredictorRequestsTotal.WithLabelValues("complication", "ok").Inc()
	return ComplicationRisk{
		Available:   true,
		Probability: out.Probability,
		Elevated:    out.Probability >= complicationThreshold,
	}
}

func (g *HTTPGateway) post(ctx context.Context, path string, dest any) error {
	g.init()

	if g.cfg.BaseURL == "" {
		return fmt.Errorf("predictor URL not configured")
	}

	body, err := json.Marshal(g.features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("call predictor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("predictor returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode prediction: %w", err)
	}
	return nil
}
