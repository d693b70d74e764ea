/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupLevelPerEnvironment(t *testing.T) {
	if got := Setup("development").GetLevel(); got != zerolog.DebugLevel {
		t.Errorf("development level = %s, want debug", got)
	}
	if got := Setup("production").GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("production level = %s, want info", got)
	}
}

func TestSetupWithWriterMirrorsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter("production", &buf)

	logger.Info().Str("component", "api").Msg("listening")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("buffer did not receive JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "listening" || entry["component"] != "api" {
		t.Fatalf("entry = %v", entry)
	}
}
