/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package archive

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/eir_schedule/internal/models"
)

func TestSnapshotWritesDatedKey(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new fs store: %v", err)
	}
	a := New(store, zerolog.Nop())
	a.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}

	blocks := []models.SurgeryBlock{{ID: "a", StartTime: "09:00", EndTime: "10:00"}}
	if err := a.Snapshot(context.Background(), blocks); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	data, err := store.Get(context.Background(), "snapshots/2026-03-14/092653.json")
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	var got []models.SurgeryBlock
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("snapshot = %+v", got)
	}
}

func TestFSStoreMissingKey(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("new fs store: %v", err)
	}
	if _, err := store.Get(context.Background(), "snapshots/none.json"); err == nil {
		t.Fatal("expected error for missing key")
	} else if !strings.Contains(err.Error(), "none.json") {
		t.Fatalf("err = %v", err)
	}
}
