/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/eir_schedule/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.SurgeryBlock{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func sampleSchedule() []models.SurgeryBlock {
	return []models.SurgeryBlock{
		{ID: "a", Title: "Appendectomy", StartTime: "09:00", EndTime: "10:00", OriginalStart: "09:00", OriginalEnd: "10:00", Status: models.StatusOnTime},
		{ID: "b", Title: "Hernia repair", StartTime: "10:05", EndTime: "11:00", OriginalStart: "10:05", OriginalEnd: "11:00", Status: models.StatusOnTime},
	}
}

func TestGormStoreRoundTrip(t *testing.T) {
	s := NewGormStore(testDB(t), zerolog.Nop())
	ctx := context.Background()

	if err := s.ReplaceAll(ctx, sampleSchedule()); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d blocks, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("order = %s,%s", got[0].ID, got[1].ID)
	}
	if got[0].Title != "Appendectomy" || got[0].StartTime != "09:00" {
		t.Fatalf("block a = %+v", got[0])
	}
}

func TestGormStoreReplaceSwapsWholeSchedule(t *testing.T) {
	s := NewGormStore(testDB(t), zerolog.Nop())
	ctx := context.Background()

	if err := s.ReplaceAll(ctx, sampleSchedule()); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := s.ReplaceAll(ctx, []models.SurgeryBlock{
		{ID: "c", StartTime: "12:00", EndTime: "13:00", OriginalStart: "12:00", OriginalEnd: "13:00", Status: models.StatusOnTime},
	}); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	got, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("got %+v, want single block c", got)
	}
}

func TestGormStoreReplaceEmpty(t *testing.T) {
	s := NewGormStore(testDB(t), zerolog.Nop())
	ctx := context.Background()

	if err := s.ReplaceAll(ctx, sampleSchedule()); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := s.ReplaceAll(ctx, nil); err != nil {
		t.Fatalf("replace empty: %v", err)
	}
	got, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d blocks, want 0", len(got))
	}
}

func TestGormStorePreservesPositionOrder(t *testing.T) {
	s := NewGormStore(testDB(t), zerolog.Nop())
	ctx := context.Background()

	// two blocks with the same original start keep insertion order
	blocks := []models.SurgeryBlock{
		{ID: "first", StartTime: "09:00", EndTime: "09:30", OriginalStart: "09:00", OriginalEnd: "09:30", Status: models.StatusOnTime},
		{ID: "second", StartTime: "09:40", EndTime: "10:10", OriginalStart: "09:00", OriginalEnd: "09:30", Status: models.StatusOnTime},
	}
	if err := s.ReplaceAll(ctx, blocks); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got[0].ID != "first" || got[1].ID != "second" {
		t.Fatalf("order = %s,%s", got[0].ID, got[1].ID)
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	s, err := NewFileStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	ctx := context.Background()

	if err := s.ReplaceAll(ctx, sampleSchedule()); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := s.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" {
		t.Fatalf("got %+v", got)
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	s, err := NewFileStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	got, err := s.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d blocks, want 0", len(got))
	}
}

func TestFileStoreCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}
	s, err := NewFileStore(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	got, err := s.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d blocks, want 0", len(got))
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(filepath.Join(dir, "schedule.json"), zerolog.Nop())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := s.ReplaceAll(context.Background(), sampleSchedule()); err != nil {
		t.Fatalf("replace: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "schedule.json" {
		t.Fatalf("dir entries = %v", entries)
	}
}
