package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
)

func TestFileStore_RecordAndSummary(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "eval", "results.jsonl"))
	ctx := context.Background()

	sum, err := store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary on missing file: %v", err)
	}
	if sum.TotalRuns != 0 {
		t.Fatalf("expected empty summary, got %+v", sum)
	}

	base := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	for i, ok := range []bool{true, false, true, true} {
		res := model.BookingResult{ID: string(rune('a' + i)), Success: ok, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if err := store.Record(ctx, res); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	sum, err = store.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.TotalRuns != 4 || sum.SuccessfulRuns != 3 || sum.SuccessRate != 75 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != "d" || recent[1].ID != "c" {
		t.Fatalf("unexpected recent %+v", recent)
	}
}

func TestMigrationNames(t *testing.T) {
	names, err := MigrationNames()
	if err != nil {
		t.Fatalf("MigrationNames: %v", err)
	}
	if len(names) == 0 || names[0] != "001_init.sql" {
		t.Fatalf("unexpected migrations %v", names)
	}
}
