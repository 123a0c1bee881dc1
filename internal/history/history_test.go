package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/depthview/depthview-client/internal/db"
	"github.com/depthview/depthview-client/internal/remote"
	"github.com/depthview/depthview-client/internal/session"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database.Conn())
}

func TestAddAndList(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	added, err := store.Add(ctx, Record{
		Filename: "clip.mp4",
		SizeMB:   12.3,
		Params:   session.Params{Encoder: "h264", InputSize: "384", MaxRes: "1080", TargetFPS: "30"},
		Status:   StatusSucceeded,
		Downloads: remote.Downloads{
			Src:   "/out/a.mp4",
			Depth: "/out/b.mp4",
			RGBD:  "/out/c.mp4",
		},
		Duration: 90 * time.Second,
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if added.ID == "" {
		t.Error("Add() did not assign an ID")
	}
	if added.CreatedAt.IsZero() {
		t.Error("Add() did not assign a timestamp")
	}

	records, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("List() = %d records, want 1", len(records))
	}

	got := records[0]
	if got.Filename != "clip.mp4" || got.SizeMB != 12.3 {
		t.Errorf("record = %+v", got)
	}
	if got.Params.Encoder != "h264" || got.Params.TargetFPS != "30" {
		t.Errorf("params = %+v", got.Params)
	}
	if got.Downloads.RGBD != "/out/c.mp4" {
		t.Errorf("rgbd = %q", got.Downloads.RGBD)
	}
	if got.Duration != 90*time.Second {
		t.Errorf("duration = %v", got.Duration)
	}
}

func TestList_NewestFirstWithLimit(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := store.Add(ctx, Record{
			Filename:  "clip.mp4",
			Params:    session.Params{Encoder: "h264", InputSize: "384", MaxRes: "1080", TargetFPS: "30"},
			Status:    StatusFailed,
			Error:     "encoder unavailable",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}

	records, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List() = %d records, want 2", len(records))
	}
	if !records[0].CreatedAt.After(records[1].CreatedAt) {
		t.Errorf("records not newest first: %v then %v", records[0].CreatedAt, records[1].CreatedAt)
	}
	if records[0].Error != "encoder unavailable" {
		t.Errorf("error = %q", records[0].Error)
	}
}
