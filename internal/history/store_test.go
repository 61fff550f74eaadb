package history

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, "job-1", "doc.pdf", "Korean", "queued"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(ctx, "job-2", "other.pdf", "English", "queued"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	byID := map[string]Entry{}
	for _, e := range entries {
		byID[e.JobID] = e
	}
	e := byID["job-1"]
	if e.Filename != "doc.pdf" || e.Language != "Korean" || e.LastStatus != "queued" {
		t.Errorf("entry = %+v", e)
	}
	if e.SubmittedAt.IsZero() {
		t.Error("SubmittedAt should be set")
	}
	if e.CheckedAt != nil {
		t.Error("CheckedAt should be nil before any status update")
	}
}

func TestRecord_SameJobTwiceUpdates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, "job-1", "doc.pdf", "Korean", "queued"); err != nil {
		t.Fatal(err)
	}
	if err := s.Record(ctx, "job-1", "doc-v2.pdf", "English", "processing"); err != nil {
		t.Fatalf("re-record should not fail: %v", err)
	}

	entries, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].Filename != "doc-v2.pdf" || entries[0].LastStatus != "processing" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestUpdateStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Record(ctx, "job-1", "doc.pdf", "Korean", "queued"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateStatus(ctx, "job-1", "completed"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	// Updating a job the store never saw is a no-op, not an error.
	if err := s.UpdateStatus(ctx, "foreign-job", "completed"); err != nil {
		t.Fatalf("UpdateStatus for unknown job: %v", err)
	}

	entries, err := s.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("len = %d, want 1", len(entries))
	}
	if entries[0].LastStatus != "completed" {
		t.Errorf("LastStatus = %q, want completed", entries[0].LastStatus)
	}
	if entries[0].CheckedAt == nil {
		t.Error("CheckedAt should be set after an update")
	}
}

func TestList_Limit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Record(ctx, id, id+".pdf", "Korean", "queued"); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := s.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("len = %d, want 2", len(entries))
	}
}
