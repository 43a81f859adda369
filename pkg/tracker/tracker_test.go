package tracker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pario-ai/reviewd/pkg/models"
)

func newTestTracker(t *testing.T) *SQLiteTracker {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	tr, err := New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestRecordAndRecent(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := range 3 {
		rec := models.FetchRecord{
			Account:     "accounts/1",
			Location:    "locations/2",
			Outcome:     models.FetchOK,
			ReviewCount: i + 1,
			LatencyMs:   12,
			CreatedAt:   now.Add(time.Duration(i) * time.Second),
		}
		if err := tr.Record(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	records, err := tr.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ReviewCount != 3 {
		t.Errorf("expected newest first, got review count %d", records[0].ReviewCount)
	}
	if records[0].Outcome != models.FetchOK {
		t.Errorf("expected ok outcome, got %q", records[0].Outcome)
	}
	if records[0].Account != "accounts/1" || records[0].Location != "locations/2" {
		t.Errorf("unexpected identifiers: %+v", records[0])
	}
}

func TestCountSince(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = tr.Record(ctx, models.FetchRecord{Outcome: models.FetchOK, CreatedAt: now.Add(-2 * time.Hour)})
	_ = tr.Record(ctx, models.FetchRecord{Outcome: models.FetchOK, CreatedAt: now})
	_ = tr.Record(ctx, models.FetchRecord{Outcome: models.FetchError, Error: "boom", CreatedAt: now})

	all, err := tr.CountSince(ctx, now.Add(-time.Hour), "")
	if err != nil {
		t.Fatal(err)
	}
	if all != 2 {
		t.Errorf("expected 2 fetches in the last hour, got %d", all)
	}

	failed, err := tr.CountSince(ctx, now.Add(-time.Hour), models.FetchError)
	if err != nil {
		t.Fatal(err)
	}
	if failed != 1 {
		t.Errorf("expected 1 failed fetch, got %d", failed)
	}
}

func TestSummary(t *testing.T) {
	tr := newTestTracker(t)
	ctx := context.Background()

	empty, err := tr.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if empty.Total != 0 || empty.LastSuccess != nil || empty.LastFailure != nil {
		t.Errorf("expected empty summary, got %+v", empty)
	}

	now := time.Now().UTC()
	_ = tr.Record(ctx, models.FetchRecord{Outcome: models.FetchOK, CreatedAt: now})
	_ = tr.Record(ctx, models.FetchRecord{Outcome: models.FetchOK, CreatedAt: now})
	_ = tr.Record(ctx, models.FetchRecord{Outcome: models.FetchError, CreatedAt: now})

	s, err := tr.Summary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != 3 || s.Succeeded != 2 || s.Failed != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if s.LastSuccess == nil || s.LastFailure == nil {
		t.Error("expected last success and failure times")
	}
}
