package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/raysh454/kage/internal/model"
	"github.com/raysh454/kage/internal/store"
	"github.com/raysh454/kage/internal/testutil"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "scans.db"), &testutil.DummyLogger{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testReport(url string, ts time.Time) *model.ScanReport {
	return &model.ScanReport{
		URL:           url,
		Timestamp:     ts,
		Elapsed:       250 * time.Millisecond,
		TotalElements: 12,
		Detections: []model.Detection{
			{
				Element:    model.ElementInfo{Tag: "a", Path: "body > a", Visible: true},
				Detected:   true,
				Confidence: 0.54,
				Severity:   model.SeverityMedium,
				RuleMatches: []model.RuleMatch{{
					RuleID:     "confirmshaming",
					Category:   model.CategoryConfirmshaming,
					Severity:   model.SeverityMedium,
					Confidence: model.RuleMatchConfidence,
				}},
			},
		},
		Summary: model.Summary{
			TotalDetections: 1,
			BySeverity:      map[model.Severity]int{model.SeverityMedium: 1},
			ByCategory:      map[model.Category]int{model.CategoryConfirmshaming: 1},
		},
	}
}

func TestSaveReport_AssignsID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rep := testReport("https://shop.example/checkout", time.Now())
	id, err := s.SaveReport(ctx, rep)
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if id == "" {
		t.Fatal("SaveReport returned empty ID")
	}
	if rep.ID != id {
		t.Errorf("report ID not updated in place: %q vs %q", rep.ID, id)
	}
}

func TestSaveReport_KeepsExistingID(t *testing.T) {
	s := openTestStore(t)

	rep := testReport("https://shop.example/checkout", time.Now())
	rep.ID = "scan-fixed-id"
	id, err := s.SaveReport(context.Background(), rep)
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if id != "scan-fixed-id" {
		t.Errorf("ID = %q, want scan-fixed-id", id)
	}
}

func TestSaveReport_NilReport(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.SaveReport(context.Background(), nil); err == nil {
		t.Fatal("SaveReport(nil) did not error")
	}
}

func TestGetReport_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rep := testReport("https://shop.example/checkout", time.Now())
	id, err := s.SaveReport(ctx, rep)
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	got, err := s.GetReport(ctx, id)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.ID != id {
		t.Errorf("ID = %q, want %q", got.ID, id)
	}
	if got.URL != rep.URL {
		t.Errorf("URL = %q, want %q", got.URL, rep.URL)
	}
	if len(got.Detections) != 1 {
		t.Fatalf("detections = %d, want 1", len(got.Detections))
	}
	if got.Detections[0].Confidence != 0.54 {
		t.Errorf("confidence = %v, want 0.54", got.Detections[0].Confidence)
	}
	if got.Summary.TotalDetections != 1 {
		t.Errorf("summary total = %d, want 1", got.Summary.TotalDetections)
	}
}

func TestGetReport_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetReport(context.Background(), "missing"); !errors.Is(err, store.ErrScanNotFound) {
		t.Fatalf("expected ErrScanNotFound, got %v", err)
	}
}

func TestListScans_OrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Distinct second-granularity timestamps; created_at is stored as unix
	// seconds so same-second rows would tie.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		rep := testReport("https://shop.example/checkout", base.Add(time.Duration(i)*time.Minute))
		id, err := s.SaveReport(ctx, rep)
		if err != nil {
			t.Fatalf("SaveReport %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	recs, err := s.ListScans(ctx, 0)
	if err != nil {
		t.Fatalf("ListScans: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3", len(recs))
	}
	// Newest first.
	if recs[0].ID != ids[2] || recs[2].ID != ids[0] {
		t.Errorf("wrong order: %q %q %q, saved %q..%q", recs[0].ID, recs[1].ID, recs[2].ID, ids[0], ids[2])
	}
	if recs[0].TotalDetections != 1 || recs[0].TotalElements != 12 {
		t.Errorf("record fields = %+v", recs[0])
	}

	limited, err := s.ListScans(ctx, 2)
	if err != nil {
		t.Fatalf("ListScans(2): %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limited records = %d, want 2", len(limited))
	}
	if limited[0].ID != ids[2] {
		t.Errorf("limited[0] = %q, want newest %q", limited[0].ID, ids[2])
	}
}

func TestListScansByURL(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := s.SaveReport(ctx, testReport("https://a.example/", base)); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if _, err := s.SaveReport(ctx, testReport("https://b.example/", base.Add(time.Minute))); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if _, err := s.SaveReport(ctx, testReport("https://a.example/", base.Add(2*time.Minute))); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	recs, err := s.ListScansByURL(ctx, "https://a.example/", 0)
	if err != nil {
		t.Fatalf("ListScansByURL: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec.URL != "https://a.example/" {
			t.Errorf("record for wrong URL: %q", rec.URL)
		}
	}
	if !recs[0].CreatedAt.After(recs[1].CreatedAt) {
		t.Errorf("not newest first: %v then %v", recs[0].CreatedAt, recs[1].CreatedAt)
	}
}

func TestDeleteScan(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveReport(ctx, testReport("https://shop.example/", time.Now()))
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	if err := s.DeleteScan(ctx, id); err != nil {
		t.Fatalf("DeleteScan: %v", err)
	}
	if _, err := s.GetReport(ctx, id); !errors.Is(err, store.ErrScanNotFound) {
		t.Errorf("deleted scan still loadable: %v", err)
	}
	if err := s.DeleteScan(ctx, id); !errors.Is(err, store.ErrScanNotFound) {
		t.Errorf("double delete = %v, want ErrScanNotFound", err)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	if _, err := store.Open("", &testutil.DummyLogger{}); err == nil {
		t.Fatal("Open(\"\") did not error")
	}
}
