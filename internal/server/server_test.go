package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/raysh454/kage/internal/fetcher"
	"github.com/raysh454/kage/internal/logging"
	"github.com/raysh454/kage/internal/model"
	"github.com/raysh454/kage/internal/report"
	"github.com/raysh454/kage/internal/server"
	"github.com/raysh454/kage/internal/store"
	"github.com/raysh454/kage/internal/testutil"
)

const (
	darkURL  = "https://fixture.test/dark"
	cleanURL = "https://fixture.test/clean"
)

const darkPage = `<html><body>
  <a href="/decline">No thanks, I hate saving money</a>
  <div class="countdown-timer">Hurry! Offer expires in 10 minutes</div>
</body></html>`

const cleanPage = `<html><body><p>Nothing to see here.</p></body></html>`

// newTestServer wires the API against a fixture renderer and a throwaway
// store.
func newTestServer(t *testing.T) *server.Server {
	t.Helper()

	fetcher.RegisterBackend("fixture", func(cfg *fetcher.Config, logger logging.Logger) (fetcher.Renderer, error) {
		return &testutil.DummyRenderer{Pages: map[string]string{
			darkURL:  darkPage,
			cleanURL: cleanPage,
		}}, nil
	})

	cfg := server.DefaultConfig()
	cfg.StorePath = filepath.Join(t.TempDir(), "kage.db")
	cfg.Fetch.Backend = "fixture"
	cfg.Logger = &testutil.DummyLogger{}

	s, err := server.NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func doJSON(t *testing.T, s *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func startScan(t *testing.T, s *server.Server, url string) model.ScanReport {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/scans", server.StartScanRequest{URL: url})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /scans = %d: %s", rec.Code, rec.Body.String())
	}
	var rep model.ScanReport
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return rep
}

func TestStartScan(t *testing.T) {
	s := newTestServer(t)

	rep := startScan(t, s, darkURL)
	if rep.ID == "" {
		t.Error("stored report has no ID")
	}
	if rep.URL != darkURL {
		t.Errorf("URL = %q, want %q", rep.URL, darkURL)
	}
	if len(rep.Detections) == 0 {
		t.Fatal("dark fixture produced no detections")
	}
	if rep.Summary.TotalDetections != len(rep.Detections) {
		t.Errorf("summary total = %d, detections = %d",
			rep.Summary.TotalDetections, len(rep.Detections))
	}
}

func TestStartScan_BadRequests(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/scans", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON = %d, want 400", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/scans", server.StartScanRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing url = %d, want 400", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/scans",
		server.StartScanRequest{URL: darkURL, ScanDepth: "recursive"})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("invalid scan_depth = %d, want 500", rec.Code)
	}
}

func TestStartScan_RenderFailure(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/scans",
		server.StartScanRequest{URL: "https://fixture.test/missing"})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("unknown fixture = %d, want 500", rec.Code)
	}
}

func TestListScans(t *testing.T) {
	s := newTestServer(t)
	startScan(t, s, darkURL)
	startScan(t, s, cleanURL)

	rec := doJSON(t, s, http.MethodGet, "/scans", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /scans = %d", rec.Code)
	}
	var recs []store.ScanRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}

	rec = doJSON(t, s, http.MethodGet, "/scans?url="+cleanURL, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
		t.Fatalf("decode filtered records: %v", err)
	}
	if len(recs) != 1 || recs[0].URL != cleanURL {
		t.Errorf("filtered records = %+v", recs)
	}
}

func TestGetScan(t *testing.T) {
	s := newTestServer(t)
	rep := startScan(t, s, darkURL)

	rec := doJSON(t, s, http.MethodGet, "/scans/"+rep.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /scans/{id} = %d", rec.Code)
	}
	var got model.ScanReport
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if got.ID != rep.ID || len(got.Detections) != len(rep.Detections) {
		t.Errorf("stored report differs: %+v", got)
	}

	rec = doJSON(t, s, http.MethodGet, "/scans/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing scan = %d, want 404", rec.Code)
	}
}

func TestGetScanSummary(t *testing.T) {
	s := newTestServer(t)
	rep := startScan(t, s, darkURL)

	rec := doJSON(t, s, http.MethodGet, "/scans/"+rep.ID+"/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET summary = %d", rec.Code)
	}
	var sum model.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.TotalDetections != rep.Summary.TotalDetections {
		t.Errorf("summary total = %d, want %d", sum.TotalDetections, rep.Summary.TotalDetections)
	}
}

func TestDeleteScan(t *testing.T) {
	s := newTestServer(t)
	rep := startScan(t, s, darkURL)

	rec := doJSON(t, s, http.MethodDelete, "/scans/"+rep.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE = %d, want 204", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/scans/"+rep.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted scan still served: %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/scans/"+rep.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete = %d, want 404", rec.Code)
	}
}

func TestCompareScans(t *testing.T) {
	s := newTestServer(t)
	base := startScan(t, s, darkURL)
	head := startScan(t, s, cleanURL)

	rec := doJSON(t, s, http.MethodPost, "/scans/compare",
		server.CompareScansRequest{BaseID: base.ID, HeadID: head.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /scans/compare = %d: %s", rec.Code, rec.Body.String())
	}
	var diff report.ReportDiff
	if err := json.Unmarshal(rec.Body.Bytes(), &diff); err != nil {
		t.Fatalf("decode diff: %v", err)
	}
	if diff.BaseTotal == 0 || diff.HeadTotal != 0 {
		t.Errorf("totals = %d/%d", diff.BaseTotal, diff.HeadTotal)
	}
	for _, c := range diff.Changes {
		if c.Kind != "detection_resolved" {
			t.Errorf("dark to clean produced %q change", c.Kind)
		}
	}
	if len(diff.Changes) == 0 {
		t.Error("no resolved detections in diff")
	}

	rec = doJSON(t, s, http.MethodPost, "/scans/compare",
		server.CompareScansRequest{BaseID: "nope", HeadID: head.ID})
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing base = %d, want 404", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/scans/compare", server.CompareScansRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty IDs = %d, want 400", rec.Code)
	}
}

func TestListRules(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/rules", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /rules = %d", rec.Code)
	}
	var rules []server.RuleInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &rules); err != nil {
		t.Fatalf("decode rules: %v", err)
	}
	if len(rules) == 0 {
		t.Fatal("no rules listed")
	}
	for _, r := range rules {
		if r.ID == "" || r.Category == "" || r.Severity == "" {
			t.Errorf("incomplete rule info: %+v", r)
		}
	}
}

func TestCORSHeaders(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/scans", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("OPTIONS /scans = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
		t.Errorf("Allow-Methods = %q", got)
	}
}

func TestScanWS(t *testing.T) {
	s := newTestServer(t)

	srv := httptest.NewServer(s)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/scans?url=" + darkURL
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	detections := 0
	for {
		var ev struct {
			Type      string            `json:"type"`
			Detection *model.Detection  `json:"detection"`
			Report    *model.ScanReport `json:"report"`
			Error     string            `json:"error"`
		}
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		switch ev.Type {
		case "detection":
			if ev.Detection == nil {
				t.Fatal("detection frame without payload")
			}
			detections++
		case "summary":
			if ev.Report == nil || ev.Report.ID == "" {
				t.Fatalf("summary frame missing stored report: %+v", ev.Report)
			}
			if detections != len(ev.Report.Detections) {
				t.Errorf("streamed %d detections, report has %d",
					detections, len(ev.Report.Detections))
			}
			if detections == 0 {
				t.Error("no detection frames before summary")
			}
			return
		case "error":
			t.Fatalf("error frame: %s", ev.Error)
		default:
			t.Fatalf("unknown frame type %q", ev.Type)
		}
	}
}

func TestScanWS_MissingURL(t *testing.T) {
	s := newTestServer(t)

	srv := httptest.NewServer(s)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/scans"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var ev struct {
		Type  string `json:"type"`
		Error string `json:"error"`
	}
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if ev.Type != "error" || ev.Error == "" {
		t.Fatalf("expected error frame, got %+v", ev)
	}
}
