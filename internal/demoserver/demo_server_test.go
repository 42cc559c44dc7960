package demoserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestDemoServer() *DemoServer {
	return NewDemoServer(DefaultConfig())
}

func getPage(t *testing.T, s *DemoServer, path string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	s.pageHandler(path)(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s = %d", path, rec.Code)
	}
	return rec.Body.String()
}

func TestPageHandler_DarkVariantByDefault(t *testing.T) {
	s := newTestDemoServer()

	body := getPage(t, s, "/checkout")
	if !strings.Contains(body, "renews automatically") {
		t.Errorf("dark checkout variant missing the auto-renewing upsell")
	}
}

func TestSetVersion_SwitchesVariant(t *testing.T) {
	s := newTestDemoServer()

	dark := getPage(t, s, "/newsletter")

	form := url.Values{"path": {"/newsletter"}, "version": {"2"}}
	req := httptest.NewRequest(http.MethodPost, "/demo/set-version", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.setVersionHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("set-version = %d", rec.Code)
	}

	clean := getPage(t, s, "/newsletter")
	if clean == dark {
		t.Fatal("variant did not change after set-version")
	}
	if strings.Contains(clean, "I hate saving money") {
		t.Error("cleaned variant still carries the confirmshaming link")
	}
}

func TestSetVersion_RequiresPost(t *testing.T) {
	s := newTestDemoServer()

	rec := httptest.NewRecorder()
	s.setVersionHandler(rec, httptest.NewRequest(http.MethodGet, "/demo/set-version", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET set-version = %d, want 405", rec.Code)
	}
}

func TestPageHandler_FallsBackToLowerVariant(t *testing.T) {
	s := newTestDemoServer()

	form := url.Values{"path": {"/sale"}, "version": {"9"}}
	req := httptest.NewRequest(http.MethodPost, "/demo/set-version", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.setVersionHandler(httptest.NewRecorder(), req)

	body := getPage(t, s, "/sale")
	if body == "" {
		t.Fatal("no fallback variant served for an unknown version")
	}
}

func TestResetVersions(t *testing.T) {
	s := newTestDemoServer()

	form := url.Values{"path": {"/account"}, "version": {"2"}}
	req := httptest.NewRequest(http.MethodPost, "/demo/set-version", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.setVersionHandler(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	s.resetVersionsHandler(rec, httptest.NewRequest(http.MethodPost, "/demo/reset", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("reset = %d", rec.Code)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for path, v := range s.versions {
		if v != 1 {
			t.Errorf("%s at v%d after reset, want v1", path, v)
		}
	}
}

func TestGetVersions(t *testing.T) {
	s := newTestDemoServer()

	rec := httptest.NewRecorder()
	s.getVersionsHandler(rec, httptest.NewRequest(http.MethodGet, "/demo/get-versions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get-versions = %d", rec.Code)
	}

	var pages []struct {
		Path              string `json:"path"`
		CurrentVersion    int    `json:"current_version"`
		AvailableVersions []int  `json:"available_versions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &pages); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(pages) != len(GetAllPages()) {
		t.Errorf("pages = %d, want %d", len(pages), len(GetAllPages()))
	}
	for _, p := range pages {
		if p.CurrentVersion != 1 {
			t.Errorf("%s starts at v%d, want v1", p.Path, p.CurrentVersion)
		}
		if len(p.AvailableVersions) < 2 {
			t.Errorf("%s has %d variants, want at least dark and clean", p.Path, len(p.AvailableVersions))
		}
	}
}
