// Package server exposes the scanner over HTTP and WebSocket: submit scans,
// browse stored reports, diff runs of the same page, and stream detections
// live as a scan progresses.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/raysh454/kage/docs/swagger"
	"github.com/raysh454/kage/internal/docview"
	"github.com/raysh454/kage/internal/engine"
	"github.com/raysh454/kage/internal/fetcher"
	"github.com/raysh454/kage/internal/logging"
	"github.com/raysh454/kage/internal/model"
	"github.com/raysh454/kage/internal/report"
	"github.com/raysh454/kage/internal/rules"
	"github.com/raysh454/kage/internal/store"
)

// Server is the HTTP + WebSocket API surface for Kage.
type Server struct {
	cfg      Config
	registry *rules.Registry
	renderer fetcher.Renderer
	store    *store.Store
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewServer creates a Server with its own rule registry, renderer and store.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}
	if cfg.Fetch == nil {
		cfg.Fetch = fetcher.DefaultConfig()
	}

	renderer, err := fetcher.NewRenderer(cfg.Fetch, logger)
	if err != nil {
		return nil, fmt.Errorf("creating renderer: %w", err)
	}

	st, err := store.Open(cfg.StorePath, logger)
	if err != nil {
		renderer.Close()
		return nil, fmt.Errorf("opening scan store: %w", err)
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:      cfg,
		registry: rules.NewDefaultRegistry(logger),
		renderer: renderer,
		store:    st,
		router:   r,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/scans", s.optionsHandler("GET, POST"))
	r.Options("/scans/compare", s.optionsHandler("POST"))
	r.Options("/scans/{scanID}", s.optionsHandler("GET, DELETE"))
	r.Options("/scans/{scanID}/summary", s.optionsHandler("GET"))
	r.Options("/rules", s.optionsHandler("GET"))
	r.Options("/ws/scans", s.optionsHandler("GET"))

	// Scans
	r.Post("/scans", s.handleStartScan)
	r.Get("/scans", s.handleListScans)
	r.Post("/scans/compare", s.handleCompareScans)
	r.Get("/scans/{scanID}", s.handleGetScan)
	r.Delete("/scans/{scanID}", s.handleDeleteScan)
	r.Get("/scans/{scanID}/summary", s.handleGetScanSummary)

	// Rules
	r.Get("/rules", s.handleListRules)

	// WebSocket for live detections
	r.Get("/ws/scans", s.handleScanWS)

	// Interactive API docs
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close releases the renderer and scan store.
func (s *Server) Close() {
	if s.renderer != nil {
		s.renderer.Close()
	}
	if s.store != nil {
		s.store.Close()
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// scanConfig merges request overrides onto the server scan defaults.
func (s *Server) scanConfig(req StartScanRequest) (model.Config, error) {
	cfg := s.cfg.Scan
	if req.ScanDepth != "" {
		depth := model.ScanDepth(req.ScanDepth)
		if !depth.Valid() {
			return cfg, fmt.Errorf("invalid scan_depth %q", req.ScanDepth)
		}
		cfg.ScanDepth = depth
	}
	if req.Workers > 0 {
		cfg.Workers = req.Workers
	}
	cfg.ExcludeSelectors = append(cfg.ExcludeSelectors, req.ExcludeSelectors...)
	return cfg, nil
}

// runScan renders the URL, analyzes it and returns the unsaved report.
func (s *Server) runScan(ctx context.Context, req StartScanRequest) (*model.ScanReport, error) {
	cfg, err := s.scanConfig(req)
	if err != nil {
		return nil, err
	}

	renderer := s.renderer
	if req.Backend != "" && req.Backend != s.cfg.Fetch.Backend {
		override := *s.cfg.Fetch
		override.Backend = req.Backend
		r, err := fetcher.NewRenderer(&override, s.logger)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		renderer = r
	}

	html, err := renderer.Render(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", req.URL, err)
	}

	view, err := docview.ParseHTML(html)
	if err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}

	eng := engine.New(view, s.registry, &cfg, s.logger)

	rep, err := eng.ScanPage(ctx)
	if err != nil {
		return nil, err
	}
	rep.URL = req.URL
	return rep, nil
}

// --- HTTP handlers ---

// handleStartScan scans a URL and stores the report.
//
//	@Summary      Scan a page
//	@Description  Renders the URL, runs dark pattern detection and stores the report.
//	@Accept       json
//	@Produce      json
//	@Param        request body StartScanRequest true "scan parameters"
//	@Success      201 {object} model.ScanReport
//	@Failure      400 {object} ErrorResponse
//	@Failure      500 {object} ErrorResponse
//	@Router       /scans [post]
func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var body StartScanRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	rep, err := s.runScan(r.Context(), body)
	if err != nil {
		s.logger.Warn("scanning page", logging.Field{Key: "url", Value: body.URL}, logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if _, err := s.store.SaveReport(r.Context(), rep); err != nil {
		s.logger.Warn("saving scan report", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.logger.Info("scanned page",
		logging.Field{Key: "scan_id", Value: rep.ID},
		logging.Field{Key: "url", Value: rep.URL},
		logging.Field{Key: "detections", Value: rep.Summary.TotalDetections},
	)
	writeJSON(w, http.StatusCreated, rep)
}

// handleListScans lists stored scans.
//
//	@Summary  List scans
//	@Produce  json
//	@Param    url   query string false "only scans of this URL"
//	@Param    limit query int    false "max records"
//	@Success  200 {array} store.ScanRecord
//	@Failure  500 {object} ErrorResponse
//	@Router   /scans [get]
func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if ls := r.URL.Query().Get("limit"); ls != "" {
		if v, err := strconv.Atoi(ls); err == nil && v > 0 {
			limit = v
		}
	}

	var (
		recs []store.ScanRecord
		err  error
	)
	if url := r.URL.Query().Get("url"); url != "" {
		recs, err = s.store.ListScansByURL(r.Context(), url, limit)
	} else {
		recs, err = s.store.ListScans(r.Context(), limit)
	}
	if err != nil {
		s.logger.Warn("listing scans", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// handleGetScan returns one stored report.
//
//	@Summary  Get a scan report
//	@Produce  json
//	@Param    scanID path string true "scan ID"
//	@Success  200 {object} model.ScanReport
//	@Failure  404 {object} ErrorResponse
//	@Router   /scans/{scanID} [get]
func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")
	rep, err := s.store.GetReport(r.Context(), scanID)
	if err != nil {
		if errors.Is(err, store.ErrScanNotFound) {
			writeError(w, http.StatusNotFound, "scan not found")
			return
		}
		s.logger.Warn("getting scan", logging.Field{Key: "scan_id", Value: scanID}, logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleGetScanSummary returns only the aggregated summary of a stored scan.
//
//	@Summary  Get a scan summary
//	@Produce  json
//	@Param    scanID path string true "scan ID"
//	@Success  200 {object} model.Summary
//	@Failure  404 {object} ErrorResponse
//	@Router   /scans/{scanID}/summary [get]
func (s *Server) handleGetScanSummary(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")
	rep, err := s.store.GetReport(r.Context(), scanID)
	if err != nil {
		if errors.Is(err, store.ErrScanNotFound) {
			writeError(w, http.StatusNotFound, "scan not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep.Summary)
}

// handleDeleteScan removes a stored scan.
//
//	@Summary  Delete a scan
//	@Param    scanID path string true "scan ID"
//	@Success  204
//	@Failure  404 {object} ErrorResponse
//	@Router   /scans/{scanID} [delete]
func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "scanID")
	if err := s.store.DeleteScan(r.Context(), scanID); err != nil {
		if errors.Is(err, store.ErrScanNotFound) {
			writeError(w, http.StatusNotFound, "scan not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("deleted scan", logging.Field{Key: "scan_id", Value: scanID})
	writeJSON(w, http.StatusNoContent, nil)
}

// handleCompareScans diffs two stored reports.
//
//	@Summary  Compare two scans
//	@Accept   json
//	@Produce  json
//	@Param    request body CompareScansRequest true "scan IDs to compare"
//	@Success  200 {object} report.ReportDiff
//	@Failure  400 {object} ErrorResponse
//	@Failure  404 {object} ErrorResponse
//	@Router   /scans/compare [post]
func (s *Server) handleCompareScans(w http.ResponseWriter, r *http.Request) {
	var body CompareScansRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.BaseID == "" || body.HeadID == "" {
		writeError(w, http.StatusBadRequest, "base_id and head_id are required")
		return
	}

	base, err := s.store.GetReport(r.Context(), body.BaseID)
	if err != nil {
		if errors.Is(err, store.ErrScanNotFound) {
			writeError(w, http.StatusNotFound, "base scan not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	head, err := s.store.GetReport(r.Context(), body.HeadID)
	if err != nil {
		if errors.Is(err, store.ErrScanNotFound) {
			writeError(w, http.StatusNotFound, "head scan not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	diff, err := report.Compare(base, head)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

// handleListRules lists the registered detection rules.
//
//	@Summary  List detection rules
//	@Produce  json
//	@Success  200 {array} RuleInfo
//	@Router   /rules [get]
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	var out []RuleInfo
	for _, rule := range s.registry.Rules() {
		out = append(out, RuleInfo{
			ID:       rule.ID,
			Name:     rule.Name,
			Category: string(rule.Category),
			Severity: string(rule.Severity),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// --- WebSocket ---

// scanEvent is one frame of the live scan stream.
type scanEvent struct {
	Type      string            `json:"type"` // "detection" | "summary" | "error"
	Detection *model.Detection  `json:"detection,omitempty"`
	Report    *model.ScanReport `json:"report,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// handleScanWS scans the URL from the query string and streams each detection
// as its own frame, followed by a summary frame carrying the stored report.
func (s *Server) handleScanWS(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	if url == "" {
		_ = conn.WriteJSON(scanEvent{Type: "error", Error: "url query parameter is required"})
		return
	}

	ctx := r.Context()
	req := StartScanRequest{
		URL:       url,
		Backend:   r.URL.Query().Get("backend"),
		ScanDepth: r.URL.Query().Get("scan_depth"),
	}

	rep, err := s.runScan(ctx, req)
	if err != nil {
		s.logger.Warn("scanning page", logging.Field{Key: "url", Value: url}, logging.Field{Key: "error", Value: err.Error()})
		_ = conn.WriteJSON(scanEvent{Type: "error", Error: err.Error()})
		return
	}

	if _, err := s.store.SaveReport(ctx, rep); err != nil {
		s.logger.Warn("saving scan report", logging.Field{Key: "error", Value: err.Error()})
	}

	for i := range rep.Detections {
		if err := conn.WriteJSON(scanEvent{Type: "detection", Detection: &rep.Detections[i]}); err != nil {
			// Client disconnected; the report is already stored.
			return
		}
	}
	_ = conn.WriteJSON(scanEvent{Type: "summary", Report: rep})
}
