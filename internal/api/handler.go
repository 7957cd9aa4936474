// Package api implements the siteaudit REST API.
// It runs audits on demand and serves the stored current payload.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/siteaudit/siteaudit/pkg/audit"
	"github.com/siteaudit/siteaudit/pkg/cachelayers"
	"github.com/siteaudit/siteaudit/pkg/checks"
	"github.com/siteaudit/siteaudit/pkg/seo"
	"github.com/siteaudit/siteaudit/pkg/siteinfo"
)

// maxBodyBytes bounds audit request bodies.
const maxBodyBytes = 1 << 16

// Options holds the collaborators used outside the audit runner.
type Options struct {
	Fetcher    checks.Fetcher
	Site       checks.SiteStats  // nil without a site database
	SiteDB     siteinfo.Database // nil without a site database
	HomeURL    string            // default target when a request names none
	ContentDir string            // wp-content directory for drop-in detection
	Ping       func(ctx context.Context) error
}

// Handler is the top-level API handler for the siteaudit service.
type Handler struct {
	runner *audit.Runner
	opts   Options
	info   *siteinfo.Collector
}

// NewHandler creates a new API handler.
func NewHandler(runner *audit.Runner, opts Options) *Handler {
	if opts.Fetcher == nil && runner != nil {
		opts.Fetcher = runner.Fetcher
	}
	return &Handler{
		runner: runner,
		opts:   opts,
		info:   siteinfo.NewCollector(opts.Fetcher, opts.SiteDB, opts.HomeURL),
	}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Write endpoints (auth-protected by the caller)
	mux.HandleFunc("POST /api/v1/audits", h.handleRunAudit)

	// Read endpoints
	mux.HandleFunc("GET /api/v1/audits/current", h.handleCurrent)
	mux.HandleFunc("GET /api/v1/seo", h.handleSEO)
	mux.HandleFunc("GET /api/v1/cache-layers", h.handleCacheLayers)
	mux.HandleFunc("GET /api/v1/site-info", h.handleSiteInfo)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

func (h *Handler) handleRunAudit(w http.ResponseWriter, r *http.Request) {
	var req audit.Request
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}
	if strings.TrimSpace(req.URL) == "" {
		req.URL = h.opts.HomeURL
	}

	p, err := h.runner.Run(r.Context(), req)
	if errors.Is(err, audit.ErrMissingURL) {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if err != nil {
		log.Printf("audit %s: %v", req.URL, err)
		writeError(w, http.StatusInternalServerError, "audit failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	p, err := h.runner.Current(r.Context())
	if errors.Is(err, audit.ErrNoPayload) {
		writeError(w, http.StatusNotFound, "no audit has been run yet")
		return
	}
	if err != nil {
		log.Printf("load current payload: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load payload: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleSEO(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target == "" {
		target = h.opts.HomeURL
	}
	if target == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if h.opts.Fetcher == nil {
		writeError(w, http.StatusServiceUnavailable, "fetcher not configured")
		return
	}
	writeJSON(w, http.StatusOK, seo.Run(r.Context(), h.opts.Fetcher, target))
}

func (h *Handler) handleCacheLayers(w http.ResponseWriter, r *http.Request) {
	if h.opts.Fetcher == nil {
		writeError(w, http.StatusServiceUnavailable, "fetcher not configured")
		return
	}
	report := cachelayers.Scan(r.Context(), h.opts.Fetcher, h.opts.Site, h.opts.HomeURL, h.opts.ContentDir)
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) handleSiteInfo(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh")
	writeJSON(w, http.StatusOK, h.info.Collect(r.Context(), refresh == "1" || refresh == "true"))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.opts.Ping != nil {
		if err := h.opts.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unhealthy: "+err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
