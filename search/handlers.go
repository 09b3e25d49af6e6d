// Package search exposes the rank, section and estimate checks over HTTP.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"serprank/checker"
	"serprank/config"
	"serprank/history"
	"serprank/report"
	"serprank/searchapi"
	"serprank/serp"
)

// RankChecker is the part of checker.Checker the handlers need.
type RankChecker interface {
	Check(ctx context.Context, req checker.Request) checker.RankResult
	CheckBatch(ctx context.Context, base checker.Request, keywords []string, onResult func(checker.RankResult)) ([]checker.RankResult, error)
	Sections(ctx context.Context, keyword, device string) (checker.SectionsResult, error)
}

// Estimator is the part of searchapi.Service the handlers need.
type Estimator interface {
	EstimateKeyword(ctx context.Context, keyword string) (searchapi.KeywordEstimate, error)
}

// HistoryStore is the part of history.Store the handlers need.
type HistoryStore interface {
	Record(ctx context.Context, r checker.RankResult, at time.Time) error
	Recent(ctx context.Context, keyword string, limit int) ([]history.Entry, error)
}

// Handlers serves the HTTP API. Estimator, History and Metrics may be nil,
// in which case their routes answer 503 or 404.
type Handlers struct {
	Checker   RankChecker
	Estimator Estimator
	History   HistoryStore
	Metrics   http.Handler
	Logger    logrus.FieldLogger

	now func() time.Time
}

// Register mounts every route on router.
func (h *Handlers) Register(router *mux.Router) {
	router.HandleFunc("/rank/{keyword}", h.RankHandler).Methods("GET")
	router.HandleFunc("/sections/{keyword}", h.SectionsHandler).Methods("GET")
	router.HandleFunc("/estimate/{keyword}", h.EstimateHandler).Methods("GET")
	router.HandleFunc("/similarity/{main}/{candidate}", h.SimilarityHandler).Methods("GET")
	router.HandleFunc("/batch", h.BatchHandler).Methods("POST")
	router.HandleFunc("/history/{keyword}", h.HistoryHandler).Methods("GET")
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics)
	}
}

func (h *Handlers) timeNow() time.Time {
	if h.now != nil {
		return h.now()
	}
	return time.Now()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	jsonData, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		http.Error(w, "Error marshaling to JSON", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonData)
}

// splitList splits a comma separated query value, dropping blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func validDevice(device string) bool {
	if device == "" {
		return true
	}
	_, ok := config.Endpoints[device]
	return ok
}

// RankHandler serves GET /rank/{keyword}?snippet=|nickname=&device=&tab=.
func (h *Handlers) RankHandler(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(mux.Vars(r)["keyword"])
	if keyword == "" {
		http.Error(w, "Keyword parameter is required", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()
	req := checker.Request{
		Keyword:   keyword,
		Device:    q.Get("device"),
		Tab:       q.Get("tab"),
		Snippet:   q.Get("snippet"),
		Nicknames: splitList(q["nickname"]),
	}
	if req.Snippet != "" && len(req.Nicknames) > 0 {
		http.Error(w, "Use either snippet or nickname, not both", http.StatusBadRequest)
		return
	}
	if req.Snippet == "" && len(req.Nicknames) == 0 {
		http.Error(w, "A snippet or nickname parameter is required", http.StatusBadRequest)
		return
	}
	if !validDevice(req.Device) {
		http.Error(w, "Invalid device", http.StatusBadRequest)
		return
	}

	res := h.Checker.Check(r.Context(), req)
	writeJSON(w, http.StatusOK, res)
}

// SectionsHandler serves GET /sections/{keyword}?device=&mode=dom|pattern.
func (h *Handlers) SectionsHandler(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(mux.Vars(r)["keyword"])
	if keyword == "" {
		http.Error(w, "Keyword parameter is required", http.StatusBadRequest)
		return
	}
	device := r.URL.Query().Get("device")
	if !validDevice(device) {
		http.Error(w, "Invalid device", http.StatusBadRequest)
		return
	}
	mode := r.URL.Query().Get("mode")
	if mode != "" && mode != "dom" && mode != "pattern" {
		http.Error(w, "Invalid mode", http.StatusBadRequest)
		return
	}

	res, err := h.Checker.Sections(r.Context(), keyword, device)
	if err != nil {
		h.Logger.WithError(err).WithField("keyword", keyword).Error("section outline failed")
		status := http.StatusInternalServerError
		if errors.Is(err, checker.ErrBlocked) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, "Error outlining sections", status)
		return
	}
	switch mode {
	case "dom":
		res.Patterns, res.OnlyDOM, res.OnlyPattern = nil, nil, nil
	case "pattern":
		res.Sections, res.OnlyDOM, res.OnlyPattern = nil, nil, nil
	}
	writeJSON(w, http.StatusOK, res)
}

// EstimateHandler serves GET /estimate/{keyword}. A partial failure still
// answers 200 with the failing kinds carrying an error message.
func (h *Handlers) EstimateHandler(w http.ResponseWriter, r *http.Request) {
	if h.Estimator == nil {
		http.Error(w, "Search API is not configured", http.StatusServiceUnavailable)
		return
	}
	keyword := strings.TrimSpace(mux.Vars(r)["keyword"])
	if keyword == "" {
		http.Error(w, "Keyword parameter is required", http.StatusBadRequest)
		return
	}

	res, err := h.Estimator.EstimateKeyword(r.Context(), keyword)
	if err != nil && !errors.Is(err, searchapi.ErrPartial) {
		h.Logger.WithError(err).WithField("keyword", keyword).Error("estimate failed")
		http.Error(w, "Error estimating volume", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type similarityResponse struct {
	Main      string               `json:"main"`
	Candidate string               `json:"candidate"`
	Tier      serp.SimilarityTier  `json:"tier"`
	Related   []serp.ScoredKeyword `json:"related,omitempty"`
}

// SimilarityHandler serves GET /similarity/{main}/{candidate}. Extra
// candidates passed as ?related=a,b are filtered and ordered.
func (h *Handlers) SimilarityHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	main, candidate := vars["main"], vars["candidate"]
	if strings.TrimSpace(main) == "" || strings.TrimSpace(candidate) == "" {
		http.Error(w, "Both keywords are required", http.StatusBadRequest)
		return
	}
	res := similarityResponse{
		Main:      main,
		Candidate: candidate,
		Tier:      serp.Similarity(main, candidate),
	}
	if related := splitList(r.URL.Query()["related"]); len(related) > 0 {
		res.Related = serp.FilterSimilar(main, related)
	}
	writeJSON(w, http.StatusOK, res)
}

// BatchRequest is the body of POST /batch.
type BatchRequest struct {
	Keywords  []string `json:"keywords"`
	Device    string   `json:"device,omitempty"`
	Tab       string   `json:"tab,omitempty"`
	Snippet   string   `json:"snippet,omitempty"`
	Nicknames []string `json:"nicknames,omitempty"`
	Format    string   `json:"format,omitempty"`
}

const maxBatchKeywords = 200

// BatchHandler serves POST /batch. Results are recorded to history and
// returned as JSON, or as a spreadsheet when format is "xlsx".
func (h *Handlers) BatchHandler(w http.ResponseWriter, r *http.Request) {
	var body BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	keywords := splitList(body.Keywords)
	if len(keywords) == 0 {
		http.Error(w, "At least one keyword is required", http.StatusBadRequest)
		return
	}
	if len(keywords) > maxBatchKeywords {
		http.Error(w, "Too many keywords, limit is "+strconv.Itoa(maxBatchKeywords), http.StatusBadRequest)
		return
	}
	if body.Format != "" && body.Format != "json" && body.Format != "xlsx" {
		http.Error(w, "Invalid format", http.StatusBadRequest)
		return
	}
	if !validDevice(body.Device) {
		http.Error(w, "Invalid device", http.StatusBadRequest)
		return
	}

	base := checker.Request{
		Device:    body.Device,
		Tab:       body.Tab,
		Snippet:   body.Snippet,
		Nicknames: body.Nicknames,
	}
	ctx := r.Context()
	results, err := h.Checker.CheckBatch(ctx, base, keywords, func(res checker.RankResult) {
		if h.History == nil {
			return
		}
		if err := h.History.Record(context.WithoutCancel(ctx), res, h.timeNow()); err != nil {
			h.Logger.WithError(err).WithField("keyword", res.Keyword).Warn("failed to record history")
		}
	})
	if err != nil {
		// the client went away; nothing left to answer
		h.Logger.WithError(err).WithField("done", len(results)).Warn("batch interrupted")
		return
	}

	if body.Format == "xlsx" {
		var buf bytes.Buffer
		if err := report.WriteXLSX(&buf, results); err != nil {
			http.Error(w, "Error writing report", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="rank.xlsx"`)
		w.Write(buf.Bytes())
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// HistoryHandler serves GET /history/{keyword}?limit=.
func (h *Handlers) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		http.Error(w, "History is not configured", http.StatusNotFound)
		return
	}
	keyword := strings.TrimSpace(mux.Vars(r)["keyword"])
	if keyword == "" {
		http.Error(w, "Keyword parameter is required", http.StatusBadRequest)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit parameter", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.History.Recent(r.Context(), keyword, limit)
	if err != nil {
		h.Logger.WithError(err).WithField("keyword", keyword).Error("history lookup failed")
		http.Error(w, "Error reading history", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
