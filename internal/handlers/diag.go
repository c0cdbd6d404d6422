package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shiftnews/shift/internal/config"
	"github.com/shiftnews/shift/internal/models"
	"github.com/shiftnews/shift/internal/story"
)

// HeadlineProber samples the headline API.
type HeadlineProber interface {
	Probe(ctx context.Context) (status int, count int, err error)
}

// RunLister lists archived pipeline runs.
type RunLister interface {
	List(ctx context.Context, f models.RunFilter) ([]models.Run, error)
}

// DiagHandler groups the diagnostic endpoints. Translator, Headlines and
// Runs may each be nil.
type DiagHandler struct {
	Config     config.Config
	Sources    int
	Translator story.Translator
	Headlines  HeadlineProber
	Runs       RunLister
}

type headlineDiag struct {
	Configured bool   `json:"configured"`
	Status     int    `json:"status,omitempty"`
	Count      int    `json:"count"`
	Error      string `json:"error,omitempty"`
}

// Diag handles GET /api/diag.
// Reports which credentials are present (never their values), the feed and
// source counts, the translation backend and a headline API sample.
func (h *DiagHandler) Diag(w http.ResponseWriter, r *http.Request) {
	cfg := h.Config

	hl := headlineDiag{Configured: h.Headlines != nil}
	if h.Headlines != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()
		status, count, err := h.Headlines.Probe(ctx)
		hl.Status, hl.Count = status, count
		if err != nil {
			hl.Error = err.Error()
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"env": map[string]bool{
			"OPENAI_API_KEY": cfg.OpenAI.APIKey != "",
			"GEMINI_API_KEY": cfg.Gemini.APIKey != "",
			"NEWS_API_KEY":   cfg.NewsAPI.APIKey != "",
			"DB_HOST":        cfg.DB.Enabled(),
			"S3_ENDPOINT":    cfg.S3.Endpoint != "",
		},
		"feeds":   len(cfg.Feeds.List),
		"sources": h.Sources,
		"translate": map[string]any{
			"backend":     cfg.Translate.Backend,
			"key_present": cfg.TranslatorKey() != "",
			"available":   h.Translator != nil,
			"always":      cfg.Translate.Always,
			"batch_cap":   cfg.Translate.BatchCap,
		},
		"headlines": hl,
		"time":      time.Now().UTC(),
	})
}

var probePair = story.Pair{
	Title:   "Dubai Metro extends operating hours for the holiday weekend",
	Summary: "The Roads and Transport Authority said trains will run until 2am.",
}

// DiagTranslator handles GET /api/diag/translator.
// Sends a one-item EN to AR batch and reports the outcome.
func (h *DiagHandler) DiagTranslator(w http.ResponseWriter, r *http.Request) {
	backend := h.Config.Translate.Backend
	if h.Translator == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      false,
			"backend": backend,
			"status":  "missing-key",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	start := time.Now()
	out, err := h.Translator.Translate(ctx, story.AR, []story.Pair{probePair})
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		slog.Warn("diag: translator probe failed", "backend", backend, "err", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":         false,
			"backend":    backend,
			"status":     "error",
			"error":      err.Error(),
			"elapsed_ms": elapsed,
		})
		return
	}

	ok := len(out) == 1 && story.IsNative(out[0].Title, story.AR)
	resp := map[string]any{
		"ok":         ok,
		"backend":    backend,
		"status":     "ok",
		"elapsed_ms": elapsed,
	}
	if len(out) > 0 {
		resp["sample"] = out[0]
	}
	if !ok {
		resp["status"] = "unexpected-response"
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRuns handles GET /api/diag/runs?limit=20&status=live.
func (h *DiagHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.Runs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "run archive not configured"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	filter := models.RunFilter{
		Data:  r.URL.Query().Get("status"),
		Limit: limit,
	}
	if since := r.URL.Query().Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be RFC3339"})
			return
		}
		filter.Since = t
	}

	runs, err := h.Runs.List(r.Context(), filter)
	if err != nil {
		slog.Error("list runs", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	if runs == nil {
		runs = []models.Run{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}
