package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shiftnews/shift/internal/pipeline"
	"github.com/shiftnews/shift/internal/story"
)

// StoryRunner builds one story list per call.
type StoryRunner interface {
	Run(ctx context.Context, opts pipeline.Options) pipeline.Result
}

// StoriesHandler serves the assembled story list.
type StoriesHandler struct {
	Pipeline StoryRunner
}

// ListStories handles GET /api/stories?translate=1&limit=N.
// Every request runs the pipeline from scratch. The response is always 200;
// provenance and counts travel in X-Shift-* headers.
func (h *StoriesHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("stories: pipeline panic", "panic", rec)
			writeStoriesError(w, fmt.Sprint(rec))
		}
	}()

	opts := pipeline.Options{
		Translate: truthy(r.URL.Query().Get("translate")),
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		opts.Limit = limit
	}

	res := h.Pipeline.Run(r.Context(), opts)

	hdr := w.Header()
	hdr.Set("X-Shift-Data", res.Data)
	hdr.Set("X-Shift-Trans", res.Translation)
	hdr.Set("X-Shift-Trans-Count", strconv.Itoa(res.Translated))
	hdr.Set("X-Shift-Items", strconv.Itoa(res.Items))
	hdr.Set("X-Shift-Clusters", strconv.Itoa(res.Clusters))
	hdr.Set("X-Shift-Stories", strconv.Itoa(len(res.Stories)))
	hdr.Set("X-Shift-Run", res.RunID.String())

	stories := res.Stories
	if stories == nil {
		stories = []story.Story{}
	}
	writeJSON(w, http.StatusOK, stories)
}

func writeStoriesError(w http.ResponseWriter, reason string) {
	hdr := w.Header()
	hdr.Set("X-Shift-Data", pipeline.DataError)
	hdr.Set("X-Shift-Reason", headerSafe(reason))
	writeJSON(w, http.StatusOK, []story.Story{})
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// headerSafe keeps a reason printable ASCII and short enough for a header.
func headerSafe(s string) string {
	var b strings.Builder
	for _, r := range s {
		if b.Len() >= 200 {
			break
		}
		if r >= 0x20 && r < 0x7f {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.TrimSpace(b.String())
}
