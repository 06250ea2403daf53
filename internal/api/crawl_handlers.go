package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/discovery"
)

type fetchRequest struct {
	MaxResults     int64 `json:"max_results"`
	TargetChannels int   `json:"target_channels"`
}

// fetch runs one discovery pass in the request goroutine.
func (s *Server) fetch(w http.ResponseWriter, r *http.Request) {
	var req fetchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	u := currentUser(r)
	params := discovery.Params{
		TargetChannels: valueOr(req.TargetChannels, s.cfg.YouTube.TargetChannels),
		MaxResults:     valueOr(req.MaxResults, s.cfg.YouTube.MaxResults),
		MaxSubscribers: s.cfg.YouTube.MaxSubscribers,
		TriggeredBy:    &u.ID,
	}
	res, err := s.crawler.Crawl(r.Context(), params)
	if err != nil {
		s.logger.Warn("crawl aborted",
			zap.String("run_id", res.RunID),
			zap.Int("new_channels", res.NewChannels),
			zap.Error(err))
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"message":        fmt.Sprintf("Successfully fetched %d new channels", res.NewChannels),
		"run_id":         res.RunID,
		"new_channels":   res.NewChannels,
		"total_fetched":  res.TotalFetched,
		"skipped":        res.Skipped,
		"target_reached": res.TargetReached,
	})
}

func (s *Server) rescore(w http.ResponseWriter, r *http.Request) {
	changed, err := s.store.RecomputePriorityScores(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logActivity(r, crawler.ActivityEntry{
		Action:  crawler.ActionRescore,
		Details: fmt.Sprintf("Rescored %d channels", changed),
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated": changed})
}

type analyzeRequest struct {
	ChannelURL string `json:"channel_url"`
}

// analyze is public: it never touches the store.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	input := strings.TrimSpace(req.ChannelURL)
	if input == "" {
		writeError(w, http.StatusBadRequest, "Channel URL is required")
		return
	}
	report, ok, err := s.analyzer.Analyze(r.Context(), input)
	switch {
	case errors.Is(err, crawler.ErrQuotaExceeded):
		writeError(w, http.StatusServiceUnavailable, quotaMessage)
		return
	case err != nil:
		s.logger.Warn("analyze channel", zap.String("input", input), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error analyzing channel: "+err.Error())
		return
	case !ok:
		writeError(w, http.StatusNotFound,
			"Channel not found or invalid URL. Please check that the URL is correct and try again.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "channel": report})
}

func valueOr[T int | int64](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}
