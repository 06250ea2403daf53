package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/export"
)

const (
	defaultPerPage = 50
	exportLimit    = 10_000
)

type channelPage struct {
	Channels   []crawler.Channel `json:"channels"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PerPage    int               `json:"per_page"`
	TotalPages int64             `json:"total_pages"`
}

func (s *Server) listChannels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := intParam(q, "page", 1, 1)
	perPage := intParam(q, "per_page", defaultPerPage, 1)
	filter := channelFilter(q)

	channels, err := s.store.ListChannels(r.Context(), crawler.ListOptions{
		Filter: filter,
		SortBy: crawler.SortKey(q.Get("sort_by")),
		Order:  crawler.SortOrder(q.Get("sort_order")),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	total, err := s.store.CountChannels(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if channels == nil {
		channels = []crawler.Channel{}
	}
	writeJSON(w, http.StatusOK, channelPage{
		Channels:   channels,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: (total + int64(perPage) - 1) / int64(perPage),
	})
}

type updateEmailedRequest struct {
	ChannelIDs []int64 `json:"channel_ids"`
	Emailed    *bool   `json:"emailed"`
}

func (s *Server) updateEmailed(w http.ResponseWriter, r *http.Request) {
	var req updateEmailedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	emailed := req.Emailed == nil || *req.Emailed
	updated, err := s.store.MarkEmailed(r.Context(), req.ChannelIDs, emailed, currentUser(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated": updated})
}

type updateNotesRequest struct {
	ChannelID int64  `json:"channel_id"`
	Notes     string `json:"notes"`
}

func (s *Server) updateNotes(w http.ResponseWriter, r *http.Request) {
	var req updateNotesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ChannelID <= 0 {
		writeError(w, http.StatusBadRequest, "channel_id is required")
		return
	}
	updated, err := s.store.UpdateNotes(r.Context(), req.ChannelID, req.Notes, currentUser(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated": updated})
}

type updateReplyRequest struct {
	ChannelID     int64 `json:"channel_id"`
	ReplyReceived bool  `json:"reply_received"`
}

func (s *Server) updateReply(w http.ResponseWriter, r *http.Request) {
	var req updateReplyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ChannelID <= 0 {
		writeError(w, http.StatusBadRequest, "channel_id is required")
		return
	}
	updated, err := s.store.SetReplyStatus(r.Context(), req.ChannelID, req.ReplyReceived, currentUser(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !updated {
		writeError(w, http.StatusNotFound, "Channel not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type statsResponse struct {
	Total           int64   `json:"total"`
	Emailed         int64   `json:"emailed"`
	NotEmailed      int64   `json:"not_emailed"`
	RepliesReceived int64   `json:"replies_received"`
	NoReplies       int64   `json:"no_replies"`
	ReplyRate       float64 `json:"reply_rate"`
	MyEmailed       int64   `json:"my_emailed"`
	MyReplies       int64   `json:"my_replies"`
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	yes, no := true, false
	filters := []crawler.ChannelFilter{
		{},
		{Emailed: &yes},
		{Emailed: &no},
		{ReplyReceived: &yes},
		{ReplyReceived: &no},
	}
	counts := make([]int64, len(filters))
	for i, f := range filters {
		n, err := s.store.CountChannels(r.Context(), f)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		counts[i] = n
	}
	mine, err := s.store.UserStats(r.Context(), currentUser(r).ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	resp := statsResponse{
		Total:           counts[0],
		Emailed:         counts[1],
		NotEmailed:      counts[2],
		RepliesReceived: counts[3],
		NoReplies:       counts[4],
		MyEmailed:       mine.ChannelsEmailed,
		MyReplies:       mine.RepliesReceived,
	}
	if resp.Emailed > 0 {
		resp.ReplyRate = math.Round(float64(resp.RepliesReceived)/float64(resp.Emailed)*1000) / 10
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.Analytics(r.Context(), s.clock.Now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func (s *Server) filterOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.store.FilterOptions(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"keywords":  nonNil(opts.Keywords),
		"countries": nonNil(opts.Countries),
	})
}

// activity lists audit entries. Non-admins asking for a user's entries only
// ever get their own.
func (s *Server) activity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := crawler.ActivityQuery{
		Limit:  intParam(q, "limit", 0, 1),
		UserID: int64Param(q, "user_id"),
		Action: q.Get("action"),
	}
	if u := currentUser(r); query.UserID != nil && !u.IsAdmin() {
		id := u.ID
		query.UserID = &id
	}
	entries, err := s.store.ListActivity(r.Context(), query)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []crawler.ActivityEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "activities": entries})
}

func (s *Server) exportChannels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := export.ParseFormat(q.Get("format"))
	channels, err := s.store.ListChannels(r.Context(), crawler.ListOptions{
		Filter: channelFilter(q),
		Limit:  exportLimit,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	file, err := export.Render(format, channels)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if s.archiver != nil {
		uri, archErr := s.archiver.Archive(r.Context(), file)
		switch {
		case archErr != nil:
			s.logger.Warn("archive export", zap.Error(archErr))
		case uri != "":
			w.Header().Set("X-Archive-URI", uri)
		}
	}
	s.logActivity(r, crawler.ActivityEntry{
		Action:  crawler.ActionExportChannels,
		Details: fmt.Sprintf("Exported %d channels as %s", file.Rows, format),
	})

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Data); err != nil {
		s.logger.Warn("write export", zap.Error(err))
	}
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
