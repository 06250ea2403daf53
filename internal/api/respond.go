package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/crawler"
)

const quotaMessage = "API quota exceeded. Please try again later."

// decodeJSON reads an optional JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// writeServiceError maps domain sentinels onto status codes. Anything
// unrecognized is a 500 carrying the error text.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, crawler.ErrQuotaExceeded):
		writeError(w, http.StatusServiceUnavailable, quotaMessage)
	case errors.Is(err, crawler.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, crawler.ErrConflict):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("request failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// channelFilter reads the shared list/export filter parameters.
func channelFilter(q url.Values) crawler.ChannelFilter {
	return crawler.ChannelFilter{
		Emailed:        boolParam(q, "emailed"),
		Search:         strings.TrimSpace(q.Get("search")),
		CountryCode:    strings.TrimSpace(q.Get("country")),
		SearchKeyword:  strings.TrimSpace(q.Get("keyword")),
		MinSubscribers: int64Param(q, "min_subscribers"),
		MaxSubscribers: int64Param(q, "max_subscribers"),
		MinScore:       floatParam(q, "min_score"),
		ReplyReceived:  boolParam(q, "reply"),
	}
}

// boolParam accepts only "true" and "false"; anything else is no constraint.
func boolParam(q url.Values, key string) *bool {
	switch q.Get(key) {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	default:
		return nil
	}
}

func int64Param(q url.Values, key string) *int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(q.Get(key)), 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func floatParam(q url.Values, key string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(q.Get(key)), 64)
	if err != nil {
		return nil
	}
	return &v
}

// intParam returns def when the value is missing, malformed, or below min.
func intParam(q url.Values, key string, def, minimum int) int {
	v, err := strconv.Atoi(strings.TrimSpace(q.Get(key)))
	if err != nil || v < minimum {
		return def
	}
	return v
}
