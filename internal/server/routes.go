package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lazypower/newsletter/internal/domain"
)

const maxBody = 1 << 20

// handleTrack records a click and sends the reader on to the article. The
// redirect happens even when the click cannot be recorded.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("url"))
	u, err := url.Parse(target)
	if target == "" || err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeError(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return
	}

	if err := s.engine.RecordClick(r.Context(), target); err != nil && !errors.Is(err, domain.ErrUnknownArticle) {
		s.log.WarnObj("click not recorded", "track_click_error", map[string]any{
			"url":   target,
			"error": err.Error(),
		})
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	articles, err := s.engine.Repo.ArticleCount(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]any{
		"version":  s.version,
		"articles": articles,
	}
	if s.status != nil {
		snap := s.status.Snapshot()
		resp["status"] = snap.State
		resp["healthy"] = snap.Healthy
		resp["last_success"] = snap.LastSuccess
		resp["failures"] = snap.Failures
		resp["uptime"] = snap.Uptime
		if snap.LastError != "" {
			resp["last_error"] = snap.LastError
		}
	}
	if s.next != nil {
		if next := s.next(); !next.IsZero() {
			resp["next_run"] = next.UTC().Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type keywordJSON struct {
	Keyword     string    `json:"keyword"`
	Weight      float64   `json:"weight"`
	LastUpdated time.Time `json:"last_updated"`
}

func (s *Server) handleKeywords(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	top, err := s.engine.TopKeywords(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]keywordJSON, 0, len(top))
	for _, kw := range top {
		out = append(out, keywordJSON{Keyword: kw.Keyword, Weight: kw.Weight, LastUpdated: kw.LastUpdated.UTC()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"keywords": out})
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	kw, err := s.engine.ExtractKeywords(req.Text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keywords": kw})
}

type articleRequest struct {
	Title       string        `json:"title"`
	URL         string        `json:"url"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Source      domain.Source `json:"source"`
}

func (req articleRequest) article() domain.Article {
	return domain.Article{
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
		Category:    req.Category,
		Source:      req.Source.Name(),
	}
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	score, err := s.engine.ArticleScore(r.Context(), req.article())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"score": score})
}

func (s *Server) handleTrackArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeError(w, http.StatusBadRequest, "url required")
		return
	}

	a := req.article()
	tracked, err := s.engine.TrackArticle(r.Context(), &a)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !tracked {
		writeJSON(w, http.StatusOK, map[string]any{"tracked": false, "url": a.URL})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"tracked":  true,
		"id":       a.ID,
		"url":      a.URL,
		"keywords": a.Keywords,
	})
}
