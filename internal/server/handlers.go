package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/auth"
	"github.com/hyperjump/matchfeed/internal/catalog"
	"github.com/hyperjump/matchfeed/internal/embedding"
	"github.com/hyperjump/matchfeed/internal/extract"
	"github.com/hyperjump/matchfeed/internal/matching"
	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/profile"
	"github.com/hyperjump/matchfeed/internal/ranking"
	"github.com/hyperjump/matchfeed/internal/vector"
)

// maxUploadBytes bounds a resume upload including multipart overhead.
const maxUploadBytes = extract.DefaultMaxBytes + 1<<20

type profileRequest struct {
	Info        map[string]interface{} `json:"info_dict"`
	Preferences map[string]interface{} `json:"job_dict" validate:"required_without=Info"`
	DynamicKeys map[string][]string    `json:"new_keys_tracker"`
}

type pageQuery struct {
	Size int `validate:"min=0"`
}

type searchQuery struct {
	Query string `validate:"required,max=256"`
	Limit int    `validate:"min=0,max=100"`
	Fuzzy bool
}

type searchResult struct {
	*models.JobView
	Score float64 `json:"score"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	summary, err := s.matching.Me(r.Context(), candidateFrom(r.Context()))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": summary})
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "info_dict or job_dict is required")
		return
	}
	p := &models.Profile{
		CandidateID: candidateFrom(r.Context()),
		Info:        req.Info,
		Preferences: req.Preferences,
		DynamicKeys: req.DynamicKeys,
	}
	result, err := s.matching.SaveProfile(r.Context(), p)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"data":       p,
		"total_jobs": result.Total,
	})
}

func (s *Server) handleUploadResume(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	candidateID := candidateFrom(r.Context())
	s.logger.Debug("resume upload", zap.String("candidate_id", candidateID), zap.String("filename", header.Filename))
	p, result, err := s.matching.ImportResume(r.Context(), candidateID, file, header.Filename)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"data":       p,
		"total_jobs": result.Total,
	})
}

func (s *Server) handleTriggerRanking(w http.ResponseWriter, r *http.Request) {
	result, err := s.matching.TriggerRanking(r.Context(), candidateFrom(r.Context()))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"status":     "accepted",
		"total_jobs": result.Total,
	})
}

func (s *Server) handleRankingPage(w http.ResponseWriter, r *http.Request) {
	q := pageQuery{}
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "size must be an integer")
			return
		}
		q.Size = n
	}
	if err := s.validate.Struct(&q); err != nil {
		s.respondError(w, http.StatusBadRequest, "size must not be negative")
		return
	}
	page, err := s.matching.FetchPage(r.Context(), candidateFrom(r.Context()), q.Size)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"ranked_jobs": page.IDs,
		"total_jobs":  page.Total,
		"cursor":      page.Cursor,
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": job.View()})
}

func (s *Server) handleSearchJobs(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		s.respondError(w, http.StatusNotImplemented, "keyword search is not enabled")
		return
	}
	params := r.URL.Query()
	q := searchQuery{Query: params.Get("q"), Limit: 10}
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = n
	}
	q.Fuzzy, _ = strconv.ParseBool(params.Get("fuzzy"))
	if err := s.validate.Struct(&q); err != nil {
		s.respondError(w, http.StatusBadRequest, "q is required and limit must be between 0 and 100")
		return
	}

	hits, err := s.index.Search(r.Context(), q.Query, q.Limit, &catalog.SearchOptions{Fuzzy: q.Fuzzy})
	if err != nil {
		s.logger.Error("keyword search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	results := make([]searchResult, 0, len(hits))
	for _, hit := range hits {
		job, err := s.catalog.Get(r.Context(), hit.ID)
		if errors.Is(err, catalog.ErrJobNotFound) {
			continue
		}
		if err != nil {
			s.respondServiceError(w, err)
			return
		}
		results = append(results, searchResult{JobView: job.View(), Score: hit.Score})
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    results,
		"total":   len(results),
	})
}

// respondServiceError maps domain errors onto status codes.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	status, message := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, ranking.ErrEmptyCatalog):
		status, message = http.StatusConflict, "nothing to rank against, retry later"
	case errors.Is(err, embedding.ErrRateLimited):
		status, message = http.StatusTooManyRequests, "embedding provider rate limited, retry later"
	case errors.Is(err, embedding.ErrProviderUnavailable):
		status, message = http.StatusServiceUnavailable, "embedding provider unavailable, retry later"
	case errors.Is(err, embedding.ErrEmptyText):
		status, message = http.StatusUnprocessableEntity, "profile has no attributes to rank on"
	case errors.Is(err, vector.ErrDimensionMismatch):
		status, message = http.StatusInternalServerError, "embedding dimensions do not match the catalog"
	case errors.Is(err, matching.ErrNoProfile), errors.Is(err, profile.ErrNotFound):
		status, message = http.StatusNotFound, "no profile saved yet"
	case errors.Is(err, matching.ErrInvalidPageSize):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, matching.ErrResumeParsingDisabled):
		status, message = http.StatusNotImplemented, err.Error()
	case errors.Is(err, catalog.ErrJobNotFound):
		status, message = http.StatusNotFound, "job not found"
	case errors.Is(err, extract.ErrNoText):
		status, message = http.StatusBadRequest, "could not extract text"
	case errors.Is(err, extract.ErrUnsupportedFormat):
		status, message = http.StatusUnsupportedMediaType, "only .pdf, .docx and .txt resumes are supported"
	case errors.Is(err, extract.ErrTooLarge):
		status, message = http.StatusRequestEntityTooLarge, "resume too large"
	case errors.Is(err, profile.ErrCannotParse):
		status, message = http.StatusBadGateway, "cannot parse resume"
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	s.respondError(w, status, message)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
