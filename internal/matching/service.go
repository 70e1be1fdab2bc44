// Package matching runs ranking passes for candidates and answers ranking reads. It is the
// ingress side of the system: HTTP handlers and the CLI call it, delivery sessions read what
// it stores.
package matching

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/catalog"
	"github.com/hyperjump/matchfeed/internal/cursor"
	"github.com/hyperjump/matchfeed/internal/embedding"
	"github.com/hyperjump/matchfeed/internal/extract"
	"github.com/hyperjump/matchfeed/internal/metrics"
	"github.com/hyperjump/matchfeed/internal/models"
	"github.com/hyperjump/matchfeed/internal/profile"
	"github.com/hyperjump/matchfeed/internal/ranking"
	"github.com/hyperjump/matchfeed/internal/vector"
)

const (
	defaultTopK         = 3000
	defaultPageSize     = 5
	defaultMaxPageSize  = 50
	defaultEmbedTimeout = 15 * time.Second
	defaultParseTimeout = 60 * time.Second
)

var (
	// ErrNoProfile is returned when a ranking pass is requested for a candidate without a profile.
	ErrNoProfile = errors.New("candidate has no profile")
	// ErrInvalidPageSize is returned for a negative page size.
	ErrInvalidPageSize = errors.New("page size must not be negative")
	// ErrResumeParsingDisabled is returned by ImportResume when no extractor is configured.
	ErrResumeParsingDisabled = errors.New("resume parsing is not configured")
)

// RankingResult describes a completed ranking pass.
type RankingResult struct {
	CandidateID string        `json:"candidate_id"`
	Total       int           `json:"total_jobs"`
	Duration    time.Duration `json:"-"`
}

// Page is a non-mutating view of the next ranked ids.
type Page struct {
	IDs    []string `json:"ranked_jobs"`
	Total  int      `json:"total_jobs"`
	Cursor int      `json:"cursor"`
}

// Summary is what a candidate sees about themselves.
type Summary struct {
	Profile *models.Profile `json:"profile"`
	Ranking *RankingSummary `json:"ranking"`
}

// RankingSummary is the delivery progress of a candidate.
type RankingSummary struct {
	Total     int       `json:"total_jobs"`
	Cursor    int       `json:"cursor"`
	Remaining int       `json:"remaining"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service coordinates profiles, the catalog, the embedder and the cursor store.
type Service struct {
	profiles  profile.Store
	catalog   catalog.Store
	cursors   cursor.Store
	embedder  embedding.Embedder
	extractor profile.Extractor
	documents *extract.Extractor

	topK         int
	pageSize     int
	maxPageSize  int
	embedTimeout time.Duration
	parseTimeout time.Duration
	logger       *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTopK bounds how many ranked ids a pass stores.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithPageSize sets the default and maximum page sizes.
func WithPageSize(size, max int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
		if max > 0 {
			s.maxPageSize = max
		}
	}
}

// WithEmbedTimeout bounds each embedding call.
func WithEmbedTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.embedTimeout = d
		}
	}
}

// WithResumeParsing enables ImportResume. timeout bounds each extraction call.
func WithResumeParsing(extractor profile.Extractor, documents *extract.Extractor, timeout time.Duration) Option {
	return func(s *Service) {
		s.extractor = extractor
		s.documents = documents
		if timeout > 0 {
			s.parseTimeout = timeout
		}
	}
}

// New returns a Service over the given stores and embedder.
func New(profiles profile.Store, jobs catalog.Store, cursors cursor.Store, embedder embedding.Embedder, opts ...Option) *Service {
	s := &Service{
		profiles:     profiles,
		catalog:      jobs,
		cursors:      cursors,
		embedder:     embedder,
		topK:         defaultTopK,
		pageSize:     defaultPageSize,
		maxPageSize:  defaultMaxPageSize,
		embedTimeout: defaultEmbedTimeout,
		parseTimeout: defaultParseTimeout,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.documents == nil {
		s.documents = extract.NewExtractor(0)
	}
	return s
}

// SaveProfile stores p and runs a ranking pass for it, which resets the candidate's cursor.
// The profile stays saved when the ranking pass fails.
func (s *Service) SaveProfile(ctx context.Context, p *models.Profile) (*RankingResult, error) {
	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	s.logger.Info("profile saved", zap.String("candidate_id", p.CandidateID))
	return s.TriggerRanking(ctx, p.CandidateID)
}

// ImportResume extracts text from a resume document, turns it into a profile, saves it and
// ranks. It returns the saved profile even when only the ranking pass failed.
func (s *Service) ImportResume(ctx context.Context, candidateID string, r io.Reader, filename string) (*models.Profile, *RankingResult, error) {
	if s.extractor == nil {
		return nil, nil, ErrResumeParsingDisabled
	}
	text, err := s.documents.ExtractReader(r, filename)
	if err != nil {
		return nil, nil, err
	}

	pctx, cancel := context.WithTimeout(ctx, s.parseTimeout)
	extracted, err := s.extractor.Extract(pctx, text)
	cancel()
	if err != nil {
		s.logger.Warn("resume extraction failed", zap.String("candidate_id", candidateID), zap.Error(err))
		return nil, nil, err
	}

	p := profile.FromExtracted(candidateID, extracted)
	result, err := s.SaveProfile(ctx, p)
	return p, result, err
}

// TriggerRanking embeds the candidate's profile, ranks the whole catalog against it and
// replaces the stored ranking. Nothing is stored when any step fails.
func (s *Service) TriggerRanking(ctx context.Context, candidateID string) (*RankingResult, error) {
	start := time.Now()
	ids, err := s.rank(ctx, candidateID)
	duration := time.Since(start)
	metrics.RecordRankingPass(outcome(err), duration, len(ids))
	if err != nil {
		s.logger.Warn("ranking pass failed",
			zap.String("candidate_id", candidateID),
			zap.String("outcome", outcome(err)),
			zap.Error(err),
		)
		return nil, err
	}
	s.logger.Info("ranking pass complete",
		zap.String("candidate_id", candidateID),
		zap.Int("total", len(ids)),
		zap.Duration("duration", duration),
	)
	return &RankingResult{CandidateID: candidateID, Total: len(ids), Duration: duration}, nil
}

func (s *Service) rank(ctx context.Context, candidateID string) ([]string, error) {
	p, err := s.profiles.Get(ctx, candidateID)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, ErrNoProfile
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	text, err := embedding.ProfileText(p)
	if err != nil {
		return nil, err
	}

	ectx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	query, err := s.embedder.Embed(ectx, text)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("embed profile: %w", err)
	}

	jobs, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	entries, err := ranking.Rank(query, jobs, s.topK)
	if err != nil {
		return nil, err
	}
	ids := ranking.IDs(entries)
	if err := s.cursors.ReplaceRanking(ctx, candidateID, ids); err != nil {
		return nil, fmt.Errorf("store ranking: %w", err)
	}
	return ids, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ranking.ErrEmptyCatalog):
		return metrics.OutcomeEmptyCatalog
	case errors.Is(err, vector.ErrDimensionMismatch):
		return metrics.OutcomeDimensionMismatch
	case errors.Is(err, embedding.ErrRateLimited):
		return metrics.OutcomeRateLimited
	case errors.Is(err, embedding.ErrProviderUnavailable):
		return metrics.OutcomeProviderUnavailable
	default:
		return metrics.OutcomeError
	}
}

// FetchPage returns up to size ids from the cursor without moving it. Zero means the default
// size; sizes above the maximum are clamped.
func (s *Service) FetchPage(ctx context.Context, candidateID string, size int) (*Page, error) {
	switch {
	case size < 0:
		return nil, ErrInvalidPageSize
	case size == 0:
		size = s.pageSize
	case size > s.maxPageSize:
		size = s.maxPageSize
	}
	// Ids, total and cursor all come from one snapshot.
	page := &Page{IDs: []string{}}
	st, err := s.cursors.State(ctx, candidateID)
	switch {
	case errors.Is(err, cursor.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load ranking state: %w", err)
	default:
		page.IDs = st.Window(size)
		page.Total = st.Total()
		page.Cursor = st.Cursor
	}
	return page, nil
}

// Me returns the candidate's profile and delivery progress. Either part is nil when absent.
func (s *Service) Me(ctx context.Context, candidateID string) (*Summary, error) {
	out := &Summary{}
	p, err := s.profiles.Get(ctx, candidateID)
	switch {
	case errors.Is(err, profile.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load profile: %w", err)
	default:
		out.Profile = p
	}
	st, err := s.cursors.State(ctx, candidateID)
	switch {
	case errors.Is(err, cursor.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load ranking state: %w", err)
	default:
		out.Ranking = &RankingSummary{
			Total:     st.Total(),
			Cursor:    st.Cursor,
			Remaining: st.Remaining(),
			UpdatedAt: st.UpdatedAt,
		}
	}
	return out, nil
}
