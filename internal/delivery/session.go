// Package delivery serves a candidate's ranking one item at a time over a live connection.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/auth"
	"github.com/hyperjump/matchfeed/internal/catalog"
	"github.com/hyperjump/matchfeed/internal/cursor"
	"github.com/hyperjump/matchfeed/internal/metrics"
	"github.com/hyperjump/matchfeed/internal/models"
)

var (
	// ErrSessionClosed is returned by Next after Close.
	ErrSessionClosed = errors.New("delivery session closed")
	// ErrStaleReference marks a ranked id that no longer resolves in the catalog. It is
	// logged and counted; the client receives a placeholder job instead.
	ErrStaleReference = errors.New("ranked item no longer in catalog")
)

// State is the lifecycle state of a Session.
type State int

const (
	StateOpen State = iota
	StateExhausted
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateExhausted:
		return "exhausted"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Manager authenticates connections and starts sessions.
type Manager struct {
	cursors  cursor.Store
	catalog  catalog.Store
	verifier auth.Verifier
	logger   *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager returns a Manager delivering from cursors and resolving ids through jobs.
func NewManager(cursors cursor.Store, jobs catalog.Store, verifier auth.Verifier, opts ...Option) *Manager {
	m := &Manager{cursors: cursors, catalog: jobs, verifier: verifier, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start verifies token and binds a new session to the candidate it names. The cursor is not
// touched. Verification failures return an error wrapping auth.ErrUnauthorized.
func (m *Manager) Start(ctx context.Context, token string) (*Session, error) {
	id, err := m.verifier.Verify(ctx, token)
	if err != nil {
		reason := "invalid_token"
		if token == "" {
			reason = "missing_token"
		}
		metrics.SessionsRejected.WithLabelValues(reason).Inc()
		m.logger.Info("delivery session rejected", zap.String("reason", reason), zap.Error(err))
		if !errors.Is(err, auth.ErrUnauthorized) {
			err = fmt.Errorf("%w: %v", auth.ErrUnauthorized, err)
		}
		return nil, err
	}

	s := &Session{
		id:          uuid.NewString(),
		candidateID: id.CandidateID,
		startedAt:   time.Now(),
		cursors:     m.cursors,
		catalog:     m.catalog,
		logger:      m.logger,
	}
	s.logger = s.logger.With(zap.String("session_id", s.id), zap.String("candidate_id", s.candidateID))
	metrics.ActiveSessions.Inc()
	s.logger.Debug("delivery session opened")
	return s, nil
}

// Session is one live connection of a candidate. Calls on a session are serialized; several
// sessions of the same candidate share one cursor and never receive the same item.
type Session struct {
	id          string
	candidateID string
	startedAt   time.Time
	cursors     cursor.Store
	catalog     catalog.Store
	logger      *zap.Logger

	mu        sync.Mutex
	state     State
	delivered int
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// CandidateID returns the candidate the session is bound to.
func (s *Session) CandidateID() string { return s.candidateID }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Next delivers the next ranked item. At the end of the ranking it returns an END message and
// the session becomes exhausted; an exhausted session keeps answering END. A ranked id missing
// from the catalog, or one whose lookup fails, is delivered as a stale placeholder.
func (s *Session) Next(ctx context.Context) (*Outbound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return nil, ErrSessionClosed
	case StateExhausted:
		metrics.EndOfResults.Inc()
		return EndMessage(), nil
	}

	itemID, ok, err := s.cursors.Advance(ctx, s.candidateID)
	if err != nil {
		return nil, fmt.Errorf("advance cursor: %w", err)
	}
	if !ok {
		s.state = StateExhausted
		metrics.EndOfResults.Inc()
		s.logger.Debug("ranking exhausted", zap.Int("delivered", s.delivered))
		return EndMessage(), nil
	}

	// The cursor has already moved past itemID, so every lookup failure still delivers it.
	job, err := s.resolve(ctx, itemID)
	switch {
	case errors.Is(err, ErrStaleReference):
		s.logger.Warn("delivering stale placeholder", zap.String("item_id", itemID), zap.Error(err))
		job = models.StaleJob(itemID)
	case err != nil:
		s.logger.Error("catalog lookup failed after advance, delivering placeholder",
			zap.String("item_id", itemID), zap.Error(err))
		metrics.CatalogLookupFailures.Inc()
		job = models.StaleJob(itemID)
	}

	s.delivered++
	metrics.RecordDelivery(job.Stale)
	return JobMessage(job), nil
}

func (s *Session) resolve(ctx context.Context, itemID string) (*models.Job, error) {
	job, err := s.catalog.Get(ctx, itemID)
	if errors.Is(err, catalog.ErrJobNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrStaleReference, itemID)
	}
	return job, err
}

// Handle answers one inbound message. NEXT_JOB delivers; anything else gets an ERROR message
// and leaves the cursor alone.
func (s *Session) Handle(ctx context.Context, msg Inbound) (*Outbound, error) {
	if msg.Type != TypeNextJob {
		if s.State() == StateClosed {
			return nil, ErrSessionClosed
		}
		s.logger.Debug("unknown message type", zap.String("type", msg.Type))
		return ErrorMessage(fmt.Sprintf("unknown message type %q", msg.Type)), nil
	}
	return s.Next(ctx)
}

// Close ends the session. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	s.state = StateClosed
	metrics.ActiveSessions.Dec()
	s.logger.Debug("delivery session closed",
		zap.Int("delivered", s.delivered),
		zap.Duration("duration", time.Since(s.startedAt)),
	)
}
