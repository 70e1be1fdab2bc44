package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/auth"
	"github.com/hyperjump/matchfeed/internal/metrics"
)

type contextKey struct{}

// candidateFrom returns the authenticated candidate id stored by authenticate.
func candidateFrom(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r.Header.Get("Authorization"))
		id, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.logger.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
			s.respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), contextKey{}, id.CandidateID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs each request and records its duration by route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		duration := time.Since(start)
		metrics.RecordAPIRequest(r.Method, route, status, duration)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
