// Package server exposes the finsight sessions as a JSON HTTP API that a
// dashboard can drive.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/etnz/finsight"
	"github.com/etnz/finsight/marketplace"
	"github.com/etnz/finsight/renderer"
	"github.com/etnz/finsight/session"
	"github.com/sirupsen/logrus"
)

// SessionHeader selects the session of a request.
const SessionHeader = "X-Session-ID"

// DefaultSession is used when the request has no SessionHeader.
const DefaultSession = "default"

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 2 * time.Hour

// maxMemory bounds the part of an upload kept in memory, the rest goes to
// temporary files.
const maxMemory = 32 << 20

// Server routes the API requests to the sessions.
type Server struct {
	router  chi.Router
	factory func() *session.Session
	options renderer.Options
	log     *logrus.Entry

	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	sess *session.Session
	used time.Time
}

// New returns a server creating sessions with factory on first use.
func New(factory func() *session.Session, opts renderer.Options) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		factory:  factory,
		options:  opts,
		log:      logrus.WithField("component", "server"),
		ttl:      DefaultSessionTTL,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.WithField("addr", addr).Info("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func (s *Server) routes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			s.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path, "dur": time.Since(start)}).Debug("request")
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)

		r.Get("/vault", s.handleVault)
		r.Delete("/vault", s.handleVaultClear)
		r.Get("/vault/context", s.handleVaultContext)
		r.Post("/vault/index", s.handleVaultIndex)

		r.Get("/reports", s.handleReports)
		r.Post("/reports", s.handleReportSave)
		r.Get("/reports/{id}", s.handleReport)
		r.Delete("/reports/{id}", s.handleReportDelete)
		r.Get("/reports/{id}/{file}", s.handleReportExport)

		r.Post("/scenario", s.handleScenario)

		r.Get("/marketplace", s.handleMarketplace)
		r.Post("/plugins/{id}/toggle", s.handlePluginToggle)
		r.Post("/integrations/{id}", s.handleConnect)
		r.Delete("/integrations/{id}", s.handleDisconnect)

		r.Post("/chat", s.handleChat)
	})
}

// session returns the session of the request, created on first use.
// Sessions idle for longer than the TTL are dropped.
func (s *Server) session(r *http.Request) *session.Session {
	id := strings.TrimSpace(r.Header.Get(SessionHeader))
	if id == "" {
		id = DefaultSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, e := range s.sessions {
		if now.Sub(e.used) > s.ttl {
			delete(s.sessions, key)
			s.log.WithField("session", key).Info("idle session dropped")
		}
	}
	e, ok := s.sessions[id]
	if !ok {
		e = &entry{sess: s.factory()}
		s.sessions[id] = e
		s.log.WithField("session", id).Info("new session")
	}
	e.used = now
	return e.sess
}

// status maps an error to its HTTP status code.
func status(err error) int {
	switch {
	case errors.Is(err, finsight.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, finsight.ErrResponseShape), errors.Is(err, finsight.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, finsight.ErrNoEvidence), errors.Is(err, session.ErrNoAnalysis):
		return http.StatusBadRequest
	case errors.Is(err, finsight.ErrStale):
		return http.StatusConflict
	case errors.Is(err, marketplace.ErrNotFound), errors.Is(err, finsight.ErrUnknownIntegration):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	entry := logrus.WithFields(logrus.Fields{"component": "server", "status": status})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithError(err).Warn("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// fail writes err with the status of its kind.
func fail(w http.ResponseWriter, err error) { writeError(w, status(err), err) }

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
