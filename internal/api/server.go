// Package api serves skill-tree sessions over HTTP.
//
// Every gesture of the editor maps onto one JSON endpoint under
// /api/sessions/{id}. Handlers run inside [session.Session.Do], so requests
// against the same session are serialized with each other and with the
// session's reconciliation tick. Clients follow state changes through the
// server-sent event stream at /api/sessions/{id}/events and fetch the new
// state when a "changed" event arrives.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/skilltree/pkg/clipboard"
	"github.com/matzehuels/skilltree/pkg/session"
)

// Options configures a Server.
type Options struct {
	// Sessions are the defaults for sessions created over the API.
	Sessions session.Options
	// Tick is the reconciliation period of every session.
	Tick time.Duration
	// Board enables the clipboard endpoints when set.
	Board *clipboard.Board
	// Metrics enables /metrics when set.
	Metrics *Metrics
	Logger  *log.Logger
}

// Server is the HTTP host. It owns the session registry and one
// reconciliation goroutine per live session.
type Server struct {
	sessions *session.Registry
	board    *clipboard.Board
	hub      *Hub
	metrics  *Metrics
	logger   *log.Logger
	tick     time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	runs   map[string]context.CancelFunc

	router chi.Router
}

// New creates a server with an empty registry.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	if opts.Sessions.Logger == nil {
		opts.Sessions.Logger = logger
	}
	if opts.Tick <= 0 {
		opts.Tick = session.DefaultTick
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		sessions: session.NewRegistry(opts.Sessions),
		board:    opts.Board,
		hub:      NewHub(logger),
		metrics:  opts.Metrics,
		logger:   logger,
		tick:     opts.Tick,
		ctx:      ctx,
		cancel:   cancel,
		runs:     make(map[string]context.CancelFunc),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/sessions", s.listSessions)
		r.Post("/sessions", s.createSession)

		r.Route("/sessions/{session}", func(r chi.Router) {
			r.Use(s.loadSession)
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Get("/events", s.streamEvents)

			r.Post("/nodes", s.addChild)
			r.Patch("/nodes/{node}", s.updateNode)
			r.Delete("/nodes/{node}", s.removeNode)
			r.Post("/connections", s.link)
			r.Post("/connections/split", s.splitEdge)
			r.Post("/reconcile", s.reconcile)

			r.Get("/selection", s.getSelection)
			r.Delete("/selection", s.clearSelection)
			r.Post("/selection/click", s.click)
			r.Post("/selection/box", s.boxSelect)
			r.Post("/selection/drag", s.drag)

			r.Get("/token", s.exportToken)
			r.Put("/token", s.importToken)
			r.Post("/theme", s.toggleTheme)
			r.Get("/render", s.render)

			if s.board != nil {
				r.Post("/share", s.share)
				r.Post("/paste", s.paste)
			}
		})

		if s.board != nil {
			r.Post("/clipboard", s.clipWrite)
			r.Get("/clipboard/{code}", s.clipRead)
		}
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub { return s.hub }

// Sessions returns the session registry.
func (s *Server) Sessions() *session.Registry { return s.sessions }

// NewSession creates a session, starts its reconciliation loop and wires
// its change notifications to the hub.
func (s *Server) NewSession() *session.Session {
	sess := s.sessions.Create()
	id := sess.ID
	sess.OnChange(func(rev uint64) {
		s.hub.Broadcast(Event{Type: EventChanged, Session: id, Revision: rev})
	})

	ctx, cancel := context.WithCancel(s.ctx)
	s.mu.Lock()
	s.runs[id] = cancel
	s.mu.Unlock()
	go sess.Run(ctx, s.tick)

	s.gauge()
	s.logger.Info("session created", "session", id)
	return sess
}

// CloseSession stops and removes a session. It reports whether the
// session existed.
func (s *Server) CloseSession(id string) bool {
	ok := s.sessions.Delete(id)
	s.stop(id)
	if ok {
		s.logger.Info("session closed", "session", id)
	}
	return ok
}

func (s *Server) stop(id string) {
	s.mu.Lock()
	cancel, ok := s.runs[id]
	delete(s.runs, id)
	s.mu.Unlock()
	if ok {
		cancel()
		s.hub.Broadcast(Event{Type: EventClosed, Session: id})
	}
	s.gauge()
}

// Cleanup closes sessions idle for longer than maxIdle and returns their
// ids.
func (s *Server) Cleanup(maxIdle time.Duration) []string {
	removed := s.sessions.Cleanup(maxIdle)
	for _, id := range removed {
		s.stop(id)
	}
	if len(removed) > 0 {
		s.logger.Info("expired idle sessions", "count", len(removed))
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *Server) RunCleanup(ctx context.Context, maxIdle, interval time.Duration) {
	if maxIdle <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup(maxIdle)
		}
	}
}

// Close stops every session loop. The registry keeps its sessions.
func (s *Server) Close() {
	s.cancel()
	s.mu.Lock()
	clear(s.runs)
	s.mu.Unlock()
}

func (s *Server) gauge() {
	if s.metrics != nil {
		s.metrics.sessions.Set(float64(s.sessions.Len()))
	}
}

// logRequests logs one line per request and feeds the request counter.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		s.logger.Debug("http", "method", r.Method, "route", route,
			"status", ww.Status(), "bytes", ww.BytesWritten(), "took", time.Since(start))
		if s.metrics != nil {
			s.metrics.requests.WithLabelValues(r.Method, route, statusClass(ww.Status())).Inc()
		}
	})
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
