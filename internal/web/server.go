// Package web provides the HTTP server that drives a data table Controller.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/JonMunkholm/datatable/internal/command"
	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/datatable"
	"github.com/JonMunkholm/datatable/internal/playground"
	mw "github.com/JonMunkholm/datatable/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Snapshots persists the exported collection of one project.
type Snapshots interface {
	Save(ctx context.Context, tables []datatable.TableJSON) error
	Load(ctx context.Context) ([]datatable.TableJSON, error)
}

// Deps are the collaborators a Server drives. Snapshots may be nil when no
// database is configured.
type Deps struct {
	Controller *datatable.Controller
	Dispatcher *command.Dispatcher
	Host       *playground.Host
	Views      *Views
	Snapshots  Snapshots
}

// Server is the HTTP server for the data table editor.
//
// The Controller models a single editor session and is not safe for
// concurrent use, so every handler that touches it holds mu.
type Server struct {
	cfg        *config.Config
	mu         sync.Mutex
	ctrl       *datatable.Controller
	dispatcher *command.Dispatcher
	host       *playground.Host
	views      *Views
	snapshots  Snapshots
	limiter    *rateLimiter
	imports    *importLimiter
	router     *chi.Mux
	server     *http.Server
}

// NewServer creates a Server with its middleware and routes configured.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Controller == nil || deps.Dispatcher == nil || deps.Host == nil {
		return nil, errors.New("web: controller, dispatcher and host are required")
	}
	if deps.Views == nil {
		deps.Views = NewViews()
	}

	s := &Server{
		cfg:        cfg,
		ctrl:       deps.Controller,
		dispatcher: deps.Dispatcher,
		host:       deps.Host,
		views:      deps.Views,
		snapshots:  deps.Snapshots,
		imports:    newImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		router:     chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s, nil
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))

	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP, s.cfg.Editor.Embedded))

	if s.cfg.Rate.Enabled {
		s.limiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(s.limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleDashboard)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))

		// Collection
		r.Get("/tables", s.handleListTables)
		r.Post("/tables", s.handleAddTable)
		r.Post("/tables/move", s.handleMoveTable)
		r.Get("/tables/{id}", s.handleGetTable)
		r.Get("/tables/{id}/index", s.handleTableIndex)
		r.Put("/tables/{id}/name", s.handleRenameTable)
		r.Delete("/tables/{id}", s.handleRemoveTable)
		r.Get("/export", s.handleExport)
		r.Post("/import", s.handleImport)

		// Blocks
		r.Post("/blocks", s.handleAddBlock)
		r.Post("/blocks/tables", s.handleBlockTables)
		r.Post("/blocks/remove-all", s.handleRemoveAllBlocks)

		// Editor session
		r.Get("/session", s.handleSession)
		r.Post("/session/select", s.handleSelectTable)
		r.Post("/session/show", s.handleShowEditor)
		r.Post("/session/hide", s.handleHideEditor)
		r.Post("/session/draft", s.handleSetDraft)
		r.Post("/session/submit", s.handleSubmitDraft)
		r.Post("/session/events", s.handleEditorEvent)

		// Chart preview
		r.Get("/charts/active", s.handleActiveChart)
		r.Post("/charts/close", s.handleCloseChart)
		r.Post("/charts/active/pause", s.handleChartPause)
		r.Post("/charts/active/stop", s.handleChartStop)
		r.Post("/charts/{id}/show", s.handleShowChart)

		// Playground and history
		r.Get("/playground", s.handlePlaygroundState)
		r.Post("/history/undo", s.handleUndo)
		r.Post("/history/redo", s.handleRedo)

		// Snapshot
		r.Post("/snapshot/save", s.handleSaveSnapshot)
		r.Post("/snapshot/load", s.handleLoadSnapshot)

		r.Get("/notifications", s.handleNotifications)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses. An embedded editor
// must be frameable by its host page.
func securityHeaders(csp, embedded bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			frame := "'none'"
			if embedded {
				frame = "'self'"
			} else {
				h.Set("X-Frame-Options", "DENY")
			}
			if csp {
				h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors "+frame)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter is a fixed-window request counter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup drops visitors idle for two windows until stop is called.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

// allow consumes a token for ip and reports whether one was left.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok || time.Since(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RemoteAddr has already been rewritten by TrustedRealIP.
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeError writes a plain JSON error for failures that do not come from
// the controller.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode", "error", err)
	}
}

// decodeJSON reads a JSON request body into v. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
