package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"bizledger/internal/log"
	"bizledger/internal/services"
	"bizledger/internal/session"
	appweb "bizledger/web"
)

// Config tunes the server. Zero values pick the defaults noted per field.
type Config struct {
	Addr string
	// RateLimitPerMinute caps writes per client IP. Default 60.
	RateLimitPerMinute int
	// RequestTimeout bounds every store round-trip of a request. Default 10s.
	RequestTimeout time.Duration
	// Metrics is mounted on /metrics when set.
	Metrics http.Handler
	// Ready backs /readyz. Nil means always ready.
	Ready  func(context.Context) error
	Logger *log.Logger
	Now    func() time.Time
}

type Server struct {
	http.Server
	svc       *services.LedgerService
	sessions  *session.Store
	templates *template.Template
	limiter   *clientLimiter
	ready     func(context.Context) error
	logger    *log.Logger
	now       func() time.Time
	timeout   time.Duration
	startedAt time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes, templates and middleware around the ledger service.
func NewServer(cfg Config, svc *services.LedgerService, sessions *session.Store) *Server {
	if cfg.Logger == nil {
		cfg.Logger = log.Default(log.ComponentHTTP)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	s := &Server{
		svc:       svc,
		sessions:  sessions,
		limiter:   newClientLimiter(cfg.RateLimitPerMinute),
		ready:     cfg.Ready,
		logger:    cfg.Logger.WithComponent(log.ComponentHTTP),
		now:       cfg.Now,
		timeout:   cfg.RequestTimeout,
		startedAt: cfg.Now(),
	}

	t, err := template.New("").Funcs(template.FuncMap{
		"money":    formatMoney,
		"percent":  formatPercent,
		"negative": isNegative,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	mux.HandleFunc("GET /api/kpis", s.handleKPIs)
	mux.HandleFunc("GET /api/series/monthly", s.handleMonthlySeries)
	mux.HandleFunc("GET /api/projects/profitability", s.handleProfitability)
	mux.HandleFunc("GET /api/projects/timeline", s.handleTimeline)
	mux.HandleFunc("GET /api/projects/overview", s.handleProjectOverview)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{row}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{row}", s.handleDeleteTransaction)
	mux.HandleFunc("PUT /api/transactions/id/{id}", s.handleUpdateTransactionByID)
	mux.HandleFunc("DELETE /api/transactions/id/{id}", s.handleDeleteTransactionByID)

	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("PUT /api/projects/{row}", s.handleUpdateProject)
	mux.HandleFunc("DELETE /api/projects/{row}", s.handleDeleteProject)
	mux.HandleFunc("PUT /api/projects/id/{id}", s.handleUpdateProjectByID)
	mux.HandleFunc("DELETE /api/projects/id/{id}", s.handleDeleteProjectByID)

	mux.HandleFunc("GET /api/templates", s.handleTemplates)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("POST /api/session/template", s.handleSelectTemplate)
	mux.HandleFunc("POST /api/session/reset", s.handleResetSession)

	var handler http.Handler = mux
	handler = s.withTimeout(handler)
	handler = s.withRateLimit(handler)
	handler = s.withSecurity(handler)
	handler = s.withRequestID(handler)
	handler = log.Middleware(s.logger, extractClientIP)(handler)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Shutdown stops background routines and drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = generateRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSuspicious(r) {
			s.logger.WarnContext(r.Context(), "Suspicious request",
				log.NewFields().WithComponent(log.ComponentSecurity).WithClientIP(extractClientIP(r)).
					WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent()).ToSlice()...)
		}
		applySecurityHeaders(w, r)
		next.ServeHTTP(w, r)
	})
}

// withRateLimit throttles writes only; reads are never limited.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			ip := extractClientIP(r)
			if !s.limiter.allow(ip) {
				s.logger.WarnContext(r.Context(), "Rate limit exceeded",
					log.NewFields().WithComponent(log.ComponentRateLimit).WithClientIP(ip).
						WithHTTPRequest(r.Method, r.URL.Path, "", "").ToSlice()...)
				ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").
					Header("Retry-After", "60").Write(w)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]any{}
	status, code := "ready", http.StatusOK

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}
	checks["sessions"] = s.sessions.Size()
	checks["rate_limited_clients"] = s.limiter.activeClients()

	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	now := s.now()
	sess := s.sessionState(w, r)
	data := struct {
		Now        time.Time
		Dashboard  services.Dashboard
		Error      string
		Session    session.State
		Templates  any
		Categories []string
		Overhead   string
	}{
		Now:        now,
		Session:    sess,
		Templates:  templateChoices(),
		Categories: suggestedCategories(),
		Overhead:   overheadBucket(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	d, err := s.svc.GetDashboard(r.Context(), now)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Dashboard load failed", log.FieldError, err)
		data.Error = "The ledger store is unavailable. Reload to retry."
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	data.Dashboard = d

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Index template execution failed", log.FieldError, err)
	}
}
