package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shelfd/shelf/internal/handler"
	"github.com/shelfd/shelf/internal/model"
	"github.com/shelfd/shelf/internal/openapi"
	"github.com/shelfd/shelf/internal/server/middleware"
	"github.com/shelfd/shelf/internal/service"
	"github.com/shelfd/shelf/internal/store"
	"github.com/shelfd/shelf/internal/ui"
	"github.com/shelfd/shelf/internal/upload"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	BaseURL         string // absolute URL prefix for image links, e.g. "http://localhost:8080"
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	EnableUI        bool
	LoginRatePerMin int
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		EnableUI:        true,
		LoginRatePerMin: 30,
	}
}

// Server is the top-level HTTP server for Shelf. It owns the Chi router,
// the catalog store, the upload store, and the authentication service.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	authSvc    *service.AuthService
	uploads    *upload.Store
	templates  *template.Template
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a new Server, wires up all routes and middleware, and returns
// it ready to listen. Call ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, authSvc *service.AuthService, uploads *upload.Store, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		authSvc: authSvc,
		uploads: uploads,
		logger:  logger,
	}
	if cfg.EnableUI {
		s.templates = template.Must(template.ParseFS(ui.Templates, "templates/*.html"))
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	// --- Health checks (no auth required) ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// --- OpenAPI spec (no auth required) ---
	r.Get("/openapi.json", s.handleOpenAPI)

	// --- API routes ---
	productHandler := handler.NewProductHandler(s.store, s.uploads, s.cfg.BaseURL, s.logger)
	adminHandler := handler.NewAdminHandler(s.authSvc, s.logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			// Public catalog reads
			r.Get("/", productHandler.List)
			r.Get("/{id}", productHandler.Get)

			// Writes pass through the admin gate
			r.Group(func(r chi.Router) {
				r.Use(middleware.Authenticate(s.authSvc))
				r.Post("/", productHandler.Create)
				r.Put("/{id}", productHandler.Update)
				r.Delete("/{id}", productHandler.Delete)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/register", adminHandler.Register)
			r.With(middleware.RateLimit(s.cfg.LoginRatePerMin)).Post("/login", adminHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Authenticate(s.authSvc))
				r.Get("/profile", adminHandler.Profile)
				r.Get("/verify", adminHandler.Verify)
			})
		})
	})

	// --- Uploaded images ---
	uploadServer := http.StripPrefix(upload.URLPrefix+"/", http.FileServer(http.Dir(s.uploads.Dir())))
	r.Get(upload.URLPrefix+"/*", func(w http.ResponseWriter, r *http.Request) {
		uploadServer.ServeHTTP(w, r)
	})

	// --- Server-rendered storefront and admin console ---
	if s.cfg.EnableUI {
		r.Get("/", s.handleStorefront)
		r.Get("/products/{id}", s.handleProductPage)
		r.Get("/admin", s.handleAdminPage)
	}

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the database is
// reachable, or 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.store.Ping(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"degraded","checks":{"database":"error"}}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok","checks":{"database":"ok"}}`))
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	doc := openapi.Generate(s.cfg.BaseURL)
	data, err := doc.MarshalJSON()
	if err != nil {
		s.logger.Error("marshal openapi spec", "error", err)
		http.Error(w, "failed to generate spec", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleStorefront renders the public product listing.
func (s *Server) handleStorefront(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context())
	if err != nil {
		s.logger.Error("render storefront", "error", err)
		http.Error(w, "storefront unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "storefront.html", map[string]interface{}{
		"Products": products,
	}); err != nil {
		s.logger.Error("execute storefront template", "error", err)
	}
}

// handleProductPage renders a single product's detail page.
func (s *Server) handleProductPage(w http.ResponseWriter, r *http.Request) {
	var p *model.Product
	if id, err := productPageID(r); err == nil {
		p, err = s.store.GetProduct(r.Context(), id)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("render product page", "error", err)
			http.Error(w, "product page unavailable", http.StatusInternalServerError)
			return
		}
	}
	if p == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "product.html", map[string]interface{}{
		"Product": p,
	}); err != nil {
		s.logger.Error("execute product template", "error", err)
	}
}

// handleAdminPage serves the admin console shell; it talks to the REST API
// from the browser.
func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "admin.html", nil); err != nil {
		s.logger.Error("execute admin template", "error", err)
	}
}

func productPageID(r *http.Request) (int64, error) {
	var id int64
	if _, err := fmt.Sscanf(chi.URLParam(r, "id"), "%d", &id); err != nil {
		return 0, err
	}
	return id, nil
}

// ListenAndServe starts the HTTP server and blocks until a SIGINT or SIGTERM
// is received. It then performs a graceful shutdown, draining in-flight
// requests before closing the database connection.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Listen for shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server in background goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Close the database connection
	if err := s.store.Close(); err != nil {
		s.logger.Error("close store", "error", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
