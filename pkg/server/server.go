package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/auth"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/compression"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/database"
	gql "github.com/DylanGutierrezUO/database-processing-project/pkg/graphql"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/metrics"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/server/handlers"
)

// Server is the HTTP front end over one database
type Server struct {
	config       *Config
	db           *database.Database
	router       *chi.Mux
	httpSrv      *http.Server
	startTime    time.Time
	collector    *metrics.Collector
	promExporter *metrics.PrometheusExporter
	authMgr      *auth.Manager
}

// New creates a new HTTP server instance and opens its database
func New(config *Config) (*Server, error) {
	algorithm, err := compression.ParseAlgorithm(config.Compression)
	if err != nil {
		return nil, err
	}

	dbConfig := database.DefaultConfig(config.DataDir)
	dbConfig.BufferPoolFrames = config.BufferPoolFrames
	dbConfig.Compression = &compression.Config{Algorithm: algorithm, Level: 3}
	dbConfig.MergeOnClose = config.MergeOnClose

	db, err := database.Open(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	collector := metrics.NewCollector()
	authMgr := auth.NewManager()
	if config.AdminUser != "" {
		if err := authMgr.CreateUser(config.AdminUser, config.AdminPassword, auth.RoleAdmin); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create admin user: %w", err)
		}
	}

	srv := &Server{
		config:       config,
		db:           db,
		router:       chi.NewRouter(),
		startTime:    time.Now(),
		collector:    collector,
		promExporter: metrics.NewPrometheusExporter(collector, db.Pool().Stats),
		authMgr:      authMgr,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	if config.EnableGraphQL {
		if err := srv.setupGraphQLRoutes(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to setup GraphQL routes: %w", err)
		}
	}

	srv.httpSrv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      srv.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return srv, nil
}

// Database returns the server's database, mainly for tests
func (s *Server) Database() *database.Database {
	return s.db
}

// Router returns the configured router, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures the HTTP middleware stack
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	if s.config.EnableLogging {
		s.router.Use(middleware.Logger)
	}
	s.router.Use(s.requestSizeLimitMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() {
	h := handlers.New(s.db, s.collector, s.authMgr)

	s.router.Get("/_health", h.Health(s.startTime))
	s.router.Post("/_auth/login", h.Login)
	s.router.Post("/_auth/logout", h.Logout)

	s.router.Group(func(r chi.Router) {
		r.Use(h.RequirePermission(auth.PermissionViewStats))
		r.Get("/_stats", h.DatabaseStats)
		r.Get("/_metrics", s.handlePrometheusMetrics)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(h.RequirePermission(auth.PermissionRead))
		r.Get("/_tables", h.ListTables)
	})
	s.router.With(h.RequirePermission(auth.PermissionCreateTable)).Post("/_tables", h.CreateTable)

	s.router.Group(func(r chi.Router) {
		r.Use(h.RequirePermission(auth.PermissionAdmin))
		r.Post("/_admin/flush", h.Flush)
		r.Post("/_admin/merge", h.MergeAll)
		r.Post("/_admin/backup", h.Backup)
	})

	s.router.Route("/{table}", func(r chi.Router) {
		r.With(h.RequirePermission(auth.PermissionDropTable)).Delete("/", h.DropTable)
		r.With(h.RequirePermission(auth.PermissionViewStats)).Get("/_stats", h.TableStats)

		r.Group(func(r chi.Router) {
			r.Use(h.RequirePermission(auth.PermissionRead))
			r.Get("/records/{key}", h.SelectRecord)
			r.Post("/_search", h.Search)
			r.Get("/_sum", h.Sum)
			r.Get("/_changes", h.ChangeStream)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequirePermission(auth.PermissionWrite))
			r.Post("/records", h.InsertRecord)
			r.Put("/records/{key}", h.UpdateRecord)
			r.Delete("/records/{key}", h.DeleteRecord)
			r.Post("/records/{key}/_increment", h.IncrementRecord)
		})

		r.With(h.RequirePermission(auth.PermissionCreateIndex)).Post("/_index", h.CreateIndex)
		r.With(h.RequirePermission(auth.PermissionDropIndex)).Delete("/_index/{column}", h.DropIndex)
	})
}

// setupGraphQLRoutes mounts the opt-in GraphQL endpoint
func (s *Server) setupGraphQLRoutes() error {
	graphqlHandler, err := gql.NewHandler(s.db)
	if err != nil {
		return err
	}
	s.router.Post("/graphql", graphqlHandler.ServeHTTP)
	return nil
}

// handlePrometheusMetrics serves metrics in Prometheus text format
func (s *Server) handlePrometheusMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := s.promExporter.WriteMetrics(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// requestSizeLimitMiddleware caps request body size
func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
		next.ServeHTTP(w, r)
	})
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully
// and closes the database.
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("lstore server listening on %s\n", s.httpSrv.Addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		s.db.Close()
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpSrv.Shutdown(ctx); err != nil {
		s.db.Close()
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return s.db.Close()
}

// Close shuts the server's database without serving; used by tests
func (s *Server) Close() error {
	return s.db.Close()
}
