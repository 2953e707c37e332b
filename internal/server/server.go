// Package server exposes the saved-article store over the same REST routes
// the analysis backend uses for persistence.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/pders01/wikan/internal/api"
	"github.com/pders01/wikan/internal/config"
	"github.com/pders01/wikan/internal/search"
)

// ArticleStore is the persistence the server works against.
type ArticleStore interface {
	Create(article api.ArticleCreate) (*api.SavedArticle, error)
	Get(id int64) (*api.SavedArticle, error)
	List(skip, limit int) ([]api.SavedArticle, error)
	UpdateNotes(id int64, notes *string) (*api.SavedArticle, error)
	Delete(id int64) error
}

// Server represents HTTP server instance
type Server struct {
	store    ArticleStore
	searcher search.Searcher
	cfg      config.ServerConfig
	version  string
	debug    bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// New wires routes and middleware. searcher may be nil, in which case the
// search route reports 503.
func New(cfg config.ServerConfig, store ArticleStore, searcher search.Searcher, version string, debug bool) *Server {
	s := &Server{
		store:    store,
		searcher: searcher,
		cfg:      cfg,
		version:  version,
		debug:    debug,
		router:   routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the HTTP server and shuts it down when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	log.Printf("[INFO] starting article server on %s%s", s.cfg.Listen, s.cfg.Prefix)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.Timeout,
		WriteTimeout:      s.cfg.Timeout,
	}
	httpServer := s.httpServer
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		log.Printf("[INFO] shutting down article server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("wikan", "pders01", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024))
}

func (s *Server) setupRoutes() {
	group := s.router
	if prefix := strings.TrimRight(s.cfg.Prefix, "/"); prefix != "" {
		group = s.router.Mount(prefix)
	}
	group.Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("POST /articles/{$}", s.createArticleHandler)
		r.HandleFunc("GET /articles/{$}", s.listArticlesHandler)
		r.HandleFunc("GET /articles/search", s.searchArticlesHandler)
		r.HandleFunc("GET /articles/{id}", s.getArticleHandler)
		r.HandleFunc("PATCH /articles/{id}", s.updateArticleHandler)
		r.HandleFunc("DELETE /articles/{id}", s.deleteArticleHandler)
	})
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends error response in the {"detail": ...} shape clients parse
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderDetail(w, r, code, errMsg)
}

func renderDetail(w http.ResponseWriter, r *http.Request, code int, detail string) {
	renderJSON(w, r, code, map[string]string{"detail": detail})
}
