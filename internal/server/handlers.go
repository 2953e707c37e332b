package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pders01/wikan/internal/api"
	"github.com/pders01/wikan/internal/search"
	"github.com/pders01/wikan/internal/storage"
	"github.com/pders01/wikan/internal/validation"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}
	renderJSON(w, r, http.StatusOK, status)
}

func (s *Server) createArticleHandler(w http.ResponseWriter, r *http.Request) {
	var article api.ArticleCreate
	if err := json.NewDecoder(r.Body).Decode(&article); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusUnprocessableEntity)
		return
	}

	if err := validateCreate(&article); err != nil {
		renderError(w, r, err, http.StatusUnprocessableEntity)
		return
	}

	saved, err := s.store.Create(article)
	if err != nil {
		log.Printf("[ERROR] failed to save article %q: %v", article.WikipediaTitle, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.index(*saved)

	log.Printf("[DEBUG] saved article %d %q", saved.ID, saved.WikipediaTitle)
	renderJSON(w, r, http.StatusCreated, saved)
}

func (s *Server) listArticlesHandler(w http.ResponseWriter, r *http.Request) {
	skip, err := intParam(r, "skip", 0, 0, -1)
	if err != nil {
		renderError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	limit, err := intParam(r, "limit", defaultListLimit, 1, maxListLimit)
	if err != nil {
		renderError(w, r, err, http.StatusUnprocessableEntity)
		return
	}

	articles, err := s.store.List(skip, limit)
	if err != nil {
		log.Printf("[ERROR] failed to list articles: %v", err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}
	renderJSON(w, r, http.StatusOK, articles)
}

func (s *Server) searchArticlesHandler(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		renderError(w, r, errors.New("search is not available"), http.StatusServiceUnavailable)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		renderError(w, r, errors.New("query parameter q is required"), http.StatusUnprocessableEntity)
		return
	}
	limit, err := intParam(r, "limit", defaultListLimit, 1, maxListLimit)
	if err != nil {
		renderError(w, r, err, http.StatusUnprocessableEntity)
		return
	}

	results, err := s.searcher.Search(query, limit)
	if err != nil {
		log.Printf("[ERROR] search %q failed: %v", query, err)
		renderError(w, r, err, http.StatusInternalServerError)
		return
	}

	articles := make([]api.SavedArticle, 0, len(results))
	for _, res := range results {
		article, err := s.store.Get(res.ID)
		if err != nil {
			log.Printf("[WARN] search hit %d not in store: %v", res.ID, err)
			continue
		}
		articles = append(articles, *article)
	}
	renderJSON(w, r, http.StatusOK, articles)
}

func (s *Server) getArticleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	article, err := s.store.Get(id)
	if err != nil {
		s.renderStoreError(w, r, id, err)
		return
	}
	renderJSON(w, r, http.StatusOK, article)
}

func (s *Server) updateArticleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var update api.ArticleUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusUnprocessableEntity)
		return
	}

	article, err := s.store.UpdateNotes(id, update.PersonalNotes)
	if err != nil {
		s.renderStoreError(w, r, id, err)
		return
	}
	s.index(*article)
	renderJSON(w, r, http.StatusOK, article)
}

func (s *Server) deleteArticleHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := s.store.Delete(id); err != nil {
		s.renderStoreError(w, r, id, err)
		return
	}
	if indexer, ok := s.searcher.(search.Indexer); ok {
		if err := indexer.Remove(id); err != nil {
			log.Printf("[WARN] failed to drop article %d from index: %v", id, err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) index(article api.SavedArticle) {
	indexer, ok := s.searcher.(search.Indexer)
	if !ok {
		return
	}
	if err := indexer.Index(article); err != nil {
		log.Printf("[WARN] failed to index article %d: %v", article.ID, err)
	}
}

func (s *Server) renderStoreError(w http.ResponseWriter, r *http.Request, id int64, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		renderDetail(w, r, http.StatusNotFound, "Article not found")
		return
	}
	log.Printf("[ERROR] article %d: %v", id, err)
	renderError(w, r, err, http.StatusInternalServerError)
}

func validateCreate(article *api.ArticleCreate) error {
	article.WikipediaTitle = strings.TrimSpace(article.WikipediaTitle)
	if article.WikipediaTitle == "" {
		return errors.New("wikipedia_title is required")
	}

	normalized, err := validation.NewArticleURLValidator().ValidateAndNormalize(article.WikipediaURL)
	if err != nil {
		return fmt.Errorf("wikipedia_url: %w", err)
	}
	article.WikipediaURL = normalized

	if article.WordCount < 0 {
		return errors.New("word_count cannot be negative")
	}
	if article.UserID <= 0 {
		return errors.New("user_id is required")
	}
	if article.SentimentLabel == "" && article.SentimentPolarity != nil {
		article.SentimentLabel = api.SentimentFromPolarity(*article.SentimentPolarity)
	}
	article.PersonalNotes = api.NormalizeNotes(article.PersonalNotes)
	return nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		renderError(w, r, errors.New("invalid article id"), http.StatusUnprocessableEntity)
		return 0, false
	}
	return id, true
}

// intParam reads an integer query parameter bounded by [lo, hi]. hi < 0
// means unbounded.
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if v < lo || (hi >= 0 && v > hi) {
		if hi >= 0 {
			return 0, fmt.Errorf("%s must be between %d and %d", name, lo, hi)
		}
		return 0, fmt.Errorf("%s must be at least %d", name, lo)
	}
	return v, nil
}
