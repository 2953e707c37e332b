// Package orchestrator sequences the search, detail and save stages of the
// article workflow. Each stage owns its loading flag and error, and responses
// from superseded requests are discarded by generation token.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/wikan/internal/api"
	"github.com/pders01/wikan/internal/debuglog"
)

var (
	// ErrNoDetail is recorded when a save is attempted without a selected detail.
	ErrNoDetail = errors.New("no article selected")
	// ErrUnknownResult is recorded when a detail is requested for an item
	// that is not part of the current results.
	ErrUnknownResult = errors.New("result is not part of the current search")
)

// Backend is the remote side of the workflow.
type Backend interface {
	Search(ctx context.Context, query string) ([]api.SearchResult, error)
	ArticleDetail(ctx context.Context, title string) (*api.ArticleDetail, error)
	CreateArticle(ctx context.Context, article api.ArticleCreate) (*api.SavedArticle, error)
}

// SearchDoneMsg carries a search response tagged with its generation.
type SearchDoneMsg struct {
	Gen     uint64
	Query   string
	Results []api.SearchResult
	Err     error
}

// DetailDoneMsg carries a detail response tagged with its generation.
type DetailDoneMsg struct {
	Gen    uint64
	Title  string
	Detail *api.ArticleDetail
	Err    error
}

// SaveDoneMsg carries a save response tagged with the detail generation the
// save was issued against.
type SaveDoneMsg struct {
	DetailGen uint64
	Article   *api.SavedArticle
	Err       error
}

// ArticleSavedMsg notifies listeners that a new article was persisted.
type ArticleSavedMsg struct {
	Article *api.SavedArticle
}

type Orchestrator struct {
	backend Backend
	userID  int64

	query   string
	results []api.SearchResult
	detail  *api.ArticleDetail

	searchLoading bool
	detailLoading bool
	saveLoading   bool

	searchErr error
	detailErr error
	saveErr   error

	searchGen uint64
	detailGen uint64
}

func New(backend Backend, userID int64) *Orchestrator {
	return &Orchestrator{backend: backend, userID: userID}
}

// Search starts a new search. A blank query issues nothing.
func (o *Orchestrator) Search(query string) tea.Cmd {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	o.searchGen++
	o.detailGen++
	o.query = query
	o.results = nil
	o.detail = nil
	o.detailLoading = false
	o.detailErr = nil
	o.searchLoading = true
	o.searchErr = nil

	gen := o.searchGen
	backend := o.backend
	debuglog.WithFields(map[string]any{"gen": gen, "query": query}).Debugf("search issued")

	return func() tea.Msg {
		results, err := backend.Search(context.Background(), query)
		return SearchDoneMsg{Gen: gen, Query: query, Results: results, Err: err}
	}
}

// SelectDetail fetches the analysed article for item, which must be one of
// the current results.
func (o *Orchestrator) SelectDetail(item api.SearchResult) tea.Cmd {
	if !o.hasResult(item) {
		o.detailErr = fmt.Errorf("selecting %q: %w", item.Title, ErrUnknownResult)
		return nil
	}

	o.detailGen++
	o.detail = nil
	o.detailLoading = true
	o.detailErr = nil
	o.saveErr = nil

	gen := o.detailGen
	title := item.Title
	backend := o.backend
	debuglog.WithFields(map[string]any{"gen": gen, "title": title}).Debugf("detail issued")

	return func() tea.Msg {
		detail, err := backend.ArticleDetail(context.Background(), title)
		return DetailDoneMsg{Gen: gen, Title: title, Detail: detail, Err: err}
	}
}

// Save persists the selected detail with the given notes. Empty notes are
// sent as null.
func (o *Orchestrator) Save(notes *string) tea.Cmd {
	if o.detail == nil {
		o.saveErr = ErrNoDetail
		return nil
	}
	if o.saveLoading {
		return nil
	}

	o.saveLoading = true
	o.saveErr = nil

	gen := o.detailGen
	article := api.NewArticleCreate(o.detail, notes, o.userID)
	backend := o.backend
	debuglog.WithFields(map[string]any{"gen": gen, "title": article.WikipediaTitle}).Debugf("save issued")

	return func() tea.Msg {
		saved, err := backend.CreateArticle(context.Background(), article)
		return SaveDoneMsg{DetailGen: gen, Article: saved, Err: err}
	}
}

// CloseDetail returns to the result list without saving.
func (o *Orchestrator) CloseDetail() {
	o.detailGen++
	o.detail = nil
	o.detailLoading = false
	o.detailErr = nil
	o.saveErr = nil
}

// Update applies a response message. It returns a command that delivers
// ArticleSavedMsg after a successful save and nil otherwise.
func (o *Orchestrator) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case SearchDoneMsg:
		if msg.Gen != o.searchGen {
			debuglog.Debugf("discarding stale search response gen=%d latest=%d", msg.Gen, o.searchGen)
			return nil
		}
		o.searchLoading = false
		if msg.Err != nil {
			o.searchErr = msg.Err
			o.results = nil
			return nil
		}
		o.results = msg.Results

	case DetailDoneMsg:
		if msg.Gen != o.detailGen {
			debuglog.Debugf("discarding stale detail response gen=%d latest=%d", msg.Gen, o.detailGen)
			return nil
		}
		o.detailLoading = false
		if msg.Err != nil {
			o.detailErr = msg.Err
			return nil
		}
		o.detail = msg.Detail

	case SaveDoneMsg:
		o.saveLoading = false
		if msg.Err != nil {
			if msg.DetailGen == o.detailGen {
				o.saveErr = msg.Err
			}
			return nil
		}
		if msg.DetailGen == o.detailGen {
			o.detail = nil
			o.detailGen++
		}
		saved := msg.Article
		return func() tea.Msg { return ArticleSavedMsg{Article: saved} }
	}
	return nil
}

func (o *Orchestrator) hasResult(item api.SearchResult) bool {
	for _, r := range o.results {
		if r.PageID == item.PageID && r.Title == item.Title {
			return true
		}
	}
	return false
}

func (o *Orchestrator) Query() string               { return o.query }
func (o *Orchestrator) Results() []api.SearchResult { return o.results }
func (o *Orchestrator) Detail() *api.ArticleDetail  { return o.detail }
func (o *Orchestrator) SearchLoading() bool         { return o.searchLoading }
func (o *Orchestrator) DetailLoading() bool         { return o.detailLoading }
func (o *Orchestrator) SaveLoading() bool           { return o.saveLoading }
func (o *Orchestrator) SearchErr() error            { return o.searchErr }
func (o *Orchestrator) DetailErr() error            { return o.detailErr }
func (o *Orchestrator) SaveErr() error              { return o.saveErr }
