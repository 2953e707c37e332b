// Package paginator keeps an incrementally loaded, duplicate-free view of
// the saved articles.
package paginator

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/wikan/internal/api"
	"github.com/pders01/wikan/internal/debuglog"
)

const DefaultPageSize = 10

// Store is the remote article collection.
type Store interface {
	ListArticles(ctx context.Context, skip, limit int) ([]api.SavedArticle, error)
	DeleteArticle(ctx context.Context, id int64) error
}

// PageLoadedMsg carries the outcome of one page fetch.
type PageLoadedMsg struct {
	Page  int
	Items []api.SavedArticle
	Err   error
}

// DeletedMsg carries the outcome of a delete request.
type DeletedMsg struct {
	ID  int64
	Err error
}

// Paginator owns the saved list and its cursor. At most one page fetch is in
// flight at any time, and hasMore is only ever set from a fetched page.
type Paginator struct {
	store    Store
	pageSize int

	items     []api.SavedArticle
	page      int
	hasMore   bool
	loading   bool
	err       error
	deleteErr error

	resetPending bool
}

func New(store Store, pageSize int) *Paginator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Paginator{store: store, pageSize: pageSize}
}

// LoadPage fetches one page. It is a no-op while another fetch is in flight.
// The cursor moves to page only once the fetch succeeds.
func (p *Paginator) LoadPage(page int) tea.Cmd {
	if p.loading || page < 0 {
		return nil
	}

	p.loading = true
	p.err = nil

	store, size := p.store, p.pageSize
	debuglog.WithFields(map[string]any{"page": page, "size": size}).Debugf("loading saved page")

	return func() tea.Msg {
		items, err := store.ListArticles(context.Background(), page*size, size)
		return PageLoadedMsg{Page: page, Items: items, Err: err}
	}
}

// LoadMore fetches the page after the current one when more may exist.
func (p *Paginator) LoadMore() tea.Cmd {
	if p.loading || !p.hasMore {
		return nil
	}
	return p.LoadPage(p.page + 1)
}

// Reset drops the list and reloads the first page. While a fetch is in
// flight the reset is deferred until that fetch resolves. hasMore stays
// false until the reloaded page arrives.
func (p *Paginator) Reset() tea.Cmd {
	if p.loading {
		p.resetPending = true
		return nil
	}
	p.clear()
	return p.LoadPage(0)
}

// Remove drops the article with id and rewinds the cursor to the first page
// without refetching.
func (p *Paginator) Remove(id int64) {
	for i := range p.items {
		if p.items[i].ID == id {
			p.items = append(p.items[:i], p.items[i+1:]...)
			break
		}
	}
	p.page = 0
}

// ApplyUpdate replaces the article with the same id in place. Unknown ids
// are ignored.
func (p *Paginator) ApplyUpdate(article api.SavedArticle) {
	for i := range p.items {
		if p.items[i].ID == article.ID {
			p.items[i] = article
			return
		}
	}
}

// Delete removes an article remotely, then locally on success.
func (p *Paginator) Delete(id int64) tea.Cmd {
	p.deleteErr = nil
	store := p.store
	return func() tea.Msg {
		return DeletedMsg{ID: id, Err: store.DeleteArticle(context.Background(), id)}
	}
}

// Update applies fetch and delete results. It returns the deferred reset
// load, if any.
func (p *Paginator) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case PageLoadedMsg:
		p.loading = false
		if p.resetPending {
			p.resetPending = false
			p.clear()
			return p.LoadPage(0)
		}
		if msg.Err != nil {
			p.err = msg.Err
			debuglog.Warnf("loading saved page %d: %v", msg.Page, msg.Err)
			return nil
		}
		p.merge(msg.Items)
		p.page = msg.Page
		p.hasMore = len(msg.Items) == p.pageSize

	case DeletedMsg:
		if msg.Err != nil {
			p.deleteErr = msg.Err
			return nil
		}
		p.Remove(msg.ID)
	}
	return nil
}

func (p *Paginator) merge(batch []api.SavedArticle) {
	seen := make(map[int64]struct{}, len(p.items)+len(batch))
	for _, item := range p.items {
		seen[item.ID] = struct{}{}
	}
	for _, item := range batch {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		p.items = append(p.items, item)
	}
}

func (p *Paginator) clear() {
	p.items = nil
	p.page = 0
	p.hasMore = false
	p.err = nil
	p.deleteErr = nil
}

// Get returns the article with id, if loaded.
func (p *Paginator) Get(id int64) (api.SavedArticle, bool) {
	for _, item := range p.items {
		if item.ID == id {
			return item, true
		}
	}
	return api.SavedArticle{}, false
}

func (p *Paginator) Items() []api.SavedArticle { return p.items }
func (p *Paginator) Page() int                 { return p.page }
func (p *Paginator) HasMore() bool             { return p.hasMore }
func (p *Paginator) Loading() bool             { return p.loading }
func (p *Paginator) Err() error                { return p.err }
func (p *Paginator) DeleteErr() error          { return p.deleteErr }
