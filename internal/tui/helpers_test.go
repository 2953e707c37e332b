package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/pders01/wikan/internal/api"
	"github.com/pders01/wikan/internal/config"
	"github.com/pders01/wikan/internal/debounce"
	"github.com/pders01/wikan/internal/notes"
	"github.com/pders01/wikan/internal/orchestrator"
	"github.com/pders01/wikan/internal/paginator"
)

type fakeClient struct {
	mu        sync.Mutex
	results   []api.SearchResult
	searchErr error
	listErr   error
	getErr    error
	createErr []error // consumed one per create call
	searches  []string
	created   []api.ArticleCreate
	articles  []api.SavedArticle
	nextID    int64
}

func (f *fakeClient) Search(_ context.Context, query string) ([]api.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return append([]api.SearchResult(nil), f.results...), nil
}

func (f *fakeClient) ArticleDetail(_ context.Context, title string) (*api.ArticleDetail, error) {
	return &api.ArticleDetail{
		Title:          title,
		URL:            "https://en.wikipedia.org/wiki/" + title,
		Summary:        "Summary of " + title,
		WordCount:      42,
		FrequentWords:  api.Frequencies{{Word: "gopher", Count: 3}},
		SentimentLabel: api.SentimentPositive,
	}, nil
}

func (f *fakeClient) CreateArticle(_ context.Context, in api.ArticleCreate) (*api.SavedArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	if len(f.createErr) > 0 {
		err := f.createErr[0]
		f.createErr = f.createErr[1:]
		if err != nil {
			return nil, err
		}
	}
	f.nextID++
	article := api.SavedArticle{ArticleCreate: in, ID: f.nextID}
	f.articles = append(f.articles, article)
	return &article, nil
}

func (f *fakeClient) ListArticles(_ context.Context, skip, limit int) ([]api.SavedArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if skip >= len(f.articles) {
		return []api.SavedArticle{}, nil
	}
	end := min(skip+limit, len(f.articles))
	return append([]api.SavedArticle(nil), f.articles[skip:end]...), nil
}

func (f *fakeClient) GetArticle(_ context.Context, id int64) (*api.SavedArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, article := range f.articles {
		if article.ID == id {
			return &article, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeClient) UserID() int64 { return 1 }

func (f *fakeClient) UpdateNotes(_ context.Context, id int64, text *string) (*api.SavedArticle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.articles {
		if f.articles[i].ID == id {
			f.articles[i].PersonalNotes = api.NormalizeNotes(text)
			updated := f.articles[i]
			return &updated, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeClient) DeleteArticle(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.articles {
		if f.articles[i].ID == id {
			f.articles = append(f.articles[:i], f.articles[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeClient) seed(titles ...string) {
	for _, title := range titles {
		f.nextID++
		f.articles = append(f.articles, api.SavedArticle{
			ID: f.nextID,
			ArticleCreate: api.ArticleCreate{
				WikipediaTitle:   title,
				WikipediaURL:     "https://en.wikipedia.org/wiki/" + title,
				ProcessedSummary: "About " + title,
				SentimentLabel:   api.SentimentNeutral,
				UserID:           1,
			},
		})
	}
}

type fakeOpener struct {
	opened []string
	err    error
}

func (o *fakeOpener) Open(url string) error {
	o.opened = append(o.opened, url)
	return o.err
}

func newTestApp(t *testing.T, client *fakeClient) (*App, *fakeOpener) {
	t.Helper()
	cfg := config.TestConfig()
	cfg.List.PageSize = 2
	app := NewApp(client, cfg)
	opener := &fakeOpener{}
	app.opener = opener
	app.statusTTL = 0
	app.searchInput.Cursor.SetMode(cursor.CursorStatic)
	app.notesInput.Cursor.SetMode(cursor.CursorStatic)
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return app, opener
}

// collect runs cmd and returns the messages it produces within wait,
// flattening batches.
func collect(cmd tea.Cmd, wait time.Duration) []tea.Msg {
	if cmd == nil {
		return nil
	}
	out := make(chan tea.Msg, 64)
	var wg sync.WaitGroup
	var run func(tea.Cmd)
	run = func(c tea.Cmd) {
		if c == nil {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := c()
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, next := range batch {
					run(next)
				}
				return
			}
			if msg != nil {
				out <- msg
			}
		}()
	}
	run(cmd)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	var msgs []tea.Msg
	for {
		select {
		case msg := <-out:
			msgs = append(msgs, msg)
		case <-done:
			for {
				select {
				case msg := <-out:
					msgs = append(msgs, msg)
				default:
					return msgs
				}
			}
		case <-timer.C:
			return msgs
		}
	}
}

// routed reports whether msg belongs to the app's own message flow.
func routed(msg tea.Msg) bool {
	switch msg.(type) {
	case debounce.FireMsg,
		orchestrator.SearchDoneMsg, orchestrator.DetailDoneMsg,
		orchestrator.SaveDoneMsg, orchestrator.ArticleSavedMsg,
		paginator.PageLoadedMsg, paginator.DeletedMsg,
		notes.CommitDoneMsg, notes.ArticleUpdatedMsg,
		detailRenderedMsg, browserOpenedMsg, savedRefreshedMsg:
		return true
	}
	return false
}

// pump feeds the messages produced by cmd back into the app until the flow
// settles.
func pump(t *testing.T, app *App, cmd tea.Cmd) {
	t.Helper()
	pending := []tea.Cmd{cmd}
	for round := 0; len(pending) > 0; round++ {
		require.Less(t, round, 20, "message flow did not settle")
		var next []tea.Cmd
		for _, msg := range collect(tea.Batch(pending...), 2*time.Second) {
			if !routed(msg) {
				continue
			}
			_, c := app.Update(msg)
			if c != nil {
				next = append(next, c)
			}
		}
		pending = next
	}
}

func press(app *App, msg tea.KeyMsg) tea.Cmd {
	_, cmd := app.Update(msg)
	return cmd
}

func typeText(app *App, text string) tea.Cmd {
	var cmds []tea.Cmd
	for _, r := range text {
		cmds = append(cmds, press(app, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}))
	}
	return tea.Batch(cmds...)
}
