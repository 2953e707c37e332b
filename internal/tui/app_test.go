package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/wikan/internal/api"
	"github.com/pders01/wikan/internal/orchestrator"
	"github.com/pders01/wikan/internal/paginator"
)

func TestNewApp(t *testing.T) {
	app, _ := newTestApp(t, &fakeClient{})

	assert.Equal(t, ViewSearch, app.view)
	assert.True(t, app.searchInput.Focused())
	assert.NotNil(t, app.keyHandler)
	assert.Empty(t, app.resultList.Items())
	assert.Contains(t, app.View(), "search")
}

func TestSearch_DebouncedTypingIssuesOneSearch(t *testing.T) {
	client := &fakeClient{results: []api.SearchResult{
		{Title: "Go", PageID: 1, URL: "https://en.wikipedia.org/wiki/Go"},
		{Title: "Gopher", PageID: 2, URL: "https://en.wikipedia.org/wiki/Gopher"},
	}}
	app, _ := newTestApp(t, client)

	pump(t, app, typeText(app, "go"))

	assert.Equal(t, []string{"go"}, client.searches, "only the settled input is searched")
	assert.Equal(t, "go", app.orch.Query())
	require.Len(t, app.resultList.Items(), 2)
	assert.Equal(t, "Go", app.resultList.Items()[0].(resultItem).result.Title)
	assert.Equal(t, MsgResultsCount(2), app.status)
}

func TestSearch_BlankInputIssuesNothing(t *testing.T) {
	client := &fakeClient{}
	app, _ := newTestApp(t, client)

	pump(t, app, typeText(app, "   "))

	assert.Empty(t, client.searches)
	assert.False(t, app.orch.SearchLoading())
}

func TestSearch_ErrorShownInStatusBar(t *testing.T) {
	client := &fakeClient{searchErr: errors.New("searching wikipedia: Internal Server Error")}
	app, _ := newTestApp(t, client)

	pump(t, app, typeText(app, "go"))

	require.Error(t, app.currentErr())
	assert.Contains(t, app.getCustomStatusBar(), "searching wikipedia: Internal Server Error")
}

func TestSelectAndSave_RefreshesSavedList(t *testing.T) {
	client := &fakeClient{results: []api.SearchResult{{Title: "Go", PageID: 1, URL: "https://en.wikipedia.org/wiki/Go"}}}
	app, _ := newTestApp(t, client)

	pump(t, app, typeText(app, "go"))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyEnter}))

	assert.Equal(t, ViewDetail, app.view)
	require.NotNil(t, app.orch.Detail())
	assert.Equal(t, "Go", app.orch.Detail().Title)
	assert.False(t, app.renderingDetail, "detail render should have arrived")

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlW}))
	require.Equal(t, ViewEditNotes, app.view)
	assert.Equal(t, notesForSave, app.notesTarget)

	pump(t, app, typeText(app, "read later"))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlW}))

	// a successful save clears the detail and returns to the results
	assert.Equal(t, ViewSearch, app.view)
	assert.Nil(t, app.orch.Detail())
	assert.Len(t, app.resultList.Items(), 1, "results stay listed")
	assert.NotContains(t, app.View(), MsgNothingSelected)
	require.Len(t, client.created, 1)
	require.NotNil(t, client.created[0].PersonalNotes)
	assert.Equal(t, "read later", *client.created[0].PersonalNotes)
	assert.Equal(t, int64(1), client.created[0].UserID)

	// the save invalidated the saved list, which reloaded its first page
	require.Len(t, app.pager.Items(), 1)
	assert.Equal(t, "Go", app.pager.Items()[0].WikipediaTitle)
	assert.Equal(t, MsgSavedArticle("Go"), app.status)
}

func TestSave_EmptyNotesAreNull(t *testing.T) {
	client := &fakeClient{results: []api.SearchResult{{Title: "Go", PageID: 1}}}
	app, _ := newTestApp(t, client)

	pump(t, app, typeText(app, "go"))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyEnter}))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlW}))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlW}))

	require.Len(t, client.created, 1)
	assert.Nil(t, client.created[0].PersonalNotes)
}

func TestSave_FailureRetryKeepsNotes(t *testing.T) {
	client := &fakeClient{
		results:   []api.SearchResult{{Title: "Go", PageID: 1}},
		createErr: []error{errors.New("saving article: Internal Server Error")},
	}
	app, _ := newTestApp(t, client)

	pump(t, app, typeText(app, "go"))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyEnter}))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlW}))
	pump(t, app, typeText(app, "my notes"))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlW}))

	require.Error(t, app.orch.SaveErr())
	assert.Equal(t, ViewDetail, app.view, "detail stays so the save can be retried")
	require.NotNil(t, app.orch.Detail())

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlW}))
	require.Equal(t, ViewEditNotes, app.view)
	assert.Equal(t, "my notes", app.notesInput.Value())

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlW}))
	require.Len(t, client.created, 2)
	require.NotNil(t, client.created[1].PersonalNotes)
	assert.Equal(t, "my notes", *client.created[1].PersonalNotes)
	assert.Equal(t, ViewSearch, app.view)
}

func TestSave_NewDetailStartsWithEmptyNotes(t *testing.T) {
	client := &fakeClient{
		results:   []api.SearchResult{{Title: "Go", PageID: 1}, {Title: "Rust", PageID: 2}},
		createErr: []error{errors.New("saving article: Bad Gateway")},
	}
	app, _ := newTestApp(t, client)

	pump(t, app, typeText(app, "lang"))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyEnter}))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlW}))
	pump(t, app, typeText(app, "about go"))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlW}))
	require.Error(t, app.orch.SaveErr())

	press(app, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, ViewSearch, app.view)
	app.resultList.Select(1)
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyEnter}))
	require.Equal(t, "Rust", app.orch.Detail().Title)

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlW}))
	assert.Empty(t, app.notesInput.Value())
}

func TestSavedView_LoadsFirstPageOnce(t *testing.T) {
	client := &fakeClient{}
	client.seed("Alpha", "Beta", "Gamma")
	app, _ := newTestApp(t, client)

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlA}))

	assert.Equal(t, ViewSaved, app.view)
	assert.Len(t, app.savedList.Items(), 2)
	assert.True(t, app.pager.HasMore())

	// re-entering keeps the loaded list
	press(app, tea.KeyMsg{Type: tea.KeyCtrlS})
	cmd := press(app, tea.KeyMsg{Type: tea.KeyCtrlA})
	assert.Nil(t, cmd)
	assert.Len(t, app.savedList.Items(), 2)
}

func TestSavedView_LoadMore(t *testing.T) {
	client := &fakeClient{}
	client.seed("Alpha", "Beta", "Gamma")
	app, _ := newTestApp(t, client)

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlA}))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlN}))

	require.Len(t, app.pager.Items(), 3)
	assert.False(t, app.pager.HasMore())
	assert.Equal(t, 1, app.pager.Page())

	press(app, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, MsgNoMorePages, app.status)
}

func TestSavedView_EndOfListPullsNextPage(t *testing.T) {
	client := &fakeClient{}
	client.seed("Alpha", "Beta", "Gamma")
	app, _ := newTestApp(t, client)

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlA}))
	app.savedList.Select(1)
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyDown}))

	assert.Len(t, app.pager.Items(), 3)
}

func TestSavedView_EditNotes(t *testing.T) {
	client := &fakeClient{}
	client.seed("Alpha", "Beta")
	note := "first"
	client.articles[0].PersonalNotes = &note
	app, _ := newTestApp(t, client)

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlA}))
	press(app, tea.KeyMsg{Type: tea.KeyCtrlE})

	require.Equal(t, ViewEditNotes, app.view)
	assert.Equal(t, notesForSaved, app.notesTarget)
	assert.Equal(t, "first", app.notesInput.Value(), "draft is seeded with current notes")
	id, active := app.editor.ActiveID()
	assert.True(t, active)
	assert.Equal(t, int64(1), id)

	typeText(app, "!")
	assert.Equal(t, "first!", app.editor.Draft())

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlW}))

	assert.Equal(t, ViewSaved, app.view)
	_, active = app.editor.ActiveID()
	assert.False(t, active)
	updated, ok := app.pager.Get(1)
	require.True(t, ok)
	assert.Equal(t, "first!", updated.Notes())
	assert.Equal(t, MsgNotesUpdated, app.status)
}

func TestSavedView_CancelEditKeepsNotes(t *testing.T) {
	client := &fakeClient{}
	client.seed("Alpha")
	app, _ := newTestApp(t, client)

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlA}))
	press(app, tea.KeyMsg{Type: tea.KeyCtrlE})
	typeText(app, "draft")
	press(app, tea.KeyMsg{Type: tea.KeyEsc})

	assert.Equal(t, ViewSaved, app.view)
	_, active := app.editor.ActiveID()
	assert.False(t, active)
	assert.Nil(t, client.articles[0].PersonalNotes)
}

func TestSavedView_DeleteRemovesItem(t *testing.T) {
	client := &fakeClient{}
	client.seed("Alpha", "Beta")
	app, _ := newTestApp(t, client)

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlA}))
	press(app, tea.KeyMsg{Type: tea.KeyCtrlX})
	require.Equal(t, ViewDeleteConfirm, app.view)
	require.NotNil(t, app.deleteTarget)
	assert.Contains(t, app.View(), "Alpha")

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyEnter}))

	assert.Equal(t, ViewSaved, app.view)
	require.Len(t, app.pager.Items(), 1)
	assert.Equal(t, "Beta", app.pager.Items()[0].WikipediaTitle)
	assert.Equal(t, 0, app.pager.Page(), "delete rewinds the cursor")
	assert.Equal(t, MsgArticleDeleted, app.status)
}

func TestSavedView_LoadErrorShown(t *testing.T) {
	client := &fakeClient{listErr: errors.New("loading saved articles: Service Unavailable")}
	app, _ := newTestApp(t, client)

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlA}))

	assert.Contains(t, app.getCustomStatusBar(), "Service Unavailable")
}

func TestReadSavedArticle(t *testing.T) {
	client := &fakeClient{}
	client.seed("Alpha")
	app, opener := newTestApp(t, client)

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlA}))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyEnter}))

	assert.Equal(t, ViewDetail, app.view)
	assert.True(t, app.readingSaved)
	assert.Equal(t, int64(1), app.readingID)
	assert.False(t, app.renderingDetail)

	// saving is not offered for an article that is already stored
	press(app, tea.KeyMsg{Type: tea.KeyCtrlW})
	assert.Equal(t, ViewDetail, app.view)

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlO}))
	assert.Equal(t, []string{"https://en.wikipedia.org/wiki/Alpha"}, opener.opened)

	press(app, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewSaved, app.view)
}

func TestReadSavedArticle_ShowsStoredCopy(t *testing.T) {
	client := &fakeClient{}
	client.seed("Alpha")
	app, _ := newTestApp(t, client)

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlA}))

	// notes changed elsewhere after the page was loaded
	notes := "edited on another device"
	client.mu.Lock()
	client.articles[0].PersonalNotes = &notes
	client.mu.Unlock()

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyEnter}))

	item, ok := app.pager.Get(1)
	require.True(t, ok)
	assert.Equal(t, notes, item.Notes())
	assert.Contains(t, app.viewport.View(), "device")
}

func TestReadSavedArticle_RefreshErrorShown(t *testing.T) {
	client := &fakeClient{getErr: errors.New("not reachable")}
	client.seed("Alpha")
	app, _ := newTestApp(t, client)

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlA}))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyEnter}))

	assert.Equal(t, ViewDetail, app.view)
	assert.Contains(t, app.getCustomStatusBar(), "refreshing article: not reachable")
}

func TestOpenInBrowser_ErrorShown(t *testing.T) {
	client := &fakeClient{results: []api.SearchResult{{Title: "Go", PageID: 1}}}
	app, opener := newTestApp(t, client)
	opener.err = errors.New("no opener")

	pump(t, app, typeText(app, "go"))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyEnter}))
	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlO}))

	require.Error(t, app.err)
	assert.Contains(t, app.getCustomStatusBar(), "opening browser: no opener")
}

func TestStaleRenderIgnored(t *testing.T) {
	app, _ := newTestApp(t, &fakeClient{})
	app.renderSeq = 2
	app.renderingDetail = true

	app.Update(detailRenderedMsg{seq: 1, content: "old"})
	assert.True(t, app.renderingDetail)

	app.Update(detailRenderedMsg{seq: 2, content: "new"})
	assert.False(t, app.renderingDetail)
}

func TestStatusClearsOnlyLatest(t *testing.T) {
	app, _ := newTestApp(t, &fakeClient{})
	app.setStatus("one", StatusInfo, 0)
	first := app.statusSeq
	app.setStatus("two", StatusInfo, 0)

	app.Update(statusClearMsg{seq: first})
	assert.Equal(t, "two", app.status)

	app.Update(statusClearMsg{seq: app.statusSeq})
	assert.Empty(t, app.status)
}

func TestArticleSavedMsg_ResetsPaginator(t *testing.T) {
	client := &fakeClient{}
	client.seed("Alpha")
	app, _ := newTestApp(t, client)

	_, cmd := app.Update(orchestrator.ArticleSavedMsg{Article: &client.articles[0]})
	require.NotNil(t, cmd)
	assert.True(t, app.pager.Loading())

	pump(t, app, cmd)
	assert.Len(t, app.pager.Items(), 1)
	assert.True(t, app.savedLoaded)
}

func TestPageLoaded_UpdatesListKeepingSelection(t *testing.T) {
	client := &fakeClient{}
	client.seed("Alpha", "Beta", "Gamma")
	app, _ := newTestApp(t, client)

	pump(t, app, press(app, tea.KeyMsg{Type: tea.KeyCtrlA}))
	app.savedList.Select(1)

	_, cmd := app.Update(paginator.PageLoadedMsg{Page: 1, Items: client.articles[2:]})
	assert.Nil(t, cmd)
	assert.Len(t, app.savedList.Items(), 3)
	assert.Equal(t, 1, app.savedList.Index())
}
