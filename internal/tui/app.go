package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/wikan/internal/api"
	"github.com/pders01/wikan/internal/browser"
	"github.com/pders01/wikan/internal/config"
	"github.com/pders01/wikan/internal/debounce"
	"github.com/pders01/wikan/internal/notes"
	"github.com/pders01/wikan/internal/orchestrator"
	"github.com/pders01/wikan/internal/paginator"
)

const defaultStatusTTL = 3 * time.Second

// Client is everything the app needs from the backend.
type Client interface {
	orchestrator.Backend
	paginator.Store
	notes.Updater
	GetArticle(ctx context.Context, id int64) (*api.SavedArticle, error)
	UserID() int64
}

type urlOpener interface {
	Open(url string) error
}

type App struct {
	config     *config.Config
	client     Client
	keyHandler *KeyHandler
	debouncer  *debounce.Emitter
	orch       *orchestrator.Orchestrator
	pager      *paginator.Paginator
	editor     *notes.Editor
	opener     urlOpener

	searchInput textinput.Model
	resultList  list.Model
	savedList   list.Model
	viewport    viewport.Model
	notesInput  textarea.Model
	spinner     spinner.Model

	view         View
	previousView View
	notesTarget  notesTarget
	readingSaved bool // detail view shows a stored article
	readingLink  string
	readingID    int64
	savedLoaded  bool
	deleteTarget *api.SavedArticle

	renderedDetail  *api.ArticleDetail
	notesFor        *api.ArticleDetail // detail the save composer was last seeded for
	renderSeq       int
	renderingDetail bool

	status     string
	statusKind StatusKind
	statusSeq  int
	statusTTL  time.Duration
	err        error

	width           int
	height          int
	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

func NewApp(client Client, cfg *config.Config) *App {
	resultList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	resultList.Title = "› results"
	resultList.SetShowStatusBar(false)
	resultList.SetFilteringEnabled(false)
	resultList.SetShowHelp(false)

	savedList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	savedList.Title = "› saved articles"
	savedList.SetShowStatusBar(false)
	savedList.SetFilteringEnabled(false)
	savedList.SetShowHelp(false)

	si := textinput.New()
	si.Placeholder = "Search Wikipedia..."
	si.Focus()

	ta := textarea.New()
	ta.Placeholder = "Personal notes..."
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	app := &App{
		config:      cfg,
		client:      client,
		debouncer:   debounce.New(cfg.UI.SearchDebounce),
		orch:        orchestrator.New(client, client.UserID()),
		pager:       paginator.New(client, cfg.List.PageSize),
		editor:      notes.New(client),
		opener:      browser.NewLauncher(cfg),
		searchInput: si,
		resultList:  resultList,
		savedList:   savedList,
		viewport:    viewport.New(0, 0),
		notesInput:  ta,
		spinner:     sp,
		view:        ViewSearch,
		statusTTL:   defaultStatusTTL,
	}

	app.keyHandler = NewKeyHandler(app, cfg)

	return app
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	maxWidth, minWidth := a.config.UI.WordWrapMaxWidth, a.config.UI.WordWrapMinWidth
	if maxWidth <= 0 {
		maxWidth = 120
	}
	if minWidth <= 0 {
		minWidth = 40
	}

	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > maxWidth {
		wordWrapWidth = maxWidth
	}
	if wordWrapWidth < minWidth {
		wordWrapWidth = minWidth
	}
	if a.width < 50 {
		wordWrapWidth = a.width - 4
		if wordWrapWidth < 20 {
			wordWrapWidth = 20
		}
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		textinput.Blink,
		a.spinner.Tick,
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		a.err = nil
		return a.keyHandler.HandleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case debounce.FireMsg:
		query, ok := a.debouncer.Update(msg)
		if !ok {
			return a, nil
		}
		cmd := a.orch.Search(query)
		a.syncResults()
		return a, cmd

	case orchestrator.SearchDoneMsg:
		cmd := a.orch.Update(msg)
		a.syncResults()
		if a.orch.SearchErr() == nil && !a.orch.SearchLoading() {
			n := len(a.orch.Results())
			if n == 0 {
				return a, tea.Batch(cmd, a.setStatus(MsgNoResults, StatusWarn, a.statusTTL))
			}
			return a, tea.Batch(cmd, a.setStatus(MsgResultsCount(n), StatusInfo, a.statusTTL))
		}
		return a, cmd

	case orchestrator.DetailDoneMsg:
		cmd := a.orch.Update(msg)
		return a, tea.Batch(cmd, a.refreshDetail())

	case orchestrator.SaveDoneMsg:
		shown := a.orch.Detail()
		cmd := a.orch.Update(msg)
		// only a save of the shown detail clears it
		if shown != nil && a.orch.Detail() == nil {
			a.notesFor = nil
			if a.view == ViewDetail && !a.readingSaved {
				a.renderedDetail = nil
				a.viewport.SetContent("")
				a.view = ViewSearch
				a.searchInput.Blur()
			}
		}
		return a, cmd

	case orchestrator.ArticleSavedMsg:
		a.savedLoaded = true
		cmd := a.pager.Reset()
		title := ""
		if msg.Article != nil {
			title = msg.Article.WikipediaTitle
		}
		return a, tea.Batch(cmd, a.setStatus(MsgSavedArticle(title), StatusSuccess, a.statusTTL))

	case paginator.PageLoadedMsg:
		cmd := a.pager.Update(msg)
		a.syncSavedList()
		return a, cmd

	case paginator.DeletedMsg:
		cmd := a.pager.Update(msg)
		a.syncSavedList()
		if msg.Err == nil {
			return a, tea.Batch(cmd, a.setStatus(MsgArticleDeleted, StatusSuccess, a.statusTTL))
		}
		return a, cmd

	case notes.CommitDoneMsg:
		cmd := a.editor.Update(msg)
		if a.view == ViewEditNotes && a.notesTarget == notesForSaved {
			if _, active := a.editor.ActiveID(); !active {
				a.notesInput.Blur()
				a.view = ViewSaved
				return a, tea.Batch(cmd, a.setStatus(MsgNotesUpdated, StatusSuccess, a.statusTTL))
			}
		}
		return a, cmd

	case notes.ArticleUpdatedMsg:
		a.pager.ApplyUpdate(msg.Article)
		a.syncSavedList()
		return a, nil

	case savedRefreshedMsg:
		reading := a.view == ViewDetail && a.readingSaved && a.readingID == msg.id
		if msg.err != nil {
			if reading {
				a.err = msg.err
			}
			return a, nil
		}
		a.pager.ApplyUpdate(*msg.article)
		a.syncSavedList()
		if !reading {
			return a, nil
		}
		a.readingLink = msg.article.WikipediaURL
		return a, a.renderMarkdown(savedMarkdown(*msg.article))

	case detailRenderedMsg:
		if msg.seq == a.renderSeq {
			a.renderingDetail = false
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
		}
		return a, nil

	case browserOpenedMsg:
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		return a, a.setStatus(MsgOpeningBrowser, StatusInfo, a.statusTTL)

	case statusClearMsg:
		if msg.seq == a.statusSeq {
			a.clearStatus()
		}
		return a, nil
	}

	return a, nil
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height

	listHeight := height - 10
	if listHeight < 5 {
		listHeight = 5
	}
	a.resultList.SetSize(width, listHeight)
	a.savedList.SetSize(width, height-3)
	a.viewport.Width = width
	a.viewport.Height = height - 3

	inputWidth := width - 8
	if inputWidth < 10 {
		inputWidth = width - 4
	}
	a.searchInput.Width = inputWidth
	a.notesInput.SetWidth(inputWidth)
	notesHeight := height - 10
	if notesHeight < 3 {
		notesHeight = 3
	}
	a.notesInput.SetHeight(notesHeight)
}

// refreshDetail renders the orchestrator's detail once per new value.
func (a *App) refreshDetail() tea.Cmd {
	d := a.orch.Detail()
	if a.readingSaved || d == nil || d == a.renderedDetail {
		return nil
	}
	a.renderedDetail = d
	return a.renderMarkdown(detailMarkdown(d))
}

func (a *App) syncResults() {
	results := a.orch.Results()
	items := make([]list.Item, len(results))
	for i, r := range results {
		items[i] = resultItem{result: r}
	}
	a.resultList.SetItems(items)
	if len(items) == 0 && !a.searchInput.Focused() {
		a.searchInput.Focus()
	}
}

func (a *App) syncSavedList() {
	idx := a.savedList.Index()
	saved := a.pager.Items()
	items := make([]list.Item, len(saved))
	for i, s := range saved {
		items[i] = savedItem{article: s, preview: a.config.UI.SummaryPreview}
	}
	a.savedList.SetItems(items)
	a.savedList.Title = "› saved articles • " + MsgSavedCount(len(items), a.pager.HasMore())
	if idx >= len(items) && len(items) > 0 {
		a.savedList.Select(len(items) - 1)
	}
}

func (a *App) selectedResult() (api.SearchResult, bool) {
	if i, ok := a.resultList.SelectedItem().(resultItem); ok {
		return i.result, true
	}
	return api.SearchResult{}, false
}

func (a *App) selectedSaved() (api.SavedArticle, bool) {
	if i, ok := a.savedList.SelectedItem().(savedItem); ok {
		return i.article, true
	}
	return api.SavedArticle{}, false
}

// currentErr is the component-local error relevant to the visible view.
func (a *App) currentErr() error {
	if a.err != nil {
		return a.err
	}
	switch a.view {
	case ViewSearch:
		return a.orch.SearchErr()
	case ViewDetail:
		if a.readingSaved {
			return nil
		}
		if err := a.orch.DetailErr(); err != nil {
			return err
		}
		return a.orch.SaveErr()
	case ViewSaved, ViewDeleteConfirm:
		if err := a.pager.DeleteErr(); err != nil {
			return err
		}
		return a.pager.Err()
	case ViewEditNotes:
		if a.notesTarget == notesForSaved {
			return a.editor.Err()
		}
		return a.orch.SaveErr()
	}
	return nil
}

// loadingLabel describes the request in flight for the visible view, if any.
func (a *App) loadingLabel() string {
	switch a.view {
	case ViewSearch:
		if a.orch.SearchLoading() {
			return MsgSearching
		}
	case ViewDetail:
		if a.orch.SaveLoading() {
			return MsgSaving
		}
		if !a.readingSaved && a.orch.DetailLoading() {
			return MsgLoadingArticle
		}
	case ViewSaved:
		if a.pager.Loading() {
			return MsgLoadingSaved
		}
	case ViewEditNotes:
		if a.editor.Committing() {
			return MsgSavingNotes
		}
	}
	return ""
}

func (a *App) View() string {
	var content string
	bodyHeight := a.height - 3

	switch a.view {
	case ViewSearch:
		content = a.searchView(bodyHeight)
	case ViewDetail:
		content = a.detailView(bodyHeight)
	case ViewSaved:
		if len(a.pager.Items()) == 0 {
			msg := MsgNoSaved
			if a.pager.Loading() {
				msg = a.spinner.View() + " " + MsgLoadingSaved
			}
			content = renderCentered(a.width, bodyHeight, renderMuted(msg))
		} else {
			content = a.savedList.View()
		}
	case ViewEditNotes:
		content = a.notesView(bodyHeight)
	case ViewDeleteConfirm:
		content = a.deleteConfirmView(bodyHeight)
	}

	customStatus := a.getCustomStatusBar()
	if customStatus != "" {
		separatorWidth := a.width - 2
		if separatorWidth < 0 {
			separatorWidth = 0
		}
		separator := SeparatorStyle.Render("─" + strings.Repeat("─", separatorWidth))
		return lipgloss.JoinVertical(lipgloss.Top, content, separator, customStatus)
	}

	return content
}

func (a *App) searchView(height int) string {
	if a.searchInput.Value() == "" && len(a.orch.Results()) == 0 && a.orch.SearchErr() == nil {
		return lipgloss.JoinVertical(
			lipgloss.Top,
			renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width),
			renderCentered(a.width, height-3, GetWelcomeMessage()),
		)
	}

	helpText := "Type to search • Tab/↓: results • Esc: clear"
	switch {
	case !a.searchInput.Focused():
		helpText = "↑↓: navigate • Enter: analyse • Tab: search box • Esc: back"
	case len(a.orch.Results()) == 0 && !a.orch.SearchLoading():
		helpText = MsgNoResults + " • Esc: clear"
	}

	subtitle := ""
	if q := a.orch.Query(); q != "" {
		subtitle = "query: " + q
	}

	return ContentWrapper(a.width, height).Render(lipgloss.JoinVertical(
		lipgloss.Top,
		renderHeader("› search wikipedia", subtitle, a.width),
		"",
		renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width),
		renderMuted(helpText),
		"",
		a.resultList.View(),
	))
}

func (a *App) detailView(height int) string {
	if !a.readingSaved {
		if a.orch.DetailLoading() {
			return renderCentered(a.width, height, renderMuted(a.spinner.View()+" "+MsgLoadingArticle))
		}
		if a.orch.Detail() == nil {
			msg := MsgNothingSelected
			if err := a.orch.DetailErr(); err != nil {
				msg = fmt.Sprintf("✗ %v", err)
			}
			return renderCentered(a.width, height, ErrorMessageStyle.Render(msg))
		}
	}
	if a.renderingDetail {
		return renderCentered(a.width, height, renderMuted(a.spinner.View()+" Rendering…"))
	}
	return a.viewport.View()
}

func (a *App) notesView(height int) string {
	title := "› notes"
	switch a.notesTarget {
	case notesForSave:
		if d := a.orch.Detail(); d != nil {
			title = "› save with notes: " + d.Title
		}
	case notesForSaved:
		if id, ok := a.editor.ActiveID(); ok {
			if s, found := a.pager.Get(id); found {
				title = "› edit notes: " + s.WikipediaTitle
			}
		}
	}

	submit := a.keyHandler.modifierKey + "w"
	help := fmt.Sprintf("%s: save • Esc: cancel", submit)
	if a.notesTarget == notesForSave {
		help = fmt.Sprintf("%s: save article (empty notes allowed) • Esc: cancel", submit)
	}

	return ContentWrapper(a.width, height).Render(lipgloss.JoinVertical(
		lipgloss.Top,
		renderHeader(title, "", a.width),
		"",
		a.notesInput.View(),
		"",
		renderHelp(help),
	))
}

func (a *App) deleteConfirmView(height int) string {
	name := "Unknown article"
	if a.deleteTarget != nil {
		name = a.deleteTarget.WikipediaTitle
	}

	modalWidth := (a.width * 4) / 5
	if modalWidth < 20 {
		modalWidth = a.width - 4
		if modalWidth < 15 {
			modalWidth = a.width
		}
	}
	name = truncateEnd(name, modalWidth-4)

	return renderCentered(a.width, height, lipgloss.JoinVertical(
		lipgloss.Center,
		ErrorMessageStyle.Render("⚠ Delete Article"),
		"",
		ModalTextStyle.Width(modalWidth).Align(lipgloss.Center).Render("Delete this saved article?"),
		"",
		ModalHighlightStyle.Width(modalWidth).Align(lipgloss.Center).Render(name),
		"",
		renderMuted("Its notes are removed too."),
		"",
		"",
		renderHelp("Enter: confirm • Esc: cancel"),
	))
}

func (a *App) getCustomStatusBar() string {
	if err := a.currentErr(); err != nil {
		return StatusBarStyle.Width(a.width).Render(ErrorMessageStyle.Render(fmt.Sprintf("✗ %v", err)))
	}

	if label := a.loadingLabel(); label != "" {
		return StatusBarStyle.Width(a.width).Render(a.spinner.View() + " " + label)
	}

	if a.status != "" {
		return StatusBarStyle.Width(a.width).Render(a.statusKind.style().Render(a.status))
	}

	commands := a.keyHandler.GetHelpForCurrentView()
	if len(commands) == 0 {
		return ""
	}
	return StatusBarStyle.Width(a.width).Render(strings.Join(commands, " • "))
}

type resultItem struct {
	result api.SearchResult
}

func (i resultItem) Title() string { return i.result.Title }
func (i resultItem) Description() string {
	return renderMuted(truncateMiddle(i.result.URL, 60))
}
func (i resultItem) FilterValue() string { return i.result.Title }

type savedItem struct {
	article api.SavedArticle
	preview int
}

func (i savedItem) Title() string {
	if i.article.Notes() != "" {
		return i.article.WikipediaTitle + " " + NotesMarkerStyle.Render("✎")
	}
	return i.article.WikipediaTitle
}

func (i savedItem) Description() string {
	label := i.article.SentimentLabel
	if label == "" {
		label = api.SentimentNeutral
	}
	parts := []string{SentimentStyle(label).Render(string(label))}
	if !i.article.SavedAt.IsZero() {
		parts = append(parts, TimeStyle.Render(i.article.SavedAt.Local().Format("Jan 2, 15:04")))
	}
	if summary := singleLine(i.article.ProcessedSummary); summary != "" {
		parts = append(parts, renderMuted(truncateEnd(summary, i.preview)))
	}
	return strings.Join(parts, " • ")
}

func (i savedItem) FilterValue() string { return i.article.WikipediaTitle }
