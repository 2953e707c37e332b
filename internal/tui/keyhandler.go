package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/wikan/internal/api"
	"github.com/pders01/wikan/internal/config"
)

// maxQueryLength bounds what is sent to the search endpoint.
const maxQueryLength = 256

type KeyHandler struct {
	app         *App
	config      *config.Config
	modifierKey string
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	modifierKey := cfg.Keys.Modifier + "+"
	return &KeyHandler{app: app, config: cfg, modifierKey: modifierKey}
}

func (kh *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if kh.isInTextInputMode() {
		return kh.handleTextInputMode(msg)
	}

	if model, cmd, handled := kh.handleCustomKeys(key); handled {
		return model, cmd
	}

	return kh.delegateToCharm(msg)
}

func (kh *KeyHandler) isInTextInputMode() bool {
	switch kh.app.view {
	case ViewSearch:
		return kh.app.searchInput.Focused()
	case ViewEditNotes:
		return kh.app.notesInput.Focused()
	default:
		return false
	}
}

func (kh *KeyHandler) handleTextInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "ctrl+c":
		return kh.app, tea.Quit
	case "esc":
		return kh.navigateBack()
	}

	if kh.app.view == ViewEditNotes {
		if key == kh.modifierKey+"w" {
			return kh.submitNotes()
		}
		return kh.delegateToTextInput(msg)
	}

	switch key {
	case kh.modifierKey + "a":
		return kh.enterSavedView()
	case "enter":
		// Analyse the first result if available
		if results := kh.app.orch.Results(); len(results) > 0 {
			return kh.selectResult(results[0])
		}
		return kh.app, nil
	case "tab", "down":
		if len(kh.app.resultList.Items()) > 0 {
			kh.app.searchInput.Blur()
			kh.app.resultList.Select(0)
		}
		return kh.app, nil
	default:
		return kh.delegateToTextInput(msg)
	}
}

// delegateToTextInput passes the key to the focused text input
func (kh *KeyHandler) delegateToTextInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewSearch:
		prev := kh.app.searchInput.Value()
		newSearchInput, cmd := kh.app.searchInput.Update(msg)
		kh.app.searchInput = newSearchInput

		if kh.app.searchInput.Value() != prev {
			query := sanitizeSearchInput(kh.app.searchInput.Value())
			return kh.app, tea.Batch(cmd, kh.app.debouncer.Input(query))
		}
		return kh.app, cmd

	case ViewEditNotes:
		newNotesInput, cmd := kh.app.notesInput.Update(msg)
		kh.app.notesInput = newNotesInput
		if kh.app.notesTarget == notesForSaved {
			kh.app.editor.UpdateDraft(kh.app.notesInput.Value())
		}
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

// handleCustomKeys handles only our custom action keys
func (kh *KeyHandler) handleCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "ctrl+c", "q":
		return kh.app, tea.Quit, true
	case "esc":
		model, cmd := kh.navigateBack()
		return model, cmd, true
	case kh.modifierKey + "s":
		model, cmd := kh.enterSearchMode()
		return model, cmd, true
	case kh.modifierKey + "a":
		model, cmd := kh.enterSavedView()
		return model, cmd, true
	}

	switch kh.app.view {
	case ViewDetail:
		return kh.handleDetailCustomKeys(key)
	case ViewSaved:
		return kh.handleSavedCustomKeys(key)
	case ViewDeleteConfirm:
		return kh.handleDeleteConfirmKeys(key)
	default:
		return kh.app, nil, false
	}
}

func (kh *KeyHandler) handleDetailCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case kh.modifierKey + "w":
		if kh.app.readingSaved || kh.app.orch.Detail() == nil || kh.app.orch.SaveLoading() {
			return kh.app, nil, true
		}
		kh.app.notesTarget = notesForSave
		if d := kh.app.orch.Detail(); d != kh.app.notesFor {
			kh.app.notesInput.Reset()
			kh.app.notesFor = d
		}
		kh.app.view = ViewEditNotes
		return kh.app, kh.app.notesInput.Focus(), true

	case kh.modifierKey + "o":
		return kh.app, kh.openLink(kh.detailLink()), true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleSavedCustomKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case kh.modifierKey + "n":
		cmd := kh.app.pager.LoadMore()
		if cmd == nil && !kh.app.pager.HasMore() {
			return kh.app, kh.app.setStatus(MsgNoMorePages, StatusInfo, kh.app.statusTTL), true
		}
		return kh.app, cmd, true

	case kh.modifierKey + "r":
		return kh.app, kh.app.pager.Reset(), true

	case kh.modifierKey + "e":
		article, ok := kh.app.selectedSaved()
		if !ok {
			return kh.app, nil, true
		}
		kh.app.editor.BeginEdit(article)
		kh.app.notesTarget = notesForSaved
		kh.app.notesFor = nil
		kh.app.notesInput.Reset()
		kh.app.notesInput.SetValue(kh.app.editor.Draft())
		kh.app.view = ViewEditNotes
		return kh.app, kh.app.notesInput.Focus(), true

	case kh.modifierKey + "x":
		article, ok := kh.app.selectedSaved()
		if !ok {
			return kh.app, nil, true
		}
		kh.app.deleteTarget = &article
		kh.app.view = ViewDeleteConfirm
		return kh.app, nil, true

	case kh.modifierKey + "o":
		article, ok := kh.app.selectedSaved()
		if !ok {
			return kh.app, nil, true
		}
		return kh.app, kh.openLink(article.WikipediaURL), true
	}
	return kh.app, nil, false
}

func (kh *KeyHandler) handleDeleteConfirmKeys(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "enter", "y":
		target := kh.app.deleteTarget
		kh.app.deleteTarget = nil
		kh.app.view = ViewSaved
		if target == nil {
			return kh.app, nil, true
		}
		return kh.app, tea.Batch(kh.app.setStatus(MsgDeleting, StatusInfo, 0), kh.app.pager.Delete(target.ID)), true
	case "n":
		kh.app.deleteTarget = nil
		kh.app.view = ViewSaved
		return kh.app, nil, true
	}
	return kh.app, nil, true
}

// delegateToCharm lets the bubbles components handle navigation keys
func (kh *KeyHandler) delegateToCharm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch kh.app.view {
	case ViewSearch:
		switch msg.String() {
		case "tab", "shift+tab", "/", "i":
			return kh.app, kh.app.searchInput.Focus()
		case "up":
			if kh.app.resultList.Index() == 0 {
				return kh.app, kh.app.searchInput.Focus()
			}
		case "enter":
			if result, ok := kh.app.selectedResult(); ok {
				return kh.selectResult(result)
			}
			return kh.app, nil
		}
		kh.app.resultList, cmd = kh.app.resultList.Update(msg)
		return kh.app, cmd

	case ViewSaved:
		switch msg.String() {
		case "enter":
			if article, ok := kh.app.selectedSaved(); ok {
				return kh.openSaved(article)
			}
			return kh.app, nil
		case "down", "j":
			// Reaching the end of the list pulls the next page.
			if n := len(kh.app.savedList.Items()); n > 0 && kh.app.savedList.Index() == n-1 {
				kh.app.savedList, cmd = kh.app.savedList.Update(msg)
				return kh.app, tea.Batch(cmd, kh.app.pager.LoadMore())
			}
		}
		kh.app.savedList, cmd = kh.app.savedList.Update(msg)
		return kh.app, cmd

	case ViewDetail:
		kh.app.viewport, cmd = kh.app.viewport.Update(msg)
		return kh.app, cmd

	default:
		return kh.app, nil
	}
}

func (kh *KeyHandler) selectResult(result api.SearchResult) (tea.Model, tea.Cmd) {
	cmd := kh.app.orch.SelectDetail(result)
	kh.app.readingSaved = false
	kh.app.renderedDetail = nil
	kh.app.viewport.SetContent("")
	kh.app.previousView = ViewSearch
	kh.app.view = ViewDetail
	kh.app.searchInput.Blur()
	kh.app.clearStatus()
	return kh.app, cmd
}

func (kh *KeyHandler) openSaved(article api.SavedArticle) (tea.Model, tea.Cmd) {
	kh.app.readingSaved = true
	kh.app.readingLink = article.WikipediaURL
	kh.app.readingID = article.ID
	kh.app.previousView = ViewSaved
	kh.app.view = ViewDetail
	return kh.app, tea.Batch(kh.app.renderMarkdown(savedMarkdown(article)), kh.app.refreshSaved(article.ID))
}

func (kh *KeyHandler) submitNotes() (tea.Model, tea.Cmd) {
	switch kh.app.notesTarget {
	case notesForSave:
		notes := kh.app.notesInput.Value()
		cmd := kh.app.orch.Save(&notes)
		kh.app.notesInput.Blur()
		kh.app.view = ViewDetail
		return kh.app, cmd

	case notesForSaved:
		kh.app.editor.UpdateDraft(kh.app.notesInput.Value())
		return kh.app, kh.app.editor.Commit()
	}
	return kh.app, nil
}

// navigateBack implements smart back navigation
func (kh *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	switch kh.app.view {
	case ViewEditNotes:
		if kh.app.notesTarget == notesForSaved {
			kh.app.editor.Cancel()
			kh.app.view = ViewSaved
		} else {
			kh.app.view = ViewDetail
		}
		kh.app.notesInput.Blur()
		return kh.app, nil

	case ViewDeleteConfirm:
		kh.app.deleteTarget = nil
		kh.app.view = ViewSaved
		return kh.app, nil

	case ViewDetail:
		if kh.app.readingSaved {
			kh.app.readingSaved = false
			kh.app.view = ViewSaved
			return kh.app, nil
		}
		kh.app.orch.CloseDetail()
		kh.app.renderedDetail = nil
		kh.app.view = ViewSearch
		// Keep focus on the results for quick navigation
		if len(kh.app.resultList.Items()) == 0 {
			return kh.app, kh.app.searchInput.Focus()
		}
		return kh.app, nil

	case ViewSaved:
		return kh.enterSearchMode()

	case ViewSearch:
		if !kh.app.searchInput.Focused() {
			return kh.app, kh.app.searchInput.Focus()
		}
		kh.app.searchInput.Reset()
		kh.app.debouncer.Cancel()
		return kh.app, nil

	default:
		return kh.app, tea.Quit
	}
}

// enterSearchMode transitions to search view, keeping the last results
func (kh *KeyHandler) enterSearchMode() (tea.Model, tea.Cmd) {
	kh.app.previousView = kh.app.view
	kh.app.view = ViewSearch
	return kh.app, kh.app.searchInput.Focus()
}

// enterSavedView shows the saved list, fetching the first page on first use
func (kh *KeyHandler) enterSavedView() (tea.Model, tea.Cmd) {
	kh.app.previousView = kh.app.view
	kh.app.view = ViewSaved
	kh.app.searchInput.Blur()
	if kh.app.savedLoaded {
		return kh.app, nil
	}
	kh.app.savedLoaded = true
	return kh.app, kh.app.pager.LoadPage(0)
}

func (kh *KeyHandler) detailLink() string {
	if kh.app.readingSaved {
		return kh.app.readingLink
	}
	if d := kh.app.orch.Detail(); d != nil {
		return d.Link()
	}
	return ""
}

func (kh *KeyHandler) openLink(url string) tea.Cmd {
	if url == "" {
		return kh.app.setStatus(MsgNothingSelected, StatusWarn, kh.app.statusTTL)
	}
	return kh.app.openInBrowser(url)
}

// GetHelpForCurrentView returns the key hints shown in the status bar.
func (kh *KeyHandler) GetHelpForCurrentView() []string {
	switch kh.app.view {
	case ViewSearch:
		return []string{"enter: analyse", kh.modifierKey + "a: saved", "esc: clear"}

	case ViewDetail:
		if kh.app.readingSaved {
			return []string{"↑↓: scroll", kh.modifierKey + "o: open", "esc: back"}
		}
		return []string{kh.modifierKey + "w: save", kh.modifierKey + "o: open", kh.modifierKey + "s: search", "esc: back"}

	case ViewSaved:
		help := []string{"enter: read", kh.modifierKey + "s: search"}
		if len(kh.app.pager.Items()) > 0 {
			help = append(help, kh.modifierKey+"e: notes", kh.modifierKey+"x: delete", kh.modifierKey+"o: open")
		}
		if kh.app.pager.HasMore() {
			help = append(help, kh.modifierKey+"n: more")
		}
		return help

	case ViewEditNotes:
		return []string{kh.modifierKey + "w: save", "esc: cancel"}

	case ViewDeleteConfirm:
		return []string{"enter: confirm", "esc: cancel"}

	default:
		return []string{}
	}
}
