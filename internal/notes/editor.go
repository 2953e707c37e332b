// Package notes implements the single-session inline editor for the personal
// notes of a saved article.
package notes

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pders01/wikan/internal/api"
	"github.com/pders01/wikan/internal/debuglog"
)

// Updater applies a partial notes update remotely.
type Updater interface {
	UpdateNotes(ctx context.Context, id int64, notes *string) (*api.SavedArticle, error)
}

// CommitDoneMsg carries the outcome of a commit for one edit session.
type CommitDoneMsg struct {
	Session uint64
	ID      int64
	Article *api.SavedArticle
	Err     error
}

// ArticleUpdatedMsg carries an article whose notes changed on the server.
type ArticleUpdatedMsg struct {
	Article api.SavedArticle
}

// Editor holds at most one edit session. Starting a new session discards the
// previous draft.
type Editor struct {
	updater Updater

	session    uint64
	active     bool
	activeID   int64
	draft      string
	committing bool
	err        error
}

func New(updater Updater) *Editor {
	return &Editor{updater: updater}
}

// BeginEdit opens a session for article seeded with its current notes.
func (e *Editor) BeginEdit(article api.SavedArticle) {
	e.session++
	e.active = true
	e.activeID = article.ID
	e.draft = article.Notes()
	e.committing = false
	e.err = nil
}

// UpdateDraft replaces the draft text.
func (e *Editor) UpdateDraft(text string) {
	if e.active {
		e.draft = text
	}
}

// Commit sends the draft for the active article. An empty draft clears the notes.
func (e *Editor) Commit() tea.Cmd {
	if !e.active || e.committing {
		return nil
	}

	e.committing = true
	e.err = nil

	session, id := e.session, e.activeID
	draft := e.draft
	updater := e.updater
	debuglog.WithFields(map[string]any{"id": id, "session": session}).Debugf("committing notes")

	return func() tea.Msg {
		article, err := updater.UpdateNotes(context.Background(), id, api.NormalizeNotes(&draft))
		return CommitDoneMsg{Session: session, ID: id, Article: article, Err: err}
	}
}

// Cancel closes the session and drops the draft.
func (e *Editor) Cancel() {
	e.session++
	e.active = false
	e.activeID = 0
	e.draft = ""
	e.committing = false
	e.err = nil
}

// Update applies a commit result. A successful commit is always forwarded as
// ArticleUpdatedMsg; it closes the session only if that session is still open.
func (e *Editor) Update(msg tea.Msg) tea.Cmd {
	done, ok := msg.(CommitDoneMsg)
	if !ok {
		return nil
	}

	current := done.Session == e.session && e.active
	if current {
		e.committing = false
	}

	if done.Err != nil {
		if current {
			e.err = done.Err
		} else {
			debuglog.Warnf("notes commit for closed session on article %d failed: %v", done.ID, done.Err)
		}
		return nil
	}

	if current {
		e.session++
		e.active = false
		e.activeID = 0
		e.draft = ""
		e.err = nil
	}

	if done.Article == nil {
		return nil
	}
	article := *done.Article
	return func() tea.Msg { return ArticleUpdatedMsg{Article: article} }
}

// ActiveID reports the article being edited.
func (e *Editor) ActiveID() (int64, bool) {
	return e.activeID, e.active
}

func (e *Editor) Draft() string    { return e.draft }
func (e *Editor) Committing() bool { return e.committing }
func (e *Editor) Err() error       { return e.err }
