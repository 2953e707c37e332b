package tui

import (
	"fmt"
	"strings"
)

// Canonical short status messages used across the app.
const (
	MsgSearching       = "Searching…"
	MsgLoadingArticle  = "Analysing article…"
	MsgSaving          = "Saving…"
	MsgLoadingSaved    = "Loading saved articles…"
	MsgSavingNotes     = "Saving notes…"
	MsgDeleting        = "Deleting…"
	MsgNoResults       = "No results"
	MsgNoSaved         = "No saved articles yet"
	MsgNotesUpdated    = "Notes updated"
	MsgArticleDeleted  = "Article deleted"
	MsgNoMorePages     = "All saved articles loaded"
	MsgOpeningBrowser  = "Opening in browser…"
	MsgNothingSelected = "Nothing selected"
)

func MsgSavedArticle(title string) string {
	return fmt.Sprintf("Saved '%s'", strings.TrimSpace(title))
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgSavedCount(n int, more bool) string {
	base := fmt.Sprintf("%d saved", n)
	if more {
		base += " • more available"
	}
	return base
}
