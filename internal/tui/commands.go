package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/pders01/wikan/internal/api"
	"github.com/pders01/wikan/internal/debuglog"
)

// maxFrequentWords caps the frequency table in the detail view.
const maxFrequentWords = 15

type detailRenderedMsg struct {
	seq     int
	content string
}

type browserOpenedMsg struct {
	url string
	err error
}

type statusClearMsg struct {
	seq int
}

// savedRefreshedMsg carries the stored copy of a saved article.
type savedRefreshedMsg struct {
	id      int64
	article *api.SavedArticle
	err     error
}

// renderMarkdown renders md with the cached renderer off the Update goroutine.
// Results are tagged with seq so a late render cannot replace a newer one.
func (a *App) renderMarkdown(md string) tea.Cmd {
	a.renderSeq++
	seq := a.renderSeq
	a.renderingDetail = true

	r, err := a.getRenderer()
	if err != nil {
		return func() tea.Msg {
			return detailRenderedMsg{seq: seq, content: "Error initializing renderer: " + err.Error()}
		}
	}

	return func() tea.Msg {
		return detailRenderedMsg{seq: seq, content: renderWith(r, md)}
	}
}

func renderWith(r *glamour.TermRenderer, md string) string {
	rendered, err := r.Render(md)
	if err != nil {
		debuglog.Warnf("rendering markdown: %v", err)
		return fmt.Sprintf("Failed to render article: %s\n\n%s", err.Error(), md)
	}
	return rendered
}

// refreshSaved refetches one saved article so the reader shows the stored
// notes even when the list page is older.
func (a *App) refreshSaved(id int64) tea.Cmd {
	client := a.client
	return func() tea.Msg {
		article, err := client.GetArticle(context.Background(), id)
		return savedRefreshedMsg{id: id, article: article, err: wrapErr("refreshing article", err)}
	}
}

func (a *App) openInBrowser(url string) tea.Cmd {
	opener := a.opener
	return func() tea.Msg {
		return browserOpenedMsg{url: url, err: wrapErr("opening browser", opener.Open(url))}
	}
}

// setStatus shows text in the status bar. A positive ttl clears it again
// unless a newer status replaced it in the meantime.
func (a *App) setStatus(text string, kind StatusKind, ttl time.Duration) tea.Cmd {
	a.statusSeq++
	a.status = text
	a.statusKind = kind
	if ttl <= 0 {
		return nil
	}
	seq := a.statusSeq
	return tea.Tick(ttl, func(time.Time) tea.Msg { return statusClearMsg{seq: seq} })
}

func (a *App) clearStatus() {
	a.statusSeq++
	a.status = ""
	a.statusKind = StatusInfo
}

// detailMarkdown lays out an analysed article.
func detailMarkdown(d *api.ArticleDetail) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.Title)
	if link := d.Link(); link != "" {
		fmt.Fprintf(&b, "[Read on Wikipedia](%s)\n\n", link)
	}
	writeAnalysis(&b, d.WordCount, d.SentimentLabel, &d.SentimentPolarity, &d.SentimentSubjectivity)
	writeSummary(&b, d.Summary)
	writeFrequencies(&b, d.FrequentWords)
	return b.String()
}

// savedMarkdown lays out a stored article including its notes.
func savedMarkdown(s api.SavedArticle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", s.WikipediaTitle)
	if !s.SavedAt.IsZero() {
		fmt.Fprintf(&b, "*Saved: %s*\n\n", s.SavedAt.Local().Format(time.RFC1123))
	}
	if s.WikipediaURL != "" {
		fmt.Fprintf(&b, "[Read on Wikipedia](%s)\n\n", s.WikipediaURL)
	}
	writeAnalysis(&b, s.WordCount, s.SentimentLabel, s.SentimentPolarity, s.SentimentSubjectivity)
	writeSummary(&b, s.ProcessedSummary)
	b.WriteString("## Notes\n\n")
	if notes := s.Notes(); notes != "" {
		b.WriteString(notes)
		b.WriteString("\n\n")
	} else {
		b.WriteString("*No notes yet.*\n\n")
	}
	writeFrequencies(&b, s.FrequentWords)
	return b.String()
}

func writeAnalysis(b *strings.Builder, words int, label api.Sentiment, polarity, subjectivity *float64) {
	if label == "" {
		label = api.SentimentNeutral
	}
	fmt.Fprintf(b, "**Words:** %d • **Sentiment:** %s", words, label)
	if polarity != nil {
		fmt.Fprintf(b, " • **Polarity:** %.2f", *polarity)
	}
	if subjectivity != nil {
		fmt.Fprintf(b, " • **Subjectivity:** %.2f", *subjectivity)
	}
	b.WriteString("\n\n---\n\n")
}

func writeSummary(b *strings.Builder, summary string) {
	b.WriteString("## Summary\n\n")
	if strings.TrimSpace(summary) == "" {
		b.WriteString("*No summary available.*\n\n")
		return
	}
	b.WriteString(summary)
	b.WriteString("\n\n")
}

func writeFrequencies(b *strings.Builder, words api.Frequencies) {
	if len(words) == 0 {
		return
	}
	b.WriteString("## Frequent words\n\n| Word | Count |\n|---|---|\n")
	for i, w := range words {
		if i == maxFrequentWords {
			break
		}
		fmt.Fprintf(b, "| %s | %d |\n", w.Word, w.Count)
	}
	b.WriteString("\n")
}
