// Package debounce turns a stream of raw input values into search intents
// that fire only after the input has been quiet for a configured window.
package debounce

import (
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultWindow is the quiescence period used when none is configured.
const DefaultWindow = 500 * time.Millisecond

// FireMsg is delivered when a scheduled window elapses. Only the message
// carrying the latest sequence emits a query.
type FireMsg struct {
	id  int64
	seq int
}

// Emitter holds the latest raw value and the sequence of the pending window.
// It lives in the bubbletea Update goroutine and is not safe for concurrent use.
type Emitter struct {
	id     int64
	window time.Duration
	seq    int
	value  string
}

var nextID atomic.Int64

// New returns an Emitter with the given window. Non-positive windows fall
// back to DefaultWindow.
func New(window time.Duration) *Emitter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Emitter{id: nextID.Add(1), window: window}
}

// Input records value and restarts the quiescence window.
func (e *Emitter) Input(value string) tea.Cmd {
	e.value = value
	e.seq++
	id, seq := e.id, e.seq
	return tea.Tick(e.window, func(time.Time) tea.Msg { return FireMsg{id: id, seq: seq} })
}

// Update reports the query to emit for msg. ok is false for messages from
// superseded windows, for other emitters and for blank input.
func (e *Emitter) Update(msg tea.Msg) (query string, ok bool) {
	fire, isFire := msg.(FireMsg)
	if !isFire || fire.id != e.id || fire.seq != e.seq {
		return "", false
	}
	query = strings.TrimSpace(e.value)
	return query, query != ""
}

// Cancel drops any pending window so that no query is emitted for it.
func (e *Emitter) Cancel() {
	e.seq++
}
