package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SearchResult is one hit returned by the backend search endpoint.
type SearchResult struct {
	Title  string `json:"title"`
	PageID int64  `json:"pageid"`
	URL    string `json:"url"`
}

// ArticleDetail is the analysed article produced by the backend.
type ArticleDetail struct {
	Title                 string      `json:"title"`
	Summary               string      `json:"summary"`
	FullURL               string      `json:"full_url"`
	Content               string      `json:"content"`
	References            []string    `json:"references"`
	URL                   string      `json:"url"`
	WordCount             int         `json:"word_count"`
	FrequentWords         Frequencies `json:"frequent_words"`
	SentimentPolarity     float64     `json:"sentiment_polarity"`
	SentimentSubjectivity float64     `json:"sentiment_subjectivity"`
	SentimentLabel        Sentiment   `json:"sentiment_label"`
}

// Link returns the canonical article URL, preferring url over full_url.
func (d *ArticleDetail) Link() string {
	if d.URL != "" {
		return d.URL
	}
	return d.FullURL
}

// ArticleCreate is the body of a save request.
type ArticleCreate struct {
	WikipediaTitle        string      `json:"wikipedia_title"`
	WikipediaURL          string      `json:"wikipedia_url"`
	ProcessedSummary      string      `json:"processed_summary"`
	WordCount             int         `json:"word_count"`
	FrequentWords         Frequencies `json:"frequent_words"`
	SentimentPolarity     *float64    `json:"sentiment_polarity,omitempty"`
	SentimentSubjectivity *float64    `json:"sentiment_subjectivity,omitempty"`
	SentimentLabel        Sentiment   `json:"sentiment_label,omitempty"`
	PersonalNotes         *string     `json:"personal_notes"`
	UserID                int64       `json:"user_id"`
}

// NewArticleCreate snapshots a detail into a save request.
func NewArticleCreate(d *ArticleDetail, notes *string, userID int64) ArticleCreate {
	polarity, subjectivity := d.SentimentPolarity, d.SentimentSubjectivity
	words := make(Frequencies, len(d.FrequentWords))
	copy(words, d.FrequentWords)
	return ArticleCreate{
		WikipediaTitle:        d.Title,
		WikipediaURL:          d.Link(),
		ProcessedSummary:      d.Summary,
		WordCount:             d.WordCount,
		FrequentWords:         words,
		SentimentPolarity:     &polarity,
		SentimentSubjectivity: &subjectivity,
		SentimentLabel:        d.SentimentLabel,
		PersonalNotes:         NormalizeNotes(notes),
		UserID:                userID,
	}
}

// SavedArticle is a persisted article record. Identity is ID.
type SavedArticle struct {
	ArticleCreate
	ID        int64     `json:"id"`
	CreatedAt Timestamp `json:"created_at"`
	SavedAt   Timestamp `json:"saved_at"`
}

// Notes returns the personal notes or an empty string.
func (a *SavedArticle) Notes() string {
	if a.PersonalNotes == nil {
		return ""
	}
	return *a.PersonalNotes
}

// ArticleUpdate is the body of a notes PATCH. A nil PersonalNotes clears the notes.
type ArticleUpdate struct {
	PersonalNotes *string `json:"personal_notes"`
}

// NormalizeNotes maps empty notes to nil. Whitespace is kept as typed.
func NormalizeNotes(notes *string) *string {
	if notes == nil || *notes == "" {
		return nil
	}
	n := *notes
	return &n
}

// WordCount is a (word, frequency) pair, encoded as a two element JSON array.
type WordCount struct {
	Word  string
	Count int
}

func (w WordCount) String() string {
	return fmt.Sprintf("%s (%d)", w.Word, w.Count)
}

func (w WordCount) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{w.Word, w.Count})
}

// UnmarshalJSON accepts [word, count] pairs and bare words (count 0).
func (w *WordCount) UnmarshalJSON(data []byte) error {
	var word string
	if err := json.Unmarshal(data, &word); err == nil {
		*w = WordCount{Word: word}
		return nil
	}

	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("word frequency: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("word frequency: expected [word, count], got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &word); err != nil {
		return fmt.Errorf("word frequency word: %w", err)
	}
	var count float64
	if err := json.Unmarshal(pair[1], &count); err != nil {
		return fmt.Errorf("word frequency count: %w", err)
	}
	*w = WordCount{Word: word, Count: int(count)}
	return nil
}

// Frequencies is an ordered word-frequency list. Absent, null or malformed
// values decode to an empty list; individual malformed entries are skipped.
type Frequencies []WordCount

func (f Frequencies) MarshalJSON() ([]byte, error) {
	if f == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]WordCount(f))
}

func (f *Frequencies) UnmarshalJSON(data []byte) error {
	*f = Frequencies{}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}
	for _, item := range items {
		var wc WordCount
		if err := json.Unmarshal(item, &wc); err != nil || wc.Word == "" {
			continue
		}
		*f = append(*f, wc)
	}
	return nil
}

// Sentiment is the overall sentiment label of an article.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ParseSentiment maps backend labels, English or Spanish, to a Sentiment.
// Unknown labels are neutral.
func ParseSentiment(s string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive", "positivo", "pos":
		return SentimentPositive
	case "negative", "negativo", "neg":
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// SentimentFromPolarity labels a polarity score with the backend's ±0.1 thresholds.
func SentimentFromPolarity(polarity float64) Sentiment {
	switch {
	case polarity > 0.1:
		return SentimentPositive
	case polarity < -0.1:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func (s *Sentiment) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		*s = SentimentNeutral
		return nil
	}
	*s = ParseSentiment(*raw)
	return nil
}

// Timestamp decodes the backend's ISO timestamps, with or without a zone.
// null decodes to the zero time and the zero time encodes as null.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", raw)
}
