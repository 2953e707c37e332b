package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/wikan/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.TestConfig()
	cfg.API.BaseURL = server.URL + "/api/v1"
	cfg.API.StoreURL = server.URL + "/api/v1"
	return NewClient(cfg)
}

func TestClient_Search(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/wikipedia/search", r.URL.Path)
		assert.Equal(t, "go lang", r.URL.Query().Get("query"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "wikan-test/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"title": "Go (programming language)", "pageid": 25039021, "url": "https://en.wikipedia.org/wiki/Go_(programming_language)"},
			{"pageid": 2},
			{"title": "Gopher", "pageid": 3, "url": ""}
		]`))
	})

	results, err := client.Search(context.Background(), "go lang")
	require.NoError(t, err)
	require.Len(t, results, 2, "item without title is rejected")
	assert.Equal(t, "Go (programming language)", results[0].Title)
	assert.Equal(t, int64(25039021), results[0].PageID)
	assert.Equal(t, "Gopher", results[1].Title)
}

func TestClient_ArticleDetail(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantWords Frequencies
		wantLabel Sentiment
	}{
		{
			name:      "tuples and spanish label",
			body:      `{"title":"Go","summary":"s","full_url":"f","url":"u","word_count":12,"frequent_words":[["go",4],["lang",2]],"sentiment_polarity":0.3,"sentiment_subjectivity":0.5,"sentiment_label":"positivo"}`,
			wantWords: Frequencies{{Word: "go", Count: 4}, {Word: "lang", Count: 2}},
			wantLabel: SentimentPositive,
		},
		{
			name:      "missing frequent words",
			body:      `{"title":"Go","sentiment_label":"negativo"}`,
			wantWords: Frequencies{},
			wantLabel: SentimentNegative,
		},
		{
			name:      "malformed frequent words",
			body:      `{"title":"Go","frequent_words":"oops","sentiment_label":"weird"}`,
			wantWords: Frequencies{},
			wantLabel: SentimentNeutral,
		},
		{
			name:      "bare string entries",
			body:      `{"title":"Go","frequent_words":["go",["lang",2],[1,2,3]]}`,
			wantWords: Frequencies{{Word: "go"}, {Word: "lang", Count: 2}},
			wantLabel: SentimentNeutral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/wikipedia/article/Go%2FC", r.URL.EscapedPath())
				_, _ = w.Write([]byte(tt.body))
			})

			detail, err := client.ArticleDetail(context.Background(), "Go/C")
			require.NoError(t, err)
			assert.Equal(t, tt.wantWords, detail.FrequentWords)
			assert.Equal(t, tt.wantLabel, detail.SentimentLabel)
		})
	}
}

func TestClient_CreateArticle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/articles/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Go", body["wikipedia_title"])
		assert.Equal(t, "https://es.wikipedia.org/wiki/Go", body["wikipedia_url"])
		assert.Nil(t, body["personal_notes"])
		assert.Contains(t, body, "personal_notes")
		assert.EqualValues(t, 1, body["user_id"])
		assert.Equal(t, []any{[]any{"go", float64(3)}}, body["frequent_words"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":7,"wikipedia_title":"Go","wikipedia_url":"https://es.wikipedia.org/wiki/Go","user_id":1,"created_at":"2024-05-01T10:00:00","saved_at":null}`))
	})

	detail := &ArticleDetail{
		Title:         "Go",
		FullURL:       "https://es.wikipedia.org/wiki/Go",
		FrequentWords: Frequencies{{Word: "go", Count: 3}},
	}
	empty := ""
	saved, err := client.CreateArticle(context.Background(), NewArticleCreate(detail, &empty, client.UserID()))
	require.NoError(t, err)
	assert.Equal(t, int64(7), saved.ID)
	assert.Equal(t, 2024, saved.CreatedAt.Year())
	assert.True(t, saved.SavedAt.IsZero())
}

func TestClient_ListArticles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/articles/", r.URL.Path)
		assert.Equal(t, "20", r.URL.Query().Get("skip"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`[{"id":21,"wikipedia_title":"A"},{"id":22,"wikipedia_title":"B","personal_notes":"n"}]`))
	})

	articles, err := client.ListArticles(context.Background(), 20, 10)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "", articles[0].Notes())
	assert.Equal(t, "n", articles[1].Notes())
}

func TestClient_UpdateNotes(t *testing.T) {
	var got []map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/articles/5", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = append(got, body)
		_, _ = w.Write([]byte(`{"id":5,"wikipedia_title":"A"}`))
	})

	notes := "remember this"
	_, err := client.UpdateNotes(context.Background(), 5, &notes)
	require.NoError(t, err)
	empty := ""
	_, err = client.UpdateNotes(context.Background(), 5, &empty)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "remember this", got[0]["personal_notes"])
	assert.Contains(t, got[1], "personal_notes")
	assert.Nil(t, got[1]["personal_notes"], "empty notes are sent as null")
}

func TestClient_DeleteArticle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/articles/9", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	assert.NoError(t, client.DeleteArticle(context.Background(), 9))
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "string detail",
			status:  http.StatusNotFound,
			body:    `{"detail":"Article not found"}`,
			wantMsg: "deleting article: Not Found - Article not found",
		},
		{
			name:    "structured detail",
			status:  http.StatusUnprocessableEntity,
			body:    `{"detail": [{"loc": ["path","id"], "msg": "bad"}]}`,
			wantMsg: `deleting article: Unprocessable Entity - [{"loc":["path","id"],"msg":"bad"}]`,
		},
		{
			name:    "non json body",
			status:  http.StatusInternalServerError,
			body:    `<html>boom</html>`,
			wantMsg: "deleting article: Internal Server Error",
		},
		{
			name:    "empty body",
			status:  http.StatusBadGateway,
			wantMsg: "deleting article: Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			err := client.DeleteArticle(context.Background(), 1)
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	cfg := config.TestConfig()
	cfg.API.BaseURL = "http://127.0.0.1:1"
	client := NewClient(cfg)

	_, err := client.Search(context.Background(), "go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "searching wikipedia")

	var apiErr *Error
	assert.False(t, errors.As(err, &apiErr))
}
