package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pders01/wikan/internal/config"
	"github.com/pders01/wikan/internal/debuglog"
)

const (
	opSearch      = "searching wikipedia"
	opDetail      = "fetching article details"
	opCreate      = "saving article"
	opList        = "loading saved articles"
	opGet         = "loading saved article"
	opUpdateNotes = "updating article notes"
	opDelete      = "deleting article"
	opSearchSaved = "searching saved articles"
)

// Client talks to the analysis backend and the personal article store.
// Each call makes exactly one attempt.
type Client struct {
	http        *http.Client
	baseURL     string
	storeURL    string
	userAgent   string
	userID      int64
	searchLimit int
}

func NewClient(cfg *config.Config) *Client {
	storeURL := cfg.API.StoreURL
	if storeURL == "" {
		storeURL = cfg.API.BaseURL
	}
	return &Client{
		http:        &http.Client{Timeout: cfg.API.Timeout},
		baseURL:     strings.TrimRight(cfg.API.BaseURL, "/"),
		storeURL:    strings.TrimRight(storeURL, "/"),
		userAgent:   cfg.API.UserAgent,
		userID:      cfg.API.UserID,
		searchLimit: cfg.API.SearchLimit,
	}
}

// UserID is the fixed owner id attached to saved articles.
func (c *Client) UserID() int64 {
	return c.userID
}

// Search returns up to the configured limit of results for query. Items
// without a title are dropped.
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(c.searchLimit))

	var raw []json.RawMessage
	if err := c.do(ctx, opSearch, http.MethodGet, c.baseURL+"/wikipedia/search?"+params.Encode(), nil, &raw); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(raw))
	for _, item := range raw {
		var r SearchResult
		if err := json.Unmarshal(item, &r); err != nil || strings.TrimSpace(r.Title) == "" {
			debuglog.Warnf("dropping search result without title: %s", string(item))
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

func (c *Client) ArticleDetail(ctx context.Context, title string) (*ArticleDetail, error) {
	var detail ArticleDetail
	if err := c.do(ctx, opDetail, http.MethodGet, c.baseURL+"/wikipedia/article/"+url.PathEscape(title), nil, &detail); err != nil {
		return nil, err
	}
	if detail.FrequentWords == nil {
		detail.FrequentWords = Frequencies{}
	}
	if detail.SentimentLabel == "" {
		detail.SentimentLabel = SentimentNeutral
	}
	return &detail, nil
}

func (c *Client) CreateArticle(ctx context.Context, article ArticleCreate) (*SavedArticle, error) {
	var saved SavedArticle
	if err := c.do(ctx, opCreate, http.MethodPost, c.storeURL+"/articles/", article, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *Client) ListArticles(ctx context.Context, skip, limit int) ([]SavedArticle, error) {
	params := url.Values{}
	params.Set("skip", strconv.Itoa(skip))
	params.Set("limit", strconv.Itoa(limit))

	var articles []SavedArticle
	if err := c.do(ctx, opList, http.MethodGet, c.storeURL+"/articles/?"+params.Encode(), nil, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (c *Client) GetArticle(ctx context.Context, id int64) (*SavedArticle, error) {
	var article SavedArticle
	if err := c.do(ctx, opGet, http.MethodGet, c.articleURL(id), nil, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

// UpdateNotes replaces the personal notes of an article. nil clears them.
func (c *Client) UpdateNotes(ctx context.Context, id int64, notes *string) (*SavedArticle, error) {
	var article SavedArticle
	body := ArticleUpdate{PersonalNotes: NormalizeNotes(notes)}
	if err := c.do(ctx, opUpdateNotes, http.MethodPatch, c.articleURL(id), body, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

func (c *Client) DeleteArticle(ctx context.Context, id int64) error {
	return c.do(ctx, opDelete, http.MethodDelete, c.articleURL(id), nil, nil)
}

// SearchSaved runs a full-text query against the local article store.
func (c *Client) SearchSaved(ctx context.Context, query string, limit int) ([]SavedArticle, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	var articles []SavedArticle
	if err := c.do(ctx, opSearchSaved, http.MethodGet, c.storeURL+"/articles/search?"+params.Encode(), nil, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (c *Client) articleURL(id int64) string {
	return c.storeURL + "/articles/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, op, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	debuglog.WithFields(map[string]any{"method": method, "url": target}).Debugf("%s", op)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(op, resp)
		debuglog.Warnf("%v", apiErr)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}
