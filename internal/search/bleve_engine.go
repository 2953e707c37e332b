package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/wikan/internal/api"
	"github.com/pders01/wikan/internal/debuglog"
)

// BleveEngine keeps a full-text index of saved articles on disk.
type BleveEngine struct {
	source Source
	idx    bleve.Index
}

// NewBleveEngine creates or opens a Bleve index at indexPath and indexes
// every article the source currently holds.
func NewBleveEngine(source Source, indexPath string) (*BleveEngine, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	idx, err := bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating index: %w", err)
		}
	}

	be := &BleveEngine{source: source, idx: idx}
	if err := be.reindexAll(); err != nil {
		idx.Close()
		return nil, fmt.Errorf("indexing articles: %w", err)
	}
	return be, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	summary := bleve.NewTextFieldMapping()
	summary.Analyzer = standard.Name
	summary.Store = false

	notes := bleve.NewTextFieldMapping()
	notes.Analyzer = standard.Name
	notes.Store = false

	words := bleve.NewTextFieldMapping()
	words.Analyzer = standard.Name
	words.Store = false

	url := bleve.NewTextFieldMapping()
	url.Analyzer = standard.Name
	url.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("summary", summary)
	dm.AddFieldMappingsAt("notes", notes)
	dm.AddFieldMappingsAt("words", words)
	dm.AddFieldMappingsAt("url", url)

	im.DefaultMapping = dm
	return im
}

// reindexAll rebuilds the index from the source, dropping documents for
// articles that no longer exist.
func (b *BleveEngine) reindexAll() error {
	articles, err := b.source.All()
	if err != nil {
		return err
	}

	live := make(map[string]struct{}, len(articles))
	batch := b.idx.NewBatch()
	for _, a := range articles {
		id := docID(a.ID)
		live[id] = struct{}{}
		if err := batch.Index(id, document(a)); err != nil {
			return err
		}
	}

	count, err := b.idx.DocCount()
	if err != nil {
		return err
	}
	if count > 0 {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
		res, err := b.idx.Search(req)
		if err != nil {
			return err
		}
		for _, h := range res.Hits {
			if _, ok := live[h.ID]; !ok {
				batch.Delete(h.ID)
			}
		}
	}

	debuglog.Infof("indexing %d saved articles", len(articles))
	return b.idx.Batch(batch)
}

func (b *BleveEngine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}
	if limit <= 0 {
		limit = 10
	}

	boosts := []struct {
		field  string
		match  float64
		prefix float64
	}{
		{field: "title", match: 4.0, prefix: 3.5},
		{field: "summary", match: 2.0, prefix: 1.8},
		{field: "notes", match: 1.5, prefix: 1.2},
		{field: "words", match: 1.0, prefix: 0.8},
		{field: "url", match: 0.5, prefix: 0.3},
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(query) {
		for _, f := range boosts {
			qm := bleve.NewMatchQuery(tok)
			qm.SetField(f.field)
			qm.SetBoost(f.match)
			qs = append(qs, qm)

			qp := bleve.NewPrefixQuery(tok)
			qp.SetField(f.field)
			qp.SetBoost(f.prefix)
			qs = append(qs, qp)
		}
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	srch := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	srch.Fields = []string{"title", "url"}
	res, err := b.idx.Search(srch)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.ParseInt(strings.TrimPrefix(h.ID, "article:"), 10, 64)
		if err != nil {
			continue
		}
		r := &Result{ID: id, Score: h.Score}
		if t, ok := h.Fields["title"].(string); ok {
			r.Title = t
		}
		if u, ok := h.Fields["url"].(string); ok {
			r.URL = u
		}
		out = append(out, r)
	}
	return out, nil
}

// Index adds or replaces the document for article.
func (b *BleveEngine) Index(article api.SavedArticle) error {
	return b.idx.Index(docID(article.ID), document(article))
}

// Remove drops the document for the article with id.
func (b *BleveEngine) Remove(id int64) error {
	return b.idx.Delete(docID(id))
}

// DocCount reports total documents in the index.
func (b *BleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	return int(n), err
}

func (b *BleveEngine) Close() error {
	return b.idx.Close()
}

func document(a api.SavedArticle) map[string]any {
	return map[string]any{
		"type":       "article",
		"article_id": a.ID,
		"title":      a.WikipediaTitle,
		"summary":    a.ProcessedSummary,
		"notes":      a.Notes(),
		"words":      joinWords(a.FrequentWords),
		"url":        a.WikipediaURL,
	}
}

func docID(id int64) string { return "article:" + strconv.FormatInt(id, 10) }
