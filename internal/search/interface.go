package search

import "github.com/pders01/wikan/internal/api"

// Source provides the articles a search engine covers.
type Source interface {
	All() ([]api.SavedArticle, error)
}

// Searcher defines the minimal search API used by the article server.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// Indexer can be implemented by search engines that maintain an external
// index and want to be notified about data changes.
type Indexer interface {
	Index(article api.SavedArticle) error
	Remove(id int64) error
}

// DebugStatser provides lightweight stats for visibility/debugging.
// Implemented by engines that can report index doc counts, etc.
type DebugStatser interface {
	DocCount() (int, error)
}
