package domain

import "context"

type SearchResult struct {
	Title       string
	Description string
	URL         string
}

type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}
