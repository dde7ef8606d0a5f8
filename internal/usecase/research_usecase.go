package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/fpsos/fpsbot/internal/domain"
)

var (
	ErrResearchDisabled = errors.New("research disabled")
	ErrEmptyQuery       = errors.New("empty query")
)

const researchLimit = 3

type ResearchUsecase struct {
	searcher domain.Searcher
}

// NewResearchUsecase accepts a nil searcher, which disables research.
func NewResearchUsecase(searcher domain.Searcher) *ResearchUsecase {
	return &ResearchUsecase{searcher: searcher}
}

func (u *ResearchUsecase) Enabled() bool {
	return u.searcher != nil
}

func (u *ResearchUsecase) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	if u.searcher == nil {
		return nil, ErrResearchDisabled
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	return u.searcher.Search(ctx, query, researchLimit)
}
