package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/models"
)

// SearchService normalizes queries against the external paper index. It holds
// no state between calls.
type SearchService struct {
	index      core.PaperIndex
	maxResults int
	log        *zap.Logger
}

func NewSearchService(index core.PaperIndex, maxResults int, log *zap.Logger) *SearchService {
	if maxResults <= 0 {
		maxResults = 10
	}
	return &SearchService{index: index, maxResults: maxResults, log: log.Named("search")}
}

// Search returns an empty slice, not an error, when nothing matches.
func (s *SearchService) Search(ctx context.Context, query string) (out []models.CandidatePaper, err error) {
	ctx, span := tracer.Start(ctx, "search.arxiv")
	defer func() { endSpan(span, err) }()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, core.Validation("Search", "search query must not be empty")
	}
	span.SetAttributes(attribute.String("search.query", query))

	out, err = s.index.Search(ctx, query, s.maxResults)
	if err != nil {
		s.log.Warn("paper index failed", zap.String("query", query), zap.Error(err))
		return nil, core.Upstream("Search", err)
	}
	if out == nil {
		out = []models.CandidatePaper{}
	}
	span.SetAttributes(attribute.Int("search.results", len(out)))
	return out, nil
}
