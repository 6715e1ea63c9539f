// Package evidence gathers web search results used to ground the model's
// reliability assessment.
package evidence

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/elitetrace/factcheckd/internal/verdict"
)

// DefaultMaxResults bounds how many results a single lookup returns.
const DefaultMaxResults = 5

// Retriever looks up supporting evidence for a single assertion. Search
// never fails: any fault yields an empty slice, because a failed evidence
// lookup only impoverishes the prompt and must not abort the scan.
type Retriever interface {
	Search(ctx context.Context, query string) []verdict.EvidenceItem
}

// GoogleRetriever implements Retriever against the Google Custom Search API.
type GoogleRetriever struct {
	svc        *customsearch.Service
	cx         string
	maxResults int64
}

// NewGoogleRetriever creates a retriever bound to a search engine ID (cx).
func NewGoogleRetriever(ctx context.Context, apiKey, cx string) (*GoogleRetriever, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleRetriever{
		svc:        svc,
		cx:         cx,
		maxResults: DefaultMaxResults,
	}, nil
}

// Search implements Retriever. Results keep the upstream ranking order and
// are not deduplicated across assertions. There is no retry here by design.
func (r *GoogleRetriever) Search(ctx context.Context, query string) []verdict.EvidenceItem {
	resp, err := r.svc.Cse.List().Context(ctx).Cx(r.cx).Q(query).Num(r.maxResults).Do()
	if err != nil {
		log.Printf("evidence: search failed for %q: %v", query, err)
		return []verdict.EvidenceItem{}
	}
	return mapResults(resp.Items)
}

func mapResults(items []*customsearch.Result) []verdict.EvidenceItem {
	mapped := make([]verdict.EvidenceItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		mapped = append(mapped, verdict.EvidenceItem{
			Title:   item.Title,
			Snippet: item.Snippet,
			Link:    item.Link,
		})
	}
	return mapped
}
