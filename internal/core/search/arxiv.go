package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/models"
)

// ArxivIndex queries the arXiv Atom API.
type ArxivIndex struct {
	client  *resty.Client
	baseURL string
}

var _ core.PaperIndex = (*ArxivIndex)(nil)

func NewArxivIndex(baseURL string, timeout time.Duration) *ArxivIndex {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ArxivIndex{
		client:  resty.New().SetTimeout(timeout).SetHeader("Accept", "application/atom+xml"),
		baseURL: baseURL,
	}
}

type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

// Search returns normalized candidates; a well-formed feed with no entries
// yields an empty, non-nil slice.
func (a *ArxivIndex) Search(ctx context.Context, query string, maxResults int) ([]models.CandidatePaper, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"search_query": "all:" + query,
			"start":        "0",
			"max_results":  strconv.Itoa(maxResults),
		}).
		Get(a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("arxiv request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned status %d", resp.StatusCode())
	}
	return ParseFeed(resp.Body())
}

// ParseFeed normalizes an Atom payload into candidate papers. Entries without
// a title or link are dropped since they cannot be imported or deduplicated.
func ParseFeed(body []byte) ([]models.CandidatePaper, error) {
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}

	out := make([]models.CandidatePaper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		title := collapse(e.Title)
		link := strings.TrimSpace(e.ID)
		if title == "" || link == "" {
			continue
		}
		names := make([]string, 0, len(e.Authors))
		for _, au := range e.Authors {
			if n := collapse(au.Name); n != "" {
				names = append(names, n)
			}
		}
		out = append(out, models.CandidatePaper{
			Title:         title,
			Authors:       strings.Join(names, ", "),
			Abstract:      collapse(e.Summary),
			PublishedDate: publishedDay(e.Published),
			SourceURL:     link,
		})
	}
	return out, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func publishedDay(s string) string {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02")
	}
	return s
}
