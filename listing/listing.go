// Package listing merges incrementally fetched pages of post summaries.
//
// State is an explicit value owned by the caller. LoadMore never mutates the
// state it is given; it returns a new one with the next page appended.
package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eringen/pubfront/blog"
	"github.com/eringen/pubfront/cms"
)

// ErrNoMorePages is returned by LoadMore when the state has no cursor.
var ErrNoMorePages = errors.New("listing: no more pages")

// State is the accumulated listing and the cursor of the next page.
// An empty NextPage means there are no further pages.
type State struct {
	NextPage string             `json:"next_page"`
	Items    []blog.PostSummary `json:"results"`
}

// Page is one fetched page of summaries.
type Page struct {
	NextPage string
	Items    []blog.PostSummary
}

// PageFetcher fetches the page identified by a cursor.
type PageFetcher interface {
	FetchPage(ctx context.Context, cursor string) (*cms.Response, error)
}

// PageFromResponse maps a raw CMS response into a Page.
func PageFromResponse(resp *cms.Response) Page {
	return Page{
		NextPage: resp.NextPage,
		Items:    blog.SummariesFromDocuments(resp.Results),
	}
}

// Initialize seeds a state with a page fetched at render time.
func Initialize(first Page) State {
	return State{NextPage: first.NextPage, Items: first.Items}
}

// HasMore reports whether the load-more control should be offered.
func HasMore(st State) bool {
	return st.NextPage != ""
}

// Aggregator loads further pages into a State.
type Aggregator struct {
	fetcher PageFetcher
	log     *slog.Logger
}

// NewAggregator returns an Aggregator fetching through f. A nil logger uses
// slog.Default.
func NewAggregator(f PageFetcher, log *slog.Logger) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{fetcher: f, log: log}
}

// LoadMore fetches the page at st.NextPage and returns st with its items
// appended and the cursor replaced. On failure the error is logged and st is
// returned unchanged alongside it.
func (a *Aggregator) LoadMore(ctx context.Context, st State) (State, error) {
	if !HasMore(st) {
		return st, ErrNoMorePages
	}
	resp, err := a.fetcher.FetchPage(ctx, st.NextPage)
	if err == nil && resp == nil {
		err = errors.New("empty response")
	}
	if err != nil {
		a.log.Error("load more failed", "cursor", st.NextPage, "err", err)
		return st, fmt.Errorf("listing: load more: %w", err)
	}
	page := PageFromResponse(resp)

	items := make([]blog.PostSummary, 0, len(st.Items)+len(page.Items))
	items = append(items, st.Items...)
	items = append(items, page.Items...)
	return State{NextPage: page.NextPage, Items: items}, nil
}
