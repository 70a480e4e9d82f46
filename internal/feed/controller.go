// Package feed owns the cross-page accumulation contract: first-page
// loads replace the accumulated list, later pages append with ID dedup,
// and a stale response can never clobber a newer first-page load.
package feed

import (
	"context"
	"sync"

	"github.com/vecindario/discovery/internal/logging"
	"github.com/vecindario/discovery/internal/models"
)

// Searcher fetches one page of results for a filter. Implementations
// must not fail: transport problems come back as an empty terminal page.
type Searcher interface {
	Search(ctx context.Context, filter models.FilterState, page int) models.FeedPage
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, filter models.FilterState, page int) models.FeedPage

func (f SearcherFunc) Search(ctx context.Context, filter models.FilterState, page int) models.FeedPage {
	return f(ctx, filter, page)
}

// Snapshot is the renderable state handed to the feed view.
type Snapshot struct {
	Items       []models.ResultItem `json:"items"`
	HasMore     bool                `json:"hasMore"`
	Loading     bool                `json:"loading"`
	LoadingMore bool                `json:"loadingMore"`
}

// Controller accumulates pages of search results.
type Controller struct {
	searcher Searcher
	logger   *logging.Logger

	mu          sync.Mutex
	items       []models.ResultItem
	seen        map[string]bool
	filter      models.FilterState
	page        int
	hasMore     bool
	loading     bool
	loadingMore bool

	// generation increments on every first-page load; responses issued
	// under an older generation are discarded on arrival.
	generation uint64
}

// New creates a feed controller over the given searcher.
func New(searcher Searcher, logger *logging.Logger) *Controller {
	return &Controller{
		searcher: searcher,
		logger:   logger,
		items:    make([]models.ResultItem, 0),
		seen:     make(map[string]bool),
	}
}

// LoadFirstPage discards the accumulated list and loads page one for the
// given filter. When two first-page loads race, whichever was issued
// last wins regardless of response arrival order.
func (c *Controller) LoadFirstPage(ctx context.Context, filter models.FilterState) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.loading = true
	c.filter = filter.Clone()
	c.mu.Unlock()

	page := c.searcher.Search(ctx, filter, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.logger.Debug("Discarding stale first-page response")
		return
	}

	c.loading = false
	c.items = c.items[:0]
	c.seen = make(map[string]bool, len(page.Items))
	for _, item := range page.Items {
		if c.seen[item.ID] {
			continue
		}
		c.seen[item.ID] = true
		c.items = append(c.items, item)
	}
	c.page = 1
	c.hasMore = !page.IsLast
}

// LoadNextPage appends the next page. Calls are dropped, not queued,
// while a previous next-page load is in flight or when the feed is
// exhausted. A failed or empty page leaves the accumulated list and the
// page cursor unchanged, so the caller may safely retry.
func (c *Controller) LoadNextPage(ctx context.Context) {
	c.mu.Lock()
	if c.loadingMore || !c.hasMore {
		c.mu.Unlock()
		return
	}
	c.loadingMore = true
	gen := c.generation
	next := c.page + 1
	filter := c.filter.Clone()
	c.mu.Unlock()

	page := c.searcher.Search(ctx, filter, next)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.loadingMore = false
	if gen != c.generation {
		c.logger.Debug("Discarding stale next-page response")
		return
	}

	if len(page.Items) == 0 {
		c.hasMore = !page.IsLast
		return
	}

	for _, item := range page.Items {
		if c.seen[item.ID] {
			continue
		}
		c.seen[item.ID] = true
		c.items = append(c.items, item)
	}
	c.page = next
	c.hasMore = !page.IsLast
}

// Items returns a copy of the accumulated results in first-seen order.
func (c *Controller) Items() []models.ResultItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.ResultItem(nil), c.items...)
}

// HasMore reports whether another page may exist.
func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// Loading reports whether a first-page load is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// LoadingMore reports whether a next-page load is in flight.
func (c *Controller) LoadingMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadingMore
}

// Snapshot returns the full renderable state in one lock acquisition.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Items:       append([]models.ResultItem(nil), c.items...),
		HasMore:     c.hasMore,
		Loading:     c.loading,
		LoadingMore: c.loadingMore,
	}
}
