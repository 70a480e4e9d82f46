package models

import (
	"fmt"
	"time"
)

// ResultKind discriminates the listing types a feed can hold.
type ResultKind string

const (
	KindJob    ResultKind = "job"
	KindWorker ResultKind = "worker"
	KindPost   ResultKind = "post"
)

// ValidKind reports whether k is a known result kind.
func ValidKind(k ResultKind) bool {
	switch k {
	case KindJob, KindWorker, KindPost:
		return true
	}
	return false
}

// ResultItem is one entry in a discovery feed. Kind selects which of the
// optional fields are meaningful; the shared fields are what the feed
// renders for every entry.
type ResultItem struct {
	ID          string     `json:"id"`
	Kind        ResultKind `json:"kind"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Location    *LatLng    `json:"location,omitempty"`
	Price       float64    `json:"price,omitempty"`
	Rating      float64    `json:"rating,omitempty"`
	Author      string     `json:"author,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	CreatedAt   time.Time  `json:"createdAt,omitempty"`
}

// Validate checks the invariants enforced at the dispatcher boundary.
func (r ResultItem) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("result item missing id")
	}
	if !ValidKind(r.Kind) {
		return fmt.Errorf("result item %s has unknown kind %q", r.ID, r.Kind)
	}
	return nil
}

// FeedPage is one page of search results as returned by the dispatcher.
type FeedPage struct {
	Items      []ResultItem `json:"items"`
	PageNumber int          `json:"pageNumber"`
	IsLast     bool         `json:"isLast"`
}

// EmptyPage returns a terminal page, used when a request fails or the
// response cannot be decoded.
func EmptyPage(pageNumber int) FeedPage {
	return FeedPage{
		Items:      []ResultItem{},
		PageNumber: pageNumber,
		IsLast:     true,
	}
}
