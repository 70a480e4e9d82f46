// Package dispatch translates canonical filters into requests against
// the remote marketplace API and normalizes whatever comes back into
// feed pages. Transport failures and malformed bodies never surface as
// errors: callers always receive a renderable page, possibly empty and
// terminal.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vecindario/discovery/internal/logging"
	"github.com/vecindario/discovery/internal/models"
	"github.com/vecindario/discovery/internal/ratelimit"
)

// PageSize is the fixed page size shared between the dispatcher and the
// feed controller. A page shorter than this is the last one.
const PageSize = 20

// Config holds upstream connection settings.
type Config struct {
	BaseURL     string
	BearerToken string
	Timeout     time.Duration
	UserAgent   string
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		Timeout:   15 * time.Second,
		UserAgent: "vecindario-discovery/1.0",
	}
}

// Client issues search requests against the marketplace backend.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	logger     *logging.Logger

	tokenCheck sync.Once
}

// New creates a dispatcher client. The limiter spaces requests to the
// upstream host; pass nil to disable spacing.
func New(cfg Config, limiter *ratelimit.Limiter, logger *logging.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		logger:     logger,
	}
}

// SearchJobs fetches one page of job listings matching the filter.
// Location parameters are omitted when the filter has no location.
func (c *Client) SearchJobs(ctx context.Context, filter models.FilterState, page int) models.FeedPage {
	query := url.Values{}
	if len(filter.SelectedTags) > 0 {
		query.Set("tags", strings.Join(filter.SelectedTags, ","))
	}
	if filter.Location != nil {
		query.Set("latitude", strconv.FormatFloat(filter.Location.Latitude, 'f', -1, 64))
		query.Set("longitude", strconv.FormatFloat(filter.Location.Longitude, 'f', -1, 64))
		query.Set("radius", strconv.Itoa(filter.RadiusMeters))
	}
	if filter.SearchTitle != "" {
		query.Set("title", filter.SearchTitle)
	}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(PageSize))

	body := c.get(ctx, "/jobs", query)
	return c.toPage(body, "jobs", models.KindJob, page)
}

// FilteredWorkers fetches one page of workers matching the filter. The
// upstream expects a POST body with the location, the radius under its
// legacy "ratio" name, and the tag list.
func (c *Client) FilteredWorkers(ctx context.Context, filter models.FilterState, page int) models.FeedPage {
	payload := workersRequest{
		Tags:  filter.SelectedTags,
		Page:  page,
		Limit: PageSize,
	}
	if filter.Location != nil {
		payload.Location = filter.Location
		payload.Ratio = filter.RadiusMeters
	}

	body := c.post(ctx, "/users/filtered", payload)
	return c.toPage(body, "users", models.KindWorker, page)
}

// Recommendations fetches one page of recommended jobs. The
// recommendation endpoint ignores filters; only the page moves.
func (c *Client) Recommendations(ctx context.Context, page int) models.FeedPage {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(PageSize))

	body := c.get(ctx, "/recommendations", query)
	return c.toPage(body, "jobs", models.KindJob, page)
}

type workersRequest struct {
	Location *models.LatLng `json:"location,omitempty"`
	Ratio    int            `json:"ratio,omitempty"`
	Tags     []string       `json:"tags"`
	Page     int            `json:"page"`
	Limit    int            `json:"limit"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values) []byte {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Warn("Failed to build search request", logging.WithField("error", err.Error()))
		return nil
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) []byte {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path

	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("Failed to encode search request", logging.WithField("error", err.Error()))
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		c.logger.Warn("Failed to build search request", logging.WithField("error", err.Error()))
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) []byte {
	c.warnIfTokenExpired()

	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	}

	if c.limiter != nil {
		c.limiter.Wait(req.URL.Host)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Search request failed", logging.WithFields(map[string]interface{}{
			"url":   req.URL.Path,
			"error": err.Error(),
		}))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Search request returned non-success status", logging.WithFields(map[string]interface{}{
			"url":    req.URL.Path,
			"status": resp.StatusCode,
		}))
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("Failed to read search response", logging.WithField("error", err.Error()))
		return nil
	}
	return body
}

// toPage decodes a response body into a feed page. The backend sometimes
// wraps the list ({"jobs":[...]}, {"users":[...]}) and sometimes returns
// a bare array; both are accepted, and a null or absent list is an empty
// page, not an error. Items that fail validation are dropped.
func (c *Client) toPage(body []byte, wrapperKey string, kind models.ResultKind, page int) models.FeedPage {
	if body == nil {
		return models.EmptyPage(page)
	}

	raw := decodeItemList(body, wrapperKey)
	items := make([]models.ResultItem, 0, len(raw))
	for _, entry := range raw {
		item := entry.toResultItem(kind)
		if err := item.Validate(); err != nil {
			c.logger.Debug("Dropping invalid result item", logging.WithField("error", err.Error()))
			continue
		}
		items = append(items, item)
	}

	return models.FeedPage{
		Items:      items,
		PageNumber: page,
		// A short page is judged on what the backend returned, not on
		// what survived validation; dropped entries must not end
		// pagination early.
		IsLast: len(raw) < PageSize,
	}
}

// flexID accepts the upstream's id field whether it arrives as a JSON
// number or a string.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexID(n.String())
	}
	return nil
}

// rawItem tolerates the loose upstream payloads: numeric or string IDs,
// absent fields, and per-kind field names.
type rawItem struct {
	ID          flexID   `json:"id"`
	Title       string   `json:"title"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Price       float64  `json:"price"`
	Rating      float64  `json:"rating"`
	Author      string   `json:"author"`
	Thumbnail   string   `json:"thumbnail"`
	CreatedAt   string   `json:"createdAt"`
}

func (r rawItem) toResultItem(kind models.ResultKind) models.ResultItem {
	title := r.Title
	if title == "" {
		title = r.Name
	}

	item := models.ResultItem{
		ID:          string(r.ID),
		Kind:        kind,
		Title:       title,
		Description: r.Description,
		Tags:        r.Tags,
		Price:       r.Price,
		Rating:      r.Rating,
		Author:      r.Author,
		Thumbnail:   r.Thumbnail,
	}
	if item.ID == "" || item.ID == "0" {
		item.ID = ""
	}
	if r.Latitude != nil && r.Longitude != nil {
		item.Location = &models.LatLng{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	if r.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			item.CreatedAt = t
		}
	}
	return item
}

func decodeItemList(body []byte, wrapperKey string) []rawItem {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err == nil {
		list, ok := wrapper[wrapperKey]
		if !ok || string(list) == "null" {
			return nil
		}
		var items []rawItem
		if err := json.Unmarshal(list, &items); err != nil {
			return nil
		}
		return items
	}

	var items []rawItem
	if err := json.Unmarshal(body, &items); err != nil {
		return nil
	}
	return items
}

// warnIfTokenExpired parses the configured bearer token once and logs an
// advisory when its exp claim is already in the past. Token refresh is
// the host application's concern; requests are still sent.
func (c *Client) warnIfTokenExpired() {
	c.tokenCheck.Do(func() {
		if c.cfg.BearerToken == "" {
			return
		}

		claims := jwt.MapClaims{}
		parser := jwt.NewParser()
		if _, _, err := parser.ParseUnverified(c.cfg.BearerToken, claims); err != nil {
			// Opaque tokens are fine; only well-formed JWTs are inspected.
			return
		}

		exp, err := claims.GetExpirationTime()
		if err != nil || exp == nil {
			return
		}
		if exp.Before(time.Now()) {
			c.logger.Warn("Configured bearer token is expired", logging.WithField(
				"expiredAt", exp.Format(time.RFC3339),
			))
		}
	})
}
