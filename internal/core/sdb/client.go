// Package sdb provides an item store adapter for the legacy REST data service.
//
// The service understands exact-match, `__terms`, `__range` and `__exists`
// query parameters. Clauses it cannot express are evaluated on the returned
// items.
package sdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	"github.com/lueurxax/brand-safety-audit/internal/core/itemdoc"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports"
	"github.com/lueurxax/brand-safety-audit/internal/platform/observability"
)

const storeName = "sdb"

const (
	defaultTimeout      = 30 * time.Second
	defaultPageSize     = 1000
	defaultRPS          = 10
	sortAscendingByID   = domain.FieldID + ":asc"
	maxResponseBodySize = 64 * 1024 * 1024 // 64MB
	errBodyReadLimit    = 1024

	suffixTerms  = "__terms"
	suffixRange  = "__range"
	suffixExists = "__exists"
)

// Error definitions for REST data service operations.
var (
	// ErrServerError is returned for non-200 responses.
	ErrServerError = errors.New("sdb server error")

	// ErrClientDisabled is returned when operations are attempted on a disabled client.
	ErrClientDisabled = errors.New("sdb client disabled")
)

// Config holds configuration for the REST data service client.
type Config struct {
	// BaseURL is the service URL, e.g., "http://sdb:10500/api/v1".
	BaseURL string
	// RPS limits outgoing requests per second.
	RPS float64
	// Timeout is the HTTP request timeout.
	Timeout time.Duration
}

// Client implements ports.PageSource against the REST data service.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	enabled     bool
}

var _ ports.PageSource = (*Client)(nil)

// New creates a new REST data service client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultRPS
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimiter: rate.NewLimiter(rate.Limit(rps), 1),
		enabled:     cfg.BaseURL != "",
	}
}

type pageResponse struct {
	Items         []json.RawMessage `json:"items"`
	NextPageToken string            `json:"nextPageToken"` //nolint:tagliatelle // REST API field name
}

// FetchPage returns the items after req.Cursor in ascending id order. Raw pages
// emptied by in-memory filtering are skipped so an empty result always means
// the source is exhausted.
func (c *Client) FetchPage(ctx context.Context, itemType domain.ItemType, req ports.PageRequest) (ports.Page, error) {
	if !c.enabled {
		return ports.Page{}, ErrClientDisabled
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	params, residual := encodeFilters(req.Filters)
	cursor := req.Cursor

	for {
		began := time.Now()
		raw, err := c.fetch(ctx, itemType, params, req.Fields, cursor, limit)

		observability.StoreRequestDuration.WithLabelValues(storeName, string(itemType)).Observe(time.Since(began).Seconds())

		if err != nil {
			observability.StoreRequestErrors.WithLabelValues(storeName).Inc()

			return ports.Page{}, err
		}

		page := ports.Page{}
		start := cursor
		more := raw.NextPageToken != ""

		for _, doc := range raw.Items {
			item, err := itemdoc.Decode(doc, itemType)
			if err != nil {
				return ports.Page{}, fmt.Errorf("decode %s document: %w", itemType, err)
			}

			// __range is inclusive of the cursor id.
			if item.ID <= cursor {
				continue
			}

			if len(page.Items) == limit {
				more = true
				break
			}

			cursor = item.ID

			if matchAll(residual, item) {
				page.Items = append(page.Items, item)
			}
		}

		if more && cursor != start {
			page.NextCursor = cursor
		}

		if len(page.Items) > 0 || page.NextCursor == "" {
			return page, nil
		}
	}
}

func (c *Client) fetch(ctx context.Context, itemType domain.ItemType, filters url.Values, fields []string, cursor string, limit int) (*pageResponse, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	for k, v := range filters {
		q[k] = v
	}

	q.Set("sort", sortAscendingByID)
	q.Set("size", strconv.Itoa(limit+1))

	if len(fields) > 0 {
		q.Set("fields", strings.Join(fields, ","))
	}

	if cursor != "" {
		q.Set(domain.FieldID+suffixRange, cursor+",")
	}

	endpoint := fmt.Sprintf("%s/%ss/?%s", c.baseURL, itemType, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", itemType, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", itemType, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyReadLimit))

		return nil, fmt.Errorf("%w: status %d, body: %s", ErrServerError, resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", itemType, err)
	}

	var out pageResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s response: %w", itemType, err)
	}

	return &out, nil
}

// encodeFilters splits filters into query parameters and the clauses that must
// be evaluated in memory.
func encodeFilters(filters []domain.Filter) (url.Values, []domain.Filter) {
	params := url.Values{}

	var residual []domain.Filter

	for _, f := range filters {
		if !encode(params, f) {
			residual = append(residual, f)
		}
	}

	return params, residual
}

func encode(params url.Values, f domain.Filter) bool {
	if params.Has(f.Field) || params.Has(f.Field+suffixTerms) || params.Has(f.Field+suffixRange) || params.Has(f.Field+suffixExists) {
		return false
	}

	switch {
	case f.Op == domain.OpExists:
		params.Set(f.Field+suffixExists, strconv.FormatBool(!f.Not))
	case f.Not:
		return false
	case f.Op == domain.OpTerm:
		params.Set(f.Field, fmt.Sprint(f.Value))
	case f.Op == domain.OpTerms:
		params.Set(f.Field+suffixTerms, strings.Join(f.Values, ","))
	case f.Op == domain.OpRange && f.Range.GT == nil && f.Range.LT == nil:
		params.Set(f.Field+suffixRange, bound(f.Range.GTE)+","+bound(f.Range.LTE))
	default:
		return false
	}

	return true
}

func bound(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(time.DateOnly)
	default:
		return fmt.Sprint(t)
	}
}

func matchAll(filters []domain.Filter, item domain.Item) bool {
	for _, f := range filters {
		if !f.Match(item) {
			return false
		}
	}

	return true
}
