// Package search provides an item store adapter backed by a search index.
//
// Queries are translated into the index bool DSL and paginated with
// search_after on the document id, so pages stay stable while the index is
// written to.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
	"github.com/lueurxax/brand-safety-audit/internal/core/itemdoc"
	"github.com/lueurxax/brand-safety-audit/internal/core/ports"
	"github.com/lueurxax/brand-safety-audit/internal/platform/observability"
)

const storeName = "search"

const (
	defaultTimeout      = 30 * time.Second
	defaultPageSize     = 1000
	healthCheckTimeout  = 5 * time.Second
	searchPath          = "/_search"
	contentTypeJSON     = "application/json"
	headerContentType   = "Content-Type"
	maxResponseBodySize = 64 * 1024 * 1024 // 64MB
	errBodyReadLimit    = 1024
)

// Config holds configuration for the search index client.
type Config struct {
	// BaseURL is the index cluster URL, e.g., "http://search:9200".
	BaseURL string
	// ChannelIndex and VideoIndex name the index of each item type.
	ChannelIndex string
	VideoIndex   string
	// Timeout is the HTTP request timeout.
	Timeout time.Duration
	// Retry controls retries of throttled or failed requests.
	Retry RetryConfig
}

// Client implements ports.PageSource against the search index.
type Client struct {
	baseURL    string
	indexes    map[domain.ItemType]string
	httpClient *http.Client
	retry      RetryConfig
	enabled    bool
}

var _ ports.PageSource = (*Client)(nil)

// New creates a new search index client with the given configuration.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	retry := cfg.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig()
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		indexes: map[domain.ItemType]string{
			domain.ItemTypeChannel: cfg.ChannelIndex,
			domain.ItemTypeVideo:   cfg.VideoIndex,
		},
		retry:   retry,
		enabled: cfg.BaseURL != "",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Enabled returns whether the client is enabled.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Ping checks that the cluster is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if !c.enabled {
		return ErrClientDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}

	return nil
}

type searchRequest struct {
	Query       clause           `json:"query"`
	Size        int              `json:"size"`
	Sort        []map[string]any `json:"sort"`
	SearchAfter []string         `json:"search_after,omitempty"`
	Source      []string         `json:"_source,omitempty"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// FetchPage returns the items after req.Cursor in ascending id order.
func (c *Client) FetchPage(ctx context.Context, itemType domain.ItemType, req ports.PageRequest) (ports.Page, error) {
	if !c.enabled {
		return ports.Page{}, ErrClientDisabled
	}

	index := c.indexes[itemType]
	if index == "" {
		return ports.Page{}, fmt.Errorf("fetch %s page: %w", itemType, ErrUnknownIndex)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	body := searchRequest{
		Query:  buildQuery(req.Filters),
		Size:   limit,
		Sort:   []map[string]any{{domain.FieldID: "asc"}},
		Source: req.Fields,
	}

	if req.Cursor != "" {
		body.SearchAfter = []string{req.Cursor}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ports.Page{}, fmt.Errorf("marshal search request: %w", err)
	}

	began := time.Now()
	result, err := withRetry(ctx, c.retry, func() (*searchResponse, error) {
		return c.search(ctx, index, payload)
	})

	observability.StoreRequestDuration.WithLabelValues(storeName, string(itemType)).Observe(time.Since(began).Seconds())

	if err != nil {
		observability.StoreRequestErrors.WithLabelValues(storeName).Inc()

		return ports.Page{}, err
	}

	page := ports.Page{Items: make([]domain.Item, 0, len(result.Hits.Hits))}

	for _, hit := range result.Hits.Hits {
		item, err := itemdoc.Decode(hit.Source, itemType)
		if err != nil {
			return ports.Page{}, fmt.Errorf("decode %s document: %w", itemType, err)
		}

		page.Items = append(page.Items, item)
	}

	if len(page.Items) == limit {
		page.NextCursor = page.Items[len(page.Items)-1].ID
	}

	return page, nil
}

func (c *Client) search(ctx context.Context, index string, payload []byte) (*searchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+index+searchPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}

	req.Header.Set(headerContentType, contentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	var result searchResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	return &result, nil
}

func statusError(resp *http.Response) error {
	statusErr := &StatusError{Code: resp.StatusCode}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		statusErr.RetryAfter = retryAfter(resp.Header)
	}

	if body, err := io.ReadAll(io.LimitReader(resp.Body, errBodyReadLimit)); err == nil {
		statusErr.Body = strings.TrimSpace(string(body))
	}

	return statusErr
}
