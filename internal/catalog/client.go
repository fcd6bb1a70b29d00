package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/aiox-platform/alchemist/internal/config"
	"github.com/aiox-platform/alchemist/internal/filters"
	"github.com/aiox-platform/alchemist/internal/metrics"
)

// Fields requested from the engine for every search.
const Fields = "title,imageUrl,listPrice,salePrice,score,description"

// productsPath is where the engine places the result list.
const productsPath = "response.products"

const maxResponseBytes = 8 << 20

// Record is a product as returned by the engine. Prices are nil when the
// engine omitted them so that shape validation can tell absent from zero.
type Record struct {
	Title       string   `json:"title"`
	ImageURL    string   `json:"image_url"`
	ListPrice   *float64 `json:"list_price"`
	SalePrice   *float64 `json:"sale_price"`
	Score       float64  `json:"score"`
	Description string   `json:"description"`
}

// CatalogError reports a failed search request.
type CatalogError struct {
	StatusCode int
	Err        error
}

func (e *CatalogError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog search returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("catalog search failed: %v", e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// Client searches the product catalog.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	siteKey    string
	maxBody    int64
}

// NewClient creates a catalog client.
func NewClient(cfg config.CatalogConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		siteKey:    cfg.SiteKey,
		maxBody:    maxResponseBytes,
	}
}

// Search runs a keyword search constrained by the filter set and returns the
// results ordered by descending relevance score; equal scores keep engine
// order. On any failure it returns an empty slice together with a
// *CatalogError, and never retries.
func (c *Client) Search(ctx context.Context, query string, set filters.Set) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(query, set.Encode()), nil)
	if err != nil {
		return []Record{}, &CatalogError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return []Record{}, &CatalogError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("catalog search non-success", "status", resp.StatusCode, "query", query)
		return []Record{}, &CatalogError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return []Record{}, &CatalogError{Err: fmt.Errorf("reading body: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		return []Record{}, &CatalogError{Err: fmt.Errorf("response body exceeds %d bytes", c.maxBody)}
	}
	if !gjson.ValidBytes(body) {
		return []Record{}, &CatalogError{Err: errors.New("invalid JSON body")}
	}

	records := normalize(gjson.GetBytes(body, productsPath))
	metrics.CatalogResults.Observe(float64(len(records)))
	return records, nil
}

// searchURL omits the filter parameter entirely when there is no filter;
// the engine treats a missing filter differently from an empty one.
func (c *Client) searchURL(query, filter string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("fields", Fields)
	if filter != "" {
		params.Set("filter", filter)
	}
	return fmt.Sprintf("%s/%s/%s/search?%s",
		c.baseURL, url.PathEscape(c.apiKey), url.PathEscape(c.siteKey), params.Encode())
}

func normalize(products gjson.Result) []Record {
	records := []Record{}
	if !products.IsArray() {
		return records
	}
	for _, p := range products.Array() {
		records = append(records, Record{
			Title:       p.Get("title").String(),
			ImageURL:    firstString(p.Get("imageUrl")),
			ListPrice:   price(p.Get("listPrice")),
			SalePrice:   price(p.Get("salePrice")),
			Score:       p.Get("score").Float(),
			Description: firstString(p.Get("description")),
		})
	}
	slices.SortStableFunc(records, func(a, b Record) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return records
}

// firstString accepts a plain string or the first element of a list.
func firstString(r gjson.Result) string {
	if r.IsArray() {
		arr := r.Array()
		if len(arr) == 0 {
			return ""
		}
		return arr[0].String()
	}
	return r.String()
}

func price(r gjson.Result) *float64 {
	if r.IsArray() {
		arr := r.Array()
		if len(arr) == 0 {
			return nil
		}
		r = arr[0]
	}
	switch r.Type {
	case gjson.Number:
		v := r.Float()
		return &v
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return nil
		}
		return &v
	}
	return nil
}
