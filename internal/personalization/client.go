package personalization

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aiox-platform/alchemist/internal/config"
	"github.com/aiox-platform/alchemist/internal/metrics"
)

//go:embed fallback_facets.json
var embeddedSnapshot []byte

// Source tells where a set of facets came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
	SourceNone     Source = "none"
)

// Facets maps an affinity field to its scored values.
type Facets map[string]any

// Affinity is the result of a facet lookup.
type Affinity struct {
	Facets    Facets    `json:"facets"`
	Source    Source    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// PersonalizationError describes why live facets were not used.
type PersonalizationError struct {
	UserID     string
	StatusCode int
	Err        error
}

func (e *PersonalizationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("affinity facets for %s: status %d", e.UserID, e.StatusCode)
	}
	return fmt.Sprintf("affinity facets for %s: %v", e.UserID, e.Err)
}

func (e *PersonalizationError) Unwrap() error {
	return e.Err
}

// Client fetches per-user affinity facets.
type Client struct {
	httpClient *http.Client
	baseURL    string
	siteKey    string
	fallback   Facets
}

// NewClient creates a personalization client. The fallback snapshot is read
// from cfg.FallbackPath when set, otherwise the embedded snapshot is used.
func NewClient(cfg config.PersonalizationConfig) (*Client, error) {
	raw := embeddedSnapshot
	if cfg.FallbackPath != "" {
		b, err := os.ReadFile(cfg.FallbackPath)
		if err != nil {
			return nil, fmt.Errorf("reading facet snapshot: %w", err)
		}
		raw = b
	}

	var fallback Facets
	if err := json.Unmarshal(raw, &fallback); err != nil {
		return nil, fmt.Errorf("decoding facet snapshot: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		siteKey:    cfg.SiteKey,
		fallback:   fallback,
	}, nil
}

// GetAffinityFacets never fails: a network error yields the fallback
// snapshot and a non-success response yields no facets. Both are logged.
func (c *Client) GetAffinityFacets(ctx context.Context, userID string) Affinity {
	aff, err := c.fetch(ctx, userID)
	if err != nil {
		if err.StatusCode != 0 {
			slog.Warn("affinity service non-success, continuing without facets", "error", err, "user_id", userID)
			aff = Affinity{Facets: Facets{}, Source: SourceNone}
		} else {
			slog.Warn("affinity service unreachable, using facet snapshot", "error", err, "user_id", userID)
			aff = Affinity{Facets: c.fallbackCopy(), Source: SourceFallback}
		}
		aff.FetchedAt = time.Now()
	}
	metrics.PersonalizationTotal.WithLabelValues(string(aff.Source)).Inc()
	return aff
}

const maxFacetBytes = 1 << 20

func (c *Client) fetch(ctx context.Context, userID string) (Affinity, *PersonalizationError) {
	u := fmt.Sprintf("%s/v1.0/sites/%s/affinity/facet?userId=%s",
		c.baseURL, url.PathEscape(c.siteKey), url.QueryEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Affinity{}, &PersonalizationError{UserID: userID, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Affinity{}, &PersonalizationError{UserID: userID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Affinity{}, &PersonalizationError{UserID: userID, StatusCode: resp.StatusCode}
	}

	var facets Facets
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFacetBytes)).Decode(&facets); err != nil {
		return Affinity{}, &PersonalizationError{UserID: userID, Err: fmt.Errorf("decoding facets: %w", err)}
	}
	if facets == nil {
		facets = Facets{}
	}
	return Affinity{Facets: facets, Source: SourceLive, FetchedAt: time.Now()}, nil
}

func (c *Client) fallbackCopy() Facets {
	out := make(Facets, len(c.fallback))
	for k, v := range c.fallback {
		out[k] = v
	}
	return out
}

// PromptClause renders the affinity as an addition to a system instruction.
// Snapshot facets are labelled as such so downstream prompts do not treat
// them as current.
func PromptClause(aff Affinity) string {
	if len(aff.Facets) == 0 {
		return ""
	}
	b, err := json.Marshal(aff.Facets)
	if err != nil {
		return ""
	}
	clause := " The following facets determine the likes, dislikes and personality of the user." +
		" Higher score for a field indicates stronger interest of the user."
	if aff.Source == SourceFallback {
		clause += " These facets come from a cached snapshot, not from the user's live profile, and may be out of date."
	}
	return clause + " The facets are " + string(b)
}
