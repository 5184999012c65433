package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cosmetics-shop-api/internal/model"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	// DefaultBaseURL is the public catalog API.
	DefaultBaseURL = "https://fortnite-api.com/v2"

	catalogPath  = "/cosmetics"
	newItemsPath = "/cosmetics/new"
	shopPath     = "/shop"
	newsPath     = "/news"

	maxBodyBytes = 64 << 20
)

// Config holds upstream API configuration
type Config struct {
	BaseURL  string
	APIKey   string
	Language string
	Timeout  time.Duration
}

// Client reads the upstream catalog, shop and news views. It never writes
// anything.
type Client struct {
	config     Config
	httpClient *http.Client
	baseURL    string
	log        logrus.FieldLogger
}

// NewClient creates a new upstream API client
func NewClient(cfg Config, log logrus.FieldLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		log:        log.WithField("component", "upstream"),
	}
}

// FetchCatalog returns the full cosmetics catalog grouped by category.
func (c *Client) FetchCatalog(ctx context.Context) (*CategorySet, error) {
	var set CategorySet
	if err := c.get(ctx, catalogPath, &set); err != nil {
		return nil, err
	}
	c.log.WithField("records", set.Len()).Debug("Fetched catalog")
	return &set, nil
}

// FetchNewItems returns the items added in the latest game update.
func (c *Client) FetchNewItems(ctx context.Context) (*NewItems, error) {
	var items NewItems
	if err := c.get(ctx, newItemsPath, &items); err != nil {
		return nil, err
	}
	c.log.WithField("records", items.Items.Len()).Debug("Fetched new items")
	return &items, nil
}

// FetchShop returns the current shop rotation.
func (c *Client) FetchShop(ctx context.Context) (*Shop, error) {
	var shop Shop
	if err := c.get(ctx, shopPath, &shop); err != nil {
		return nil, err
	}
	c.log.WithField("entries", len(shop.Entries)).Debug("Fetched shop")
	return &shop, nil
}

// FetchNews returns the current news feed. An empty feed is not an error.
func (c *Client) FetchNews(ctx context.Context) (*News, error) {
	var news News
	if err := c.get(ctx, newsPath, &news); err != nil {
		return nil, err
	}
	return &news, nil
}

// get fetches path and decodes the envelope's data into out. A missing or
// null data field leaves out untouched.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	resp, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", model.ErrUpstreamUnavailable, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %v", model.ErrUpstreamUnavailable, path, err)
	}

	// 404 is how the API reports an empty view.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s: status %d: %s", model.ErrUpstreamUnavailable, path, resp.StatusCode, truncate(body, 200))
	}

	return decodeEnvelope(body, out)
}

func (c *Client) doRequest(ctx context.Context, method, path string) (*http.Response, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if c.config.Language != "" {
		q := u.Query()
		q.Set("language", c.config.Language)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", c.config.APIKey)
	}

	return c.httpClient.Do(req)
}

// decodeEnvelope unwraps {status, data}.
func decodeEnvelope(body []byte, out interface{}) error {
	if !gjson.ValidBytes(body) {
		return fmt.Errorf("%w: malformed response body", model.ErrUpstreamUnavailable)
	}

	if status := gjson.GetBytes(body, "status"); status.Exists() && status.Type == gjson.Number {
		code := status.Int()
		if code == http.StatusNotFound {
			return nil
		}
		if code != 0 && (code < 200 || code >= 300) {
			return fmt.Errorf("%w: envelope status %d", model.ErrUpstreamUnavailable, code)
		}
	}

	data := gjson.GetBytes(body, "data")
	if !data.Exists() || data.Type == gjson.Null {
		return nil
	}

	if err := json.Unmarshal([]byte(data.Raw), out); err != nil {
		return fmt.Errorf("%w: decode data: %v", model.ErrUpstreamUnavailable, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
